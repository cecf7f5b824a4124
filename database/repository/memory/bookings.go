package memoryRepo

import (
	"context"
	"sort"
	"time"

	bookingRepo "installhub/database/repository/booking"
	"installhub/domain"
	"installhub/models"
)

var _ bookingRepo.BookingRepository = (*BookingRepo)(nil)

type BookingRepo struct{ s *Store }

func (r *BookingRepo) Create(ctx context.Context, b *models.Booking) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.st.bookings[b.ID]; ok {
		return domain.New(domain.CodeConflict, "booking %s already exists", b.ID)
	}
	r.s.st.bookings[b.ID] = *b
	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	defer r.s.lock(ctx)()
	b, ok := r.s.st.bookings[id]
	if !ok {
		return nil, domain.NotFound("booking", id)
	}
	return &b, nil
}

// cas applies mutate when match holds, mirroring a conditional update.
func (r *BookingRepo) cas(ctx context.Context, id string, match func(models.Booking) bool, mutate func(*models.Booking)) (*models.Booking, error) {
	defer r.s.lock(ctx)()
	b, ok := r.s.st.bookings[id]
	if !ok || !match(b) {
		return nil, nil
	}
	mutate(&b)
	b.Version++
	r.s.st.bookings[id] = b
	return &b, nil
}

func (r *BookingRepo) Claim(ctx context.Context, bookingID, installerID string, now time.Time) (*models.Booking, error) {
	return r.cas(ctx, bookingID,
		func(b models.Booking) bool { return b.Status == models.BookingPending && b.InstallerID == "" },
		func(b *models.Booking) {
			b.Status = models.BookingAssigned
			b.InstallerID = installerID
			b.UpdatedAt = now
		})
}

func (r *BookingRepo) Transition(ctx context.Context, bookingID, installerID string, from, to models.BookingStatus, now time.Time) (*models.Booking, error) {
	return r.cas(ctx, bookingID,
		func(b models.Booking) bool { return b.Status == from && b.InstallerID == installerID },
		func(b *models.Booking) {
			b.Status = to
			b.UpdatedAt = now
			if to == models.BookingCompleted {
				b.CompletedAt = &now
			}
		})
}

func (r *BookingRepo) Release(ctx context.Context, bookingID, installerID string, now time.Time) (*models.Booking, error) {
	return r.cas(ctx, bookingID,
		func(b models.Booking) bool {
			return b.InstallerID == installerID &&
				(b.Status == models.BookingAssigned || b.Status == models.BookingAccepted)
		},
		func(b *models.Booking) {
			b.Status = models.BookingPending
			b.InstallerID = ""
			b.UpdatedAt = now
		})
}

func (r *BookingRepo) MarkDeleted(ctx context.Context, bookingID string, now time.Time) (*models.Booking, error) {
	return r.cas(ctx, bookingID,
		func(b models.Booking) bool { return b.Status == models.BookingPending && b.InstallerID == "" },
		func(b *models.Booking) {
			b.Status = models.BookingDeleted
			b.DeletedAt = &now
			b.UpdatedAt = now
		})
}

func (r *BookingRepo) SetRating(ctx context.Context, bookingID string, stars float64, eligible bool, now time.Time) (*models.Booking, error) {
	return r.cas(ctx, bookingID,
		func(b models.Booking) bool { return b.Status == models.BookingCompleted && !b.RefundProcessed },
		func(b *models.Booking) {
			b.QualityStars = &stars
			b.EligibleForRefund = eligible
			b.RatedAt = &now
			b.UpdatedAt = now
		})
}

func (r *BookingRepo) MarkRefundProcessed(ctx context.Context, bookingID string, amount int64, pct float64, now time.Time) (*models.Booking, error) {
	return r.cas(ctx, bookingID,
		func(b models.Booking) bool {
			return b.Status == models.BookingCompleted && b.EligibleForRefund && !b.RefundProcessed
		},
		func(b *models.Booking) {
			b.RefundProcessed = true
			b.RefundAmount = &amount
			b.RefundPercentage = &pct
			b.RefundProcessedAt = &now
			b.UpdatedAt = now
		})
}

func (r *BookingRepo) SetSchedule(ctx context.Context, bookingID, date, timeOfDay string, now time.Time) error {
	b, err := r.cas(ctx, bookingID,
		func(models.Booking) bool { return true },
		func(b *models.Booking) {
			b.ScheduledDate = date
			b.ScheduledTime = timeOfDay
			b.UpdatedAt = now
		})
	if err != nil {
		return err
	}
	if b == nil {
		return domain.NotFound("booking", bookingID)
	}
	return nil
}

func (r *BookingRepo) list(ctx context.Context, match func(models.Booking) bool, limit int64) []models.Booking {
	defer r.s.lock(ctx)()
	out := []models.Booking{}
	for _, b := range r.s.st.bookings {
		if match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out
}

func (r *BookingRepo) ListByStatus(ctx context.Context, status models.BookingStatus, limit int64) ([]models.Booking, error) {
	return r.list(ctx, func(b models.Booking) bool { return b.Status == status }, limit), nil
}

func (r *BookingRepo) ListUnprocessedRefunds(ctx context.Context, limit int64) ([]models.Booking, error) {
	return r.list(ctx, func(b models.Booking) bool {
		return b.Status == models.BookingCompleted && b.EligibleForRefund && !b.RefundProcessed
	}, limit), nil
}
