package memoryRepo

import (
	"context"
	"time"

	negotiationRepo "installhub/database/repository/negotiation"
	"installhub/domain"
	"installhub/models"
)

var _ negotiationRepo.NegotiationRepository = (*NegotiationRepo)(nil)

type NegotiationRepo struct{ s *Store }

func (r *NegotiationRepo) Create(ctx context.Context, n *models.ScheduleNegotiation) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.st.negotiations {
		if existing.BookingID == n.BookingID && existing.Status == models.NegotiationPending && n.Status == models.NegotiationPending {
			return domain.New(domain.CodeConflict, "booking %s already has a pending proposal", n.BookingID)
		}
	}
	r.s.st.negotiations = append(r.s.st.negotiations, *n)
	return nil
}

func (r *NegotiationRepo) find(ctx context.Context, match func(models.ScheduleNegotiation) bool, latest bool, what string) (*models.ScheduleNegotiation, error) {
	defer r.s.lock(ctx)()
	var found *models.ScheduleNegotiation
	for _, n := range r.s.st.negotiations {
		if match(n) {
			n := n
			found = &n
			if !latest {
				break
			}
		}
	}
	if found == nil {
		return nil, domain.NotFound("negotiation", what)
	}
	return found, nil
}

func (r *NegotiationRepo) GetByID(ctx context.Context, id string) (*models.ScheduleNegotiation, error) {
	return r.find(ctx, func(n models.ScheduleNegotiation) bool { return n.ID == id }, false, id)
}

func (r *NegotiationRepo) GetPending(ctx context.Context, bookingID string) (*models.ScheduleNegotiation, error) {
	return r.find(ctx, func(n models.ScheduleNegotiation) bool {
		return n.BookingID == bookingID && n.Status == models.NegotiationPending
	}, false, "pending for booking "+bookingID)
}

func (r *NegotiationRepo) Latest(ctx context.Context, bookingID string) (*models.ScheduleNegotiation, error) {
	return r.find(ctx, func(n models.ScheduleNegotiation) bool { return n.BookingID == bookingID }, true, "for booking "+bookingID)
}

func (r *NegotiationRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.ScheduleNegotiation, error) {
	defer r.s.lock(ctx)()
	out := []models.ScheduleNegotiation{}
	for _, n := range r.s.st.negotiations {
		if n.BookingID == bookingID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *NegotiationRepo) Count(ctx context.Context, bookingID string) (int64, error) {
	list, _ := r.ListByBooking(ctx, bookingID)
	return int64(len(list)), nil
}

func (r *NegotiationRepo) Resolve(ctx context.Context, id string, status models.NegotiationStatus, message string, now time.Time) (*models.ScheduleNegotiation, error) {
	defer r.s.lock(ctx)()
	for i, n := range r.s.st.negotiations {
		if n.ID != id {
			continue
		}
		if n.Status != models.NegotiationPending {
			return nil, nil
		}
		n.Status = status
		n.RespondedAt = &now
		if message != "" {
			n.ResponseMessage = message
		}
		r.s.st.negotiations[i] = n
		return &n, nil
	}
	return nil, nil
}

func (r *NegotiationRepo) SupersedeOthers(ctx context.Context, bookingID, keepID string, now time.Time) (int64, error) {
	defer r.s.lock(ctx)()
	var changed int64
	for i, n := range r.s.st.negotiations {
		if n.BookingID == bookingID && n.ID != keepID && n.Status != models.NegotiationSuperseded {
			n.Status = models.NegotiationSuperseded
			r.s.st.negotiations[i] = n
			changed++
		}
	}
	return changed, nil
}

func (r *NegotiationRepo) Delete(ctx context.Context, id string) error {
	defer r.s.lock(ctx)()
	list := r.s.st.negotiations
	for i, n := range list {
		if n.ID == id {
			r.s.st.negotiations = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return domain.NotFound("negotiation", id)
}
