package negotiation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"installhub/database"
	bookingRepo "installhub/database/repository/booking"
	negotiationRepo "installhub/database/repository/negotiation"
	"installhub/domain"
	"installhub/models"
	"installhub/services/notification"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type ProposeInput struct {
	BookingID string `json:"-"`
	// ActorID is the installer or customer proposing; empty skips the ownership check.
	ActorID string       `json:"-"`
	By      models.Party `json:"proposedBy"`
	Date    string       `json:"proposedDate" binding:"required"`
	Time    string       `json:"proposedTime" binding:"required"`
	Message string       `json:"message"`
}

type RespondInput struct {
	NegotiationID string       `json:"-"`
	ActorID       string       `json:"-"`
	By            models.Party `json:"responder"`
	Accept        bool         `json:"accept"`
	Message       string       `json:"message"`
}

// NegotiationService runs the schedule proposal protocol between the holding
// installer and the customer.
type NegotiationService interface {
	Propose(ctx context.Context, input ProposeInput) (*models.ScheduleNegotiation, error)
	Respond(ctx context.Context, input RespondInput) (*models.ScheduleNegotiation, error)
	List(ctx context.Context, bookingID string) ([]models.ScheduleNegotiation, error)
	// Active returns the pending proposal, or nil when there is none.
	Active(ctx context.Context, bookingID string) (*models.ScheduleNegotiation, error)
	DeleteLatest(ctx context.Context, bookingID string) (*models.ScheduleNegotiation, error)
}

type DefaultNegotiationService struct {
	Bookings     bookingRepo.BookingRepository
	Negotiations negotiationRepo.NegotiationRepository
	Notifier     notification.Notifier
	Tx           database.TxRunner
	Logger       *zap.Logger
	Now          func() time.Time
}

func (s *DefaultNegotiationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *DefaultNegotiationService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func validateSlot(date, clock string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return domain.Validation("proposed date %q must be YYYY-MM-DD", date)
	}
	if _, err := time.Parse(timeLayout, clock); err != nil {
		return domain.Validation("proposed time %q must be HH:MM", clock)
	}
	return nil
}

func checkParty(b *models.Booking, party models.Party, actorID string) error {
	if actorID == "" {
		return nil
	}
	owner := b.CustomerID
	if party == models.PartyInstaller {
		owner = b.InstallerID
	}
	if owner != actorID {
		return domain.New(domain.CodeForbidden, "%s %s is not a party to booking %s", party, actorID, b.ID)
	}
	return nil
}

func negotiable(status models.BookingStatus) bool {
	return status == models.BookingAccepted || status == models.BookingInProgress
}

func (s *DefaultNegotiationService) Propose(ctx context.Context, input ProposeInput) (*models.ScheduleNegotiation, error) {
	if _, err := models.ParseParty(string(input.By)); err != nil {
		return nil, domain.Validation("%v", err)
	}
	if err := validateSlot(input.Date, input.Time); err != nil {
		return nil, err
	}
	b, err := s.Bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if !negotiable(b.Status) || b.InstallerID == "" {
		return nil, domain.InvalidTransition(string(b.Status), "schedule negotiation")
	}
	if err := checkParty(b, input.By, input.ActorID); err != nil {
		return nil, err
	}

	switch pending, err := s.Negotiations.GetPending(ctx, b.ID); {
	case err == nil:
		return nil, domain.New(domain.CodeConflict, "booking %s already has pending proposal %s", b.ID, pending.ID)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	n := &models.ScheduleNegotiation{
		ID:           uuid.New().String(),
		BookingID:    b.ID,
		InstallerID:  b.InstallerID,
		ProposedDate: input.Date,
		ProposedTime: input.Time,
		ProposedBy:   input.By,
		Status:       models.NegotiationPending,
		Message:      strings.TrimSpace(input.Message),
		CreatedAt:    s.now(),
	}
	if err := s.Negotiations.Create(ctx, n); err != nil {
		return nil, err
	}

	s.logger().Info("schedule proposed",
		zap.String("bookingId", b.ID),
		zap.String("negotiationId", n.ID),
		zap.String("proposedBy", string(n.ProposedBy)),
		zap.String("slot", n.ProposedDate+" "+n.ProposedTime),
	)
	s.notify(ctx, b, input.By.Counterpart(), "New schedule proposal",
		fmt.Sprintf("Proposed slot %s at %s.", n.ProposedDate, n.ProposedTime),
		map[string]string{"bookingId": b.ID, "negotiationId": n.ID})
	return n, nil
}

func (s *DefaultNegotiationService) Respond(ctx context.Context, input RespondInput) (*models.ScheduleNegotiation, error) {
	if _, err := models.ParseParty(string(input.By)); err != nil {
		return nil, domain.Validation("%v", err)
	}
	n, err := s.Negotiations.GetByID(ctx, input.NegotiationID)
	if err != nil {
		return nil, err
	}
	if input.By != n.ProposedBy.Counterpart() {
		return nil, domain.New(domain.CodeForbidden, "only the %s may answer proposal %s", n.ProposedBy.Counterpart(), n.ID)
	}
	if n.Status != models.NegotiationPending {
		return nil, domain.InvalidTransition(string(n.Status), "responded")
	}
	b, err := s.Bookings.GetByID(ctx, n.BookingID)
	if err != nil {
		return nil, err
	}
	if err := checkParty(b, input.By, input.ActorID); err != nil {
		return nil, err
	}
	latest, err := s.Negotiations.Latest(ctx, n.BookingID)
	if err != nil {
		return nil, err
	}
	if latest.ID != n.ID {
		return nil, domain.New(domain.CodeConflict, "proposal %s is not the latest for booking %s", n.ID, n.BookingID)
	}

	status := models.NegotiationDeclined
	if input.Accept {
		status = models.NegotiationAccepted
	}
	now := s.now()

	var resolved *models.ScheduleNegotiation
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		r, err := s.Negotiations.Resolve(ctx, n.ID, status, strings.TrimSpace(input.Message), now)
		if err != nil {
			return err
		}
		if r == nil {
			return domain.InvalidTransition(string(models.NegotiationPending), string(status))
		}
		if input.Accept {
			if err := s.Bookings.SetSchedule(ctx, n.BookingID, n.ProposedDate, n.ProposedTime, now); err != nil {
				return err
			}
			if _, err := s.Negotiations.SupersedeOthers(ctx, n.BookingID, n.ID, now); err != nil {
				return err
			}
		}
		resolved = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info("schedule proposal answered",
		zap.String("bookingId", n.BookingID),
		zap.String("negotiationId", n.ID),
		zap.String("status", string(status)),
	)
	title := "Schedule proposal declined"
	if input.Accept {
		title = "Schedule confirmed"
	}
	s.notify(ctx, b, n.ProposedBy, title,
		fmt.Sprintf("Slot %s at %s was %s.", n.ProposedDate, n.ProposedTime, status),
		map[string]string{"bookingId": n.BookingID, "negotiationId": n.ID, "status": string(status)})
	return resolved, nil
}

func (s *DefaultNegotiationService) List(ctx context.Context, bookingID string) ([]models.ScheduleNegotiation, error) {
	if _, err := s.Bookings.GetByID(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.Negotiations.ListByBooking(ctx, bookingID)
}

func (s *DefaultNegotiationService) Active(ctx context.Context, bookingID string) (*models.ScheduleNegotiation, error) {
	n, err := s.Negotiations.GetPending(ctx, bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return n, err
}

func (s *DefaultNegotiationService) DeleteLatest(ctx context.Context, bookingID string) (*models.ScheduleNegotiation, error) {
	var deleted *models.ScheduleNegotiation
	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		count, err := s.Negotiations.Count(ctx, bookingID)
		if err != nil {
			return err
		}
		if count == 0 {
			return domain.NotFound("negotiation", "for booking "+bookingID)
		}
		if count == 1 {
			return domain.Validation("booking %s has only one negotiation; it cannot be deleted", bookingID)
		}
		latest, err := s.Negotiations.Latest(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := s.Negotiations.Delete(ctx, latest.ID); err != nil {
			return err
		}
		deleted = latest
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger().Info("negotiation deleted", zap.String("bookingId", bookingID), zap.String("negotiationId", deleted.ID))
	return deleted, nil
}

func (s *DefaultNegotiationService) notify(ctx context.Context, b *models.Booking, to models.Party, title, body string, data map[string]string) {
	if s.Notifier == nil {
		return
	}
	var err error
	if to == models.PartyInstaller {
		err = s.Notifier.NotifyInstaller(ctx, b.InstallerID, title, body, data)
	} else {
		err = s.Notifier.NotifyCustomer(ctx, b.CustomerID, title, body, data)
	}
	if err != nil {
		s.logger().Debug("negotiation notification not sent", zap.String("bookingId", b.ID), zap.Error(err))
	}
}
