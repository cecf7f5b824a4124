package negotiation

import (
	"context"
	"errors"
	"testing"
	"time"

	memoryRepo "installhub/database/repository/memory"
	"installhub/domain"
	"installhub/models"
)

func newService(t *testing.T, status models.BookingStatus) (*DefaultNegotiationService, *memoryRepo.Store) {
	t.Helper()
	store := memoryRepo.NewStore()
	b := &models.Booking{ID: "b1", CustomerID: "c1", InstallerID: "i1", Status: status}
	if err := store.Bookings().Create(context.Background(), b); err != nil {
		t.Fatalf("create booking: %v", err)
	}
	tick := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	return &DefaultNegotiationService{
		Bookings:     store.Bookings(),
		Negotiations: store.Negotiations(),
		Tx:           store,
		Now: func() time.Time {
			tick = tick.Add(time.Minute)
			return tick
		},
	}, store
}

func propose(t *testing.T, s *DefaultNegotiationService, by models.Party, actor, date string) *models.ScheduleNegotiation {
	t.Helper()
	n, err := s.Propose(context.Background(), ProposeInput{BookingID: "b1", ActorID: actor, By: by, Date: date, Time: "09:30"})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	return n
}

func TestProposeValidation(t *testing.T) {
	s, _ := newService(t, models.BookingAccepted)
	ctx := context.Background()

	bad := []ProposeInput{
		{BookingID: "b1", By: models.PartyInstaller, Date: "01/06/2026", Time: "09:30"},
		{BookingID: "b1", By: models.PartyInstaller, Date: "2026-06-01", Time: "9.30am"},
		{BookingID: "b1", By: models.Party("admin"), Date: "2026-06-01", Time: "09:30"},
	}
	for _, in := range bad {
		if _, err := s.Propose(ctx, in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("Propose(%+v) = %v, want Validation", in, err)
		}
	}
	if _, err := s.Propose(ctx, ProposeInput{BookingID: "b1", ActorID: "i2", By: models.PartyInstaller, Date: "2026-06-01", Time: "09:30"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-holder err = %v, want Forbidden", err)
	}
}

func TestProposeRequiresAcceptedBooking(t *testing.T) {
	s, _ := newService(t, models.BookingAssigned)
	_, err := s.Propose(context.Background(), ProposeInput{BookingID: "b1", By: models.PartyInstaller, Date: "2026-06-01", Time: "09:30"})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want InvalidTransition", err)
	}
}

func TestOnlyOnePendingProposal(t *testing.T) {
	s, _ := newService(t, models.BookingAccepted)
	propose(t, s, models.PartyInstaller, "i1", "2026-06-02")
	_, err := s.Propose(context.Background(), ProposeInput{BookingID: "b1", By: models.PartyCustomer, Date: "2026-06-03", Time: "10:00"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second pending err = %v, want Conflict", err)
	}
}

func TestRespondAcceptSetsScheduleAndSupersedes(t *testing.T) {
	s, store := newService(t, models.BookingInProgress)
	ctx := context.Background()

	first := propose(t, s, models.PartyInstaller, "i1", "2026-06-02")
	if _, err := s.Respond(ctx, RespondInput{NegotiationID: first.ID, By: models.PartyInstaller}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("self-response err = %v, want Forbidden", err)
	}
	if _, err := s.Respond(ctx, RespondInput{NegotiationID: first.ID, ActorID: "c1", By: models.PartyCustomer, Accept: false, Message: "busy"}); err != nil {
		t.Fatalf("decline: %v", err)
	}

	counter := propose(t, s, models.PartyCustomer, "c1", "2026-06-05")
	accepted, err := s.Respond(ctx, RespondInput{NegotiationID: counter.ID, ActorID: "i1", By: models.PartyInstaller, Accept: true})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != models.NegotiationAccepted {
		t.Fatalf("status = %s", accepted.Status)
	}

	b, _ := store.Bookings().GetByID(ctx, "b1")
	if b.ScheduledDate != "2026-06-05" || b.ScheduledTime != "09:30" {
		t.Fatalf("schedule = %s %s", b.ScheduledDate, b.ScheduledTime)
	}
	all, _ := s.List(ctx, "b1")
	if len(all) != 2 || all[0].Status != models.NegotiationSuperseded || all[1].ID != counter.ID {
		t.Fatalf("history = %+v", all)
	}
	if active, _ := s.Active(ctx, "b1"); active != nil {
		t.Fatalf("no proposal should be pending, got %+v", active)
	}

	if _, err := s.Respond(ctx, RespondInput{NegotiationID: counter.ID, By: models.PartyInstaller, Accept: true}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second answer err = %v", err)
	}
}

func TestDeleteLatestKeepsLastRecord(t *testing.T) {
	s, _ := newService(t, models.BookingAccepted)
	ctx := context.Background()

	if _, err := s.DeleteLatest(ctx, "b1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("empty history err = %v", err)
	}
	first := propose(t, s, models.PartyInstaller, "i1", "2026-06-02")
	if _, err := s.DeleteLatest(ctx, "b1"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("only record err = %v, want Validation", err)
	}
	if _, err := s.Respond(ctx, RespondInput{NegotiationID: first.ID, By: models.PartyCustomer}); err != nil {
		t.Fatalf("decline: %v", err)
	}
	second := propose(t, s, models.PartyInstaller, "i1", "2026-06-03")

	deleted, err := s.DeleteLatest(ctx, "b1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != second.ID {
		t.Fatalf("deleted %s, want %s", deleted.ID, second.ID)
	}
	if all, _ := s.List(ctx, "b1"); len(all) != 1 {
		t.Fatalf("remaining = %d, want 1", len(all))
	}
}
