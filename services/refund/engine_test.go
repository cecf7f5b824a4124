package refund

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	memoryRepo "installhub/database/repository/memory"
	"installhub/domain"
	"installhub/models"
	"installhub/services/cache"
	"installhub/services/ledger"
)

var fixedNow = time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) (*DefaultRefundEngine, *memoryRepo.Store) {
	t.Helper()
	store := memoryRepo.NewStore()
	e := &DefaultRefundEngine{
		Bookings: store.Bookings(),
		Jobs:     store.Jobs(),
		Settings: store.Settings(),
		Ledger:   ledger.NewDefaultLedgerService(store.Ledger(), store, nil, nil),
		Tx:       store,
		Cache:    cache.NewLocalSettingsCache(time.Minute),
		Now:      func() time.Time { return fixedNow },
	}
	if _, err := e.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return e, store
}

func completedBooking(t *testing.T, store *memoryRepo.Store, id string, fee int64, stars float64, paidBy ...string) {
	t.Helper()
	ctx := context.Background()
	b := &models.Booking{
		ID:                id,
		CustomerID:        "c1",
		Service:           "solar",
		LeadFee:           &fee,
		Status:            models.BookingCompleted,
		QualityStars:      &stars,
		EligibleForRefund: stars >= 3,
		CreatedAt:         fixedNow,
	}
	if len(paidBy) > 0 {
		b.InstallerID = paidBy[len(paidBy)-1]
	}
	if err := store.Bookings().Create(ctx, b); err != nil {
		t.Fatalf("create booking: %v", err)
	}
	for i, installer := range paidBy {
		j := &models.JobAssignment{
			ID:            id + "-job-" + installer,
			BookingID:     id,
			InstallerID:   installer,
			Status:        models.JobCompleted,
			Active:        i == len(paidBy)-1,
			LeadFeeStatus: models.LeadFeePaid,
			LeadFeeAmount: fee,
			AssignedAt:    fixedNow,
		}
		if err := store.Jobs().Create(ctx, j); err != nil {
			t.Fatalf("create job: %v", err)
		}
	}
}

func TestRefundAmountRounding(t *testing.T) {
	cases := []struct {
		fee  int64
		pct  float64
		want int64
	}{
		{100, 50, 50},
		{2500, 25, 625},
		{999, 33.3, 333},
		{1, 50, 1},
		{1000, 0, 0},
	}
	for _, tc := range cases {
		if got := RefundAmount(tc.fee, tc.pct); got != tc.want {
			t.Fatalf("RefundAmount(%d, %v) = %d, want %d", tc.fee, tc.pct, got, tc.want)
		}
	}
}

func TestProcessCreditsOnceAtFourStars(t *testing.T) {
	e, store := newEngine(t)
	ctx := context.Background()
	completedBooking(t, store, "b1", 100, 4.5, "i1")

	out, err := e.Process(ctx, "b1")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.StarLevel != 4 || out.RefundAmount != 50 || len(out.Credits) != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	w, _ := store.Ledger().GetWallet(ctx, models.InstallerWallet, "i1")
	if w.Balance != 50 || w.TotalEarned != 50 {
		t.Fatalf("wallet = %+v, want 50 credited", w)
	}

	again, err := e.Process(ctx, "b1")
	if !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("second process err = %v, want AlreadyProcessed", err)
	}
	if again == nil || !again.AlreadyProcessed || again.RefundAmount != 50 {
		t.Fatalf("stored outcome = %+v", again)
	}
	w, _ = store.Ledger().GetWallet(ctx, models.InstallerWallet, "i1")
	if w.Balance != 50 {
		t.Fatalf("balance after retry = %d, want 50", w.Balance)
	}
}

func TestProcessConcurrentCallsCreditOnce(t *testing.T) {
	e, store := newEngine(t)
	ctx := context.Background()
	completedBooking(t, store, "b1", 2500, 5, "i1")

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Process(ctx, "b1"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrAlreadyProcessed) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("succeeded = %d, want 1", succeeded)
	}
	w, _ := store.Ledger().GetWallet(ctx, models.InstallerWallet, "i1")
	if w.Balance != 1875 {
		t.Fatalf("balance = %d, want 1875", w.Balance)
	}
}

func TestProcessCreditsEveryPaidAssignment(t *testing.T) {
	e, store := newEngine(t)
	ctx := context.Background()
	completedBooking(t, store, "b1", 1000, 3, "i1", "i2")

	out, err := e.Process(ctx, "b1")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.RefundAmount != 500 || len(out.Credits) != 2 {
		t.Fatalf("outcome = %+v, want two credits of 250", out)
	}
	b, _ := store.Bookings().GetByID(ctx, "b1")
	if b.RefundAmount == nil || *b.RefundAmount != 500 {
		t.Fatalf("stored refund amount = %v, want 500", b.RefundAmount)
	}
}

func TestProcessRejections(t *testing.T) {
	e, store := newEngine(t)
	ctx := context.Background()

	if _, err := e.Process(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing booking err = %v", err)
	}

	completedBooking(t, store, "low", 1000, 2, "i1")
	if _, err := e.Process(ctx, "low"); !errors.Is(err, domain.ErrNotEligible) {
		t.Fatalf("two-star err = %v, want NotEligible", err)
	}

	pending := &models.Booking{ID: "open", CustomerID: "c1", Status: models.BookingPending}
	if err := store.Bookings().Create(ctx, pending); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.Process(ctx, "open"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("pending booking err = %v, want InvalidTransition", err)
	}

	completedBooking(t, store, "b4", 1000, 4, "i1")
	if _, err := e.UpsertSetting(ctx, models.PerformanceRefundSetting{StarLevel: 4, RefundPercentage: 50, Active: false}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := e.Process(ctx, "b4"); !errors.Is(err, domain.ErrNoRefundPolicy) {
		t.Fatalf("inactive setting err = %v, want NoRefundPolicy", err)
	}
	b, _ := store.Bookings().GetByID(ctx, "b4")
	if b.RefundProcessed {
		t.Fatalf("booking must stay unprocessed when no policy applies")
	}
}

func TestUpsertSettingInvalidatesCache(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	before, err := e.ListSettings(ctx)
	if err != nil || len(before) != 3 {
		t.Fatalf("list = %v, %v", before, err)
	}
	if _, err := e.UpsertSetting(ctx, models.PerformanceRefundSetting{StarLevel: 5, RefundPercentage: 90, Active: true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	after, _ := e.ListSettings(ctx)
	for _, s := range after {
		if s.StarLevel == 5 && s.RefundPercentage != 90 {
			t.Fatalf("cached settings not invalidated: %+v", s)
		}
	}

	if _, err := e.UpsertSetting(ctx, models.PerformanceRefundSetting{StarLevel: 6, RefundPercentage: 10}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("level 6 err = %v", err)
	}
	if _, err := e.UpsertSetting(ctx, models.PerformanceRefundSetting{StarLevel: 4, RefundPercentage: 120}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("pct 120 err = %v", err)
	}
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	e, _ := newEngine(t)
	n, err := e.SeedDefaults(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("second seed = %d, %v; want 0 inserted", n, err)
	}
}

func TestSweepPendingProcessesBacklog(t *testing.T) {
	e, store := newEngine(t)
	ctx := context.Background()
	completedBooking(t, store, "b1", 1000, 5, "i1")
	completedBooking(t, store, "b2", 1000, 3, "i2")

	n, err := e.SweepPending(ctx, 10)
	if err != nil || n != 2 {
		t.Fatalf("sweep = %d, %v", n, err)
	}
	if n, _ := e.SweepPending(ctx, 10); n != 0 {
		t.Fatalf("second sweep processed %d", n)
	}
}
