package assignment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	memoryRepo "installhub/database/repository/memory"
	"installhub/domain"
	"installhub/models"
	"installhub/services/antimanipulation"
	"installhub/services/cache"
	"installhub/services/exemption"
	"installhub/services/ledger"
	"installhub/services/refund"
	"installhub/services/tasks"
)

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type harness struct {
	svc     *DefaultAssignmentService
	store   *memoryRepo.Store
	ledger  *ledger.DefaultLedgerService
	policy  *exemption.DefaultFeePolicy
	refunds *refund.DefaultRefundEngine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memoryRepo.NewStore()
	clock := func() time.Time { return fixedNow }
	settingsCache := cache.NewLocalSettingsCache(time.Minute)

	ledgerSvc := ledger.NewDefaultLedgerService(store.Ledger(), store, nil, nil)
	policy := &exemption.DefaultFeePolicy{
		Profiles:        store.Profiles(),
		Vouchers:        store.Vouchers(),
		Settings:        store.Settings(),
		Cache:           settingsCache,
		VoucherValidity: 30 * 24 * time.Hour,
		Now:             clock,
	}
	tracker := &antimanipulation.DefaultTracker{
		Flags:     store.Flags(),
		Jobs:      store.Jobs(),
		Profiles:  store.Profiles(),
		Threshold: 3,
		Window:    7 * 24 * time.Hour,
		Now:       clock,
	}
	engine := &refund.DefaultRefundEngine{
		Bookings: store.Bookings(),
		Jobs:     store.Jobs(),
		Settings: store.Settings(),
		Ledger:   ledgerSvc,
		Tx:       store,
		Cache:    settingsCache,
		Now:      clock,
	}
	if _, err := engine.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := &DefaultAssignmentService{
		Bookings:       store.Bookings(),
		Jobs:           store.Jobs(),
		Profiles:       store.Profiles(),
		Ledger:         ledgerSvc,
		Policy:         policy,
		Tracker:        tracker,
		Refunds:        &tasks.InlineEnqueuer{Refunds: engine},
		Tx:             store,
		MinRefundStars: 3,
		Now:            clock,
	}
	return &harness{svc: svc, store: store, ledger: ledgerSvc, policy: policy, refunds: engine}
}

func (h *harness) booking(t *testing.T, id string, fee int64) {
	t.Helper()
	if _, err := h.svc.CreateBooking(context.Background(), models.CreateBookingInput{
		ID: id, CustomerID: "c1", Service: "heat_pump", TotalPrice: 500000, LeadFee: &fee,
	}); err != nil {
		t.Fatalf("create booking: %v", err)
	}
}

func (h *harness) fund(t *testing.T, installerID string, amount int64) {
	t.Helper()
	if _, _, err := h.ledger.Post(context.Background(), models.PostEntry{
		Kind: models.InstallerWallet, OwnerID: installerID, Amount: amount, Type: models.TxAdjustment, Description: "opening balance",
	}); err != nil {
		t.Fatalf("fund: %v", err)
	}
}

func (h *harness) balance(t *testing.T, installerID string) int64 {
	t.Helper()
	w, err := h.ledger.GetInstallerWallet(context.Background(), installerID)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	return w.Balance
}

func TestClaimChargesFeeAndAssigns(t *testing.T) {
	h := newHarness(t)
	h.booking(t, "b1", 2500)
	h.fund(t, "i1", 10000)

	res, err := h.svc.Claim(context.Background(), "b1", "i1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.Booking.Status != models.BookingAssigned || res.Booking.InstallerID != "i1" {
		t.Fatalf("booking = %+v", res.Booking)
	}
	if res.Job.LeadFeeStatus != models.LeadFeePaid || res.Transaction == nil || res.Transaction.Amount != -2500 {
		t.Fatalf("claim result = %+v", res)
	}
	if got := h.balance(t, "i1"); got != 7500 {
		t.Fatalf("balance = %d, want 7500", got)
	}
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	h := newHarness(t)
	h.booking(t, "b1", 1000)
	for i := 0; i < 8; i++ {
		h.fund(t, fmt.Sprintf("i%d", i), 5000)
	}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.Claim(context.Background(), "b1", fmt.Sprintf("i%d", i))
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, domain.ErrAlreadyHeld):
			if got := h.balance(t, fmt.Sprintf("i%d", i)); got != 5000 {
				t.Fatalf("loser i%d was charged: balance %d", i, got)
			}
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want 1", winners)
	}
	jobs, _ := h.svc.ListJobsForBooking(context.Background(), "b1")
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(jobs))
	}
}

func TestClaimRollsBackOnInsufficientFunds(t *testing.T) {
	h := newHarness(t)
	h.booking(t, "b1", 2500)
	h.fund(t, "i1", 1000)

	if _, err := h.svc.Claim(context.Background(), "b1", "i1"); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("claim err = %v, want InsufficientFunds", err)
	}
	b, _ := h.svc.GetBooking(context.Background(), "b1")
	if b.Status != models.BookingPending || b.InstallerID != "" {
		t.Fatalf("booking not rolled back: %+v", b)
	}
	if jobs, _ := h.svc.ListJobsForBooking(context.Background(), "b1"); len(jobs) != 0 {
		t.Fatalf("job left behind: %+v", jobs)
	}
	if got := h.balance(t, "i1"); got != 1000 {
		t.Fatalf("balance = %d, want 1000", got)
	}
}

func TestClaimPreconditions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.Claim(ctx, "missing", "i1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}

	if _, err := h.svc.CreateBooking(ctx, models.CreateBookingInput{ID: "nofee", CustomerID: "c1", Service: "solar"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.svc.Claim(ctx, "nofee", "i1"); !errors.Is(err, domain.ErrFeeMissing) {
		t.Fatalf("no fee err = %v, want FeeMissing", err)
	}

	h.booking(t, "b1", 100)
	until := fixedNow.Add(time.Hour)
	if err := h.store.Profiles().SetSuspension(ctx, "i9", &until, fixedNow); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if _, err := h.svc.Claim(ctx, "b1", "i9"); !errors.Is(err, domain.ErrSuspended) {
		t.Fatalf("suspended err = %v", err)
	}

	if _, err := h.svc.DeleteBooking(ctx, "b1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := h.svc.Claim(ctx, "b1", "i1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("deleted booking err = %v, want InvalidTransition", err)
	}
}

func TestVoucherWaivesExactlyOneClaim(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.booking(t, "b1", 2500)
	h.booking(t, "b2", 2500)
	h.fund(t, "i1", 2500)
	if _, _, err := h.policy.IssueVoucher(ctx, "i1"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	first, err := h.svc.Claim(ctx, "b1", "i1")
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if first.Decision.Reason != exemption.ReasonFirstLeadVoucher || first.Job.LeadFeeStatus != models.LeadFeeWaived {
		t.Fatalf("first claim = %+v", first.Decision)
	}
	second, err := h.svc.Claim(ctx, "b2", "i1")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if !second.Decision.Charge || second.Job.LeadFeeStatus != models.LeadFeePaid {
		t.Fatalf("second claim = %+v", second.Decision)
	}
	if got := h.balance(t, "i1"); got != 0 {
		t.Fatalf("balance = %d, want 0", got)
	}
}

func TestVIPClaimsWithoutFunds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.booking(t, "b1", 2500)
	if err := h.policy.SetVIP(ctx, "i1", true); err != nil {
		t.Fatalf("vip: %v", err)
	}
	res, err := h.svc.Claim(ctx, "b1", "i1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.Decision.Reason != exemption.ReasonVIP || res.Transaction != nil {
		t.Fatalf("result = %+v", res)
	}
}

func TestAdvanceIsStrict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.booking(t, "b1", 1000)
	h.fund(t, "i1", 1000)
	res, err := h.svc.Claim(ctx, "b1", "i1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	jobID := res.Job.ID

	if _, err := h.svc.Advance(ctx, jobID, "i1", models.JobInProgress); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("skip err = %v, want InvalidTransition", err)
	}
	if _, err := h.svc.Advance(ctx, jobID, "i2", models.JobAccepted); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign installer err = %v, want Forbidden", err)
	}
	for _, next := range []models.JobStatus{models.JobAccepted, models.JobInProgress, models.JobCompleted} {
		j, err := h.svc.Advance(ctx, jobID, "i1", next)
		if err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
		if j.Status != next {
			t.Fatalf("status = %s, want %s", j.Status, next)
		}
	}
	b, _ := h.svc.GetBooking(ctx, "b1")
	if b.Status != models.BookingCompleted {
		t.Fatalf("booking status = %s", b.Status)
	}
	if _, err := h.svc.Advance(ctx, jobID, "i1", models.JobCompleted); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("past completion err = %v", err)
	}
}

func TestCancelReversesFeeAndReopens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.booking(t, "b1", 2500)
	h.fund(t, "i1", 5000)
	res, err := h.svc.Claim(ctx, "b1", "i1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	if _, err := h.svc.Cancel(ctx, CancelInput{JobID: res.Job.ID, By: models.CancelledByInstaller}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty reason err = %v", err)
	}

	out, err := h.svc.Cancel(ctx, CancelInput{JobID: res.Job.ID, Reason: "van broke down", By: models.CancelledByInstaller, ActorID: "i1"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if out.Job.Status != models.JobCancelled || out.Job.Active || out.Job.LeadFeeStatus != models.LeadFeeReversed {
		t.Fatalf("job = %+v", out.Job)
	}
	if out.Booking.Status != models.BookingPending || out.Booking.InstallerID != "" {
		t.Fatalf("booking = %+v", out.Booking)
	}
	if out.Reversal == nil || out.Reversal.Amount != 2500 {
		t.Fatalf("reversal = %+v", out.Reversal)
	}
	if got := h.balance(t, "i1"); got != 5000 {
		t.Fatalf("balance = %d, want 5000", got)
	}

	if _, err := h.svc.Claim(ctx, "b1", "i1"); err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	flags, _ := h.svc.Tracker.List(ctx, "i1", true)
	var sawReclaim bool
	for _, f := range flags {
		if f.Pattern == models.PatternDeclineReclaimCycle {
			sawReclaim = true
		}
	}
	if !sawReclaim {
		t.Fatalf("expected a reclaim flag, got %+v", flags)
	}
}

func TestDeclineKeepsVoucherSpent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.booking(t, "b1", 2500)
	h.booking(t, "b2", 2500)
	if _, _, err := h.policy.IssueVoucher(ctx, "i1"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	first, err := h.svc.Claim(ctx, "b1", "i1")
	if err != nil {
		t.Fatalf("claim b1: %v", err)
	}
	if first.Decision.Reason != exemption.ReasonFirstLeadVoucher {
		t.Fatalf("first claim = %+v", first.Decision)
	}
	if _, err := h.svc.Decline(ctx, "b1", "i1", "too far"); err != nil {
		t.Fatalf("decline: %v", err)
	}

	v, err := h.policy.GetVoucher(ctx, "i1")
	if err != nil {
		t.Fatalf("voucher: %v", err)
	}
	if !v.IsUsed || v.UsedForBookingID != "b1" {
		t.Fatalf("voucher after decline = %+v, want used for b1", v)
	}

	h.fund(t, "i1", 2500)
	second, err := h.svc.Claim(ctx, "b2", "i1")
	if err != nil {
		t.Fatalf("claim b2: %v", err)
	}
	if !second.Decision.Charge || second.Decision.Reason != exemption.ReasonNone || second.Transaction == nil {
		t.Fatalf("second claim = %+v", second.Decision)
	}
	if v, _ = h.policy.GetVoucher(ctx, "i1"); v.UsedForBookingID != "b1" {
		t.Fatalf("voucher re-pointed to %q", v.UsedForBookingID)
	}
}

func TestVIPTakesPrecedenceOverPromotionAndVoucher(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.booking(t, "b1", 2500)
	if err := h.policy.SetVIP(ctx, "i1", true); err != nil {
		t.Fatalf("vip: %v", err)
	}
	if _, err := h.policy.SetPromotion(ctx, true, nil, "ops"); err != nil {
		t.Fatalf("promotion: %v", err)
	}
	if _, _, err := h.policy.IssueVoucher(ctx, "i1"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	res, err := h.svc.Claim(ctx, "b1", "i1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.Transaction != nil || res.Decision.Charge || res.Decision.Reason != exemption.ReasonVIP {
		t.Fatalf("result = %+v, transaction = %+v", res.Decision, res.Transaction)
	}
	v, err := h.policy.GetVoucher(ctx, "i1")
	if err != nil {
		t.Fatalf("voucher: %v", err)
	}
	if v.IsUsed {
		t.Fatalf("vip claim spent the voucher: %+v", v)
	}
}

func TestZeroFeeClaimLeavesVoucherUnused(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.booking(t, "free", 0)
	h.booking(t, "paid", 2500)
	if _, _, err := h.policy.IssueVoucher(ctx, "i1"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	res, err := h.svc.Claim(ctx, "free", "i1")
	if err != nil {
		t.Fatalf("claim free: %v", err)
	}
	if res.Transaction != nil || res.Job.LeadFeeStatus != models.LeadFeeWaived || res.Decision.Reason != exemption.ReasonNone {
		t.Fatalf("zero fee claim = %+v, job = %+v", res.Decision, res.Job)
	}
	if v, err := h.policy.GetVoucher(ctx, "i1"); err != nil || v.IsUsed {
		t.Fatalf("voucher after zero fee claim = %+v, %v", v, err)
	}

	paid, err := h.svc.Claim(ctx, "paid", "i1")
	if err != nil {
		t.Fatalf("claim paid: %v", err)
	}
	if paid.Decision.Reason != exemption.ReasonFirstLeadVoucher || paid.Transaction != nil {
		t.Fatalf("paid claim = %+v", paid.Decision)
	}
}

func TestCancelRejectedOnceInProgress(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.booking(t, "b1", 0)
	res, err := h.svc.Claim(ctx, "b1", "i1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	for _, next := range []models.JobStatus{models.JobAccepted, models.JobInProgress} {
		if _, err := h.svc.Advance(ctx, res.Job.ID, "i1", next); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if _, err := h.svc.Cancel(ctx, CancelInput{JobID: res.Job.ID, Reason: "x", By: models.CancelledByAdmin}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("cancel err = %v, want InvalidTransition", err)
	}
}

func TestRateTriggersRefund(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.booking(t, "b1", 100)
	h.fund(t, "i1", 100)
	res, err := h.svc.Claim(ctx, "b1", "i1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	for _, next := range []models.JobStatus{models.JobAccepted, models.JobInProgress, models.JobCompleted} {
		if _, err := h.svc.Advance(ctx, res.Job.ID, "i1", next); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	if _, err := h.svc.Rate(ctx, "b1", "c1", 5.5); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("out of range err = %v", err)
	}
	if _, err := h.svc.Rate(ctx, "b1", "c2", 4); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign customer err = %v", err)
	}
	b, err := h.svc.Rate(ctx, "b1", "c1", 4.7)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if !b.EligibleForRefund {
		t.Fatalf("expected eligible booking")
	}
	if got := h.balance(t, "i1"); got != 50 {
		t.Fatalf("balance after refund = %d, want 50", got)
	}

	if _, err := h.svc.Rate(ctx, "b1", "c1", 5); !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("re-rate err = %v, want AlreadyProcessed", err)
	}
}

func TestRateBelowThresholdIsNotEligible(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.booking(t, "b1", 0)
	res, _ := h.svc.Claim(ctx, "b1", "i1")
	for _, next := range []models.JobStatus{models.JobAccepted, models.JobInProgress, models.JobCompleted} {
		if _, err := h.svc.Advance(ctx, res.Job.ID, "", next); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	b, err := h.svc.Rate(ctx, "b1", "", 2.9)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if b.EligibleForRefund {
		t.Fatalf("2.9 stars must not be eligible")
	}
}
