package exemption

import (
	"context"
	"testing"
	"time"

	memoryRepo "installhub/database/repository/memory"
	"installhub/services/cache"
)

func newPolicy(now time.Time) (*DefaultFeePolicy, *memoryRepo.Store) {
	store := memoryRepo.NewStore()
	return &DefaultFeePolicy{
		Profiles:        store.Profiles(),
		Vouchers:        store.Vouchers(),
		Settings:        store.Settings(),
		Cache:           cache.NewLocalSettingsCache(time.Minute),
		VoucherValidity: 24 * time.Hour,
		Now:             func() time.Time { return now },
	}, store
}

func TestPrecedenceVIPBeforePromotionBeforeVoucher(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p, _ := newPolicy(now)
	ctx := context.Background()

	d, err := p.ShouldChargeFee(ctx, "i1")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if !d.Charge || d.Reason != ReasonNone {
		t.Fatalf("default decision = %+v, want charge", d)
	}

	if _, _, err := p.IssueVoucher(ctx, "i1"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if d, _ = p.ShouldChargeFee(ctx, "i1"); d.Charge || d.Reason != ReasonFirstLeadVoucher || d.VoucherID == "" {
		t.Fatalf("with voucher = %+v", d)
	}

	if _, err := p.SetPromotion(ctx, true, nil, "admin"); err != nil {
		t.Fatalf("promotion: %v", err)
	}
	if d, _ = p.ShouldChargeFee(ctx, "i1"); d.Reason != ReasonPromotion {
		t.Fatalf("with promotion = %+v", d)
	}

	if err := p.SetVIP(ctx, "i1", true); err != nil {
		t.Fatalf("vip: %v", err)
	}
	if d, _ = p.ShouldChargeFee(ctx, "i1"); d.Reason != ReasonVIP || d.Charge {
		t.Fatalf("with vip = %+v", d)
	}
}

func TestShouldChargeFeeDoesNotConsume(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p, _ := newPolicy(now)
	ctx := context.Background()
	if _, _, err := p.IssueVoucher(ctx, "i1"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 0; i < 3; i++ {
		d, err := p.ShouldChargeFee(ctx, "i1")
		if err != nil {
			t.Fatalf("evaluation %d: %v", i, err)
		}
		if d.Reason != ReasonFirstLeadVoucher {
			t.Fatalf("evaluation %d consumed the voucher: %+v", i, d)
		}
	}
}

func TestVoucherConsumedOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p, _ := newPolicy(now)
	ctx := context.Background()
	if _, _, err := p.IssueVoucher(ctx, "i1"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	d, err := p.ShouldChargeFee(ctx, "i1")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	waived, err := p.ConsumeVoucher(ctx, d, "i1", "b1")
	if err != nil || !waived {
		t.Fatalf("first consume = %v, %v", waived, err)
	}
	waived, err = p.ConsumeVoucher(ctx, d, "i1", "b2")
	if err != nil || waived {
		t.Fatalf("stale decision must not waive again: %v, %v", waived, err)
	}
	if d, _ = p.ShouldChargeFee(ctx, "i1"); !d.Charge {
		t.Fatalf("used voucher still waives: %+v", d)
	}
}

func TestIssueVoucherIsIdempotent(t *testing.T) {
	p, _ := newPolicy(time.Now())
	ctx := context.Background()

	first, created, err := p.IssueVoucher(ctx, "i1")
	if err != nil || !created {
		t.Fatalf("first issue = %v, %v", created, err)
	}
	second, created, err := p.IssueVoucher(ctx, "i1")
	if err != nil || created || second.ID != first.ID {
		t.Fatalf("second issue = %+v, %v, %v", second, created, err)
	}
}

func TestExpiredPromotionAndVoucher(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p, _ := newPolicy(now)
	ctx := context.Background()

	until := now.Add(time.Hour)
	if _, err := p.SetPromotion(ctx, true, &until, "admin"); err != nil {
		t.Fatalf("promotion: %v", err)
	}
	if _, _, err := p.IssueVoucher(ctx, "i1"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	later := now.Add(48 * time.Hour)
	p.Now = func() time.Time { return later }
	n, err := p.ExpireVouchers(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expire = %d, %v", n, err)
	}
	if d, _ := p.ShouldChargeFee(ctx, "i1"); !d.Charge {
		t.Fatalf("expired waivers still apply: %+v", d)
	}
}

func TestSetPromotionInvalidatesCache(t *testing.T) {
	p, _ := newPolicy(time.Now())
	ctx := context.Background()

	if promo, _ := p.GetPromotion(ctx); promo.Active {
		t.Fatalf("promotion should start inactive")
	}
	if _, err := p.SetPromotion(ctx, true, nil, "admin"); err != nil {
		t.Fatalf("promotion: %v", err)
	}
	if promo, _ := p.GetPromotion(ctx); !promo.Active {
		t.Fatalf("cached inactive promotion survived the update")
	}
}
