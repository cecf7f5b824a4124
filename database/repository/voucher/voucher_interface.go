package voucherRepo

import (
	"context"
	"time"

	"installhub/models"
)

// VoucherRepository stores first-lead vouchers, at most one per installer.
type VoucherRepository interface {
	// Issue stores v unless the installer already has a voucher; it reports
	// whether a new one was written and returns the stored voucher either way.
	Issue(ctx context.Context, v *models.FirstLeadVoucher) (*models.FirstLeadVoucher, bool, error)
	GetByInstaller(ctx context.Context, installerID string) (*models.FirstLeadVoucher, error)
	// Consume marks the installer's voucher used for bookingID. It returns
	// (nil, nil) when no redeemable voucher exists.
	Consume(ctx context.Context, installerID, bookingID string, now time.Time) (*models.FirstLeadVoucher, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}
