package exemption

import (
	"context"
	"time"

	"installhub/models"
)

type Reason string

const (
	ReasonVIP              Reason = "vip"
	ReasonPromotion        Reason = "promotion"
	ReasonFirstLeadVoucher Reason = "first_lead_voucher"
	ReasonNone             Reason = "none"
)

// Decision is the outcome of evaluating the waiver rules for one claim.
type Decision struct {
	Charge    bool   `json:"charge"`
	Reason    Reason `json:"reason"`
	VoucherID string `json:"voucherId,omitempty"`
}

// FeePolicy decides whether an installer pays the lead fee.
type FeePolicy interface {
	// ShouldChargeFee is read-only; it never consumes a voucher.
	ShouldChargeFee(ctx context.Context, installerID string) (Decision, error)
	// ConsumeVoucher commits a voucher decision for bookingID and reports
	// whether the waiver still applies. Non-voucher decisions pass through.
	ConsumeVoucher(ctx context.Context, d Decision, installerID, bookingID string) (bool, error)
	IssueVoucher(ctx context.Context, installerID string) (*models.FirstLeadVoucher, bool, error)
	GetVoucher(ctx context.Context, installerID string) (*models.FirstLeadVoucher, error)
	SetVIP(ctx context.Context, installerID string, vip bool) error
	GetPromotion(ctx context.Context) (*models.PlatformSetting, error)
	SetPromotion(ctx context.Context, active bool, until *time.Time, updatedBy string) (*models.PlatformSetting, error)
	ExpireVouchers(ctx context.Context) (int64, error)
}
