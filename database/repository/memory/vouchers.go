package memoryRepo

import (
	"context"
	"time"

	voucherRepo "installhub/database/repository/voucher"
	"installhub/domain"
	"installhub/models"
)

var _ voucherRepo.VoucherRepository = (*VoucherRepo)(nil)

type VoucherRepo struct{ s *Store }

func (r *VoucherRepo) Issue(ctx context.Context, v *models.FirstLeadVoucher) (*models.FirstLeadVoucher, bool, error) {
	defer r.s.lock(ctx)()
	if existing, ok := r.s.st.vouchers[v.InstallerID]; ok {
		return &existing, false, nil
	}
	stored := *v
	r.s.st.vouchers[v.InstallerID] = stored
	return &stored, true, nil
}

func (r *VoucherRepo) GetByInstaller(ctx context.Context, installerID string) (*models.FirstLeadVoucher, error) {
	defer r.s.lock(ctx)()
	v, ok := r.s.st.vouchers[installerID]
	if !ok {
		return nil, domain.NotFound("voucher for installer", installerID)
	}
	return &v, nil
}

func (r *VoucherRepo) Consume(ctx context.Context, installerID, bookingID string, now time.Time) (*models.FirstLeadVoucher, error) {
	defer r.s.lock(ctx)()
	v, ok := r.s.st.vouchers[installerID]
	if !ok || !v.Redeemable(now) {
		return nil, nil
	}
	v.IsUsed = true
	v.UsedForBookingID = bookingID
	v.UsedAt = &now
	r.s.st.vouchers[installerID] = v
	return &v, nil
}

func (r *VoucherRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	defer r.s.lock(ctx)()
	var n int64
	for k, v := range r.s.st.vouchers {
		if !v.IsUsed && !v.Expired && v.ExpiresAt != nil && !v.ExpiresAt.After(now) {
			v.Expired = true
			r.s.st.vouchers[k] = v
			n++
		}
	}
	return n, nil
}
