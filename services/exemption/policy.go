package exemption

import (
	"context"
	"errors"
	"time"

	profileRepo "installhub/database/repository/profile"
	settingsRepo "installhub/database/repository/settings"
	voucherRepo "installhub/database/repository/voucher"
	"installhub/domain"
	"installhub/models"
	"installhub/services/cache"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const promotionCacheKey = "platform:" + models.SettingFreeLeadsPromotion

type DefaultFeePolicy struct {
	Profiles        profileRepo.ProfileRepository
	Vouchers        voucherRepo.VoucherRepository
	Settings        settingsRepo.SettingsRepository
	Cache           cache.SettingsCache
	VoucherValidity time.Duration
	Logger          *zap.Logger
	Now             func() time.Time
}

func (p *DefaultFeePolicy) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func (p *DefaultFeePolicy) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *DefaultFeePolicy) ShouldChargeFee(ctx context.Context, installerID string) (Decision, error) {
	inst, err := p.Profiles.GetInstaller(ctx, installerID)
	if err != nil {
		return Decision{}, err
	}
	if inst.VIP {
		return Decision{Charge: false, Reason: ReasonVIP}, nil
	}

	promo, err := p.GetPromotion(ctx)
	if err != nil {
		return Decision{}, err
	}
	if promo.ActiveAt(p.now()) {
		return Decision{Charge: false, Reason: ReasonPromotion}, nil
	}

	v, err := p.Vouchers.GetByInstaller(ctx, installerID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return Decision{}, err
	case v.Redeemable(p.now()):
		return Decision{Charge: false, Reason: ReasonFirstLeadVoucher, VoucherID: v.ID}, nil
	}
	return Decision{Charge: true, Reason: ReasonNone}, nil
}

func (p *DefaultFeePolicy) ConsumeVoucher(ctx context.Context, d Decision, installerID, bookingID string) (bool, error) {
	if d.Reason != ReasonFirstLeadVoucher {
		return !d.Charge, nil
	}
	v, err := p.Vouchers.Consume(ctx, installerID, bookingID, p.now())
	if err != nil {
		return false, err
	}
	if v == nil {
		p.logger().Info("voucher no longer redeemable, charging fee",
			zap.String("installerId", installerID), zap.String("bookingId", bookingID))
		return false, nil
	}
	return true, nil
}

func (p *DefaultFeePolicy) IssueVoucher(ctx context.Context, installerID string) (*models.FirstLeadVoucher, bool, error) {
	if installerID == "" {
		return nil, false, domain.Validation("installer id is required")
	}
	now := p.now()
	v := &models.FirstLeadVoucher{
		ID:          uuid.New().String(),
		InstallerID: installerID,
		IssuedAt:    now,
	}
	if p.VoucherValidity > 0 {
		expires := now.Add(p.VoucherValidity)
		v.ExpiresAt = &expires
	}
	stored, created, err := p.Vouchers.Issue(ctx, v)
	if err != nil {
		return nil, false, err
	}
	if created {
		p.logger().Info("first-lead voucher issued", zap.String("installerId", installerID), zap.String("voucherId", stored.ID))
	}
	return stored, created, nil
}

func (p *DefaultFeePolicy) GetVoucher(ctx context.Context, installerID string) (*models.FirstLeadVoucher, error) {
	return p.Vouchers.GetByInstaller(ctx, installerID)
}

func (p *DefaultFeePolicy) SetVIP(ctx context.Context, installerID string, vip bool) error {
	if installerID == "" {
		return domain.Validation("installer id is required")
	}
	if err := p.Profiles.SetVIP(ctx, installerID, vip, p.now()); err != nil {
		return err
	}
	p.logger().Info("installer vip updated", zap.String("installerId", installerID), zap.Bool("vip", vip))
	return nil
}

// GetPromotion reads the promotion toggle through the settings cache. Cache
// failures fall back to the store.
func (p *DefaultFeePolicy) GetPromotion(ctx context.Context) (*models.PlatformSetting, error) {
	if p.Cache != nil {
		var cached models.PlatformSetting
		ok, err := p.Cache.Get(ctx, promotionCacheKey, &cached)
		if err != nil {
			p.logger().Warn("settings cache read failed", zap.String("key", promotionCacheKey), zap.Error(err))
		} else if ok {
			return &cached, nil
		}
	}

	setting, err := p.Settings.GetSetting(ctx, models.SettingFreeLeadsPromotion)
	if err != nil {
		return nil, err
	}
	if p.Cache != nil {
		if err := p.Cache.Set(ctx, promotionCacheKey, setting); err != nil {
			p.logger().Warn("settings cache write failed", zap.String("key", promotionCacheKey), zap.Error(err))
		}
	}
	return setting, nil
}

func (p *DefaultFeePolicy) SetPromotion(ctx context.Context, active bool, until *time.Time, updatedBy string) (*models.PlatformSetting, error) {
	now := p.now()
	if until != nil && !until.After(now) {
		return nil, domain.Validation("promotion end must be in the future")
	}
	setting := models.PlatformSetting{
		Key:       models.SettingFreeLeadsPromotion,
		Active:    active,
		Until:     until,
		UpdatedBy: updatedBy,
		UpdatedAt: now,
	}
	if err := p.Settings.PutSetting(ctx, setting); err != nil {
		return nil, err
	}
	if p.Cache != nil {
		if err := p.Cache.Invalidate(ctx, promotionCacheKey); err != nil {
			p.logger().Warn("settings cache invalidation failed", zap.String("key", promotionCacheKey), zap.Error(err))
		}
	}
	p.logger().Info("free leads promotion updated", zap.Bool("active", active), zap.String("updatedBy", updatedBy))
	return &setting, nil
}

func (p *DefaultFeePolicy) ExpireVouchers(ctx context.Context) (int64, error) {
	n, err := p.Vouchers.ExpireStale(ctx, p.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.logger().Info("expired first-lead vouchers", zap.Int64("count", n))
	}
	return n, nil
}
