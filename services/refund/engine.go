package refund

import (
	"context"
	"fmt"
	"math"
	"time"

	"installhub/database"
	bookingRepo "installhub/database/repository/booking"
	jobRepo "installhub/database/repository/job"
	settingsRepo "installhub/database/repository/settings"
	"installhub/domain"
	"installhub/models"
	"installhub/services/cache"
	"installhub/services/ledger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const settingsCacheKey = "refund_settings"

// RefundEngine credits installers a share of their lead fee after a
// well-rated completion, at most once per booking.
type RefundEngine interface {
	Process(ctx context.Context, bookingID string) (*models.RefundOutcome, error)
	ListSettings(ctx context.Context) ([]models.PerformanceRefundSetting, error)
	UpsertSetting(ctx context.Context, s models.PerformanceRefundSetting) (*models.PerformanceRefundSetting, error)
	SeedDefaults(ctx context.Context) (int, error)
	// SweepPending processes eligible bookings whose refund never ran.
	SweepPending(ctx context.Context, limit int64) (int, error)
}

type DefaultRefundEngine struct {
	Bookings bookingRepo.BookingRepository
	Jobs     jobRepo.JobRepository
	Settings settingsRepo.SettingsRepository
	Ledger   ledger.LedgerService
	Tx       database.TxRunner
	Cache    cache.SettingsCache
	Logger   *zap.Logger
	Now      func() time.Time
}

func (e *DefaultRefundEngine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *DefaultRefundEngine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// RefundAmount returns fee × pct / 100 rounded half away from zero to the
// nearest minor unit.
func RefundAmount(fee int64, pct float64) int64 {
	return decimal.NewFromInt(fee).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

func storedOutcome(b *models.Booking) *models.RefundOutcome {
	out := &models.RefundOutcome{BookingID: b.ID, AlreadyProcessed: true}
	if b.QualityStars != nil {
		out.StarLevel = int(math.Floor(*b.QualityStars))
	}
	if b.RefundAmount != nil {
		out.RefundAmount = *b.RefundAmount
	}
	if b.RefundPercentage != nil {
		out.RefundPercentage = *b.RefundPercentage
	}
	return out
}

func alreadyProcessed(b *models.Booking) (*models.RefundOutcome, error) {
	return storedOutcome(b), domain.New(domain.CodeAlreadyProcessed, "refund for booking %s already processed", b.ID)
}

func (e *DefaultRefundEngine) Process(ctx context.Context, bookingID string) (*models.RefundOutcome, error) {
	b, err := e.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.RefundProcessed {
		return alreadyProcessed(b)
	}
	if b.Status != models.BookingCompleted {
		return nil, domain.InvalidTransition(string(b.Status), "refund")
	}
	if !b.EligibleForRefund || b.QualityStars == nil {
		return nil, domain.New(domain.CodeNotEligible, "booking %s is not eligible for a performance refund", bookingID)
	}
	if b.LeadFee == nil {
		return nil, domain.New(domain.CodeFeeMissing, "booking %s has no stored lead fee", bookingID)
	}

	level := int(math.Floor(*b.QualityStars))
	setting, err := e.activeSetting(ctx, level)
	if err != nil {
		return nil, err
	}
	perJob := RefundAmount(*b.LeadFee, setting.RefundPercentage)

	outcome := &models.RefundOutcome{
		BookingID:        bookingID,
		StarLevel:        level,
		RefundPercentage: setting.RefundPercentage,
	}
	var lost *models.Booking
	err = e.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		outcome.Credits = nil
		outcome.RefundAmount = 0
		lost = nil

		jobs, err := e.Jobs.ListByBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		var paid []models.JobAssignment
		for _, j := range jobs {
			if j.LeadFeeStatus == models.LeadFeePaid {
				paid = append(paid, j)
			}
		}
		total := perJob * int64(len(paid))

		flipped, err := e.Bookings.MarkRefundProcessed(ctx, bookingID, total, setting.RefundPercentage, e.now())
		if err != nil {
			return err
		}
		if flipped == nil {
			current, err := e.Bookings.GetByID(ctx, bookingID)
			if err != nil {
				return err
			}
			lost = current
			return domain.ErrAlreadyProcessed
		}

		if perJob == 0 {
			return nil
		}
		for _, j := range paid {
			txn, _, err := e.Ledger.Post(ctx, models.PostEntry{
				Kind:        models.InstallerWallet,
				OwnerID:     j.InstallerID,
				Amount:      perJob,
				Type:        models.TxRefund,
				BookingID:   bookingID,
				Description: fmt.Sprintf("Performance refund: %d-star rating, %s%% of lead fee", level, decimal.NewFromFloat(setting.RefundPercentage).String()),
			})
			if err != nil {
				return err
			}
			outcome.Credits = append(outcome.Credits, *txn)
			outcome.RefundAmount += perJob
		}
		return nil
	})
	if lost != nil && domain.IsCode(err, domain.CodeAlreadyProcessed) {
		return alreadyProcessed(lost)
	}
	if err != nil {
		return nil, err
	}

	e.logger().Info("performance refund processed",
		zap.String("bookingId", bookingID),
		zap.Int("starLevel", level),
		zap.Float64("refundPercentage", setting.RefundPercentage),
		zap.Int64("refundAmount", outcome.RefundAmount),
		zap.Int("credits", len(outcome.Credits)),
	)
	return outcome, nil
}

func (e *DefaultRefundEngine) activeSetting(ctx context.Context, level int) (*models.PerformanceRefundSetting, error) {
	settings, err := e.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range settings {
		if s.StarLevel == level && s.Active {
			s := s
			return &s, nil
		}
	}
	return nil, domain.New(domain.CodeNoRefundPolicy, "no active refund setting for %d stars", level)
}

// ListSettings reads the refund table through the settings cache.
func (e *DefaultRefundEngine) ListSettings(ctx context.Context) ([]models.PerformanceRefundSetting, error) {
	if e.Cache != nil {
		var cached []models.PerformanceRefundSetting
		ok, err := e.Cache.Get(ctx, settingsCacheKey, &cached)
		if err != nil {
			e.logger().Warn("settings cache read failed", zap.String("key", settingsCacheKey), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}
	settings, err := e.Settings.ListRefundSettings(ctx)
	if err != nil {
		return nil, err
	}
	if e.Cache != nil {
		if err := e.Cache.Set(ctx, settingsCacheKey, settings); err != nil {
			e.logger().Warn("settings cache write failed", zap.String("key", settingsCacheKey), zap.Error(err))
		}
	}
	return settings, nil
}

func (e *DefaultRefundEngine) invalidate(ctx context.Context) {
	if e.Cache == nil {
		return
	}
	if err := e.Cache.Invalidate(ctx, settingsCacheKey); err != nil {
		e.logger().Warn("settings cache invalidation failed", zap.String("key", settingsCacheKey), zap.Error(err))
	}
}

func (e *DefaultRefundEngine) UpsertSetting(ctx context.Context, s models.PerformanceRefundSetting) (*models.PerformanceRefundSetting, error) {
	if s.StarLevel < 1 || s.StarLevel > 5 {
		return nil, domain.Validation("star level must be between 1 and 5, got %d", s.StarLevel)
	}
	if s.RefundPercentage < 0 || s.RefundPercentage > 100 || math.IsNaN(s.RefundPercentage) {
		return nil, domain.Validation("refund percentage must be between 0 and 100, got %v", s.RefundPercentage)
	}
	s.UpdatedAt = e.now()
	if err := e.Settings.UpsertRefundSetting(ctx, s); err != nil {
		return nil, err
	}
	e.invalidate(ctx)
	e.logger().Info("refund setting updated",
		zap.Int("starLevel", s.StarLevel), zap.Float64("refundPercentage", s.RefundPercentage), zap.Bool("active", s.Active))
	return &s, nil
}

func (e *DefaultRefundEngine) SeedDefaults(ctx context.Context) (int, error) {
	inserted := 0
	for _, s := range models.DefaultRefundSettings() {
		s.UpdatedAt = e.now()
		ok, err := e.Settings.InsertRefundSettingIfAbsent(ctx, s)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	if inserted > 0 {
		e.invalidate(ctx)
		e.logger().Info("seeded default refund settings", zap.Int("inserted", inserted))
	}
	return inserted, nil
}

func (e *DefaultRefundEngine) SweepPending(ctx context.Context, limit int64) (int, error) {
	pending, err := e.Bookings.ListUnprocessedRefunds(ctx, limit)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, b := range pending {
		if _, err := e.Process(ctx, b.ID); err != nil {
			if domain.IsCode(err, domain.CodeUnavailable) {
				return processed, err
			}
			e.logger().Warn("refund sweep skipped booking", zap.String("bookingId", b.ID), zap.Error(err))
			continue
		}
		processed++
	}
	return processed, nil
}
