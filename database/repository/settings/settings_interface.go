package settingsRepo

import (
	"context"

	"installhub/models"
)

// SettingsRepository stores platform toggles and the star-level refund table.
type SettingsRepository interface {
	// GetSetting returns the toggle, or an inactive one when it was never set.
	GetSetting(ctx context.Context, key string) (*models.PlatformSetting, error)
	PutSetting(ctx context.Context, s models.PlatformSetting) error
	ListRefundSettings(ctx context.Context) ([]models.PerformanceRefundSetting, error)
	GetRefundSetting(ctx context.Context, starLevel int) (*models.PerformanceRefundSetting, error)
	UpsertRefundSetting(ctx context.Context, s models.PerformanceRefundSetting) error
	// InsertRefundSettingIfAbsent writes s only when no row exists for its level.
	InsertRefundSettingIfAbsent(ctx context.Context, s models.PerformanceRefundSetting) (bool, error)
}
