package memoryRepo

import (
	"context"
	"fmt"
	"sort"

	settingsRepo "installhub/database/repository/settings"
	"installhub/domain"
	"installhub/models"
)

var _ settingsRepo.SettingsRepository = (*SettingsRepo)(nil)

type SettingsRepo struct{ s *Store }

func (r *SettingsRepo) GetSetting(ctx context.Context, key string) (*models.PlatformSetting, error) {
	defer r.s.lock(ctx)()
	s, ok := r.s.st.settings[key]
	if !ok {
		return &models.PlatformSetting{Key: key}, nil
	}
	return &s, nil
}

func (r *SettingsRepo) PutSetting(ctx context.Context, s models.PlatformSetting) error {
	defer r.s.lock(ctx)()
	r.s.st.settings[s.Key] = s
	return nil
}

func (r *SettingsRepo) ListRefundSettings(ctx context.Context) ([]models.PerformanceRefundSetting, error) {
	defer r.s.lock(ctx)()
	out := make([]models.PerformanceRefundSetting, 0, len(r.s.st.refundSettings))
	for _, s := range r.s.st.refundSettings {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StarLevel < out[j].StarLevel })
	return out, nil
}

func (r *SettingsRepo) GetRefundSetting(ctx context.Context, starLevel int) (*models.PerformanceRefundSetting, error) {
	defer r.s.lock(ctx)()
	s, ok := r.s.st.refundSettings[starLevel]
	if !ok {
		return nil, domain.NotFound("refund setting for star level", fmt.Sprint(starLevel))
	}
	return &s, nil
}

func (r *SettingsRepo) UpsertRefundSetting(ctx context.Context, s models.PerformanceRefundSetting) error {
	defer r.s.lock(ctx)()
	r.s.st.refundSettings[s.StarLevel] = s
	return nil
}

func (r *SettingsRepo) InsertRefundSettingIfAbsent(ctx context.Context, s models.PerformanceRefundSetting) (bool, error) {
	defer r.s.lock(ctx)()
	if _, ok := r.s.st.refundSettings[s.StarLevel]; ok {
		return false, nil
	}
	r.s.st.refundSettings[s.StarLevel] = s
	return true, nil
}
