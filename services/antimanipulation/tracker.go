package antimanipulation

import (
	"context"
	"fmt"
	"time"

	flagRepo "installhub/database/repository/flag"
	jobRepo "installhub/database/repository/job"
	profileRepo "installhub/database/repository/profile"
	"installhub/domain"
	"installhub/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tracker records suspicious claim behaviour for review. Its record methods
// are advisory: callers log their errors and carry on.
type Tracker interface {
	RecordDecline(ctx context.Context, installerID, bookingID, reason string) ([]models.AntiManipulationRecord, error)
	CheckReclaim(ctx context.Context, installerID, bookingID string) (*models.AntiManipulationRecord, error)
	List(ctx context.Context, installerID string, unresolvedOnly bool) ([]models.AntiManipulationRecord, error)
	Resolve(ctx context.Context, recordID, reviewer, note string) (*models.AntiManipulationRecord, error)
	Suspend(ctx context.Context, installerID string, until time.Time, reviewer string) error
	Unsuspend(ctx context.Context, installerID, reviewer string) error
	LiftExpiredSuspensions(ctx context.Context) (int64, error)
}

type DefaultTracker struct {
	Flags     flagRepo.FlagRepository
	Jobs      jobRepo.JobRepository
	Profiles  profileRepo.ProfileRepository
	Threshold int
	Window    time.Duration
	Logger    *zap.Logger
	Now       func() time.Time
}

func (t *DefaultTracker) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}

func (t *DefaultTracker) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}

func (t *DefaultTracker) appendRecord(ctx context.Context, installerID, bookingID, pattern, details string, count int) (*models.AntiManipulationRecord, error) {
	rec := &models.AntiManipulationRecord{
		ID:          uuid.New().String(),
		InstallerID: installerID,
		BookingID:   bookingID,
		Pattern:     pattern,
		Details:     details,
		Count:       count,
		CreatedAt:   t.now(),
	}
	if err := t.Flags.Append(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (t *DefaultTracker) RecordDecline(ctx context.Context, installerID, bookingID, reason string) ([]models.AntiManipulationRecord, error) {
	decline, err := t.appendRecord(ctx, installerID, bookingID, models.PatternDecline, reason, 1)
	if err != nil {
		return nil, err
	}
	out := []models.AntiManipulationRecord{*decline}

	if t.Threshold <= 0 {
		return out, nil
	}
	since := t.now().Add(-t.Window)
	n, err := t.Flags.CountSince(ctx, installerID, models.PatternDecline, since)
	if err != nil {
		return out, err
	}
	if n < int64(t.Threshold) {
		return out, nil
	}
	open, err := t.Flags.HasOpen(ctx, installerID, "", models.PatternExcessiveDeclines)
	if err != nil || open {
		return out, err
	}

	flag, err := t.appendRecord(ctx, installerID, bookingID, models.PatternExcessiveDeclines,
		fmt.Sprintf("%d declines within %s", n, t.Window), int(n))
	if err != nil {
		return out, err
	}
	t.logger().Warn("installer flagged for excessive declines",
		zap.String("installerId", installerID), zap.Int64("declines", n))
	return append(out, *flag), nil
}

func (t *DefaultTracker) CheckReclaim(ctx context.Context, installerID, bookingID string) (*models.AntiManipulationRecord, error) {
	released, err := t.Jobs.CountReleasedBy(ctx, bookingID, installerID)
	if err != nil || released == 0 {
		return nil, err
	}
	rec, err := t.appendRecord(ctx, installerID, bookingID, models.PatternDeclineReclaimCycle,
		fmt.Sprintf("reclaimed after releasing %d time(s)", released), int(released))
	if err != nil {
		return nil, err
	}
	t.logger().Warn("decline/reclaim cycle detected",
		zap.String("installerId", installerID), zap.String("bookingId", bookingID), zap.Int64("cycles", released))
	return rec, nil
}

func (t *DefaultTracker) List(ctx context.Context, installerID string, unresolvedOnly bool) ([]models.AntiManipulationRecord, error) {
	return t.Flags.List(ctx, flagRepo.ListFilter{InstallerID: installerID, UnresolvedOnly: unresolvedOnly, Limit: 200})
}

func (t *DefaultTracker) Resolve(ctx context.Context, recordID, reviewer, note string) (*models.AntiManipulationRecord, error) {
	if reviewer == "" {
		return nil, domain.Validation("reviewer is required")
	}
	if _, err := t.Flags.GetByID(ctx, recordID); err != nil {
		return nil, err
	}
	rec, err := t.Flags.Resolve(ctx, recordID, reviewer, note, t.now())
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.New(domain.CodeConflict, "record %s is already resolved", recordID)
	}
	return rec, nil
}

func (t *DefaultTracker) Suspend(ctx context.Context, installerID string, until time.Time, reviewer string) error {
	now := t.now()
	if !until.After(now) {
		return domain.Validation("suspension end must be in the future")
	}
	if err := t.Profiles.SetSuspension(ctx, installerID, &until, now); err != nil {
		return err
	}
	t.logger().Warn("installer suspended",
		zap.String("installerId", installerID), zap.Time("until", until), zap.String("reviewer", reviewer))
	return nil
}

func (t *DefaultTracker) Unsuspend(ctx context.Context, installerID, reviewer string) error {
	if err := t.Profiles.SetSuspension(ctx, installerID, nil, t.now()); err != nil {
		return err
	}
	t.logger().Info("installer suspension lifted", zap.String("installerId", installerID), zap.String("reviewer", reviewer))
	return nil
}

func (t *DefaultTracker) LiftExpiredSuspensions(ctx context.Context) (int64, error) {
	n, err := t.Profiles.LiftExpiredSuspensions(ctx, t.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		t.logger().Info("expired suspensions lifted", zap.Int64("count", n))
	}
	return n, nil
}
