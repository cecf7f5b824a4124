package cron

import (
	"context"
	"time"

	"installhub/services/antimanipulation"
	"installhub/services/exemption"
	"installhub/services/refund"

	"go.uber.org/zap"
)

// SweepReport summarises one maintenance pass.
type SweepReport struct {
	SuspensionsLifted int64 `json:"suspensionsLifted"`
	VouchersExpired   int64 `json:"vouchersExpired"`
	RefundsApplied    int   `json:"refundsApplied"`
}

// Sweeper performs the periodic housekeeping: expired suspensions, stale
// vouchers and refunds that never ran after a rating.
type Sweeper struct {
	Tracker antimanipulation.Tracker
	Policy  exemption.FeePolicy
	Refunds refund.RefundEngine
	Logger  *zap.Logger
}

const refundSweepBatch = 100

func (s *Sweeper) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Run executes every step and returns the first error after trying them all.
func (s *Sweeper) Run(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.Tracker != nil {
		n, err := s.Tracker.LiftExpiredSuspensions(ctx)
		keep(err)
		report.SuspensionsLifted = n
	}
	if s.Policy != nil {
		n, err := s.Policy.ExpireVouchers(ctx)
		keep(err)
		report.VouchersExpired = n
	}
	if s.Refunds != nil {
		n, err := s.Refunds.SweepPending(ctx, refundSweepBatch)
		keep(err)
		report.RefundsApplied = n
	}

	s.logger().Info("maintenance sweep finished",
		zap.Int64("suspensionsLifted", report.SuspensionsLifted),
		zap.Int64("vouchersExpired", report.VouchersExpired),
		zap.Int("refundsApplied", report.RefundsApplied),
		zap.Error(firstErr),
	)
	return report, firstErr
}

// RunEvery drives the sweeper from a local ticker until ctx is done. It is
// the fallback when no Redis broker is configured.
func (s *Sweeper) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				s.logger().Warn("maintenance sweep failed", zap.Error(err))
			}
		}
	}
}
