package cron

import (
	"context"
	"fmt"
	"time"

	"installhub/domain"
	"installhub/services/refund"
	"installhub/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Worker consumes refund and maintenance tasks and registers the periodic
// maintenance schedule.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	interval  time.Duration
	logger    *zap.Logger
}

func NewWorker(opt asynq.RedisClientOpt, concurrency int, interval time.Duration, refunds refund.RefundEngine, sweeper *Sweeper, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				tasks.QueueDefault: 3,
				tasks.QueueLow:     1,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeProcessRefund, HandleRefundTask(refunds, logger))
	mux.HandleFunc(tasks.TypeMaintenanceSweep, HandleMaintenanceTask(sweeper))

	return &Worker{
		server:    srv,
		scheduler: asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC}),
		mux:       mux,
		interval:  interval,
		logger:    logger,
	}
}

// Start runs the server and scheduler in the background, retrying startup
// with a growing delay.
func (w *Worker) Start() error {
	if _, err := w.scheduler.Register("@every "+w.interval.String(), tasks.NewMaintenanceTask()); err != nil {
		return fmt.Errorf("register maintenance schedule: %w", err)
	}

	go func() {
		const maxAttempts = 5
		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.server.Run(w.mux)
			if err == nil {
				return
			}
			w.logger.Error("task worker failed to start",
				zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				w.logger.Error("task worker gave up; refunds fall back to the sweep")
				return
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
	go func() {
		if err := w.scheduler.Run(); err != nil {
			w.logger.Error("maintenance scheduler stopped", zap.Error(err))
		}
	}()
	w.logger.Info("task worker started", zap.Duration("maintenanceInterval", w.interval))
	return nil
}

func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}

// HandleRefundTask retries only on store outages; business rejections are
// final and left to the periodic sweep.
func HandleRefundTask(refunds refund.RefundEngine, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseRefundPayload(task)
		if err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		out, err := refunds.Process(ctx, p.BookingID)
		switch {
		case err == nil:
			logger.Info("refund task done", zap.String("bookingId", p.BookingID), zap.Int64("amount", out.RefundAmount))
			return nil
		case domain.IsCode(err, domain.CodeAlreadyProcessed):
			return nil
		case domain.IsCode(err, domain.CodeUnavailable):
			return err
		default:
			logger.Warn("refund task rejected", zap.String("bookingId", p.BookingID), zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
	}
}

func HandleMaintenanceTask(sweeper *Sweeper) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		_, err := sweeper.Run(ctx)
		return err
	}
}
