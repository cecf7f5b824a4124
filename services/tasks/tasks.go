package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"installhub/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeProcessRefund    = "refund:process"
	TypeMaintenanceSweep = "maintenance:sweep"

	QueueDefault = "default"
	QueueLow     = "low"
)

type RefundPayload struct {
	BookingID string `json:"bookingId"`
}

// NewRefundTask builds a refund job keyed on the booking so a duplicate
// enqueue for the same booking is rejected by the broker.
func NewRefundTask(bookingID string) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(RefundPayload{BookingID: bookingID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeProcessRefund, b)
	opts := []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.TaskID("refund:" + bookingID),
		asynq.MaxRetry(10),
		asynq.Retention(24 * time.Hour),
	}
	return task, opts, nil
}

func ParseRefundPayload(t *asynq.Task) (RefundPayload, error) {
	var p RefundPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid refund payload: %w", err)
	}
	if p.BookingID == "" {
		return p, fmt.Errorf("invalid refund payload: missing bookingId")
	}
	return p, nil
}

func NewMaintenanceTask() *asynq.Task {
	return asynq.NewTask(TypeMaintenanceSweep, nil, asynq.Queue(QueueLow), asynq.MaxRetry(1))
}

// RefundProcessor is the slice of the refund engine the enqueuers need.
type RefundProcessor interface {
	Process(ctx context.Context, bookingID string) (*models.RefundOutcome, error)
}

// Enqueuer schedules post-completion work.
type Enqueuer interface {
	EnqueueRefund(ctx context.Context, bookingID string) error
}

type AsynqEnqueuer struct {
	Client *asynq.Client
	Logger *zap.Logger
}

func NewAsynqEnqueuer(opt asynq.RedisClientOpt, logger *zap.Logger) *AsynqEnqueuer {
	return &AsynqEnqueuer{Client: asynq.NewClient(opt), Logger: logger}
}

func (e *AsynqEnqueuer) EnqueueRefund(ctx context.Context, bookingID string) error {
	task, opts, err := NewRefundTask(bookingID)
	if err != nil {
		return err
	}
	info, err := e.Client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue refund for booking %s: %w", bookingID, err)
	}
	if e.Logger != nil {
		e.Logger.Debug("refund task enqueued", zap.String("bookingId", bookingID), zap.String("taskId", info.ID))
	}
	return nil
}

func (e *AsynqEnqueuer) Close() error { return e.Client.Close() }

// InlineEnqueuer runs the refund in the caller's goroutine. Used when no
// Redis broker is configured.
type InlineEnqueuer struct {
	Refunds RefundProcessor
	Logger  *zap.Logger
}

func (e *InlineEnqueuer) EnqueueRefund(ctx context.Context, bookingID string) error {
	out, err := e.Refunds.Process(ctx, bookingID)
	if err != nil {
		return err
	}
	if e.Logger != nil {
		e.Logger.Debug("refund processed inline", zap.String("bookingId", bookingID), zap.Int64("amount", out.RefundAmount))
	}
	return nil
}
