package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Async sends through Target on a background goroutine with its own timeout.
// Callers never wait for delivery and never see its errors.
type Async struct {
	Target  Notifier
	Logger  *zap.Logger
	Timeout time.Duration

	wg sync.WaitGroup
}

func NewAsync(target Notifier, logger *zap.Logger) *Async {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Async{Target: target, Logger: logger, Timeout: 10 * time.Second}
}

func (a *Async) NotifyInstaller(_ context.Context, installerID, title, body string, data map[string]string) error {
	a.spawn("installer", installerID, func(ctx context.Context) error {
		return a.Target.NotifyInstaller(ctx, installerID, title, body, data)
	})
	return nil
}

func (a *Async) NotifyCustomer(_ context.Context, customerID, title, body string, data map[string]string) error {
	a.spawn("customer", customerID, func(ctx context.Context) error {
		return a.Target.NotifyCustomer(ctx, customerID, title, body, data)
	})
	return nil
}

func (a *Async) spawn(role, id string, send func(ctx context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.Timeout)
		defer cancel()

		err := send(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoToken):
			a.Logger.Debug("notification skipped", zap.String("role", role), zap.String("recipient", id))
		default:
			a.Logger.Warn("notification failed", zap.String("role", role), zap.String("recipient", id), zap.Error(err))
		}
	}()
}

// Wait blocks until every in-flight send has finished.
func (a *Async) Wait() {
	a.wg.Wait()
}
