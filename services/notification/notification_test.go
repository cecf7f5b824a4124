package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	memoryRepo "installhub/database/repository/memory"

	"firebase.google.com/go/v4/messaging"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*messaging.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, m)
	return "msg-id", nil
}

func TestFCMNotifierUsesStoredToken(t *testing.T) {
	store := memoryRepo.NewStore()
	ctx := context.Background()
	if err := store.Profiles().SetInstallerToken(ctx, "i1", "tok-1"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	sender := &fakeSender{}
	n, err := NewFCMNotifier(sender, store.Profiles())
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	if err := n.NotifyInstaller(ctx, "i1", "Lead claimed", "You claimed b1", map[string]string{"bookingId": "b1"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.Token != "tok-1" || msg.Data["role"] != "installer" || msg.Data["bookingId"] != "b1" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestFCMNotifierWithoutToken(t *testing.T) {
	store := memoryRepo.NewStore()
	n, _ := NewFCMNotifier(&fakeSender{}, store.Profiles())

	err := n.NotifyCustomer(context.Background(), "c1", "t", "b", nil)
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestAsyncSwallowsFailures(t *testing.T) {
	store := memoryRepo.NewStore()
	ctx := context.Background()
	_ = store.Profiles().SetCustomerToken(ctx, "c1", "tok")
	target, _ := NewFCMNotifier(&fakeSender{err: errors.New("fcm down")}, store.Profiles())

	a := NewAsync(target, nil)
	if err := a.NotifyCustomer(ctx, "c1", "t", "b", nil); err != nil {
		t.Fatalf("async notify must not report errors, got %v", err)
	}
	a.Wait()
}
