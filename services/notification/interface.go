package notification

import (
	"context"
	"errors"
	"fmt"

	profileRepo "installhub/database/repository/profile"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// ErrNoToken means the recipient has not registered a push token.
var ErrNoToken = errors.New("recipient has no push token")

// Notifier delivers push messages to installers and customers.
type Notifier interface {
	NotifyInstaller(ctx context.Context, installerID, title, body string, data map[string]string) error
	NotifyCustomer(ctx context.Context, customerID, title, body string, data map[string]string) error
}

// Sender is the subset of *messaging.Client used for delivery.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier looks up push tokens and sends through Firebase Cloud Messaging.
type FCMNotifier struct {
	Client   Sender
	Profiles profileRepo.ProfileRepository
}

func NewFCMNotifier(client Sender, profiles profileRepo.ProfileRepository) (*FCMNotifier, error) {
	if client == nil || profiles == nil {
		return nil, fmt.Errorf("notification service initialization error: sender or profile repository is nil")
	}
	return &FCMNotifier{Client: client, Profiles: profiles}, nil
}

func withRole(data map[string]string, role string) map[string]string {
	out := make(map[string]string, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	if _, ok := out["role"]; !ok {
		out["role"] = role
	}
	return out
}

func (n *FCMNotifier) NotifyInstaller(ctx context.Context, installerID, title, body string, data map[string]string) error {
	inst, err := n.Profiles.GetInstaller(ctx, installerID)
	if err != nil {
		return fmt.Errorf("NotifyInstaller: could not load installer %s: %w", installerID, err)
	}
	if inst.FCMToken == "" {
		return fmt.Errorf("NotifyInstaller: installer %s: %w", installerID, ErrNoToken)
	}

	msg := &messaging.Message{
		Token: inst.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: withRole(data, "installer"),
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
	if _, err := n.Client.Send(ctx, msg); err != nil {
		return fmt.Errorf("NotifyInstaller: failed to send FCM message: %w", err)
	}
	return nil
}

func (n *FCMNotifier) NotifyCustomer(ctx context.Context, customerID, title, body string, data map[string]string) error {
	c, err := n.Profiles.GetCustomer(ctx, customerID)
	if err != nil {
		return fmt.Errorf("NotifyCustomer: could not load customer %s: %w", customerID, err)
	}
	if c.FCMToken == "" {
		return fmt.Errorf("NotifyCustomer: customer %s: %w", customerID, ErrNoToken)
	}

	msg := &messaging.Message{
		Token: c.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: withRole(data, "customer"),
	}
	if _, err := n.Client.Send(ctx, msg); err != nil {
		return fmt.Errorf("NotifyCustomer: failed to send FCM message: %w", err)
	}
	return nil
}

// LogNotifier records notifications instead of delivering them.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) NotifyInstaller(_ context.Context, installerID, title, body string, data map[string]string) error {
	n.log("installer", installerID, title, body, data)
	return nil
}

func (n LogNotifier) NotifyCustomer(_ context.Context, customerID, title, body string, data map[string]string) error {
	n.log("customer", customerID, title, body, data)
	return nil
}

func (n LogNotifier) log(role, id, title, body string, data map[string]string) {
	if n.Logger == nil {
		return
	}
	n.Logger.Info("notification",
		zap.String("role", role),
		zap.String("recipient", id),
		zap.String("title", title),
		zap.String("body", body),
		zap.Any("data", data),
	)
}
