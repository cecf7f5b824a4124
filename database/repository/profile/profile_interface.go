package profileRepo

import (
	"context"
	"time"

	"installhub/models"
)

// ProfileRepository holds the installer and customer attributes the engine
// consults: VIP flags, suspensions and push tokens. Missing profiles read as
// zero values.
type ProfileRepository interface {
	GetInstaller(ctx context.Context, id string) (*models.Installer, error)
	SetVIP(ctx context.Context, id string, vip bool, now time.Time) error
	SetSuspension(ctx context.Context, id string, until *time.Time, now time.Time) error
	// LiftExpiredSuspensions clears suspensions that ended before now.
	LiftExpiredSuspensions(ctx context.Context, now time.Time) (int64, error)
	SetInstallerToken(ctx context.Context, id, token string) error
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	SetCustomerToken(ctx context.Context, id, token string) error
}
