package jobRepo

import (
	"context"
	"time"

	"installhub/models"
)

// CancelUpdate describes how an active assignment is closed out.
type CancelUpdate struct {
	Reason        string
	By            models.CancelledBy
	LeadFeeStatus models.LeadFeeStatus
	At            time.Time
}

// JobRepository persists job assignments. At most one assignment per booking
// is active; Create reports domain.ErrAlreadyHeld when another one exists.
type JobRepository interface {
	Create(ctx context.Context, job *models.JobAssignment) error
	GetByID(ctx context.Context, id string) (*models.JobAssignment, error)
	GetActiveByBooking(ctx context.Context, bookingID string) (*models.JobAssignment, error)
	// GetLatestByBooking returns the most recent assignment, active or not.
	GetLatestByBooking(ctx context.Context, bookingID string) (*models.JobAssignment, error)
	ListByBooking(ctx context.Context, bookingID string) ([]models.JobAssignment, error)
	ListByInstaller(ctx context.Context, installerID string, limit int64) ([]models.JobAssignment, error)
	// CountReleasedBy counts cancelled assignments installerID held on bookingID.
	CountReleasedBy(ctx context.Context, bookingID, installerID string) (int64, error)
	// Advance moves an active assignment from one status to its successor.
	Advance(ctx context.Context, jobID string, from, to models.JobStatus, now time.Time) (*models.JobAssignment, error)
	// Cancel deactivates an active assignment that is still cancellable.
	Cancel(ctx context.Context, jobID string, upd CancelUpdate) (*models.JobAssignment, error)
}
