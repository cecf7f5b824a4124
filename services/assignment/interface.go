package assignment

import (
	"context"

	"installhub/models"
	"installhub/services/exemption"
)

// ClaimResult is what a successful claim hands back to the installer.
type ClaimResult struct {
	Booking     *models.Booking       `json:"booking"`
	Job         *models.JobAssignment `json:"job"`
	Decision    exemption.Decision    `json:"decision"`
	Transaction *models.Transaction   `json:"transaction,omitempty"`
	Wallet      *models.Wallet        `json:"wallet,omitempty"`
}

type CancelInput struct {
	JobID  string
	Reason string
	By     models.CancelledBy
	// ActorID is the installer or customer asking; empty for admins.
	ActorID string
}

type CancelResult struct {
	Job      *models.JobAssignment `json:"job"`
	Booking  *models.Booking       `json:"booking"`
	Reversal *models.Transaction   `json:"reversal,omitempty"`
}

// AssignmentService drives a booking through its lead lifecycle. Every
// multi-record change runs in a single transaction.
type AssignmentService interface {
	CreateBooking(ctx context.Context, input models.CreateBookingInput) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	DeleteBooking(ctx context.Context, bookingID string) (*models.Booking, error)

	Claim(ctx context.Context, bookingID, installerID string) (*ClaimResult, error)
	// Advance moves a job to its strict successor. An empty installerID skips
	// the holder check.
	Advance(ctx context.Context, jobID, installerID string, next models.JobStatus) (*models.JobAssignment, error)
	Cancel(ctx context.Context, input CancelInput) (*CancelResult, error)
	Decline(ctx context.Context, bookingID, installerID, reason string) (*CancelResult, error)
	// Rate stores the customer's quality rating. An empty customerID skips the
	// ownership check.
	Rate(ctx context.Context, bookingID, customerID string, stars float64) (*models.Booking, error)

	GetJob(ctx context.Context, jobID string) (*models.JobAssignment, error)
	ListJobsForBooking(ctx context.Context, bookingID string) ([]models.JobAssignment, error)
	ListJobsForInstaller(ctx context.Context, installerID string, limit int64) ([]models.JobAssignment, error)
}
