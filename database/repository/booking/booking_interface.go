package bookingRepo

import (
	"context"
	"time"

	"installhub/models"
)

// BookingRepository persists bookings. Every state change is a conditional
// update on the expected current state; a miss means another writer got there
// first and the caller re-reads to report why.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// Claim moves a pending, unheld booking to assigned for installerID.
	Claim(ctx context.Context, bookingID, installerID string, now time.Time) (*models.Booking, error)
	// Transition moves the booking held by installerID from one status to another.
	Transition(ctx context.Context, bookingID, installerID string, from, to models.BookingStatus, now time.Time) (*models.Booking, error)
	// Release returns a held booking to pending and clears its installer.
	Release(ctx context.Context, bookingID, installerID string, now time.Time) (*models.Booking, error)
	// MarkDeleted soft-deletes a pending booking.
	MarkDeleted(ctx context.Context, bookingID string, now time.Time) (*models.Booking, error)
	// SetRating records the quality rating on a completed booking whose
	// refund has not yet been processed.
	SetRating(ctx context.Context, bookingID string, stars float64, eligible bool, now time.Time) (*models.Booking, error)
	// MarkRefundProcessed flips refundProcessed exactly once.
	MarkRefundProcessed(ctx context.Context, bookingID string, amount int64, pct float64, now time.Time) (*models.Booking, error)
	SetSchedule(ctx context.Context, bookingID, date, timeOfDay string, now time.Time) error
	ListByStatus(ctx context.Context, status models.BookingStatus, limit int64) ([]models.Booking, error)
	// ListUnprocessedRefunds returns completed, eligible bookings whose refund
	// has not been applied yet.
	ListUnprocessedRefunds(ctx context.Context, limit int64) ([]models.Booking, error)
}
