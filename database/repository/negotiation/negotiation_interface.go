package negotiationRepo

import (
	"context"
	"time"

	"installhub/models"
)

// NegotiationRepository stores schedule proposals. A booking has at most one
// pending proposal at a time.
type NegotiationRepository interface {
	Create(ctx context.Context, n *models.ScheduleNegotiation) error
	GetByID(ctx context.Context, id string) (*models.ScheduleNegotiation, error)
	// ListByBooking returns proposals oldest first.
	ListByBooking(ctx context.Context, bookingID string) ([]models.ScheduleNegotiation, error)
	GetPending(ctx context.Context, bookingID string) (*models.ScheduleNegotiation, error)
	Latest(ctx context.Context, bookingID string) (*models.ScheduleNegotiation, error)
	Count(ctx context.Context, bookingID string) (int64, error)
	// Resolve answers a pending proposal; it returns (nil, nil) when the
	// proposal is no longer pending.
	Resolve(ctx context.Context, id string, status models.NegotiationStatus, message string, now time.Time) (*models.ScheduleNegotiation, error)
	// SupersedeOthers marks every proposal on the booking except keepID as superseded.
	SupersedeOthers(ctx context.Context, bookingID, keepID string, now time.Time) (int64, error)
	Delete(ctx context.Context, id string) error
}
