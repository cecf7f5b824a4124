package flagRepo

import (
	"context"
	"time"

	"installhub/models"
)

// FlagRepository is the append-only anti-manipulation audit log. Records are
// only ever resolved, never removed.
type FlagRepository interface {
	Append(ctx context.Context, rec *models.AntiManipulationRecord) error
	GetByID(ctx context.Context, id string) (*models.AntiManipulationRecord, error)
	List(ctx context.Context, filter ListFilter) ([]models.AntiManipulationRecord, error)
	// CountSince counts installerID's records of pattern created at or after since.
	CountSince(ctx context.Context, installerID, pattern string, since time.Time) (int64, error)
	// HasOpen reports whether an unresolved record of pattern exists for the pair.
	HasOpen(ctx context.Context, installerID, bookingID, pattern string) (bool, error)
	// Resolve closes an open record; (nil, nil) means it was already resolved.
	Resolve(ctx context.Context, id, by, note string, now time.Time) (*models.AntiManipulationRecord, error)
}

type ListFilter struct {
	InstallerID    string
	Pattern        string
	UnresolvedOnly bool
	Limit          int64
}
