package models

import "time"

const (
	PatternDecline             = "decline"
	PatternExcessiveDeclines   = "excessive_declines"
	PatternDeclineReclaimCycle = "decline_reclaim_cycle"
)

// AntiManipulationRecord is an append-only advisory entry for reviewers.
type AntiManipulationRecord struct {
	ID             string     `bson:"id" json:"id"`
	InstallerID    string     `bson:"installerId" json:"installerId"`
	BookingID      string     `bson:"bookingId,omitempty" json:"bookingId,omitempty"`
	Pattern        string     `bson:"pattern" json:"pattern"`
	Details        string     `bson:"details,omitempty" json:"details,omitempty"`
	Count          int        `bson:"count" json:"count"`
	Resolved       bool       `bson:"resolved" json:"resolved"`
	ResolvedBy     string     `bson:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
	ResolutionNote string     `bson:"resolutionNote,omitempty" json:"resolutionNote,omitempty"`
	CreatedAt      time.Time  `bson:"createdAt" json:"createdAt"`
	ResolvedAt     *time.Time `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
}
