package models

import "time"

// PerformanceRefundSetting maps a star level to a share of the lead fee.
type PerformanceRefundSetting struct {
	StarLevel        int       `bson:"starLevel" json:"starLevel"`
	RefundPercentage float64   `bson:"refundPercentage" json:"refundPercentage"`
	Active           bool      `bson:"active" json:"active"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DefaultRefundSettings is the seed policy applied by the seed tool and on
// first start when the collection is empty.
func DefaultRefundSettings() []PerformanceRefundSetting {
	return []PerformanceRefundSetting{
		{StarLevel: 3, RefundPercentage: 25, Active: true},
		{StarLevel: 4, RefundPercentage: 50, Active: true},
		{StarLevel: 5, RefundPercentage: 75, Active: true},
	}
}

// RefundOutcome is returned by the performance refund engine.
type RefundOutcome struct {
	BookingID        string        `json:"bookingId"`
	StarLevel        int           `json:"starLevel"`
	RefundPercentage float64       `json:"refundPercentage"`
	RefundAmount     int64         `json:"refundAmount"`
	Credits          []Transaction `json:"credits,omitempty"`
	AlreadyProcessed bool          `json:"alreadyProcessed"`
}
