package models

import (
	"fmt"
	"time"
)

// BookingStatus is the lifecycle state of a lead from the booking's point of view.
type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingAssigned   BookingStatus = "assigned"
	BookingAccepted   BookingStatus = "accepted"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingDeleted    BookingStatus = "deleted"
)

var bookingStatuses = map[BookingStatus]struct{}{
	BookingPending:    {},
	BookingAssigned:   {},
	BookingAccepted:   {},
	BookingInProgress: {},
	BookingCompleted:  {},
	BookingDeleted:    {},
}

// ParseBookingStatus rejects anything outside the closed set.
func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(s)
	if _, ok := bookingStatuses[st]; !ok {
		return "", fmt.Errorf("unknown booking status %q", s)
	}
	return st, nil
}

// Terminal reports whether no further transition is possible.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingDeleted
}

// Held reports whether an installer currently owns the lead.
func (s BookingStatus) Held() bool {
	switch s {
	case BookingAssigned, BookingAccepted, BookingInProgress, BookingCompleted:
		return true
	}
	return false
}

// Booking is a unit of requested installation work marketed to installers as a lead.
type Booking struct {
	ID          string        `bson:"id" json:"id"`
	CustomerID  string        `bson:"customerId" json:"customerId"`
	Service     string        `bson:"service" json:"service"`
	TotalPrice  int64         `bson:"totalPrice" json:"totalPrice"`               // minor units
	LeadFee     *int64        `bson:"leadFee,omitempty" json:"leadFee,omitempty"` // nil means never written
	Status      BookingStatus `bson:"status" json:"status"`
	InstallerID string        `bson:"installerId" json:"installerId,omitempty"`
	Version     int64         `bson:"version" json:"version"`

	QualityStars      *float64 `bson:"qualityStars,omitempty" json:"qualityStars,omitempty"`
	EligibleForRefund bool     `bson:"eligibleForRefund" json:"eligibleForRefund"`
	RefundProcessed   bool     `bson:"refundProcessed" json:"refundProcessed"`
	RefundAmount      *int64   `bson:"refundAmount,omitempty" json:"refundAmount,omitempty"`
	RefundPercentage  *float64 `bson:"refundPercentage,omitempty" json:"refundPercentage,omitempty"`

	ScheduledDate string `bson:"scheduledDate,omitempty" json:"scheduledDate,omitempty"`
	ScheduledTime string `bson:"scheduledTime,omitempty" json:"scheduledTime,omitempty"`

	CreatedAt         time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt" json:"updatedAt"`
	CompletedAt       *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	RatedAt           *time.Time `bson:"ratedAt,omitempty" json:"ratedAt,omitempty"`
	RefundProcessedAt *time.Time `bson:"refundProcessedAt,omitempty" json:"refundProcessedAt,omitempty"`
	DeletedAt         *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
}

// CreateBookingInput is what the external booking flow hands to the engine.
type CreateBookingInput struct {
	ID         string `json:"id,omitempty"`
	CustomerID string `json:"customerId" binding:"required"`
	Service    string `json:"service" binding:"required"`
	TotalPrice int64  `json:"totalPrice"`
	LeadFee    *int64 `json:"leadFee"`
}
