package models

import (
	"fmt"
	"time"
)

// JobStatus is the state of one installer's relationship with a booking.
type JobStatus string

const (
	JobAssigned   JobStatus = "assigned"
	JobAccepted   JobStatus = "accepted"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

var jobSuccessor = map[JobStatus]JobStatus{
	JobAssigned:   JobAccepted,
	JobAccepted:   JobInProgress,
	JobInProgress: JobCompleted,
}

// ParseJobStatus rejects anything outside the closed set.
func ParseJobStatus(s string) (JobStatus, error) {
	switch st := JobStatus(s); st {
	case JobAssigned, JobAccepted, JobInProgress, JobCompleted, JobCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// Next returns the only legal forward step, if any.
func (s JobStatus) Next() (JobStatus, bool) {
	n, ok := jobSuccessor[s]
	return n, ok
}

// CanAdvanceTo reports whether next is the forward successor of s.
func (s JobStatus) CanAdvanceTo(next JobStatus) bool {
	n, ok := s.Next()
	return ok && n == next
}

// Cancellable reports whether the holder may still release the lead.
func (s JobStatus) Cancellable() bool {
	return s == JobAssigned || s == JobAccepted
}

// BookingStatus maps a holding job status onto the booking lifecycle.
func (s JobStatus) BookingStatus() BookingStatus {
	switch s {
	case JobAssigned:
		return BookingAssigned
	case JobAccepted:
		return BookingAccepted
	case JobInProgress:
		return BookingInProgress
	case JobCompleted:
		return BookingCompleted
	}
	return BookingPending
}

// LeadFeeStatus tracks whether the lead fee for an assignment was settled.
type LeadFeeStatus string

const (
	LeadFeeUnpaid   LeadFeeStatus = "unpaid"
	LeadFeePaid     LeadFeeStatus = "paid"
	LeadFeeWaived   LeadFeeStatus = "waived"
	LeadFeeReversed LeadFeeStatus = "reversed"
)

// CancelledBy identifies who released a lead.
type CancelledBy string

const (
	CancelledByInstaller CancelledBy = "installer"
	CancelledByCustomer  CancelledBy = "customer"
	CancelledByAdmin     CancelledBy = "admin"
)

func ParseCancelledBy(s string) (CancelledBy, error) {
	switch c := CancelledBy(s); c {
	case CancelledByInstaller, CancelledByCustomer, CancelledByAdmin:
		return c, nil
	}
	return "", fmt.Errorf("unknown cancelling party %q", s)
}

// JobAssignment links one booking to one installer attempting or holding it.
type JobAssignment struct {
	ID              string        `bson:"id" json:"id"`
	BookingID       string        `bson:"bookingId" json:"bookingId"`
	InstallerID     string        `bson:"installerId" json:"installerId"`
	Status          JobStatus     `bson:"status" json:"status"`
	Active          bool          `bson:"active" json:"active"`
	LeadFeeStatus   LeadFeeStatus `bson:"leadFeeStatus" json:"leadFeeStatus"`
	LeadFeeAmount   int64         `bson:"leadFeeAmount" json:"leadFeeAmount"`
	ExemptionReason string        `bson:"exemptionReason,omitempty" json:"exemptionReason,omitempty"`
	VoucherID       string        `bson:"voucherId,omitempty" json:"voucherId,omitempty"`

	AssignedAt  time.Time  `bson:"assignedAt" json:"assignedAt"`
	AcceptedAt  *time.Time `bson:"acceptedAt,omitempty" json:"acceptedAt,omitempty"`
	StartedAt   *time.Time `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`

	CancelReason string      `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	CancelledBy  CancelledBy `bson:"cancelledBy,omitempty" json:"cancelledBy,omitempty"`
}
