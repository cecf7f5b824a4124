package models

import (
	"fmt"
	"time"
)

type Party string

const (
	PartyInstaller Party = "installer"
	PartyCustomer  Party = "customer"
)

func ParseParty(s string) (Party, error) {
	switch p := Party(s); p {
	case PartyInstaller, PartyCustomer:
		return p, nil
	}
	return "", fmt.Errorf("unknown party %q", s)
}

// Counterpart is the party expected to respond.
func (p Party) Counterpart() Party {
	if p == PartyInstaller {
		return PartyCustomer
	}
	return PartyInstaller
}

type NegotiationStatus string

const (
	NegotiationPending    NegotiationStatus = "pending"
	NegotiationAccepted   NegotiationStatus = "accepted"
	NegotiationDeclined   NegotiationStatus = "declined"
	NegotiationSuperseded NegotiationStatus = "superseded"
)

// ScheduleNegotiation is one proposal in a booking's schedule history.
type ScheduleNegotiation struct {
	ID              string            `bson:"id" json:"id"`
	BookingID       string            `bson:"bookingId" json:"bookingId"`
	InstallerID     string            `bson:"installerId" json:"installerId"`
	ProposedDate    string            `bson:"proposedDate" json:"proposedDate"`
	ProposedTime    string            `bson:"proposedTime" json:"proposedTime"`
	ProposedBy      Party             `bson:"proposedBy" json:"proposedBy"`
	Status          NegotiationStatus `bson:"status" json:"status"`
	Message         string            `bson:"message,omitempty" json:"message,omitempty"`
	ResponseMessage string            `bson:"responseMessage,omitempty" json:"responseMessage,omitempty"`
	CreatedAt       time.Time         `bson:"createdAt" json:"createdAt"`
	RespondedAt     *time.Time        `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
}
