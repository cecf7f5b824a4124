package models

import "time"

// FirstLeadVoucher waives the lead fee on an installer's first claim.
type FirstLeadVoucher struct {
	ID               string     `bson:"id" json:"id"`
	InstallerID      string     `bson:"installerId" json:"installerId"`
	IsUsed           bool       `bson:"isUsed" json:"isUsed"`
	UsedForBookingID string     `bson:"usedForBookingId,omitempty" json:"usedForBookingId,omitempty"`
	UsedAt           *time.Time `bson:"usedAt,omitempty" json:"usedAt,omitempty"`
	Expired          bool       `bson:"expired" json:"expired"`
	IssuedAt         time.Time  `bson:"issuedAt" json:"issuedAt"`
	ExpiresAt        *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}

// Redeemable reports whether the voucher can still waive a fee at t.
func (v FirstLeadVoucher) Redeemable(t time.Time) bool {
	if v.IsUsed || v.Expired {
		return false
	}
	return v.ExpiresAt == nil || t.Before(*v.ExpiresAt)
}
