package models

import "time"

// Installer carries the engine-relevant slice of an installer profile.
// Profiles are owned by the account system; a missing record reads as the zero value.
type Installer struct {
	ID             string     `bson:"id" json:"id"`
	Name           string     `bson:"name,omitempty" json:"name,omitempty"`
	VIP            bool       `bson:"vip" json:"vip"`
	SuspendedUntil *time.Time `bson:"suspendedUntil,omitempty" json:"suspendedUntil,omitempty"`
	FCMToken       string     `bson:"fcmToken,omitempty" json:"-"`
	UpdatedAt      time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// Suspended reports whether the installer is barred from claiming at t.
func (i Installer) Suspended(t time.Time) bool {
	return i.SuspendedUntil != nil && t.Before(*i.SuspendedUntil)
}

// Customer is the notification-relevant slice of a customer profile.
type Customer struct {
	ID       string `bson:"id" json:"id"`
	FCMToken string `bson:"fcmToken,omitempty" json:"-"`
}
