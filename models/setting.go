package models

import "time"

const SettingFreeLeadsPromotion = "free_leads_promotion"

// PlatformSetting is a named platform-wide flag.
type PlatformSetting struct {
	Key       string     `bson:"key" json:"key"`
	Active    bool       `bson:"active" json:"active"`
	Until     *time.Time `bson:"until,omitempty" json:"until,omitempty"`
	UpdatedBy string     `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// ActiveAt reports whether the flag is on at t.
func (s PlatformSetting) ActiveAt(t time.Time) bool {
	if !s.Active {
		return false
	}
	return s.Until == nil || t.Before(*s.Until)
}
