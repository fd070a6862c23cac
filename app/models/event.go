package models

import "time"

// Event is a competition event. Owned by the registration CRUD side of the
// application; this subsystem only reads it to decide whether payment is
// required and to label status responses.
type Event struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Name            string     `gorm:"type:varchar(200);not null" json:"name"`
	Location        string     `gorm:"type:varchar(200);default:''" json:"location"`
	StartsAt        *time.Time `gorm:"type:timestamp;default:null" json:"starts_at,omitempty"`
	EndsAt          *time.Time `gorm:"type:timestamp;default:null" json:"ends_at,omitempty"`
	RequiresPayment bool       `gorm:"default:true" json:"requires_payment"`
	EntryFeeNote    string     `gorm:"type:varchar(255);default:''" json:"entry_fee_note"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Event) TableName() string {
	return "events"
}
