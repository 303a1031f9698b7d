package model

import "time"

// Call is a logged phone call with a contact
type Call struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ContactID   uint      `json:"contact_id" gorm:"index;not null"`
	WhenAt      time.Time `json:"when_at" gorm:"index;not null"`
	Outcome     string    `json:"outcome" gorm:"type:varchar(64)"`
	DurationMin int       `json:"duration_min" gorm:"not null;default:0"`
	Notes       string    `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
