package model

import "time"

// Project is a sales opportunity moving through the pipeline stages
type Project struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ContactID uint      `json:"contact_id" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Value     float64   `json:"value" gorm:"not null;default:0"`
	Stage     string    `json:"stage" gorm:"type:varchar(32);index;not null;default:'Lead'"`
	NextDate  string    `json:"next_date" gorm:"type:varchar(10)"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
