package model

import (
	"time"

	"gorm.io/gorm"

	"github.com/suteetoe/salescrm/internal/crm"
)

// Contact is a person or company the sales team talks to
type Contact struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Type         string    `json:"type" gorm:"type:varchar(32);not null;default:'lead'"`
	Company      string    `json:"company" gorm:"type:varchar(255)"`
	Name         string    `json:"name" gorm:"type:varchar(255);not null"`
	Email        string    `json:"email" gorm:"type:varchar(255)"`
	PhoneCountry string    `json:"phone_country" gorm:"type:varchar(8)"`
	PhoneNumber  string    `json:"phone_number" gorm:"type:varchar(32)"`
	PhoneKey     string    `json:"-" gorm:"type:varchar(48);index"`
	CompanyKey   string    `json:"-" gorm:"type:varchar(255);index"`
	Source       string    `json:"source" gorm:"type:varchar(64)"`
	Notes        string    `json:"notes" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations, cascaded on delete
	Calls    []Call    `json:"-" gorm:"foreignKey:ContactID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Projects []Project `json:"-" gorm:"foreignKey:ContactID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// BeforeSave keeps the duplicate-detection keys in sync with the phone and
// company fields
func (c *Contact) BeforeSave(tx *gorm.DB) error {
	c.PhoneKey = crm.PhoneKey(c.PhoneCountry, c.PhoneNumber)
	c.CompanyKey = crm.CompanyKey(c.Company)
	return nil
}
