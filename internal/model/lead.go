package model

import "time"

// Lead statuses
const (
	LeadStatusGlobal   = "global"
	LeadStatusAssigned = "assigned"
)

// Lead is a prospect in the shared pool; assigned leads belong to one user
type Lead struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"type:varchar(255);not null"`
	Phone      string    `json:"phone" gorm:"type:varchar(32);index"`
	Email      string    `json:"email" gorm:"type:varchar(255)"`
	Company    string    `json:"company" gorm:"type:varchar(255)"`
	Address    string    `json:"address" gorm:"type:text"`
	Status     string    `json:"status" gorm:"type:varchar(16);index;not null;default:'global'"`
	AssignedTo *uint     `json:"assigned_to" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Set once when the lead becomes a contact; ContactID is cleared if
	// that contact is deleted later, ConvertedAt stays.
	ConvertedAt *time.Time `json:"converted_at"`
	ContactID   *uint      `json:"contact_id" gorm:"index"`

	Assignee     *User         `json:"-" gorm:"foreignKey:AssignedTo;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Contact      *Contact      `json:"-" gorm:"foreignKey:ContactID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Interactions []Interaction `json:"-" gorm:"foreignKey:LeadID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// IsOwnedBy reports whether the lead is assigned to the given user
func (l *Lead) IsOwnedBy(userID uint) bool {
	return l.Status == LeadStatusAssigned && l.AssignedTo != nil && *l.AssignedTo == userID
}

// IsConverted reports whether the lead was already turned into a contact
func (l *Lead) IsConverted() bool {
	return l.ConvertedAt != nil
}
