package model

import "time"

// Interaction types
const (
	InteractionGrab    = "grab"
	InteractionRelease = "release"
	InteractionAssign  = "assign"
	InteractionConvert = "convert"
	InteractionCall    = "call"
	InteractionEmail   = "email"
	InteractionMeeting = "meeting"
	InteractionNote    = "note"
)

// Interaction is an append-only audit entry of lead activity. UserID
// becomes null when the acting user is deleted.
type Interaction struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	LeadID    uint      `json:"lead_id" gorm:"index;not null"`
	UserID    *uint     `json:"user_id" gorm:"index"`
	Type      string    `json:"type" gorm:"type:varchar(16);not null"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}
