package model

import "time"

// User roles
const (
	RoleAdmin = "admin"
	RoleSales = "sales"
)

// User is a member of the sales team
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"type:varchar(64);uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"`
	FullName  string    `json:"full_name" gorm:"type:varchar(255)"`
	Role      string    `json:"role" gorm:"type:varchar(16);not null;default:'sales'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
