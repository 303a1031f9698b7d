// Package session carries the authenticated caller through a request.
package session

import (
	"github.com/labstack/echo/v4"

	"github.com/suteetoe/salescrm/internal/leadview"
	"github.com/suteetoe/salescrm/internal/model"
)

const contextKey = "session"

// Session is the caller resolved from the session token
type Session struct {
	UserID   uint
	Username string
	FullName string
	Role     string
}

// FromUser builds the session of a stored user
func FromUser(u *model.User) *Session {
	return &Session{
		UserID:   u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Role:     u.Role,
	}
}

// IsAdmin reports whether the caller has the admin role
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == model.RoleAdmin
}

// Viewer is the caller as seen by the lead redaction rules
func (s *Session) Viewer() leadview.Viewer {
	return leadview.Viewer{UserID: s.UserID, Role: s.Role}
}

// Set attaches the session to the request
func Set(c echo.Context, s *Session) {
	c.Set(contextKey, s)
}

// FromContext returns the session attached by the auth middleware, if any
func FromContext(c echo.Context) (*Session, bool) {
	s, ok := c.Get(contextKey).(*Session)
	return s, ok && s != nil
}
