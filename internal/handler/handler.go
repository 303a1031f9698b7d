// Package handler implements the CRM's JSON actions behind the /api
// dispatcher.
package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/pkg/jwtutil"
	"github.com/suteetoe/salescrm/prometheus"
)

// Options configures a Handler
type Options struct {
	DB           *gorm.DB
	JWT          *jwtutil.JWTUtil
	Metrics      *prometheus.Metrics
	CookieName   string
	CookieSecure bool
	// DefaultCountryCode applies when the settings table has no value
	DefaultCountryCode string
}

// Handler holds the dependencies shared by every action
type Handler struct {
	db           *gorm.DB
	jwt          *jwtutil.JWTUtil
	metrics      *prometheus.Metrics
	cookieName   string
	cookieSecure bool
	country      string
	now          func() time.Time
}

// New creates a Handler
func New(opts Options) *Handler {
	return &Handler{
		db:           opts.DB,
		jwt:          opts.JWT,
		metrics:      opts.Metrics,
		cookieName:   opts.CookieName,
		cookieSecure: opts.CookieSecure,
		country:      opts.DefaultCountryCode,
		now:          time.Now,
	}
}

// Actions is the full action table served by the dispatcher
func (h *Handler) Actions() map[string]Action {
	read := func(access Access, fn ActionFunc) Action {
		return Action{Access: access, Handle: fn}
	}
	write := func(access Access, fn ActionFunc) Action {
		return Action{Access: access, Mutating: true, Handle: fn}
	}

	return map[string]Action{
		"auth.login":    write(Public, h.Login),
		"auth.logout":   write(Public, h.Logout),
		"auth.me":       read(Authenticated, h.Me),
		"auth.password": write(Authenticated, h.ChangePassword),

		"contacts.list":   read(Authenticated, h.ListContacts),
		"contacts.get":    read(Authenticated, h.GetContact),
		"contacts.save":   write(Authenticated, h.SaveContact),
		"contacts.check":  write(Authenticated, h.CheckContact),
		"contacts.delete": write(AdminOnly, h.DeleteContact),

		"calls.list":   read(Authenticated, h.ListCalls),
		"calls.save":   write(Authenticated, h.SaveCall),
		"calls.delete": write(AdminOnly, h.DeleteCall),

		"projects.list":   read(Authenticated, h.ListProjects),
		"projects.save":   write(Authenticated, h.SaveProject),
		"projects.stage":  write(Authenticated, h.SetProjectStage),
		"projects.delete": write(AdminOnly, h.DeleteProject),

		"leads.list":         read(Authenticated, h.ListLeads),
		"leads.get":          read(Authenticated, h.GetLead),
		"leads.interactions": read(Authenticated, h.ListInteractions),
		"leads.grab":         write(Authenticated, h.GrabLead),
		"leads.release":      write(Authenticated, h.ReleaseLead),
		"leads.convert":      write(Authenticated, h.ConvertLead),
		"leads.interact":     write(Authenticated, h.AddInteraction),
		"leads.save":         write(AdminOnly, h.SaveLead),
		"leads.delete":       write(AdminOnly, h.DeleteLead),
		"leads.assign":       write(AdminOnly, h.AssignLead),

		"users.list":   read(AdminOnly, h.ListUsers),
		"users.save":   write(AdminOnly, h.SaveUser),
		"users.delete": write(AdminOnly, h.DeleteUser),

		"settings.get":  read(Authenticated, h.GetSettings),
		"settings.save": write(AdminOnly, h.SaveSettings),

		"stats": read(Authenticated, h.Stats),

		"export": read(AdminOnly, h.Export),
		"import": write(AdminOnly, h.Import),
	}
}

// dbFor scopes queries to the request so a dropped client cancels them
func (h *Handler) dbFor(c echo.Context) *gorm.DB {
	return h.db.WithContext(c.Request().Context())
}

// defaultCountry returns the configured default phone country code
func (h *Handler) defaultCountry(db *gorm.DB) (string, error) {
	var setting model.Setting
	err := db.Where(&model.Setting{Key: model.SettingDefaultCountryCode}).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return h.country, nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

// notFoundOr maps gorm's not-found error to a 404 and anything else to a 500
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(what + " not found")
	}
	return Internal(err)
}

// likeEscape is the LIKE escape character used with likePattern. Backslash
// is avoided since MySQL treats it as a string escape as well.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// likePattern is a lower-cased substring pattern for "LIKE ? ESCAPE '!'";
// wildcards typed by the user match literally.
func likePattern(q string) string {
	return "%" + likeReplacer.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"
}
