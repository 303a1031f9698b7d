package handler

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/suteetoe/salescrm/internal/session"
	"github.com/suteetoe/salescrm/pkg/logger"
	"github.com/suteetoe/salescrm/prometheus"
)

// Access is who may call an action
type Access int

const (
	Public Access = iota
	Authenticated
	AdminOnly
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Authenticated:
		return "user"
	case AdminOnly:
		return "admin"
	default:
		return "unknown"
	}
}

// ActionFunc handles one action. s is nil only for public actions called
// without a session.
type ActionFunc func(c echo.Context, s *session.Session) error

// Action is a registered API action
type Action struct {
	Access Access
	// Mutating actions only accept POST
	Mutating bool
	Handle   ActionFunc
}

// Dispatcher routes /api?api=<action> to its handler
type Dispatcher struct {
	actions map[string]Action
	metrics *prometheus.Metrics
}

// NewDispatcher builds a dispatcher over the given action table
func NewDispatcher(actions map[string]Action, metrics *prometheus.Metrics) *Dispatcher {
	return &Dispatcher{actions: actions, metrics: metrics}
}

// Names lists the registered actions in sorted order
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.actions))
	for name := range d.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle is the echo handler for the /api endpoint
func (d *Dispatcher) Handle(c echo.Context) error {
	name := c.QueryParam("api")
	err := d.dispatch(c, name)

	if d.metrics != nil {
		status := c.Response().Status
		if err != nil {
			status = statusOf(err)
		}
		if _, known := d.actions[name]; !known {
			name = "unknown"
		}
		d.metrics.RecordAction(name, status)
	}
	return err
}

func (d *Dispatcher) dispatch(c echo.Context, name string) error {
	log := logger.FromContext(c)

	action, ok := d.actions[name]
	if !ok {
		log.Warn("Unknown action", zap.String("action", name))
		return NotFound("unknown action")
	}

	method := c.Request().Method
	if action.Mutating && method != http.MethodPost {
		c.Response().Header().Set(echo.HeaderAllow, http.MethodPost)
		return MethodNotAllowed(name + " requires POST")
	}
	if !action.Mutating && method != http.MethodGet && method != http.MethodPost {
		c.Response().Header().Set(echo.HeaderAllow, "GET, POST")
		return MethodNotAllowed(name + " accepts GET or POST")
	}

	s, authenticated := session.FromContext(c)
	switch action.Access {
	case Authenticated:
		if !authenticated {
			return Unauthorized("login required")
		}
	case AdminOnly:
		if !authenticated {
			return Unauthorized("login required")
		}
		if !s.IsAdmin() {
			log.Warn("Admin action denied",
				zap.String("action", name),
				zap.Uint("user_id", s.UserID),
				zap.String("role", s.Role))
			return Forbidden("admin role required")
		}
	}

	return action.Handle(c, s)
}
