// Package server assembles the echo application.
package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/suteetoe/salescrm/internal/handler"
	mid "github.com/suteetoe/salescrm/internal/middleware"
	"github.com/suteetoe/salescrm/pkg/config"
	"github.com/suteetoe/salescrm/pkg/jwtutil"
	"github.com/suteetoe/salescrm/pkg/logger"
	"github.com/suteetoe/salescrm/prometheus"
)

// Deps are the collaborators the server is built from
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Logger   *zap.Logger
	Metrics  *prometheus.Metrics
	Gatherer promclient.Gatherer
}

// New builds the echo instance with every route and middleware
func New(deps Deps) *echo.Echo {
	cfg := deps.Config

	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.Session.SigningKey,
		ExpirationHours: cfg.Session.ExpirationHours,
	})

	h := handler.New(handler.Options{
		DB:                 deps.DB,
		JWT:                jwt,
		Metrics:            deps.Metrics,
		CookieName:         cfg.Session.CookieName,
		CookieSecure:       cfg.Session.CookieSecure,
		DefaultCountryCode: cfg.Bootstrap.DefaultCountryCode,
	})
	dispatcher := handler.NewDispatcher(h.Actions(), deps.Metrics)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler

	// Middleware
	e.Use(mid.RequestIDMiddleware)
	e.Use(logger.Middleware(deps.Logger))
	if deps.Metrics != nil {
		e.Use(deps.Metrics.Middleware())
	}
	e.Use(echomw.Recover())
	if len(cfg.Server.AllowOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     cfg.Server.AllowOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost},
			AllowCredentials: true,
		}))
	}
	e.Use(mid.SessionMiddleware(jwt, deps.DB, cfg.Session.CookieName))

	// Routes
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = promclient.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/health", h.HealthCheck)

	e.Match([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}, "/api", dispatcher.Handle)

	if cfg.Server.StaticDir != "" {
		e.Static("/", cfg.Server.StaticDir)
	}

	return e
}
