package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthCheck reports whether the server can reach its database
func (h *Handler) HealthCheck(c echo.Context) error {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request().Context())
	}
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":  "unhealthy",
			"service": "salescrm",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": "salescrm",
	})
}
