package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/suteetoe/salescrm/internal/session"
	"github.com/suteetoe/salescrm/internal/transfer"
	"github.com/suteetoe/salescrm/pkg/logger"
)

// Export downloads the whole data set as JSON
func (h *Handler) Export(c echo.Context, s *session.Session) error {
	dump, err := transfer.Export(c.Request().Context(), h.db)
	if err != nil {
		return Internal(err)
	}

	filename := fmt.Sprintf("crm-export-%s.json", dump.ExportedAt.Format("20060102-150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))

	logger.FromContext(c).Info("Data exported",
		zap.Int("contacts", len(dump.Contacts)),
		zap.Int("leads", len(dump.Leads)),
		zap.Uint("user_id", s.UserID))
	return c.JSON(http.StatusOK, dump)
}

// Import replaces all data with the uploaded dump
func (h *Handler) Import(c echo.Context, s *session.Session) error {
	log := logger.FromContext(c)

	dump, err := transfer.Decode(c.Request().Body)
	if err != nil {
		h.recordImport(false)
		return BadRequest(err.Error())
	}

	counts, err := transfer.Import(c.Request().Context(), h.db, dump)
	if err != nil {
		h.recordImport(false)
		log.Warn("Import rolled back", zap.Error(err), zap.Uint("user_id", s.UserID))
		if errors.Is(err, transfer.ErrInvalidDump) {
			return BadRequest(err.Error())
		}
		return &APIError{Status: http.StatusBadRequest, Code: "bad_request", Detail: "import failed", Err: err}
	}

	h.recordImport(true)
	log.Info("Data imported",
		zap.Int("contacts", counts.Contacts),
		zap.Int("leads", counts.Leads),
		zap.Bool("users_kept", counts.UsersKept),
		zap.Uint("user_id", s.UserID))
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "counts": counts})
}

func (h *Handler) recordImport(ok bool) {
	if h.metrics != nil {
		h.metrics.RecordImport(ok)
	}
}
