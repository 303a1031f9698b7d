package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/internal/session"
	"github.com/suteetoe/salescrm/pkg/logger"
)

// Layouts accepted for a call's time, browser datetime-local first
var callTimeLayouts = []string{
	"2006-01-02T15:04",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// CallRequest is the editable part of a call
type CallRequest struct {
	ID          uint   `json:"id"`
	ContactID   uint   `json:"contact_id" validate:"required"`
	WhenAt      string `json:"when_at" validate:"required"`
	Outcome     string `json:"outcome" validate:"max=64"`
	DurationMin int    `json:"duration_min" validate:"gte=0"`
	Notes       string `json:"notes"`
}

type callListRequest struct {
	Q         string `query:"q" json:"q"`
	ContactID uint   `query:"contact_id" json:"contact_id"`
}

func parseCallTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range callTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("when_at must look like 2006-01-02T15:04")
}

// ListCalls returns logged calls, newest first
func (h *Handler) ListCalls(c echo.Context, _ *session.Session) error {
	var req callListRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	q := h.dbFor(c).Model(&model.Call{})
	if req.ContactID != 0 {
		q = q.Where("contact_id = ?", req.ContactID)
	}
	if strings.TrimSpace(req.Q) != "" {
		pattern := likePattern(req.Q)
		q = q.Where("LOWER(outcome) LIKE ? ESCAPE '!' OR LOWER(notes) LIKE ? ESCAPE '!'", pattern, pattern)
	}

	calls := []model.Call{}
	if err := q.Order("when_at DESC, id DESC").Find(&calls).Error; err != nil {
		return Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": calls})
}

// SaveCall creates or updates a call against an existing contact
func (h *Handler) SaveCall(c echo.Context, s *session.Session) error {
	var req CallRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	whenAt, err := parseCallTime(req.WhenAt)
	if err != nil {
		return BadRequest(err.Error())
	}

	db := h.dbFor(c)
	if err := requireContact(db, req.ContactID); err != nil {
		return err
	}

	call := model.Call{}
	status := http.StatusCreated
	if req.ID != 0 {
		if err := db.First(&call, req.ID).Error; err != nil {
			return notFoundOr(err, "call")
		}
		status = http.StatusOK
	}

	call.ContactID = req.ContactID
	call.WhenAt = whenAt
	call.Outcome = req.Outcome
	call.DurationMin = req.DurationMin
	call.Notes = req.Notes

	if err := db.Save(&call).Error; err != nil {
		return Internal(err)
	}

	logger.FromContext(c).Info("Call saved",
		zap.Uint("call_id", call.ID),
		zap.Uint("contact_id", call.ContactID),
		zap.Uint("user_id", s.UserID))
	return c.JSON(status, echo.Map{"item": call})
}

// DeleteCall removes one call
func (h *Handler) DeleteCall(c echo.Context, _ *session.Session) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}

	result := h.dbFor(c).Delete(&model.Call{}, id)
	if result.Error != nil {
		return Internal(result.Error)
	}
	if result.RowsAffected == 0 {
		return NotFound("call not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// requireContact rejects references to contacts that do not exist
func requireContact(db *gorm.DB, id uint) error {
	var count int64
	if err := db.Model(&model.Contact{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return Internal(err)
	}
	if count == 0 {
		return BadRequest("unknown contact")
	}
	return nil
}
