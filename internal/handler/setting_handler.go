package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/suteetoe/salescrm/internal/crm"
	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/internal/session"
	"github.com/suteetoe/salescrm/pkg/logger"
)

type settingsRequest struct {
	Settings map[string]string `json:"settings" validate:"required"`
}

// GetSettings returns every setting as a key/value map
func (h *Handler) GetSettings(c echo.Context, _ *session.Session) error {
	values, err := h.loadSettings(h.dbFor(c))
	if err != nil {
		return Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": values})
}

// SaveSettings upserts the given keys
func (h *Handler) SaveSettings(c echo.Context, s *session.Session) error {
	var req settingsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	rows := make([]model.Setting, 0, len(req.Settings))
	for key, value := range req.Settings {
		if key == "" || len(key) > 64 {
			return BadRequest(fmt.Sprintf("invalid setting key %q", key))
		}
		if key == model.SettingDefaultCountryCode && crm.Digits(value) == "" {
			return BadRequest("default_country_code must contain digits")
		}
		rows = append(rows, model.Setting{Key: key, Value: value})
	}

	db := h.dbFor(c)
	if len(rows) > 0 {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&rows).Error
		if err != nil {
			return Internal(err)
		}
	}

	values, err := h.loadSettings(db)
	if err != nil {
		return Internal(err)
	}

	logger.FromContext(c).Info("Settings saved", zap.Int("count", len(rows)), zap.Uint("user_id", s.UserID))
	return c.JSON(http.StatusOK, echo.Map{"item": values})
}

func (h *Handler) loadSettings(db *gorm.DB) (map[string]string, error) {
	var settings []model.Setting
	if err := db.Find(&settings).Error; err != nil {
		return nil, err
	}

	values := map[string]string{model.SettingDefaultCountryCode: h.country}
	for _, setting := range settings {
		values[setting.Key] = setting.Value
	}
	return values, nil
}
