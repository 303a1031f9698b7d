package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/suteetoe/salescrm/internal/crm"
	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/internal/session"
	"github.com/suteetoe/salescrm/pkg/logger"
)

const defaultContactType = "lead"

// ContactRequest is the editable part of a contact
type ContactRequest struct {
	ID           uint   `json:"id"`
	Type         string `json:"type" validate:"max=32"`
	Company      string `json:"company" validate:"max=255"`
	Name         string `json:"name" validate:"required,max=255"`
	Email        string `json:"email" validate:"omitempty,email,max=255"`
	PhoneCountry string `json:"phone_country" validate:"max=8"`
	PhoneNumber  string `json:"phone_number" validate:"max=32"`
	Source       string `json:"source" validate:"max=64"`
	Notes        string `json:"notes"`
}

type contactCheckRequest struct {
	ID           uint   `json:"id"`
	Company      string `json:"company"`
	PhoneCountry string `json:"phone_country"`
	PhoneNumber  string `json:"phone_number"`
}

type contactListRequest struct {
	Q    string `query:"q" json:"q"`
	Type string `query:"type" json:"type"`
}

// ListContacts returns contacts matching the optional search and type filter
func (h *Handler) ListContacts(c echo.Context, _ *session.Session) error {
	var req contactListRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	q := h.dbFor(c).Model(&model.Contact{})
	if strings.TrimSpace(req.Q) != "" {
		pattern := likePattern(req.Q)
		q = q.Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(company) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!' OR phone_number LIKE ? ESCAPE '!'",
			pattern, pattern, pattern, pattern)
	}
	if req.Type != "" {
		q = q.Where("type = ?", req.Type)
	}

	contacts := []model.Contact{}
	if err := q.Order("id DESC").Find(&contacts).Error; err != nil {
		return Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": contacts})
}

// GetContact returns a contact with its calls and projects
func (h *Handler) GetContact(c echo.Context, _ *session.Session) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}

	var contact model.Contact
	err = h.dbFor(c).
		Preload("Calls", func(db *gorm.DB) *gorm.DB { return db.Order("when_at DESC") }).
		Preload("Projects", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&contact, id).Error
	if err != nil {
		return notFoundOr(err, "contact")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"item":     contact,
		"calls":    nonNil(contact.Calls),
		"projects": nonNil(contact.Projects),
	})
}

// SaveContact creates or updates a contact and reports a likely duplicate
func (h *Handler) SaveContact(c echo.Context, s *session.Session) error {
	log := logger.FromContext(c)

	var req ContactRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	db := h.dbFor(c)

	contact := model.Contact{}
	status := http.StatusCreated
	if req.ID != 0 {
		if err := db.First(&contact, req.ID).Error; err != nil {
			return notFoundOr(err, "contact")
		}
		status = http.StatusOK
	}

	if req.PhoneCountry == "" && crm.Digits(req.PhoneNumber) != "" {
		country, err := h.defaultCountry(db)
		if err != nil {
			return Internal(err)
		}
		req.PhoneCountry = country
	}

	contact.Type = req.Type
	if contact.Type == "" {
		contact.Type = defaultContactType
	}
	contact.Company = strings.TrimSpace(req.Company)
	contact.Name = strings.TrimSpace(req.Name)
	contact.Email = strings.TrimSpace(req.Email)
	contact.PhoneCountry = req.PhoneCountry
	contact.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	contact.Source = req.Source
	contact.Notes = req.Notes

	dup, err := h.checkDuplicate(c, db, &contact)
	if err != nil {
		return Internal(err)
	}

	if err := db.Save(&contact).Error; err != nil {
		return Internal(err)
	}

	log.Info("Contact saved",
		zap.Uint("contact_id", contact.ID),
		zap.Uint("user_id", s.UserID),
		zap.Bool("created", status == http.StatusCreated))

	return c.JSON(status, echo.Map{"item": contact, "duplicate": dup})
}

// CheckContact runs duplicate detection without saving
func (h *Handler) CheckContact(c echo.Context, _ *session.Session) error {
	var req contactCheckRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	db := h.dbFor(c)
	country := req.PhoneCountry
	if country == "" {
		var err error
		if country, err = h.defaultCountry(db); err != nil {
			return Internal(err)
		}
	}

	dup, err := findDuplicate(db, crm.PhoneKey(country, req.PhoneNumber), req.Company, req.ID)
	if err != nil {
		return Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"duplicate": dup})
}

// DeleteContact removes a contact together with its calls and projects
func (h *Handler) DeleteContact(c echo.Context, s *session.Session) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}

	result := h.dbFor(c).Delete(&model.Contact{}, id)
	if result.Error != nil {
		return Internal(result.Error)
	}
	if result.RowsAffected == 0 {
		return NotFound("contact not found")
	}

	logger.FromContext(c).Info("Contact deleted", zap.Uint("contact_id", id), zap.Uint("user_id", s.UserID))
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// checkDuplicate reports a contact matching the one about to be saved
func (h *Handler) checkDuplicate(c echo.Context, db *gorm.DB, contact *model.Contact) (*DuplicateWarning, error) {
	dup, err := findDuplicate(db, crm.PhoneKey(contact.PhoneCountry, contact.PhoneNumber), contact.Company, contact.ID)
	if err != nil || dup == nil {
		return dup, err
	}

	logger.FromContext(c).Info("Possible duplicate contact",
		zap.Uint("existing_id", dup.ID),
		zap.String("matched_on", dup.MatchedOn))
	if h.metrics != nil {
		h.metrics.RecordDuplicateWarning(dup.MatchedOn)
	}
	return dup, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
