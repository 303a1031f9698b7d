package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/suteetoe/salescrm/internal/leadview"
	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/internal/session"
	"github.com/suteetoe/salescrm/pkg/logger"
)

// Lead list tabs
const (
	TabAll      = "all"
	TabGlobal   = "global"
	TabAssigned = "assigned"
	TabPersonal = "personal"
)

type leadListRequest struct {
	Q    string `query:"q" json:"q"`
	Type string `query:"type" json:"type"`
}

// LeadRequest is the admin-editable part of a lead. The status follows
// assigned_to.
type LeadRequest struct {
	ID         uint   `json:"id"`
	Name       string `json:"name" validate:"required,max=255"`
	Phone      string `json:"phone" validate:"max=32"`
	Email      string `json:"email" validate:"omitempty,email,max=255"`
	Company    string `json:"company" validate:"max=255"`
	Address    string `json:"address"`
	AssignedTo *uint  `json:"assigned_to"`
}

type assignRequest struct {
	ID     uint `json:"id" validate:"required"`
	UserID uint `json:"user_id" validate:"required"`
}

type interactRequest struct {
	ID    uint   `json:"id" validate:"required"`
	Type  string `json:"type" validate:"required,oneof=call email meeting note"`
	Notes string `json:"notes"`
}

// ListLeads returns the leads visible to the caller, redacted for them
func (h *Handler) ListLeads(c echo.Context, s *session.Session) error {
	var req leadListRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	q, err := leadQuery(h.dbFor(c).Model(&model.Lead{}), s, req.Type, req.Q)
	if err != nil {
		return err
	}

	var leads []model.Lead
	if err := q.Order("id DESC").Find(&leads).Error; err != nil {
		return Internal(err)
	}

	viewer := s.Viewer()
	visible := leads[:0]
	for _, lead := range leads {
		if leadview.Visible(viewer, lead) {
			visible = append(visible, lead)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"items": leadview.RedactAll(viewer, visible)})
}

// leadQuery applies visibility, the tab filter and the search text
func leadQuery(q *gorm.DB, s *session.Session, tab, search string) (*gorm.DB, error) {
	admin := s.IsAdmin()

	if !admin {
		q = q.Where("status = ? OR (status = ? AND assigned_to = ?)",
			model.LeadStatusGlobal, model.LeadStatusAssigned, s.UserID)
	}

	switch tab {
	case "", TabAll:
	case TabGlobal:
		q = q.Where("status = ?", model.LeadStatusGlobal)
	case TabAssigned:
		q = q.Where("status = ?", model.LeadStatusAssigned)
	case TabPersonal:
		q = q.Where("status = ? AND assigned_to = ?", model.LeadStatusAssigned, s.UserID)
	default:
		return nil, BadRequest(fmt.Sprintf("unknown lead tab %q", tab))
	}

	if strings.TrimSpace(search) != "" {
		pattern := likePattern(search)
		if admin {
			q = q.Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(company) LIKE ? ESCAPE '!' OR LOWER(phone) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!'",
				pattern, pattern, pattern, pattern)
		} else {
			// Masked fields are only searchable on the caller's own leads
			q = q.Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(company) LIKE ? ESCAPE '!' OR (assigned_to = ? AND (LOWER(phone) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!'))",
				pattern, pattern, s.UserID, pattern, pattern)
		}
	}
	return q, nil
}

// GetLead returns one lead as the caller may see it
func (h *Handler) GetLead(c echo.Context, s *session.Session) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}

	var lead model.Lead
	if err := h.dbFor(c).First(&lead, id).Error; err != nil {
		return notFoundOr(err, "lead")
	}
	viewer := s.Viewer()
	if !leadview.Visible(viewer, lead) {
		return NotFound("lead not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"item": leadview.Redact(viewer, lead)})
}

// GrabLead claims a global lead for the caller. The conditional update makes
// the first claimant win; everyone after gets a conflict.
func (h *Handler) GrabLead(c echo.Context, s *session.Session) error {
	log := logger.FromContext(c)

	id, err := bindID(c)
	if err != nil {
		return err
	}

	var lead model.Lead
	err = h.dbFor(c).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Lead{}).
			Where("id = ? AND status = ?", id, model.LeadStatusGlobal).
			Updates(map[string]interface{}{
				"status":      model.LeadStatusAssigned,
				"assigned_to": s.UserID,
				"updated_at":  h.now(),
			})
		if result.Error != nil {
			return Internal(result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.Lead{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return Internal(err)
			}
			if count == 0 {
				return NotFound("lead not found")
			}
			return Conflict("lead already assigned")
		}

		if err := logInteraction(tx, id, s.UserID, model.InteractionGrab, ""); err != nil {
			return err
		}
		if err := tx.First(&lead, id).Error; err != nil {
			return Internal(err)
		}
		return nil
	})

	if h.metrics != nil && (err == nil || statusOf(err) == http.StatusConflict) {
		h.metrics.RecordLeadGrab(err == nil)
	}
	if err != nil {
		log.Info("Lead grab failed", zap.Uint("lead_id", id), zap.Uint("user_id", s.UserID), zap.Error(err))
		return err
	}

	log.Info("Lead grabbed", zap.Uint("lead_id", id), zap.Uint("user_id", s.UserID))
	return c.JSON(http.StatusOK, echo.Map{"item": leadview.Redact(s.Viewer(), lead)})
}

// ReleaseLead returns an assigned lead to the global pool
func (h *Handler) ReleaseLead(c echo.Context, s *session.Session) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}

	var lead model.Lead
	err = h.dbFor(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lead, id).Error; err != nil {
			return notFoundOr(err, "lead")
		}
		if lead.Status != model.LeadStatusAssigned || lead.AssignedTo == nil {
			return Conflict("lead is not assigned")
		}
		if !s.IsAdmin() && !lead.IsOwnedBy(s.UserID) {
			return Forbidden("lead is assigned to another user")
		}

		result := tx.Model(&model.Lead{}).
			Where("id = ? AND status = ? AND assigned_to = ?", id, model.LeadStatusAssigned, *lead.AssignedTo).
			Updates(map[string]interface{}{
				"status":      model.LeadStatusGlobal,
				"assigned_to": nil,
				"updated_at":  h.now(),
			})
		if result.Error != nil {
			return Internal(result.Error)
		}
		if result.RowsAffected == 0 {
			return Conflict("lead changed while releasing")
		}

		if err := logInteraction(tx, id, s.UserID, model.InteractionRelease, ""); err != nil {
			return err
		}
		if err := tx.First(&lead, id).Error; err != nil {
			return Internal(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.FromContext(c).Info("Lead released", zap.Uint("lead_id", id), zap.Uint("user_id", s.UserID))
	return c.JSON(http.StatusOK, echo.Map{"item": leadview.Redact(s.Viewer(), lead)})
}

// AssignLead hands any lead to a user
func (h *Handler) AssignLead(c echo.Context, s *session.Session) error {
	var req assignRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	var lead model.Lead
	err := h.dbFor(c).Transaction(func(tx *gorm.DB) error {
		assignee, err := findUser(tx, req.UserID)
		if err != nil {
			return err
		}
		if err := tx.First(&lead, req.ID).Error; err != nil {
			return notFoundOr(err, "lead")
		}

		err = tx.Model(&lead).Updates(map[string]interface{}{
			"status":      model.LeadStatusAssigned,
			"assigned_to": assignee.ID,
			"updated_at":  h.now(),
		}).Error
		if err != nil {
			return Internal(err)
		}

		if err := logInteraction(tx, lead.ID, s.UserID, model.InteractionAssign, "assigned to "+assignee.Username); err != nil {
			return err
		}
		if err := tx.First(&lead, lead.ID).Error; err != nil {
			return Internal(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.FromContext(c).Info("Lead assigned",
		zap.Uint("lead_id", lead.ID),
		zap.Uint("assignee_id", req.UserID),
		zap.Uint("user_id", s.UserID))
	return c.JSON(http.StatusOK, echo.Map{"item": leadview.Redact(s.Viewer(), lead)})
}

// ConvertLead copies an assigned lead into the contact list, once
func (h *Handler) ConvertLead(c echo.Context, s *session.Session) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}

	var (
		contact model.Contact
		dup     *DuplicateWarning
	)
	err = h.dbFor(c).Transaction(func(tx *gorm.DB) error {
		var lead model.Lead
		if err := tx.First(&lead, id).Error; err != nil {
			return notFoundOr(err, "lead")
		}
		if lead.Status != model.LeadStatusAssigned {
			return Conflict("grab or assign the lead before converting it")
		}
		if !s.IsAdmin() && !lead.IsOwnedBy(s.UserID) {
			return Forbidden("only the lead owner can convert it")
		}
		if lead.IsConverted() {
			return Conflict("lead already converted")
		}

		country := ""
		if lead.Phone != "" {
			var err error
			if country, err = h.defaultCountry(tx); err != nil {
				return Internal(err)
			}
		}

		contact = model.Contact{
			Type:         defaultContactType,
			Company:      lead.Company,
			Name:         lead.Name,
			Email:        lead.Email,
			PhoneCountry: country,
			PhoneNumber:  lead.Phone,
			Source:       fmt.Sprintf("lead #%d", lead.ID),
			Notes:        lead.Address,
		}

		var err error
		if dup, err = h.checkDuplicate(c, tx, &contact); err != nil {
			return Internal(err)
		}
		if err := tx.Create(&contact).Error; err != nil {
			return Internal(err)
		}

		// The row may have changed since it was read; only the first
		// conversion of a still-assigned lead counts.
		now := h.now()
		result := tx.Model(&model.Lead{}).
			Where("id = ? AND status = ? AND converted_at IS NULL", lead.ID, model.LeadStatusAssigned).
			Updates(map[string]interface{}{
				"converted_at": now,
				"contact_id":   contact.ID,
				"updated_at":   now,
			})
		if result.Error != nil {
			return Internal(result.Error)
		}
		if result.RowsAffected == 0 {
			return Conflict("lead already converted")
		}

		return logInteraction(tx, lead.ID, s.UserID, model.InteractionConvert, fmt.Sprintf("contact #%d", contact.ID))
	})
	if err != nil {
		return err
	}

	logger.FromContext(c).Info("Lead converted",
		zap.Uint("lead_id", id),
		zap.Uint("contact_id", contact.ID),
		zap.Uint("user_id", s.UserID))
	return c.JSON(http.StatusCreated, echo.Map{"item": contact, "duplicate": dup})
}

// AddInteraction appends an activity note to a lead
func (h *Handler) AddInteraction(c echo.Context, s *session.Session) error {
	var req interactRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	db := h.dbFor(c)
	if _, err := h.workableLead(db, s, req.ID); err != nil {
		return err
	}

	userID := s.UserID
	interaction := model.Interaction{LeadID: req.ID, UserID: &userID, Type: req.Type, Notes: req.Notes}
	if err := db.Create(&interaction).Error; err != nil {
		return Internal(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": interaction})
}

// ListInteractions returns a lead's activity log, oldest first
func (h *Handler) ListInteractions(c echo.Context, s *session.Session) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}

	db := h.dbFor(c)
	if _, err := h.workableLead(db, s, id); err != nil {
		return err
	}

	interactions := []model.Interaction{}
	if err := db.Where("lead_id = ?", id).Order("id ASC").Find(&interactions).Error; err != nil {
		return Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": interactions})
}

// SaveLead creates or updates a lead
func (h *Handler) SaveLead(c echo.Context, s *session.Session) error {
	var req LeadRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.AssignedTo != nil && *req.AssignedTo == 0 {
		req.AssignedTo = nil
	}

	var lead model.Lead
	status := http.StatusCreated
	err := h.dbFor(c).Transaction(func(tx *gorm.DB) error {
		var previous *uint
		if req.ID != 0 {
			if err := tx.First(&lead, req.ID).Error; err != nil {
				return notFoundOr(err, "lead")
			}
			previous = lead.AssignedTo
			status = http.StatusOK
		}

		var assignee *model.User
		if req.AssignedTo != nil {
			u, err := findUser(tx, *req.AssignedTo)
			if err != nil {
				return err
			}
			assignee = u
		}

		lead.Name = strings.TrimSpace(req.Name)
		lead.Phone = strings.TrimSpace(req.Phone)
		lead.Email = strings.TrimSpace(req.Email)
		lead.Company = strings.TrimSpace(req.Company)
		lead.Address = req.Address
		lead.AssignedTo = req.AssignedTo
		lead.Status = model.LeadStatusGlobal
		if req.AssignedTo != nil {
			lead.Status = model.LeadStatusAssigned
		}

		if err := tx.Save(&lead).Error; err != nil {
			return Internal(err)
		}

		switch {
		case assignee != nil && (previous == nil || *previous != assignee.ID):
			return logInteraction(tx, lead.ID, s.UserID, model.InteractionAssign, "assigned to "+assignee.Username)
		case assignee == nil && previous != nil:
			return logInteraction(tx, lead.ID, s.UserID, model.InteractionRelease, "")
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.FromContext(c).Info("Lead saved", zap.Uint("lead_id", lead.ID), zap.Uint("user_id", s.UserID))
	return c.JSON(status, echo.Map{"item": leadview.Redact(s.Viewer(), lead)})
}

// DeleteLead removes a lead and its activity log
func (h *Handler) DeleteLead(c echo.Context, s *session.Session) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}

	result := h.dbFor(c).Delete(&model.Lead{}, id)
	if result.Error != nil {
		return Internal(result.Error)
	}
	if result.RowsAffected == 0 {
		return NotFound("lead not found")
	}

	logger.FromContext(c).Info("Lead deleted", zap.Uint("lead_id", id), zap.Uint("user_id", s.UserID))
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// workableLead loads a lead the caller may act on: admins any lead, sales
// users only their own
func (h *Handler) workableLead(db *gorm.DB, s *session.Session, id uint) (*model.Lead, error) {
	var lead model.Lead
	if err := db.First(&lead, id).Error; err != nil {
		return nil, notFoundOr(err, "lead")
	}
	if s.IsAdmin() || lead.IsOwnedBy(s.UserID) {
		return &lead, nil
	}
	if !leadview.Visible(s.Viewer(), lead) {
		return nil, NotFound("lead not found")
	}
	return nil, Forbidden("grab the lead first")
}

func logInteraction(tx *gorm.DB, leadID, userID uint, kind, notes string) error {
	interaction := model.Interaction{LeadID: leadID, UserID: &userID, Type: kind, Notes: notes}
	if err := tx.Create(&interaction).Error; err != nil {
		return Internal(err)
	}
	return nil
}
