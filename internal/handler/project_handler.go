package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/suteetoe/salescrm/internal/crm"
	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/internal/session"
	"github.com/suteetoe/salescrm/pkg/logger"
)

// ProjectRequest is the editable part of a project
type ProjectRequest struct {
	ID        uint    `json:"id"`
	ContactID uint    `json:"contact_id" validate:"required"`
	Name      string  `json:"name" validate:"required,max=255"`
	Value     float64 `json:"value" validate:"gte=0"`
	Stage     string  `json:"stage"`
	NextDate  string  `json:"next_date" validate:"omitempty,datetime=2006-01-02"`
	Notes     string  `json:"notes"`
}

type stageRequest struct {
	ID    uint   `json:"id" validate:"required"`
	Stage string `json:"stage" validate:"required"`
}

type projectListRequest struct {
	Q     string `query:"q" json:"q"`
	Stage string `query:"stage" json:"stage"`
}

// ListProjects returns projects, optionally filtered by search text and stage
func (h *Handler) ListProjects(c echo.Context, _ *session.Session) error {
	var req projectListRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	q := h.dbFor(c).Model(&model.Project{})
	if req.Stage != "" {
		if !crm.ValidStage(req.Stage) {
			return BadRequest("unknown stage")
		}
		q = q.Where("stage = ?", req.Stage)
	}
	if strings.TrimSpace(req.Q) != "" {
		pattern := likePattern(req.Q)
		q = q.Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(notes) LIKE ? ESCAPE '!'", pattern, pattern)
	}

	projects := []model.Project{}
	if err := q.Order("id DESC").Find(&projects).Error; err != nil {
		return Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": projects, "stages": crm.Stages})
}

// SaveProject creates or updates a project
func (h *Handler) SaveProject(c echo.Context, s *session.Session) error {
	var req ProjectRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if req.Stage == "" {
		req.Stage = crm.StageLead
	}
	if !crm.ValidStage(req.Stage) {
		return BadRequest("unknown stage")
	}

	db := h.dbFor(c)
	if err := requireContact(db, req.ContactID); err != nil {
		return err
	}

	project := model.Project{}
	status := http.StatusCreated
	if req.ID != 0 {
		if err := db.First(&project, req.ID).Error; err != nil {
			return notFoundOr(err, "project")
		}
		status = http.StatusOK
	}

	project.ContactID = req.ContactID
	project.Name = strings.TrimSpace(req.Name)
	project.Value = req.Value
	project.Stage = req.Stage
	project.NextDate = req.NextDate
	project.Notes = req.Notes

	if err := db.Save(&project).Error; err != nil {
		return Internal(err)
	}

	logger.FromContext(c).Info("Project saved",
		zap.Uint("project_id", project.ID),
		zap.String("stage", project.Stage),
		zap.Uint("user_id", s.UserID))
	return c.JSON(status, echo.Map{"item": project})
}

// SetProjectStage moves a project to another stage, leaving every other
// field as it is
func (h *Handler) SetProjectStage(c echo.Context, s *session.Session) error {
	var req stageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if !crm.ValidStage(req.Stage) {
		return BadRequest("unknown stage")
	}

	db := h.dbFor(c)
	var project model.Project
	if err := db.First(&project, req.ID).Error; err != nil {
		return notFoundOr(err, "project")
	}

	from := project.Stage
	now := h.now()
	err := db.Model(&project).Updates(map[string]interface{}{
		"stage":      req.Stage,
		"updated_at": now,
	}).Error
	if err != nil {
		return Internal(err)
	}
	project.Stage = req.Stage
	project.UpdatedAt = now

	logger.FromContext(c).Info("Project stage changed",
		zap.Uint("project_id", project.ID),
		zap.String("from", from),
		zap.String("to", req.Stage),
		zap.Uint("user_id", s.UserID))
	return c.JSON(http.StatusOK, echo.Map{"item": project})
}

// DeleteProject removes one project
func (h *Handler) DeleteProject(c echo.Context, _ *session.Session) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}

	result := h.dbFor(c).Delete(&model.Project{}, id)
	if result.Error != nil {
		return Internal(result.Error)
	}
	if result.RowsAffected == 0 {
		return NotFound("project not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
