package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/suteetoe/salescrm/internal/crm"
	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/internal/session"
)

// StageTotal is the pipeline summary of one stage
type StageTotal struct {
	Stage string  `json:"stage"`
	Count int64   `json:"count"`
	Value float64 `json:"value"`
}

// LeadTotals counts leads by pool
type LeadTotals struct {
	Global   int64 `json:"global"`
	Assigned int64 `json:"assigned"`
	Mine     int64 `json:"mine"`
}

// Stats are the dashboard counters
type Stats struct {
	Contacts int64        `json:"contacts"`
	Calls    int64        `json:"calls"`
	Projects []StageTotal `json:"projects"`
	Leads    LeadTotals   `json:"leads"`
}

// Stats returns the dashboard counters
func (h *Handler) Stats(c echo.Context, s *session.Session) error {
	db := h.dbFor(c)
	var stats Stats

	if err := db.Model(&model.Contact{}).Count(&stats.Contacts).Error; err != nil {
		return Internal(err)
	}
	if err := db.Model(&model.Call{}).Count(&stats.Calls).Error; err != nil {
		return Internal(err)
	}

	var rows []StageTotal
	err := db.Model(&model.Project{}).
		Select("stage, COUNT(*) AS count, COALESCE(SUM(value), 0) AS value").
		Group("stage").
		Scan(&rows).Error
	if err != nil {
		return Internal(err)
	}
	byStage := make(map[string]StageTotal, len(rows))
	for _, row := range rows {
		byStage[row.Stage] = row
	}
	for _, stage := range crm.Stages {
		total := byStage[stage]
		total.Stage = stage
		stats.Projects = append(stats.Projects, total)
	}

	if err := db.Model(&model.Lead{}).Where("status = ?", model.LeadStatusGlobal).Count(&stats.Leads.Global).Error; err != nil {
		return Internal(err)
	}
	if err := db.Model(&model.Lead{}).Where("status = ?", model.LeadStatusAssigned).Count(&stats.Leads.Assigned).Error; err != nil {
		return Internal(err)
	}
	err = db.Model(&model.Lead{}).
		Where("status = ? AND assigned_to = ?", model.LeadStatusAssigned, s.UserID).
		Count(&stats.Leads.Mine).Error
	if err != nil {
		return Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"item": stats})
}
