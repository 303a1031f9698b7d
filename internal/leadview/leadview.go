// Package leadview decides what a viewer may see of a lead.
package leadview

import (
	"time"

	"github.com/suteetoe/salescrm/internal/crm"
	"github.com/suteetoe/salescrm/internal/model"
)

// Viewer is who is looking at a lead
type Viewer struct {
	UserID uint
	Role   string
}

// IsAdmin reports whether the viewer sees every lead unredacted
func (v Viewer) IsAdmin() bool {
	return v.Role == model.RoleAdmin
}

// LeadView is the serialized form of a lead for one viewer
type LeadView struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email"`
	Company     string     `json:"company"`
	Address     string     `json:"address"`
	Status      string     `json:"status"`
	AssignedTo  *uint      `json:"assigned_to"`
	Mine        bool       `json:"mine"`
	Redacted    bool       `json:"redacted"`
	ConvertedAt *time.Time `json:"converted_at"`
	ContactID   *uint      `json:"contact_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Visible reports whether the lead belongs in the viewer's lists at all:
// admins see everything, sales users see the global pool and their own leads.
func Visible(v Viewer, lead model.Lead) bool {
	if v.IsAdmin() {
		return true
	}
	return lead.Status == model.LeadStatusGlobal || lead.IsOwnedBy(v.UserID)
}

// Redact builds the view of lead for v. Admins and the owner get the full
// record; everyone else gets phone, email and address masked.
func Redact(v Viewer, lead model.Lead) LeadView {
	view := LeadView{
		ID:        lead.ID,
		Name:      lead.Name,
		Phone:     lead.Phone,
		Email:     lead.Email,
		Company:   lead.Company,
		Address:   lead.Address,
		Status:    lead.Status,
		Mine:      lead.IsOwnedBy(v.UserID),
		CreatedAt: lead.CreatedAt,
		UpdatedAt: lead.UpdatedAt,
	}
	if lead.AssignedTo != nil {
		id := *lead.AssignedTo
		view.AssignedTo = &id
	}
	if lead.ConvertedAt != nil {
		at := *lead.ConvertedAt
		view.ConvertedAt = &at
	}
	if lead.ContactID != nil {
		id := *lead.ContactID
		view.ContactID = &id
	}

	if v.IsAdmin() || view.Mine {
		return view
	}

	view.Phone = crm.MaskPhone(lead.Phone)
	view.Email = crm.MaskText(lead.Email)
	view.Address = crm.MaskText(lead.Address)
	view.Redacted = true
	return view
}

// RedactAll applies Redact to every lead
func RedactAll(v Viewer, leads []model.Lead) []LeadView {
	views := make([]LeadView, 0, len(leads))
	for _, lead := range leads {
		views = append(views, Redact(v, lead))
	}
	return views
}
