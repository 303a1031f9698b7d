package leadview

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/suteetoe/salescrm/internal/crm"
	"github.com/suteetoe/salescrm/internal/model"
)

func uintPtr(v uint) *uint { return &v }

func sampleLead(status string, owner *uint) model.Lead {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return model.Lead{
		ID:         9,
		Name:       "Dana Prospect",
		Phone:      "+15551234567",
		Email:      "dana@example.com",
		Company:    "Prospect Ltd",
		Address:    "1 Main St",
		Status:     status,
		AssignedTo: owner,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestRedactAdminSeesEverything(t *testing.T) {
	admin := Viewer{UserID: 1, Role: model.RoleAdmin}
	lead := sampleLead(model.LeadStatusGlobal, nil)

	want := LeadView{
		ID:        9,
		Name:      "Dana Prospect",
		Phone:     "+15551234567",
		Email:     "dana@example.com",
		Company:   "Prospect Ltd",
		Address:   "1 Main St",
		Status:    model.LeadStatusGlobal,
		CreatedAt: lead.CreatedAt,
		UpdatedAt: lead.UpdatedAt,
	}
	if diff := cmp.Diff(want, Redact(admin, lead)); diff != "" {
		t.Errorf("Redact() mismatch (-want +got):\n%s", diff)
	}
}

func TestRedactSalesGlobalLead(t *testing.T) {
	sales := Viewer{UserID: 2, Role: model.RoleSales}
	view := Redact(sales, sampleLead(model.LeadStatusGlobal, nil))

	assert.True(t, view.Redacted)
	assert.False(t, view.Mine)
	assert.Equal(t, "+155"+crm.Mask, view.Phone)
	assert.Equal(t, crm.Mask, view.Email)
	assert.Equal(t, crm.Mask, view.Address)
	assert.Equal(t, "Dana Prospect", view.Name)
	assert.Equal(t, "Prospect Ltd", view.Company)
}

func TestRedactSalesOwnLead(t *testing.T) {
	sales := Viewer{UserID: 2, Role: model.RoleSales}
	view := Redact(sales, sampleLead(model.LeadStatusAssigned, uintPtr(2)))

	assert.False(t, view.Redacted)
	assert.True(t, view.Mine)
	assert.Equal(t, "+15551234567", view.Phone)
	assert.Equal(t, "dana@example.com", view.Email)
}

func TestRedactSalesSomeoneElsesLead(t *testing.T) {
	sales := Viewer{UserID: 2, Role: model.RoleSales}
	view := Redact(sales, sampleLead(model.LeadStatusAssigned, uintPtr(3)))

	assert.True(t, view.Redacted)
	assert.Equal(t, crm.Mask, view.Email)
}

func TestRedactDoesNotAliasAssignee(t *testing.T) {
	owner := uintPtr(2)
	view := Redact(Viewer{UserID: 2, Role: model.RoleSales}, sampleLead(model.LeadStatusAssigned, owner))
	*owner = 5
	assert.Equal(t, uint(2), *view.AssignedTo)
}

func TestVisible(t *testing.T) {
	admin := Viewer{UserID: 1, Role: model.RoleAdmin}
	sales := Viewer{UserID: 2, Role: model.RoleSales}

	global := sampleLead(model.LeadStatusGlobal, nil)
	mine := sampleLead(model.LeadStatusAssigned, uintPtr(2))
	theirs := sampleLead(model.LeadStatusAssigned, uintPtr(3))

	assert.True(t, Visible(admin, theirs))
	assert.True(t, Visible(sales, global))
	assert.True(t, Visible(sales, mine))
	assert.False(t, Visible(sales, theirs))
}

func TestRedactAll(t *testing.T) {
	sales := Viewer{UserID: 2, Role: model.RoleSales}
	views := RedactAll(sales, []model.Lead{
		sampleLead(model.LeadStatusGlobal, nil),
		sampleLead(model.LeadStatusAssigned, uintPtr(2)),
	})

	assert.Len(t, views, 2)
	assert.True(t, views[0].Redacted)
	assert.False(t, views[1].Redacted)
}
