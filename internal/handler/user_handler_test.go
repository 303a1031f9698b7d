package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suteetoe/salescrm/internal/model"
)

type userBody struct {
	Item model.User `json:"item"`
}

func TestSaveUser(t *testing.T) {
	env := newTestEnv(t)
	admin, adminToken := env.user(t, "admin", model.RoleAdmin)
	env.user(t, "sam", model.RoleSales)

	rec := env.post(t, adminToken, "users.save", map[string]string{"username": "olga", "password": "hunter22", "full_name": "Olga", "role": "sales"})
	requireStatus(t, http.StatusCreated, rec)
	olga := decode[userBody](t, rec).Item
	assert.NotContains(t, rec.Body.String(), "password")

	requireStatus(t, http.StatusConflict, env.post(t, adminToken, "users.save", map[string]string{"username": "sam", "password": "hunter22", "role": "sales"}))
	requireStatus(t, http.StatusBadRequest, env.post(t, adminToken, "users.save", map[string]string{"username": "nopass", "role": "sales"}))
	requireStatus(t, http.StatusBadRequest, env.post(t, adminToken, "users.save", map[string]string{"username": "x", "password": "hunter22", "role": "owner"}))

	var before model.User
	require.NoError(t, env.db.First(&before, olga.ID).Error)

	rec = env.post(t, adminToken, "users.save", map[string]interface{}{"id": olga.ID, "username": "olga", "full_name": "Olga K", "role": "admin"})
	requireStatus(t, http.StatusOK, rec)

	var after model.User
	require.NoError(t, env.db.First(&after, olga.ID).Error)
	assert.Equal(t, before.Password, after.Password, "empty password keeps the hash")
	assert.Equal(t, model.RoleAdmin, after.Role)
	assert.Equal(t, "Olga K", after.FullName)

	rec = env.post(t, adminToken, "users.save", map[string]interface{}{"id": admin.ID, "username": "admin", "role": "sales"})
	requireStatus(t, http.StatusBadRequest, rec)

	rec = env.get(t, adminToken, "users.list", nil)
	requireStatus(t, http.StatusOK, rec)
	users := decode[struct {
		Items []model.User `json:"items"`
	}](t, rec).Items
	assert.Len(t, users, 3)
}

func TestDeleteUserReleasesLeads(t *testing.T) {
	env := newTestEnv(t)
	admin, adminToken := env.user(t, "admin", model.RoleAdmin)
	sam, _ := env.user(t, "sam", model.RoleSales)

	lead := model.Lead{Name: "Owned", Status: model.LeadStatusAssigned, AssignedTo: &sam.ID}
	require.NoError(t, env.db.Create(&lead).Error)
	grab := model.Interaction{LeadID: lead.ID, UserID: &sam.ID, Type: model.InteractionGrab}
	require.NoError(t, env.db.Create(&grab).Error)

	requireStatus(t, http.StatusBadRequest, env.post(t, adminToken, "users.delete", map[string]uint{"id": admin.ID}))

	rec := env.post(t, adminToken, "users.delete", map[string]uint{"id": sam.ID})
	requireStatus(t, http.StatusOK, rec)
	assert.EqualValues(t, 1, decode[map[string]interface{}](t, rec)["released_leads"])

	var stored model.Lead
	require.NoError(t, env.db.First(&stored, lead.ID).Error)
	assert.Equal(t, model.LeadStatusGlobal, stored.Status)
	assert.Nil(t, stored.AssignedTo)

	// The activity log survives without the deleted user
	var history model.Interaction
	require.NoError(t, env.db.First(&history, grab.ID).Error)
	assert.Nil(t, history.UserID)

	requireStatus(t, http.StatusNotFound, env.post(t, adminToken, "users.delete", map[string]uint{"id": sam.ID}))
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user(t, "admin", model.RoleAdmin)
	_, salesToken := env.user(t, "sam", model.RoleSales)

	rec := env.get(t, salesToken, "settings.get", nil)
	requireStatus(t, http.StatusOK, rec)
	assert.Equal(t, "1", decode[struct {
		Item map[string]string `json:"item"`
	}](t, rec).Item[model.SettingDefaultCountryCode])

	body := map[string]interface{}{"settings": map[string]string{model.SettingDefaultCountryCode: "62", "company_name": "Acme"}}
	requireStatus(t, http.StatusForbidden, env.post(t, salesToken, "settings.save", body))
	requireStatus(t, http.StatusOK, env.post(t, adminToken, "settings.save", body))

	// Saving again updates in place
	body = map[string]interface{}{"settings": map[string]string{model.SettingDefaultCountryCode: "44"}}
	rec = env.post(t, adminToken, "settings.save", body)
	requireStatus(t, http.StatusOK, rec)
	values := decode[struct {
		Item map[string]string `json:"item"`
	}](t, rec).Item
	assert.Equal(t, "44", values[model.SettingDefaultCountryCode])
	assert.Equal(t, "Acme", values["company_name"])

	bad := map[string]interface{}{"settings": map[string]string{model.SettingDefaultCountryCode: "none"}}
	requireStatus(t, http.StatusBadRequest, env.post(t, adminToken, "settings.save", bad))
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	sam, token := env.user(t, "sam", model.RoleSales)

	contact := model.Contact{Name: "Ann"}
	require.NoError(t, env.db.Create(&contact).Error)
	require.NoError(t, env.db.Create(&model.Project{ContactID: contact.ID, Name: "A", Stage: "Won", Value: 100}).Error)
	require.NoError(t, env.db.Create(&model.Project{ContactID: contact.ID, Name: "B", Stage: "Won", Value: 50.5}).Error)
	require.NoError(t, env.db.Create(&model.Lead{Name: "Pool", Status: model.LeadStatusGlobal}).Error)
	require.NoError(t, env.db.Create(&model.Lead{Name: "Mine", Status: model.LeadStatusAssigned, AssignedTo: &sam.ID}).Error)

	rec := env.get(t, token, "stats", nil)
	requireStatus(t, http.StatusOK, rec)
	stats := decode[struct {
		Item Stats `json:"item"`
	}](t, rec).Item

	assert.Equal(t, int64(1), stats.Contacts)
	assert.Zero(t, stats.Calls)
	require.Len(t, stats.Projects, 5)
	assert.Equal(t, StageTotal{Stage: "Lead"}, stats.Projects[0])
	assert.Equal(t, StageTotal{Stage: "Won", Count: 2, Value: 150.5}, stats.Projects[4])
	assert.Equal(t, LeadTotals{Global: 1, Assigned: 1, Mine: 1}, stats.Leads)
}
