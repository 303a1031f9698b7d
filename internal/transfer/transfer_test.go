package transfer

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/internal/testutil"
)

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()

	sales := testutil.CreateUser(t, db, "sam", "secret", model.RoleSales)
	require.NoError(t, db.Create(&model.Setting{Key: model.SettingDefaultCountryCode, Value: "44"}).Error)

	contact := model.Contact{Type: "lead", Company: "Acme", Name: "Ann", Email: "ann@acme.test", PhoneCountry: "44", PhoneNumber: "7700 900123"}
	require.NoError(t, db.Create(&contact).Error)
	require.NoError(t, db.Create(&model.Call{ContactID: contact.ID, WhenAt: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), Outcome: "answered", DurationMin: 12}).Error)
	require.NoError(t, db.Create(&model.Project{ContactID: contact.ID, Name: "Rollout", Value: 1200.5, Stage: "Proposal", NextDate: "2024-04-01"}).Error)

	require.NoError(t, db.Create(&model.Lead{Name: "Pool Lead", Phone: "5550001111", Status: model.LeadStatusGlobal}).Error)
	mine := model.Lead{Name: "Owned Lead", Status: model.LeadStatusAssigned, AssignedTo: &sales.ID}
	require.NoError(t, db.Create(&mine).Error)
	require.NoError(t, db.Create(&model.Interaction{LeadID: mine.ID, UserID: &sales.ID, Type: model.InteractionGrab}).Error)

	convertedAt := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&model.Lead{
		Name: "Converted Lead", Status: model.LeadStatusAssigned, AssignedTo: &sales.ID,
		ConvertedAt: &convertedAt, ContactID: &contact.ID,
	}).Error)
}

var ignoreExportTime = cmpopts.IgnoreFields(Dump{}, "ExportedAt")

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	source := testutil.NewDB(t)
	seed(t, source)

	first, err := Export(ctx, source)
	require.NoError(t, err)
	assert.Len(t, first.Users, 1)
	assert.Len(t, first.Leads, 3)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, first))
	decoded, err := Decode(&buf)
	require.NoError(t, err)

	target := testutil.NewDB(t)
	testutil.CreateUser(t, target, "stale", "secret", model.RoleAdmin)

	counts, err := Import(ctx, target, decoded)
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Leads)
	assert.False(t, counts.UsersKept)

	second, err := Export(ctx, target)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second, ignoreExportTime); diff != "" {
		t.Errorf("round trip mismatch (-first +second):\n%s", diff)
	}

	// Imported rows keep their phone keys for duplicate detection
	var contact model.Contact
	require.NoError(t, target.First(&contact).Error)
	assert.Equal(t, "447700900123", contact.PhoneKey)
	assert.Equal(t, "acme", contact.CompanyKey)

	var converted model.Lead
	require.NoError(t, target.Where("converted_at IS NOT NULL").First(&converted).Error)
	require.NotNil(t, converted.ContactID)
	assert.Equal(t, contact.ID, *converted.ContactID)
}

func TestImportRejectsInteractionOfUnknownUser(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	testutil.CreateUser(t, db, "admin", "secret", model.RoleAdmin)

	ghost := uint(77)
	dump := &Dump{
		Version:      Version,
		Leads:        []model.Lead{{ID: 5, Name: "Lead", Status: model.LeadStatusGlobal}},
		Interactions: []model.Interaction{{ID: 1, LeadID: 5, UserID: &ghost, Type: model.InteractionNote}},
	}
	_, err := Import(ctx, db, dump)
	assert.ErrorIs(t, err, ErrInvalidDump)

	var leads int64
	require.NoError(t, db.Model(&model.Lead{}).Count(&leads).Error)
	assert.Zero(t, leads)
}

func TestImportWithoutUsersKeepsAccounts(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	admin := testutil.CreateUser(t, db, "admin", "secret", model.RoleAdmin)

	dump := &Dump{
		Version:  Version,
		Contacts: []model.Contact{{ID: 40, Name: "Imported"}},
	}
	counts, err := Import(ctx, db, dump)
	require.NoError(t, err)
	assert.True(t, counts.UsersKept)

	var users []model.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, admin.ID, users[0].ID)

	var contact model.Contact
	require.NoError(t, db.First(&contact, 40).Error)
	assert.Equal(t, "Imported", contact.Name)
}

func TestImportRollsBackOnBadRow(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	seed(t, db)

	before, err := Export(ctx, db)
	require.NoError(t, err)

	dump := &Dump{
		Version: Version,
		Contacts: []model.Contact{
			{ID: 1, Name: "One"},
			{ID: 1, Name: "Same id"},
		},
	}
	_, err = Import(ctx, db, dump)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDump)

	after, err := Export(ctx, db)
	require.NoError(t, err)
	if diff := cmp.Diff(before, after, ignoreExportTime); diff != "" {
		t.Errorf("failed import changed data (-before +after):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	uid := uint(3)
	tests := []struct {
		name string
		dump Dump
		ok   bool
	}{
		{"empty", Dump{Version: Version}, true},
		{"wrong version", Dump{Version: 99}, false},
		{"global with assignee", Dump{Version: Version, Leads: []model.Lead{{ID: 1, Status: model.LeadStatusGlobal, AssignedTo: &uid}}}, false},
		{"assigned without assignee", Dump{Version: Version, Leads: []model.Lead{{ID: 1, Status: model.LeadStatusAssigned}}}, false},
		{"unknown status", Dump{Version: Version, Leads: []model.Lead{{ID: 1, Status: "lost"}}}, false},
		{"user without hash", Dump{Version: Version, Users: []UserRecord{{ID: 1, Username: "x"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dump.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidDump)
			}
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewBufferString("{not json"))
	assert.ErrorIs(t, err, ErrInvalidDump)
}
