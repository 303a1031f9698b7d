package handler

import (
	"errors"

	"gorm.io/gorm"

	"github.com/suteetoe/salescrm/internal/crm"
	"github.com/suteetoe/salescrm/internal/model"
)

// Duplicate match kinds
const (
	MatchPhone   = "phone"
	MatchCompany = "company"
)

// DuplicateWarning points at an existing contact that looks like the one
// being saved. It never blocks the save.
type DuplicateWarning struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Company   string `json:"company"`
	MatchedOn string `json:"matched_on"`
}

// findDuplicate looks for an existing contact, other than excludeID, with the
// same phone key or, failing that, the same company. The lowest id wins.
func findDuplicate(db *gorm.DB, phoneKey, company string, excludeID uint) (*DuplicateWarning, error) {
	if phoneKey != "" {
		match, err := firstContact(db.Where("phone_key = ?", phoneKey), excludeID)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return warningFor(match, MatchPhone), nil
		}
	}

	if key := crm.CompanyKey(company); key != "" {
		match, err := firstContact(db.Where("company_key = ?", key), excludeID)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return warningFor(match, MatchCompany), nil
		}
	}

	return nil, nil
}

func firstContact(q *gorm.DB, excludeID uint) (*model.Contact, error) {
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var contact model.Contact
	err := q.Order("id ASC").First(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func warningFor(c *model.Contact, match string) *DuplicateWarning {
	return &DuplicateWarning{
		ID:        c.ID,
		Name:      c.Name,
		Company:   c.Company,
		MatchedOn: match,
	}
}
