// Package transfer dumps the whole CRM to JSON and loads such a dump back.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/suteetoe/salescrm/internal/model"
)

// Version of the dump format
const Version = 1

const batchSize = 200

// ErrInvalidDump is wrapped by every error caused by the dump content
var ErrInvalidDump = errors.New("invalid dump")

// UserRecord is a user including the password hash, so a dump restores
// working logins
type UserRecord struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Dump is the full data set. A nil Users slice means the dump carries no
// users and the existing ones are kept on import.
type Dump struct {
	Version      int                 `json:"version"`
	ExportedAt   time.Time           `json:"exported_at"`
	Settings     []model.Setting     `json:"settings"`
	Users        []UserRecord        `json:"users"`
	Contacts     []model.Contact     `json:"contacts"`
	Calls        []model.Call        `json:"calls"`
	Projects     []model.Project     `json:"projects"`
	Leads        []model.Lead        `json:"leads"`
	Interactions []model.Interaction `json:"interactions"`
}

// Counts reports how many rows of each table an import loaded
type Counts struct {
	Settings     int  `json:"settings"`
	Users        int  `json:"users"`
	UsersKept    bool `json:"users_kept"`
	Contacts     int  `json:"contacts"`
	Calls        int  `json:"calls"`
	Projects     int  `json:"projects"`
	Leads        int  `json:"leads"`
	Interactions int  `json:"interactions"`
}

// Export reads every table, ordered by primary key
func Export(ctx context.Context, db *gorm.DB) (*Dump, error) {
	db = db.WithContext(ctx)

	dump := &Dump{
		Version:      Version,
		ExportedAt:   time.Now().UTC(),
		Settings:     []model.Setting{},
		Users:        []UserRecord{},
		Contacts:     []model.Contact{},
		Calls:        []model.Call{},
		Projects:     []model.Project{},
		Leads:        []model.Lead{},
		Interactions: []model.Interaction{},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&dump.Settings).Error; err != nil {
			return fmt.Errorf("settings: %w", err)
		}

		var users []model.User
		if err := tx.Order("id ASC").Find(&users).Error; err != nil {
			return fmt.Errorf("users: %w", err)
		}
		for _, u := range users {
			dump.Users = append(dump.Users, UserRecord{
				ID:           u.ID,
				Username:     u.Username,
				PasswordHash: u.Password,
				FullName:     u.FullName,
				Role:         u.Role,
				CreatedAt:    u.CreatedAt,
				UpdatedAt:    u.UpdatedAt,
			})
		}

		tables := []struct {
			name string
			dest interface{}
		}{
			{"contacts", &dump.Contacts},
			{"calls", &dump.Calls},
			{"projects", &dump.Projects},
			{"leads", &dump.Leads},
			{"interactions", &dump.Interactions},
		}
		for _, t := range tables {
			if err := tx.Order("id ASC").Find(t.dest).Error; err != nil {
				return fmt.Errorf("%s: %w", t.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}
	return dump, nil
}

// Import replaces the stored data with the dump in one transaction. Any
// failing row rolls the whole import back.
func Import(ctx context.Context, db *gorm.DB, dump *Dump) (*Counts, error) {
	if err := dump.Validate(); err != nil {
		return nil, err
	}

	counts := &Counts{
		Settings:     len(dump.Settings),
		Users:        len(dump.Users),
		UsersKept:    dump.Users == nil,
		Contacts:     len(dump.Contacts),
		Calls:        len(dump.Calls),
		Projects:     len(dump.Projects),
		Leads:        len(dump.Leads),
		Interactions: len(dump.Interactions),
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := wipe(tx, dump.Users != nil); err != nil {
			return err
		}

		if dump.Users != nil {
			users := make([]model.User, 0, len(dump.Users))
			for _, u := range dump.Users {
				users = append(users, model.User{
					ID:        u.ID,
					Username:  u.Username,
					Password:  u.PasswordHash,
					FullName:  u.FullName,
					Role:      u.Role,
					CreatedAt: u.CreatedAt,
					UpdatedAt: u.UpdatedAt,
				})
			}
			if err := insert(tx, "users", users); err != nil {
				return err
			}
		}

		if err := insert(tx, "settings", dump.Settings); err != nil {
			return err
		}
		if err := insert(tx, "contacts", dump.Contacts); err != nil {
			return err
		}
		if err := insert(tx, "calls", dump.Calls); err != nil {
			return err
		}
		if err := insert(tx, "projects", dump.Projects); err != nil {
			return err
		}
		if err := insert(tx, "leads", dump.Leads); err != nil {
			return err
		}
		if err := insert(tx, "interactions", dump.Interactions); err != nil {
			return err
		}

		return resetSequences(tx, dump.Users != nil)
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// Validate checks the dump before anything is written
func (d *Dump) Validate() error {
	if d.Version != Version {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidDump, d.Version)
	}

	for _, lead := range d.Leads {
		switch lead.Status {
		case model.LeadStatusGlobal:
			if lead.AssignedTo != nil {
				return fmt.Errorf("%w: global lead %d has an assignee", ErrInvalidDump, lead.ID)
			}
		case model.LeadStatusAssigned:
			if lead.AssignedTo == nil {
				return fmt.Errorf("%w: assigned lead %d has no assignee", ErrInvalidDump, lead.ID)
			}
		default:
			return fmt.Errorf("%w: lead %d has unknown status %q", ErrInvalidDump, lead.ID, lead.Status)
		}
	}

	for _, u := range d.Users {
		if u.Username == "" || u.PasswordHash == "" {
			return fmt.Errorf("%w: user %d needs a username and password hash", ErrInvalidDump, u.ID)
		}
	}
	return nil
}

// Decode reads a JSON dump
func Decode(r io.Reader) (*Dump, error) {
	var dump Dump
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDump, err)
	}
	return &dump, nil
}

// Encode writes the dump as indented JSON
func Encode(w io.Writer, dump *Dump) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dump)
}

// wipe deletes children before parents so foreign keys hold throughout
func wipe(tx *gorm.DB, users bool) error {
	tables := []interface{}{
		&model.Interaction{},
		&model.Call{},
		&model.Project{},
		&model.Lead{},
		&model.Contact{},
		&model.Setting{},
	}
	if users {
		tables = append(tables, &model.User{})
	}

	for _, table := range tables {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
			return fmt.Errorf("failed to clear %T: %w", table, err)
		}
	}
	return nil
}

func insert[T any](tx *gorm.DB, table string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(&rows, batchSize).Error; err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDump, table, err)
	}
	return nil
}

// resetSequences moves Postgres id sequences past the imported ids
func resetSequences(tx *gorm.DB, users bool) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}

	tables := []string{"contacts", "calls", "projects", "leads", "interactions"}
	if users {
		tables = append(tables, "users")
	}
	for _, table := range tables {
		stmt := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)",
			table)
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to reset %s sequence: %w", table, err)
		}
	}
	return nil
}
