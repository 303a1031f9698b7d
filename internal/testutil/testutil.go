// Package testutil opens throwaway databases for tests.
package testutil

import (
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/pkg/config"
	"github.com/suteetoe/salescrm/pkg/database"
)

// NewDB returns a migrated SQLite database in a temp dir, closed when the
// test ends. A single connection serializes concurrent writers.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.InitDB(&config.DBConfig{
		Driver:       config.DriverSQLite,
		DSN:          filepath.Join(t.TempDir(), "crm.db") + "?_foreign_keys=on&_busy_timeout=5000",
		MaxOpenConns: 1,
		LogLevel:     logger.Silent,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// CreateUser stores a user with a cheap password hash
func CreateUser(t testing.TB, db *gorm.DB, username, password, role string) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := &model.User{Username: username, Password: string(hash), FullName: username, Role: role}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}
