package database

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/pkg/config"
)

// ErrUsernameTaken is returned when creating a user whose username exists
var ErrUsernameTaken = errors.New("username already exists")

// CreateUser hashes the password and stores a new user
func CreateUser(db *gorm.DB, username, password, fullName, role string) (*model.User, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	if role != model.RoleAdmin && role != model.RoleSales {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	var count int64
	if err := db.Model(&model.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: username,
		Password: string(hash),
		FullName: fullName,
		Role:     role,
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Bootstrap seeds a fresh database: the first admin account (only while the
// users table is empty) and the default country code setting.
func Bootstrap(db *gorm.DB, cfg *config.BootstrapConfig) (adminCreated bool, err error) {
	if cfg.DefaultCountryCode != "" {
		setting := model.Setting{Key: model.SettingDefaultCountryCode, Value: cfg.DefaultCountryCode}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&setting).Error; err != nil {
			return false, fmt.Errorf("failed to seed settings: %w", err)
		}
	}

	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	var count int64
	if err := db.Model(&model.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if _, err := CreateUser(db, cfg.AdminUsername, cfg.AdminPassword, cfg.AdminFullName, model.RoleAdmin); err != nil {
		return false, fmt.Errorf("failed to create admin user: %w", err)
	}
	return true, nil
}
