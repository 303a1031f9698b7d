package database

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/suteetoe/salescrm/internal/crm"
	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/pkg/config"
)

// Dialector picks the GORM driver for the configured database
func Dialector(dbConfig *config.DBConfig) (gorm.Dialector, error) {
	dsn := dbConfig.GetDSN()

	switch dbConfig.Driver {
	case config.DriverPostgres:
		return postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true, // Disables implicit prepared statement usage
		}), nil
	case config.DriverMySQL:
		return mysql.Open(dsn), nil
	case config.DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dbConfig.Driver)
	}
}

// InitDB opens the connection and applies pool settings
func InitDB(dbConfig *config.DBConfig) (*gorm.DB, error) {
	dialector, err := Dialector(dbConfig)
	if err != nil {
		return nil, err
	}

	logLevel := dbConfig.LogLevel
	if logLevel == 0 {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}

	if dbConfig.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	}
	if dbConfig.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	}
	if dbConfig.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates every CRM table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	if err := backfillCompanyKeys(db); err != nil {
		return fmt.Errorf("failed to backfill company keys: %w", err)
	}
	return nil
}

// backfillCompanyKeys fills company_key for contacts stored before the
// column existed
func backfillCompanyKeys(db *gorm.DB) error {
	var contacts []model.Contact
	return db.Select("id", "company").
		Where("company_key = '' OR company_key IS NULL").
		Where("company <> ''").
		FindInBatches(&contacts, 500, func(_ *gorm.DB, _ int) error {
			for _, c := range contacts {
				key := crm.CompanyKey(c.Company)
				if key == "" {
					continue
				}
				if err := db.Model(&model.Contact{}).Where("id = ?", c.ID).UpdateColumn("company_key", key).Error; err != nil {
					return err
				}
			}
			return nil
		}).Error
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
