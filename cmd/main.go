package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/suteetoe/salescrm/pkg/config"
	"github.com/suteetoe/salescrm/pkg/database"
	"github.com/suteetoe/salescrm/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "crm",
	Short: "Sales CRM server and admin tools",
	Long: `Sales CRM: contacts, calls, projects and a shared lead pool.

Without a subcommand the HTTP server is started.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and initializes the global logger
func setup() (*config.Config, *zap.Logger, error) {
	appConfig, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.InitLogger(appConfig); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return appConfig, logger.GetLogger(), nil
}

// openDB connects and brings the schema up to date
func openDB(appConfig *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := database.InitDB(&appConfig.DB)
	if err != nil {
		return nil, err
	}
	log.Info("Database connection established", zap.String("driver", appConfig.DB.Driver))

	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return db, nil
}
