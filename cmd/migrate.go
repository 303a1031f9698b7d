package main

import (
	"github.com/spf13/cobra"

	"github.com/suteetoe/salescrm/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and seed defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		db, err := openDB(appConfig, log)
		if err != nil {
			return err
		}
		defer func() { _ = database.Close(db) }()

		if _, err := database.Bootstrap(db, &appConfig.Bootstrap); err != nil {
			return err
		}
		log.Info("Database migrated")
		return nil
	},
}
