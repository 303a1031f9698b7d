package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/suteetoe/salescrm/internal/transfer"
	"github.com/suteetoe/salescrm/pkg/database"
)

var (
	exportOut string
	importIn  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every table to a JSON dump",
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

		dump, err := transfer.Export(cmd.Context(), db)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if exportOut != "" && exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportOut, err)
			}
			defer f.Close()
			out = f
		}

		if err := transfer.Encode(out, dump); err != nil {
			return err
		}
		log.Info("Data exported", zap.String("out", exportOut), zap.Int("contacts", len(dump.Contacts)), zap.Int("leads", len(dump.Leads)))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace all data with a JSON dump",
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		f, err := os.Open(importIn)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", importIn, err)
		}
		defer f.Close()

		dump, err := transfer.Decode(f)
		if err != nil {
			return err
		}

		db, err := openDB(appConfig, log)
		if err != nil {
			return err
		}
		defer func() { _ = database.Close(db) }()

		counts, err := transfer.Import(cmd.Context(), db, dump)
		if err != nil {
			return err
		}
		log.Info("Data imported",
			zap.String("in", importIn),
			zap.Int("contacts", counts.Contacts),
			zap.Int("leads", counts.Leads),
			zap.Bool("users_kept", counts.UsersKept))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "-", "Output file, - for stdout")
	importCmd.Flags().StringVar(&importIn, "in", "", "Dump file to load (required)")
	_ = importCmd.MarkFlagRequired("in")
}
