package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/pkg/database"
)

var (
	userUsername string
	userPassword string
	userFullName string
	userRole     string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage CRM users",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a user",
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

		user, err := database.CreateUser(db, userUsername, userPassword, userFullName, userRole)
		if err != nil {
			return err
		}

		log.Info("User created", zap.Uint("user_id", user.ID), zap.String("username", user.Username), zap.String("role", user.Role))
		fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d, %s)\n", user.Username, user.ID, user.Role)
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userUsername, "username", "", "Login name (required)")
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "Password (required)")
	userAddCmd.Flags().StringVar(&userFullName, "full-name", "", "Display name")
	userAddCmd.Flags().StringVar(&userRole, "role", model.RoleSales, "Role: admin or sales")
	_ = userAddCmd.MarkFlagRequired("username")
	_ = userAddCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userAddCmd)
}
