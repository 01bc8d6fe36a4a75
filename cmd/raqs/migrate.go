package main

import (
	"github.com/grupomaster/raqs/internal/database"
	"github.com/grupomaster/raqs/internal/logging"
	"github.com/grupomaster/raqs/models"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

func runMigrate(_ *cobra.Command, _ []string) error {
	db, err := database.Connect(cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := models.Migrate(db); err != nil {
		return err
	}
	logging.LogInfo(logger, "Schema is up to date")
	return nil
}
