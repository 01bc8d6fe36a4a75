package main

import (
	"fmt"

	"github.com/grupomaster/raqs/internal/config"
	"github.com/grupomaster/raqs/internal/database"
	"github.com/grupomaster/raqs/internal/logging"
	"github.com/grupomaster/raqs/internal/maintenance"
	"github.com/grupomaster/raqs/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "raqs",
	Short: "Welder qualification and certification service",
	Long: `raqs records welder qualification requests from client companies,
groups them into audit batches for the inspectors, and issues the
qualification certificates (CQS) of approved welders.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.GetConfig()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, requestsCmd, certificatesCmd)
}

// openStore connects to the configured database. The caller closes db.
func openStore() (*gorm.DB, *models.Store, error) {
	db, err := database.Connect(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, models.NewStore(db), nil
}

// withMaintainer runs fn against the configured database.
func withMaintainer(fn func(m *maintenance.Maintainer) (maintenance.Report, error)) error {
	db, store, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close(db)

	report, err := fn(maintenance.New(store, store, logger))
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"scanned": report.Scanned,
		"changed": report.Changed,
		"skipped": report.Skipped,
	}).Info("done")
	return nil
}
