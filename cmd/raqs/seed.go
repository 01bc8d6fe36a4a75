package main

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/grupomaster/raqs/internal/database"
	"github.com/grupomaster/raqs/internal/maintenance"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var seedOpts maintenance.SeedOptions

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake companies, welders and requests",
	Long: `Creates the master company if missing, then the given number of client
companies and welders. Each welder receives between one and
--requests-per-welder valid qualification requests.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedOpts.Companies, "companies", 3, "number of client companies")
	seedCmd.Flags().IntVar(&seedOpts.Welders, "welders", 10, "number of welders")
	seedCmd.Flags().IntVar(&seedOpts.RequestsPerWelder, "requests-per-welder", 3, "maximum requests per welder")
}

func runSeed(_ *cobra.Command, _ []string) error {
	db, store, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close(db)

	report, err := maintenance.Seed(store, gofakeit.New(time.Now().UnixNano()), seedOpts, logger)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"companies": report.Companies,
		"welders":   report.Welders,
		"requests":  report.Requests,
	}).Info("seeded")
	return nil
}
