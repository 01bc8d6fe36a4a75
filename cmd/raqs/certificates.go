package main

import (
	"github.com/grupomaster/raqs/internal/maintenance"
	"github.com/spf13/cobra"
)

var (
	dryRun bool
	force  bool
)

var certificatesCmd = &cobra.Command{
	Use:   "certificates",
	Short: "Issue and repair qualification certificates",
}

var generateCertificatesCmd = &cobra.Command{
	Use:   "generate",
	Short: "Issue certificates for approved requests that have none",
	RunE:  runGenerateCertificates,
}

var backfillValidityCmd = &cobra.Command{
	Use:   "backfill-validity",
	Short: "Fill the expiry date of certificates issued without one",
	RunE:  runBackfillValidity,
}

var backfillFieldsCmd = &cobra.Command{
	Use:   "backfill-fields",
	Short: "Refill empty qualified ranges and P-numbers",
	RunE:  runBackfillFields,
}

func init() {
	generateCertificatesCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be issued without writing")
	generateCertificatesCmd.Flags().BoolVar(&force, "force", false, "reissue certificates that already exist")
	backfillFieldsCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	certificatesCmd.AddCommand(generateCertificatesCmd, backfillValidityCmd, backfillFieldsCmd)
}

func runGenerateCertificates(cmd *cobra.Command, _ []string) error {
	return withMaintainer(func(m *maintenance.Maintainer) (maintenance.Report, error) {
		return m.GenerateCertificates(cmd.Context(), maintenance.GenerateOptions{
			DryRun:         dryRun,
			Force:          force,
			ValidityMonths: cfg.ValidityMonths,
		})
	})
}

func runBackfillValidity(cmd *cobra.Command, _ []string) error {
	return withMaintainer(func(m *maintenance.Maintainer) (maintenance.Report, error) {
		return m.BackfillValidity(cmd.Context(), cfg.ValidityMonths)
	})
}

func runBackfillFields(cmd *cobra.Command, _ []string) error {
	return withMaintainer(func(m *maintenance.Maintainer) (maintenance.Report, error) {
		return m.BackfillFields(cmd.Context(), dryRun)
	})
}
