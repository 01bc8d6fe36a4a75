package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/grupomaster/raqs/internal/maintenance"
	"github.com/spf13/cobra"
)

var assumeYes bool

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Maintenance of stored qualification requests",
}

var backfillFNumbersCmd = &cobra.Command{
	Use:   "backfill-fnumbers",
	Short: "Derive the F-number of requests saved without one",
	RunE:  runBackfillFNumbers,
}

var fixConsumablesCmd = &cobra.Command{
	Use:   "fix-consumables",
	Short: "Rename legacy consumable spellings to their classification",
	Long: `Lists the requests stored with a legacy consumable spelling (for
example E7018) and, after confirmation, renames them to the current
classification (E-7018), refreshing their F-number.`,
	RunE: runFixConsumables,
}

func init() {
	fixConsumablesCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "apply without asking for confirmation")
	requestsCmd.AddCommand(backfillFNumbersCmd, fixConsumablesCmd)
}

func runBackfillFNumbers(cmd *cobra.Command, _ []string) error {
	return withMaintainer(func(m *maintenance.Maintainer) (maintenance.Report, error) {
		return m.BackfillFNumbers(cmd.Context())
	})
}

func runFixConsumables(cmd *cobra.Command, _ []string) error {
	return withMaintainer(func(m *maintenance.Maintainer) (maintenance.Report, error) {
		fixes, err := m.PendingConsumableFixes()
		if err != nil {
			return maintenance.Report{}, err
		}
		if len(fixes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No legacy consumables found.")
			return maintenance.Report{}, nil
		}

		out := cmd.OutOrStdout()
		for _, f := range fixes {
			fmt.Fprintf(out, "request %d: %s -> %s\n", f.RequestID, f.From, f.To)
		}
		if !assumeYes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Rename %d requests?", len(fixes))) {
			fmt.Fprintln(out, "Aborted.")
			return maintenance.Report{Scanned: len(fixes), Skipped: len(fixes)}, nil
		}
		return m.FixConsumables(cmd.Context())
	})
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
