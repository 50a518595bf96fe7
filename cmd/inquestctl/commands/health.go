package commands

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show server health",
	Long: `Fetch the server's health report. Exits non-zero when the server
reports unhealthy, so it can gate scripts.`,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	report, _, err := newClient().health()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Status:\t%s\n", report.Status)
	fmt.Fprintf(tw, "Version:\t%s\n", report.Version)

	names := make([]string, 0, len(report.Checks))
	for name := range report.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		check := report.Checks[name]
		line := check.Status
		if check.Message != "" {
			line += " (" + check.Message + ")"
		}
		fmt.Fprintf(tw, "Check %s:\t%s\n", name, line)
	}
	tw.Flush()

	for _, warning := range report.Warnings {
		fmt.Printf("Warning: %s\n", warning.Message)
	}

	if report.Status == "unhealthy" {
		return fmt.Errorf("server is unhealthy")
	}
	return nil
}
