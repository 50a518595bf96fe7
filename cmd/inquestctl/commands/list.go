package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent incidents, newest first",
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 10, "Maximum number of incidents to show")
}

func runList(cmd *cobra.Command, args []string) error {
	resp, err := newClient().listIncidents(listLimit)
	if err != nil {
		return err
	}

	if resp.Count == 0 {
		fmt.Println("No incidents found.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCONFIDENCE\tCREATED\tDESCRIPTION")
	for _, incident := range resp.Incidents {
		confidence := string(incident.ConfidenceScore)
		if confidence == "" {
			confidence = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			incident.ID,
			incident.Status,
			confidence,
			incident.CreatedAt.Local().Format(time.RFC3339),
			truncate(incident.Description, 48))
	}
	return tw.Flush()
}
