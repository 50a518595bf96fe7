package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/inquest/pkg/models"
)

var getJSON bool

var getCmd = &cobra.Command{
	Use:   "get <incident-id>",
	Short: "Show an incident and its investigation result",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().BoolVar(&getJSON, "json", false, "Output the raw incident as JSON")
}

func runGet(cmd *cobra.Command, args []string) error {
	incident, err := newClient().getIncident(args[0])
	if err != nil {
		return err
	}

	if getJSON {
		data, err := json.MarshalIndent(incident, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	renderIncident(os.Stdout, incident)
	return nil
}

// renderIncident prints a human-readable investigation report.
func renderIncident(w io.Writer, incident *models.Incident) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Incident:\t%s\n", incident.ID)
	fmt.Fprintf(tw, "Status:\t%s\n", incident.Status)
	fmt.Fprintf(tw, "Created:\t%s\n", incident.CreatedAt.Local().Format(time.RFC3339))
	if incident.CompletedAt != nil {
		fmt.Fprintf(tw, "Completed:\t%s (took %s)\n",
			incident.CompletedAt.Local().Format(time.RFC3339),
			incident.CompletedAt.Sub(incident.CreatedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(tw, "Description:\t%s\n", incident.Description)

	if len(incident.ExtractedEntities) > 0 {
		keys := make([]string, 0, len(incident.ExtractedEntities))
		for k := range incident.ExtractedEntities {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(tw, "Entity %s:\t%s\n", k, incident.ExtractedEntities[k])
		}
	}

	if incident.SuggestedRootCause != "" {
		fmt.Fprintf(tw, "Root cause:\t%s\n", incident.SuggestedRootCause)
		fmt.Fprintf(tw, "Confidence:\t%s\n", incident.ConfidenceScore)
	}
	if incident.ErrorMessage != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", incident.ErrorMessage)
	}
	tw.Flush()

	if incident.Evidence == nil {
		return
	}

	if incident.Evidence.Partial {
		fmt.Fprintln(w, "\nEvidence below is partial: the investigation did not finish cleanly.")
	}

	if len(incident.Evidence.ToolCalls) > 0 {
		fmt.Fprintln(w, "\nTool calls:")
		for i, call := range incident.Evidence.ToolCalls {
			fmt.Fprintf(w, "  %d. %s %s\n", i+1, call.Tool, formatArgs(call.Args))
		}
	}

	if len(incident.Evidence.CollectedEvidence) > 0 {
		fmt.Fprintln(w, "\nEvidence:")
		for _, item := range incident.Evidence.CollectedEvidence {
			fmt.Fprintf(w, "  [%s] %s\n", item.Source, truncate(item.Content, 200))
		}
	}

	if incident.Evidence.Reasoning != "" {
		fmt.Fprintln(w, "\nReasoning:")
		fmt.Fprintf(w, "  %s\n", incident.Evidence.Reasoning)
	}

	if len(incident.Evidence.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, rec := range incident.Evidence.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
	}
}

func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	data, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return string(data)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
