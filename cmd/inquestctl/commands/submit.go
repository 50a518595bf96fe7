package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/inquest/pkg/models"
)

var (
	submitFile         string
	submitWatch        bool
	submitWatchTimeout time.Duration
)

const watchInterval = 2 * time.Second

var submitCmd = &cobra.Command{
	Use:   "submit [description]",
	Short: "Submit an incident for investigation",
	Long: `Submit a free-text problem description. The server accepts it immediately
and investigates in the background; use --watch to poll until the verdict.`,
	Example: `  inquestctl submit "payment-api pods crash looping in namespace prod"
  inquestctl submit --file incident.txt --watch`,
	Args: cobra.ArbitraryArgs,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVarP(&submitFile, "file", "f", "",
		"Read the description from a file (use - for stdin)")
	submitCmd.Flags().BoolVarP(&submitWatch, "watch", "w", false,
		"Poll until the investigation finishes and print the verdict")
	submitCmd.Flags().DurationVar(&submitWatchTimeout, "watch-timeout", 15*time.Minute,
		"Give up watching after this long")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	description, err := resolveDescription(args)
	if err != nil {
		return err
	}

	client := newClient()
	resp, err := client.submitIncident(description)
	if err != nil {
		return err
	}

	fmt.Printf("Incident accepted: %s\n", resp.IncidentID)

	if !submitWatch {
		fmt.Printf("Run 'inquestctl get %s' to check progress.\n", resp.IncidentID)
		return nil
	}

	incident, err := client.pollIncident(resp.IncidentID, watchInterval, submitWatchTimeout,
		func(incident *models.Incident) {
			fmt.Printf("Status: %s\n", incident.Status)
		})
	if err != nil {
		return err
	}

	fmt.Println()
	renderIncident(os.Stdout, incident)
	return nil
}

// resolveDescription takes the description from positional args or --file.
func resolveDescription(args []string) (string, error) {
	if submitFile != "" {
		var data []byte
		var err error
		if submitFile == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(submitFile)
		}
		if err != nil {
			return "", fmt.Errorf("failed to read description: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	description := strings.TrimSpace(strings.Join(args, " "))
	if description == "" {
		return "", fmt.Errorf("no description given: pass it as arguments or via --file")
	}
	return description, nil
}
