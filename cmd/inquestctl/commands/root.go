// Package commands implements the inquestctl terminal client.
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/inquest/pkg/version"
)

var (
	flagURL     string
	flagToken   string
	flagTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "inquestctl",
	Short: "Terminal client for the Inquest investigation service",
	Long: `inquestctl submits incidents to a running Inquest server and inspects
investigation results from the terminal.`,
	Version:       version.GitCommit,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "",
		"Inquest server base URL (defaults to INQUEST_URL, then http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "",
		"Bearer token for authenticated deployments (defaults to INQUEST_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 30*time.Second,
		"Timeout for a single HTTP request")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(healthCmd)
}

// baseURL resolves the server URL: --url flag, INQUEST_URL, local default.
func baseURL() string {
	if flagURL != "" {
		return flagURL
	}
	if fromEnv := os.Getenv("INQUEST_URL"); fromEnv != "" {
		return fromEnv
	}
	return "http://localhost:8080"
}

// bearerToken resolves the optional token: --token flag, then INQUEST_TOKEN.
func bearerToken() string {
	if flagToken != "" {
		return flagToken
	}
	return os.Getenv("INQUEST_TOKEN")
}
