// Package cli provides the command-line interface for iris.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/iris-analytics/iris/internal/client"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string

	// API client, created before every command runs
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "iris",
	Short: "Multi-agent analytics over tabular datasets",
	Long: `Iris orchestrates a team of analytical agents over tabular datasets:
profiling, anomaly detection, forecasting, root-cause analysis, insights,
and recommendations, plus a conversational interface over the results.

Commands talk to a running iris server (see iris-server).`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		apiClient = client.New(serverURL)
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a caller-provided context,
// typically one cancelled on SIGINT so feed tails shut down cleanly.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "iris server URL (default $IRIS_SERVER_URL or http://localhost:8686)")

	rootCmd.AddCommand(datasetsCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(streamsCmd)
	rootCmd.AddCommand(statusCmd)
}

// isTTY reports whether stdout is an interactive terminal. Progress UIs
// fall back to plain polling output when it is not.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
