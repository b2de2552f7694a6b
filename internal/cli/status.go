package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iris-analytics/iris/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server health and agent availability",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	health, err := apiClient.Health(ctx)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	uptime := time.Duration(health.UptimeSeconds * float64(time.Second))
	fmt.Printf("Server: %s (up %s)\n", health.Status, uptime.Round(time.Second))

	report, err := apiClient.Agents(ctx)
	if err != nil {
		return fmt.Errorf("get agents: %w", err)
	}

	fmt.Println("\nModels:")
	for _, model := range report.Models {
		state := "available"
		if !model.Available {
			state = "unavailable: " + model.Error
		}
		fmt.Printf("  %-20s %s\n", model.Kind, state)
	}

	fmt.Println("\nAgents:")
	for _, kind := range append(models.PipelineKinds(), models.KindQuery) {
		ready, known := report.Agents[kind]
		if !known {
			continue
		}
		state := "ready"
		if !ready {
			state = "degraded"
		}
		fmt.Printf("  %-20s %s\n", kind, state)
	}

	if verbose {
		stats, err := apiClient.Stats(ctx)
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		fmt.Println("\nStats:")
		for key, val := range stats {
			if key == "stages" {
				continue
			}
			fmt.Printf("  %s: %v\n", key, val)
		}
	}
	return nil
}
