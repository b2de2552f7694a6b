package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iris-analytics/iris/internal/models"
)

var resultsJSON bool

var resultsCmd = &cobra.Command{
	Use:   "results <job-id> [agent-kind]",
	Short: "Show the results of an analysis job",
	Long: `Show the recorded agent results for a job, or one agent's full
payload when a kind is given.

Examples:
  iris results ab12cd34
  iris results ab12cd34 anomaly
  iris results ab12cd34 insight --json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runResults,
}

func init() {
	resultsCmd.Flags().BoolVar(&resultsJSON, "json", false, "print raw JSON payloads")
}

func runResults(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if len(args) == 2 {
		result, err := apiClient.Result(ctx, args[0], models.AgentKind(args[1]))
		if err != nil {
			return fmt.Errorf("get result: %w", err)
		}
		return printResult(result)
	}

	results, err := apiClient.Results(ctx, args[0])
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results recorded")
		return nil
	}

	if resultsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	fmt.Printf("%-16s %-12s %s\n", "AGENT", "STATUS", "DETAIL")
	fmt.Println("------------------------------------------------------------")
	for _, result := range results {
		detail := resultSummary(result)
		fmt.Printf("%-16s %-12s %s\n", result.Kind, result.Status, detail)
	}
	return nil
}

func printResult(result *models.AgentResult) error {
	if resultsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("Agent: %s\n", result.Kind)
	fmt.Printf("  Status: %s\n", result.Status)
	fmt.Printf("  Computed: %s\n", result.ComputedAt.Format("2006-01-02 15:04:05"))
	if result.Error != "" {
		fmt.Printf("  Error: %s (%s)\n", result.Error, result.ErrorKind)
	}
	if len(result.Payload) > 0 {
		payload, err := json.MarshalIndent(result.Payload, "  ", "  ")
		if err != nil {
			return fmt.Errorf("render payload: %w", err)
		}
		fmt.Printf("  Payload:\n  %s\n", payload)
	}
	return nil
}

// resultSummary pulls a one-line highlight out of a result payload.
func resultSummary(result *models.AgentResult) string {
	if result.Status == models.ResultFailed {
		return fmt.Sprintf("%s: %s", result.ErrorKind, result.Error)
	}
	if result.Status == models.ResultSkipped {
		return "skipped"
	}

	switch result.Kind {
	case models.KindProfile:
		if rows, ok := result.Payload["row_count"].(float64); ok {
			return fmt.Sprintf("%d rows profiled", int(rows))
		}
	case models.KindAnomaly:
		if flagged, ok := result.Payload["flagged"].([]any); ok {
			return fmt.Sprintf("%d rows flagged", len(flagged))
		}
	case models.KindForecast:
		if col, ok := result.Payload["column"].(string); ok {
			return "forecast for " + col
		}
	case models.KindRootCause:
		if factors, ok := result.Payload["factors"].([]any); ok && len(factors) > 0 {
			if top, ok := factors[0].(map[string]any); ok {
				if col, ok := top["column"].(string); ok {
					return "top factor: " + col
				}
			}
		}
	case models.KindInsight:
		if insights, ok := result.Payload["insights"].([]any); ok {
			return fmt.Sprintf("%d insights", len(insights))
		}
	case models.KindRecommendation:
		if actions, ok := result.Payload["actions"].([]any); ok {
			return fmt.Sprintf("%d recommended actions", len(actions))
		}
	}
	return ""
}
