package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iris-analytics/iris/internal/models"
)

var analyzeWait bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <dataset-id>",
	Short: "Run the analysis pipeline against a dataset",
	Long: `Submit an analysis job for a dataset. The pipeline profiles the
data, detects anomalies, forecasts numeric series, ranks root-cause
candidates, and generates insights and recommendations.

At most one job per dataset runs at a time; submitting while a job is
live returns the live job's ID.

Examples:
  iris analyze ds1a2b3c
  iris analyze ds1a2b3c --wait`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVarP(&analyzeWait, "wait", "w", false, "wait for the job to finish")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	jobID, err := apiClient.SubmitAnalysis(ctx, args[0])
	if err != nil {
		return fmt.Errorf("submit analysis: %w", err)
	}

	if !analyzeWait {
		fmt.Printf("Submitted job: %s\n", jobID)
		fmt.Printf("Use 'iris jobs %s' to check status.\n", jobID)
		return nil
	}

	if isTTY() {
		return runJobProgress(apiClient, jobID)
	}

	// Plain polling when output is piped.
	view, err := apiClient.WaitForJob(ctx, jobID, time.Second)
	if err != nil {
		return fmt.Errorf("wait for job: %w", err)
	}
	printJobView(view)

	if view.Job.Status == models.JobFailed {
		return fmt.Errorf("job failed: %s", view.Job.Error)
	}
	return nil
}
