package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iris-analytics/iris/internal/models"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect analysis jobs",
	Long: `List all analysis jobs or inspect a specific job by ID.

Examples:
  iris jobs           # List all jobs
  iris jobs ab12cd34  # Show stage breakdown for job ab12cd34`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.AddCommand(jobsWatchCmd)
}

var jobsWatchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Watch a running job's progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTTY() {
			view, err := apiClient.WaitForJob(cmd.Context(), args[0], time.Second)
			if err != nil {
				return fmt.Errorf("wait for job: %w", err)
			}
			printJobView(view)
			return nil
		}
		return runJobProgress(apiClient, args[0])
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Request cancellation of a running job",
	Long: `Request cancellation of a running analysis job. Cancellation is
cooperative: stages already in flight settle before the job is marked
cancelled.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func runJobs(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		view, err := apiClient.Job(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}
		printJobView(view)
		return nil
	}

	jobs, err := apiClient.Jobs(cmd.Context())
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-10s %-10s %-12s %-22s %s\n", "ID", "DATASET", "STATUS", "CREATED", "CALLER")
	fmt.Println("------------------------------------------------------------------------")
	for _, job := range jobs {
		fmt.Printf("%-10s %-10s %-12s %-22s %s\n",
			job.ID, job.DatasetID, job.Status,
			job.CreatedAt.Format("2006-01-02 15:04:05"), job.Caller)
	}
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	if err := apiClient.CancelJob(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	fmt.Printf("Cancellation requested for job %s\n", args[0])
	return nil
}

func printJobView(view *models.JobView) {
	job := view.Job
	fmt.Printf("Job: %s\n", job.ID)
	fmt.Printf("  Dataset: %s\n", job.DatasetID)
	fmt.Printf("  Status: %s\n", job.Status)
	if job.Caller != "" {
		fmt.Printf("  Caller: %s\n", job.Caller)
	}
	fmt.Printf("  Created: %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", job.CompletedAt.Format(time.RFC3339))
		fmt.Printf("  Duration: %s\n", job.CompletedAt.Sub(job.CreatedAt).Round(time.Millisecond))
	}
	if job.Error != "" {
		fmt.Printf("  Error: %s\n", job.Error)
	}

	if len(view.Stages) == 0 {
		return
	}
	fmt.Println("\nStages:")
	for _, stage := range view.Stages {
		line := fmt.Sprintf("  %-16s %s", stage.Kind, stage.Status)
		if stage.Status == models.ResultFailed {
			line += fmt.Sprintf(" (%s: %s)", stage.ErrorKind, stage.Error)
		}
		fmt.Println(line)
	}
}
