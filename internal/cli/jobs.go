package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tuneboard/tuneboard/internal/models"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect fine-tuning jobs",
	Long: `List all launched jobs or inspect a specific job by ID.

Examples:
  tuneboard jobs           # List all jobs
  tuneboard jobs abc123    # Show current status of job abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		return showJob(ctx, args[0])
	}
	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	jobs, err := apiClient.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-38s %-20s %-12s %-10s %s\n", "ID", "FUNCTION", "VARIANT", "PROVIDER", "CREATED")
	fmt.Println("--------------------------------------------------------------------------------------------")

	for _, job := range jobs {
		created := job.CreatedAt.Local().Format("Jan 02 15:04")
		fmt.Printf("%-38s %-20s %-12s %-10s %s\n", job.ID, job.Function, job.Variant, job.Provider, created)
	}

	return nil
}

func showJob(ctx context.Context, id string) error {
	status, err := apiClient.GetStatus(ctx, id)
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}

	fmt.Printf("Job: %s\n", id)
	fmt.Printf("  Status: %s\n", status.Kind())
	printStatusDetail(status, "  ")
	return nil
}

// printStatusDetail prints the kind-specific fields of a status.
func printStatusDetail(status models.JobStatus, indent string) {
	switch s := status.(type) {
	case models.PendingStatus:
		if s.Message != "" {
			fmt.Printf("%sMessage: %s\n", indent, s.Message)
		}
		if s.TrainedTokens != nil {
			fmt.Printf("%sTrained tokens: %d\n", indent, *s.TrainedTokens)
		}
		if s.EstimatedFinish != nil {
			fmt.Printf("%sEstimated finish: %s\n", indent, s.EstimatedFinish.Local().Format(time.RFC3339))
		}
	case models.CompletedStatus:
		fmt.Printf("%sFine-tuned model: %s\n", indent, s.Result.FineTunedModel)
		if s.Result.ModelFragment != "" {
			fmt.Printf("\nModel config fragment:\n%s\n", s.Result.ModelFragment)
		}
		if s.Result.VariantFragment != "" {
			fmt.Printf("Variant config fragment:\n%s\n", s.Result.VariantFragment)
		}
	case models.FailedStatus:
		fmt.Printf("%sError: %s\n", indent, s.Message)
	}
}
