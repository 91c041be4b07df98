package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tuneboard/tuneboard/internal/models"
)

var (
	launchID       string
	launchFunction string
	launchCriteria []string
	launchCombine  string
	launchModel    string
	launchProvider string
	launchVariant  string
	launchSplit    int
	launchSamples  int
	launchRegion   string
	launchBucket   string
	launchWatch    bool
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Submit a fine-tuning job",
	Long: `Submit a fine-tuning job for a function's curated inference data.

Curation criteria select which inferences make up the training set: each
--criterion names a metric, optionally with a threshold for float metrics.

Examples:
  tuneboard launch --function generate_secret --criterion accuracy=0.9 \
    --model gpt-4o-mini-2024-07-18 --variant baseline
  tuneboard launch --function generate_secret --criterion exact_match \
    --model amazon.titan-text-express-v1 --provider bedrock \
    --region us-east-1 --bucket my-datasets --variant baseline --watch`,
	RunE: runLaunch,
}

func init() {
	launchCmd.Flags().StringVar(&launchID, "id", "", "job ID (default: generated)")
	launchCmd.Flags().StringVar(&launchFunction, "function", "", "function to fine-tune for (required)")
	launchCmd.Flags().StringArrayVar(&launchCriteria, "criterion", nil, "curation criterion, metric or metric=threshold (repeatable, required)")
	launchCmd.Flags().StringVar(&launchCombine, "combine", "and", "how multiple criteria combine: and|or")
	launchCmd.Flags().StringVar(&launchModel, "model", "", "base model to fine-tune (required)")
	launchCmd.Flags().StringVar(&launchProvider, "provider", models.ProviderOpenAI, "fine-tuning provider: openai|bedrock")
	launchCmd.Flags().StringVar(&launchVariant, "variant", "", "variant whose prompt config seeds the dataset (required)")
	launchCmd.Flags().IntVar(&launchSplit, "split", 20, "validation split percent (0-100)")
	launchCmd.Flags().IntVar(&launchSamples, "max-samples", 1000, "maximum training samples")
	launchCmd.Flags().StringVar(&launchRegion, "region", "", "AWS region (bedrock only)")
	launchCmd.Flags().StringVar(&launchBucket, "bucket", "", "S3 bucket for dataset staging (bedrock only)")
	launchCmd.Flags().BoolVar(&launchWatch, "watch", false, "follow the job until it finishes")

	rootCmd.AddCommand(launchCmd)
}

// parseCriteria turns "metric" or "metric=threshold" flags into criteria.
func parseCriteria(raw []string) []models.MetricCriterion {
	criteria := make([]models.MetricCriterion, 0, len(raw))
	for _, r := range raw {
		metric, threshold, _ := strings.Cut(r, "=")
		criteria = append(criteria, models.MetricCriterion{Metric: metric, Threshold: threshold})
	}
	return criteria
}

func runLaunch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id := launchID
	if id == "" {
		var err error
		if id, err = models.NewJobID(); err != nil {
			return err
		}
	}

	req := models.JobRequest{
		ID:                     id,
		Function:               launchFunction,
		Criteria:               parseCriteria(launchCriteria),
		Combine:                models.CriteriaCombine(launchCombine),
		Model:                  launchModel,
		Provider:               launchProvider,
		Variant:                launchVariant,
		ValidationSplitPercent: launchSplit,
		MaxSamples:             launchSamples,
	}
	if launchRegion != "" || launchBucket != "" {
		req.Location = &models.ProviderLocation{Region: launchRegion, Bucket: launchBucket}
	}

	result, err := apiClient.LaunchJob(ctx, req)
	if err != nil {
		return fmt.Errorf("launch job: %w", err)
	}

	fmt.Printf("Launched job %s\n", result.JobID)
	fmt.Printf("  Provider job: %s\n", result.Handle.ProviderJobID)
	if result.Handle.HumanURL != "" {
		fmt.Printf("  Dashboard: %s\n", result.Handle.HumanURL)
	}

	if launchWatch {
		return watchUntilDone(ctx, result.JobID)
	}

	fmt.Printf("\nUse 'tuneboard watch %s' to follow it.\n", result.JobID)
	return nil
}
