package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	countsFunction  string
	countsMetric    string
	countsThreshold string
)

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Show how many curated samples a criterion selects",
	Long: `Show inference, feedback, and curated sample counts for a function and
metric, so you can judge whether a fine-tuning run has enough data before
launching it.

Examples:
  tuneboard counts --function generate_secret --metric exact_match
  tuneboard counts --function generate_secret --metric accuracy --threshold 0.9`,
	RunE: runCounts,
}

func init() {
	countsCmd.Flags().StringVar(&countsFunction, "function", "", "function name (required)")
	countsCmd.Flags().StringVar(&countsMetric, "metric", "", "metric name (required)")
	countsCmd.Flags().StringVar(&countsThreshold, "threshold", "", "metric threshold (float metrics)")
	_ = countsCmd.MarkFlagRequired("function")
	_ = countsCmd.MarkFlagRequired("metric")

	rootCmd.AddCommand(countsCmd)
}

func runCounts(cmd *cobra.Command, args []string) error {
	counts, err := apiClient.Counts(context.Background(), countsFunction, countsMetric, countsThreshold)
	if err != nil {
		return fmt.Errorf("fetch counts: %w", err)
	}

	fmt.Printf("Inferences:         %d\n", counts.Inferences)
	fmt.Printf("Feedbacks:          %d\n", counts.Feedbacks)
	fmt.Printf("Curated inferences: %d\n", counts.CuratedInferences)
	return nil
}
