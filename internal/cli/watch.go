package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tuneboard/tuneboard/internal/client"
	"github.com/tuneboard/tuneboard/internal/models"
)

var watchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Follow a job until it reaches a terminal status",
	Long: `Poll a job's status until the provider reports completion or failure.

In a terminal this renders a live progress view; when output is piped, one
line is printed per status change instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	return watchUntilDone(context.Background(), args[0])
}

// watchUntilDone follows a job to its terminal status, interactively when
// stdout is a TTY.
func watchUntilDone(ctx context.Context, jobID string) error {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return runWatchTUI(ctx, apiClient, jobID)
	}
	return watchPlain(ctx, jobID)
}

// watchPlain polls and prints one line per update, for non-interactive use.
func watchPlain(ctx context.Context, jobID string) error {
	poller := client.NewPoller(apiClient, nil)

	status, err := poller.Run(ctx, jobID, func(s models.JobStatus) {
		line := fmt.Sprintf("%s [%s]", time.Now().Format("15:04:05"), s.Kind())
		if p, ok := s.(models.PendingStatus); ok {
			if p.Message != "" {
				line += " " + p.Message
			}
			if p.TrainedTokens != nil {
				line += fmt.Sprintf(" (%d tokens)", *p.TrainedTokens)
			}
		}
		fmt.Println(line)
	})
	if err != nil {
		return fmt.Errorf("watch job: %w", err)
	}

	switch s := status.(type) {
	case models.CompletedStatus:
		fmt.Printf("\nFine-tuned model: %s\n", s.Result.FineTunedModel)
		if s.Result.ModelFragment != "" {
			fmt.Printf("\nModel config fragment:\n%s\n", s.Result.ModelFragment)
		}
		if s.Result.VariantFragment != "" {
			fmt.Printf("Variant config fragment:\n%s\n", s.Result.VariantFragment)
		}
		return nil
	case models.FailedStatus:
		return fmt.Errorf("job failed: %s", s.Message)
	default:
		return nil
	}
}
