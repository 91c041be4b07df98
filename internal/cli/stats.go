package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server operation statistics",
	Long:  `Show the server's in-memory operation timings (resets on server restart).`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	snap, err := apiClient.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}

	uptime := time.Duration(snap.UptimeSeconds * float64(time.Second))
	fmt.Printf("Uptime: %s\n\n", uptime.Round(time.Second))

	if len(snap.Operations) == 0 {
		fmt.Println("No operations recorded yet")
		return nil
	}

	ops := make([]string, 0, len(snap.Operations))
	for name := range snap.Operations {
		ops = append(ops, name)
	}
	sort.Strings(ops)

	fmt.Printf("%-18s %8s %10s %10s %10s\n", "OPERATION", "COUNT", "AVG", "MIN", "MAX")
	for _, name := range ops {
		op := snap.Operations[name]
		fmt.Printf("%-18s %8d %8.0fms %8dms %8dms\n",
			name, op.Count, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	}

	return nil
}
