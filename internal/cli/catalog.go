package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List fine-tunable functions, variants, and metrics",
	RunE:  runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cat, err := apiClient.Catalog(context.Background())
	if err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}

	functions := make([]string, 0, len(cat.Functions))
	for name := range cat.Functions {
		functions = append(functions, name)
	}
	sort.Strings(functions)

	fmt.Println("Functions:")
	for _, fn := range functions {
		fmt.Printf("  %s\n", fn)
		variants := make([]string, 0, len(cat.Functions[fn]))
		for name := range cat.Functions[fn] {
			variants = append(variants, name)
		}
		sort.Strings(variants)
		for _, v := range variants {
			variant := cat.Functions[fn][v]
			fmt.Printf("    %-20s %s\n", v, variant.Model)
		}
	}

	metrics := make([]string, 0, len(cat.Metrics))
	for name := range cat.Metrics {
		metrics = append(metrics, name)
	}
	sort.Strings(metrics)

	fmt.Println("\nMetrics:")
	for _, name := range metrics {
		fmt.Printf("  %-20s %s\n", name, cat.Metrics[name].Type)
	}

	return nil
}
