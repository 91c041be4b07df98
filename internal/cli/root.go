// Package cli provides the command-line interface for tuneboard.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/tuneboard/tuneboard/internal/client"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string
	verbose   bool

	// apiClient talks to the tuneboard server. Initialized before every
	// command run so the --server flag is honored.
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tuneboard",
	Short: "Fine-tuning job dashboard client",
	Long: `Tuneboard manages LLM fine-tuning jobs: submit a job against a
function's curated inference data, follow it until the provider reports a
terminal status, and collect the generated serving config fragments.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		apiClient = client.New(serverURL)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "tuneboard server URL (default $TUNEBOARD_SERVER_URL or http://localhost:8585)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
