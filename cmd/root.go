package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "orangectl",
	Short: "Orange Build instance management CLI",
	Long: `orangectl manages app-building sandbox instances on a pool of runners.

Each instance is an isolated working tree on a pooled runner with:
  - A project scaffolded from a published template archive
  - A supervised dev server on its own allocated port
  - Durable save/resume archives in object storage
  - Deploy and GitHub export pipelines`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, os.Stderr)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	_          = logging.UserError // reserved for future use
)
