package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <instance>",
	Short: "Resume a saved or stopped instance",
	Long: `Bring an instance back to a running dev server.

If the working tree is gone the latest archive is downloaded from
object storage and unpacked first. Setup then reinstalls dependencies
and restarts the dev server on a freshly allocated port.

A live instance is left untouched unless --force is given, which kills
the running process and re-runs setup.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

var resumeForce bool

func init() {
	resumeCmd.Flags().BoolVar(&resumeForce, "force", false, "Restart even if the instance is already running")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	instanceID := args[0]

	result, err := engine().Resume(context.Background(), instanceID, resumeForce)
	if err != nil {
		return err
	}

	if result.AlreadyRunning {
		logInfo("Instance %s is already running", instanceID)
		if result.Meta.PreviewURL != "" {
			fmt.Printf("  Preview: %s\n", result.Meta.PreviewURL)
		}
		logInfo("Use --force to restart it")
		return nil
	}

	if result.Restored {
		logInfo("Restored working tree from archive")
	}

	logSuccess("Instance %s resumed", instanceID)
	if result.Meta.AllocatedPort != 0 {
		fmt.Printf("  Port: %d\n", result.Meta.AllocatedPort)
	}
	if result.Meta.PreviewURL != "" {
		fmt.Printf("  Preview: %s\n", result.Meta.PreviewURL)
	}
	if verbose {
		logInfo("Download: %dms, setup: %dms", result.DownloadMS, result.SetupMS)
	}
	return nil
}
