package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
)

var downCmd = &cobra.Command{
	Use:   "down <instance>",
	Short: "Stop and remove an instance",
	Long: `Stops the instance's dev server, withdraws its exposed ports, and
removes its working tree from the runner.

The descriptor file stays behind for audit. Save first with
"orangectl save" if the working tree should survive.`,
	Args: cobra.ExactArgs(1),
	RunE: runDown,
}

var downSave bool

func init() {
	downCmd.Flags().BoolVar(&downSave, "save", false, "Archive the working tree to durable storage before removal")
	rootCmd.AddCommand(downCmd)
}

func runDown(cmd *cobra.Command, args []string) error {
	instanceID := args[0]
	ctx := context.Background()

	logging.Debug("removing instance", "instance", instanceID)

	if downSave {
		logInfo("Saving instance %s...", instanceID)
		res, err := engine().Save(ctx, instanceID, false)
		if err != nil {
			return err
		}
		logInfo("Saved %d bytes to %s", res.Bytes, res.Key)
	}

	logInfo("Removing instance %s...", instanceID)

	if err := orchestrator().Shutdown(ctx, instanceID); err != nil {
		return err
	}

	logSuccess("Removed instance %s", instanceID)
	return nil
}
