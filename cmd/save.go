package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save <instance>",
	Short: "Archive the instance to object storage",
	Long: `Pack the instance's working tree into a compressed archive and upload
it to object storage.

Saving is non-destructive: the instance keeps running. Pass --build to
run the project's production build first so the archive carries build
output for deploys.`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

var saveBuild bool

func init() {
	saveCmd.Flags().BoolVar(&saveBuild, "build", false, "Run the production build before archiving")
	rootCmd.AddCommand(saveCmd)
}

func runSave(cmd *cobra.Command, args []string) error {
	instanceID := args[0]

	result, err := engine().Save(context.Background(), instanceID, saveBuild)
	if err != nil {
		return err
	}

	logSuccess("Saved instance %s", instanceID)
	logInfo("Archive:  %s (%s)", result.Key, formatBytes(result.Bytes))
	if result.Built {
		logInfo("Build output included")
	}
	if verbose {
		logInfo("Compress: %dms, upload: %dms", result.CompressMS, result.UploadMS)
	}
	logInfo("Resume with: orangectl resume %s", instanceID)
	return nil
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
