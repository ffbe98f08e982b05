package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yomna-shousha/orange-build-sub000/internal/app"
	"github.com/yomna-shousha/orange-build-sub000/internal/deploy"
)

var deployCmd = &cobra.Command{
	Use:   "deploy <instance>",
	Short: "Deploy the instance to the platform",
	Long: `Build the project and deploy it with the platform CLI.

Secret placeholders in the manifest are provisioned first, the
production build runs inside the instance, and a pre-deploy archive is
saved so the deployed state can always be resumed. With dispatch
credentials configured the app lands in the shared multi-tenant
namespace; otherwise it deploys standalone.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	instanceID := args[0]

	logInfo("Deploying instance %s...", instanceID)

	result, err := deploy.NewPipeline(app.Default, engine()).Deploy(context.Background(), instanceID)
	if err != nil {
		return err
	}

	logSuccess("Deployed instance %s", instanceID)
	fmt.Printf("  URL: %s\n", result.URL)
	if result.VersionID != "" {
		fmt.Printf("  Version: %s\n", result.VersionID)
	}
	if result.Dispatch {
		logInfo("Deployed to the dispatch namespace")
	}
	if result.FallbackURL {
		logWarning("Deploy output carried no URL; the printed URL is constructed and may lag DNS")
	}
	if result.Save != nil {
		logInfo("Pre-deploy archive: %s (%s)", result.Save.Key, formatBytes(result.Save.Bytes))
	}
	return nil
}
