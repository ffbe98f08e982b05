package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/yomna-shousha/orange-build-sub000/internal/app"
	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/provision"
)

var provisionCmd = &cobra.Command{
	Use:   "provision <instance>",
	Short: "Provision platform resources for manifest placeholders",
	Long: `Scan the instance's deploy manifest for resource placeholders and
create the referenced KV namespaces, D1 databases, R2 buckets, and
queues on the platform account.

Each satisfied placeholder is rewritten in place with the created
resource's id. Provisioning also runs automatically during create and
deploy; this command re-runs it on demand.`,
	Args: cobra.ExactArgs(1),
	RunE: runProvision,
}

func init() {
	rootCmd.AddCommand(provisionCmd)
}

func runProvision(cmd *cobra.Command, args []string) error {
	instanceID := args[0]

	var platformCfg config.PlatformConfig
	if cfg := app.Default.HostConfig; cfg != nil {
		platformCfg = cfg.Platform
	}
	if !platformCfg.HasCredentials() {
		logWarning("Platform credentials are not configured; placeholders will be reported, not provisioned")
	}

	client, err := app.Default.DialInstance(instanceID)
	if err != nil {
		return err
	}

	result, err := provision.NewProvisioner(platformCfg).Run(context.Background(), client, instanceID)
	if err != nil {
		return err
	}

	if len(result.Provisioned) == 0 && len(result.Failed) == 0 {
		logInfo("No placeholders found in %s", provision.ManifestFile)
		return nil
	}

	for _, token := range sortedKeys(result.Provisioned) {
		logSuccess("%s -> %s", token, result.Provisioned[token])
	}
	for _, token := range sortedKeys(result.Failed) {
		logWarning("%s: %s", token, result.Failed[token])
	}
	if result.WranglerUpdated {
		logInfo("Updated %s with %d replacement(s)", provision.ManifestFile, result.Replacements)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d placeholder(s) failed to provision", len(result.Failed))
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
