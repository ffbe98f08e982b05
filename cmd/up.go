package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yomna-shousha/orange-build-sub000/internal/errors"
	"github.com/yomna-shousha/orange-build-sub000/internal/instance"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
)

var upCmd = &cobra.Command{
	Use:   "up <template>",
	Short: "Create and start a new instance from a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runUp,
}

var (
	upProject    string
	upNoWait     bool
	upWebhookURL string
	upEnv        []string
	upDevCommand string
)

func init() {
	upCmd.Flags().StringVarP(&upProject, "project", "p", "", "Project name (required)")
	upCmd.Flags().BoolVar(&upNoWait, "no-wait", false, "Run setup in the background instead of blocking until ready")
	upCmd.Flags().StringVar(&upWebhookURL, "webhook", "", "Webhook URL notified on lifecycle events")
	upCmd.Flags().StringArrayVarP(&upEnv, "env", "e", nil, "Extra env var for the instance (KEY=VALUE, repeatable)")
	upCmd.Flags().StringVar(&upDevCommand, "dev-command", "", "Override the template's dev server command")
	if err := upCmd.MarkFlagRequired("project"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	templateName := args[0]
	ctx := context.Background()

	localEnv, err := parseEnvFlags(upEnv)
	if err != nil {
		return errors.ValidationError(err.Error())
	}

	logging.Debug("starting instance creation", "template", templateName, "project", upProject)

	req := instance.CreateRequest{
		TemplateName: templateName,
		ProjectName:  upProject,
		WebhookURL:   upWebhookURL,
		LocalEnv:     localEnv,
		Wait:         !upNoWait,
		DevCommand:   upDevCommand,
	}

	return createInstance(ctx, req)
}

// createInstance runs one create and reports the outcome. Shared between
// the up command and the picker's create wizard.
func createInstance(ctx context.Context, req instance.CreateRequest) error {
	logInfo("Creating instance from template %s...", req.TemplateName)

	result, err := orchestrator().Create(ctx, req)
	if err != nil {
		return err
	}

	if !req.Wait {
		logSuccess("Instance %s created, setup running in background", result.InstanceID)
		fmt.Printf("  Runner: %s\n", result.Runner)
		fmt.Printf("  Check: orangectl status %s\n", result.InstanceID)
		return nil
	}

	for _, w := range result.Warnings {
		logWarning("  %s", w)
	}

	if result.TimedOut {
		logWarning("Dev server did not answer within the ready timeout; it may still be compiling")
	}

	logSuccess("Instance %s ready", result.InstanceID)
	fmt.Printf("  Runner: %s\n", result.Runner)
	if result.Meta.AllocatedPort != 0 {
		fmt.Printf("  Port: %d\n", result.Meta.AllocatedPort)
	}
	if result.Meta.PreviewURL != "" {
		fmt.Printf("  Preview: %s\n", result.Meta.PreviewURL)
	}
	fmt.Printf("  Deploy: orangectl deploy %s\n", result.InstanceID)

	return nil
}

// parseEnvFlags parses --env flags into a map.
// Format: --env KEY=VALUE (repeatable).
func parseEnvFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		idx := strings.IndexByte(p, '=')
		if idx <= 0 {
			return nil, fmt.Errorf("invalid env %q: expected KEY=VALUE", p)
		}
		env[p[:idx]] = p[idx+1:]
	}
	return env, nil
}
