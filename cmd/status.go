package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <instance>",
	Short: "Show detailed status of an instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	instanceID := args[0]
	ctx := context.Background()

	info, err := orchestrator().Status(ctx, instanceID)
	if err != nil {
		return err
	}

	meta := info.Meta
	fmt.Printf("Instance: %s\n", meta.InstanceID)
	fmt.Printf("Project: %s\n", meta.ProjectName)
	fmt.Printf("Template: %s\n", meta.TemplateName)
	fmt.Printf("Runner: %s\n", info.Runner)

	if meta.AllocatedPort != 0 {
		fmt.Printf("Port: %d\n", meta.AllocatedPort)
	}
	if meta.PreviewURL != "" {
		fmt.Printf("Preview: %s\n", meta.PreviewURL)
	}
	if meta.TunnelURL != "" {
		fmt.Printf("Tunnel: %s\n", meta.TunnelURL)
	}
	if meta.WebhookURL != "" {
		fmt.Printf("Webhook: %s\n", meta.WebhookURL)
	}

	fmt.Printf("Started: %s\n", meta.StartTime)
	fmt.Println()

	fmt.Printf("Dev server: %s\n", boolStatus(info.Running))
	if info.Running {
		fmt.Printf("  Process: %s\n", meta.ProcessID)
		if !meta.Started().IsZero() {
			fmt.Printf("  Uptime: %s\n", formatAge(time.Since(meta.Started())))
		}
	}

	if meta.SetupError != "" {
		fmt.Println()
		logWarning("Setup error: %s", meta.SetupError)
		fmt.Printf("  Retry with: orangectl resume %s\n", meta.InstanceID)
	}

	return nil
}

func boolStatus(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}
