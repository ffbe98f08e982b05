package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yomna-shousha/orange-build-sub000/internal/instance"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/tui"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Interactive instance picker",
	Long: `Opens an interactive TUI for browsing and managing instances.

Use arrow keys or j/k to navigate, / to filter, Enter to inspect.

Actions:
  Enter  - Show status of the selected instance
  n      - Create a new instance (guided)
  d      - Show instructions for removing the selected instance
  q/Esc  - Quit`,
	RunE: runPick,
}

var pickSimple bool

func init() {
	pickCmd.Flags().BoolVar(&pickSimple, "simple", false, "Print a plain listing instead of the TUI")
	rootCmd.AddCommand(pickCmd)
}

func runPick(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	logging.Debug("picker mode started")

	ptrs, err := orchestrator().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list instances: %w", err)
	}
	infos := make([]instance.Info, 0, len(ptrs))
	for _, p := range ptrs {
		infos = append(infos, *p)
	}

	if pickSimple {
		fmt.Print(tui.SimplePicker(infos))
		return nil
	}

	var templates []string
	if repo := templateRepo(); repo != nil {
		if names, err := repo.List(ctx); err == nil {
			templates = names
		} else {
			logging.Debug("template listing failed", "error", err)
		}
	}

	result, err := tui.RunPicker(infos, tui.PickerOptions{
		AllowCreate: true,
		Templates:   templates,
	})
	if err != nil {
		return fmt.Errorf("picker error: %w", err)
	}

	logging.Debug("picker result", "action", result.Action)

	switch result.Action {
	case tui.ActionSelect:
		if result.Instance != nil {
			return runStatus(cmd, []string{result.Instance.Meta.InstanceID})
		}

	case tui.ActionNew:
		if result.CreateOptions != nil {
			opts := result.CreateOptions
			return createInstance(ctx, instance.CreateRequest{
				TemplateName: opts.Template,
				ProjectName:  opts.ProjectName,
				WebhookURL:   opts.WebhookURL,
				Wait:         opts.Wait,
				DevCommand:   opts.DevCommand,
			})
		}
		fmt.Println("\nTo create a new instance, run:")
		fmt.Println("  orangectl up <template> -p <project>")
		if len(templates) > 0 {
			fmt.Println("\nAvailable templates:")
			for _, t := range templates {
				fmt.Printf("  - %s\n", t)
			}
		}

	case tui.ActionDown:
		if result.Instance != nil {
			fmt.Printf("\nTo remove instance '%s', run:\n", result.Instance.Meta.InstanceID)
			fmt.Printf("  orangectl down %s\n", result.Instance.Meta.InstanceID)
		}

	case tui.ActionQuit:
		// Just exit cleanly
	}

	return nil
}
