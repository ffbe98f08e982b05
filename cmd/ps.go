package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yomna-shousha/orange-build-sub000/internal/instance"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List all instances",
	RunE:  runPs,
}

func init() {
	rootCmd.AddCommand(psCmd)
}

func runPs(cmd *cobra.Command, args []string) error {
	infos, err := orchestrator().List(context.Background())
	if err != nil {
		return err
	}

	if len(infos) == 0 {
		logInfo("No instances found. Create one with: orangectl up <template> -p <project>")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INSTANCE\tTEMPLATE\tRUNNER\tPORT\tUPTIME\tSTATUS")
	fmt.Fprintln(w, "--------\t--------\t------\t----\t------\t------")

	for _, info := range infos {
		port := "-"
		if info.Meta.AllocatedPort != 0 {
			port = fmt.Sprintf("%d", info.Meta.AllocatedPort)
		}

		uptime := "-"
		if info.Running && !info.Meta.Started().IsZero() {
			uptime = formatAge(time.Since(info.Meta.Started()))
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			info.Meta.InstanceID, info.Meta.TemplateName, info.Runner, port, uptime, formatInstanceStatus(info))
	}

	return w.Flush()
}

func formatInstanceStatus(info *instance.Info) string {
	switch {
	case info.Meta.SetupError != "":
		return "⚠ setup failed"
	case info.Running:
		return "✓ running"
	default:
		return "● stopped"
	}
}

func formatAge(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}
	return strings.TrimSuffix(d.Truncate(time.Minute).String(), "0s")
}
