package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yomna-shousha/orange-build-sub000/internal/app"
	"github.com/yomna-shousha/orange-build-sub000/internal/monitor"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor instance health in the background",
	Long: `Periodically sweep every pool runner and check the dev server of each
recorded instance. Runs in the foreground until interrupted.

With --auto-restart, instances whose dev server died are resumed
through the normal setup path. Can be wrapped in a systemd service for
persistent monitoring.`,
	RunE: runMonitor,
}

var (
	monitorInterval    int
	monitorAutoRestart bool
	monitorOnce        bool
)

func init() {
	monitorCmd.Flags().IntVar(&monitorInterval, "interval", 60, "Health check interval in seconds")
	monitorCmd.Flags().BoolVar(&monitorAutoRestart, "auto-restart", false, "Resume instances whose dev server died")
	monitorCmd.Flags().BoolVar(&monitorOnce, "once", false, "Run a single sweep, print the results, and exit")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	interval := time.Duration(monitorInterval) * time.Second

	opts := []monitor.Option{
		monitor.WithAuditLogger(auditLogger()),
	}
	if monitorAutoRestart {
		orch := orchestrator()
		opts = append(opts, monitor.WithAutoRestart(func(ctx context.Context, instanceID string) error {
			_, err := orch.ResumeSetup(ctx, instanceID)
			return err
		}))
	}

	mon := monitor.New(app.Default, interval, opts...)

	if monitorOnce {
		printSweep(mon.CheckAll(context.Background()))
		return nil
	}

	logInfo("Starting health monitor (interval: %ds, auto-restart: %v)", monitorInterval, monitorAutoRestart)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := mon.Run(ctx)
	if err == context.Canceled {
		logInfo("Monitor stopped")
		return nil
	}
	return err
}

func printSweep(results []monitor.CheckResult) {
	if len(results) == 0 {
		logInfo("No instances found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INSTANCE\tRUNNER\tSTATUS\tUPTIME")
	fmt.Fprintln(w, "--------\t------\t------\t------")
	for _, r := range results {
		uptime := "-"
		if r.Status == monitor.StatusRunning && r.Uptime > 0 {
			uptime = formatAge(r.Uptime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.InstanceID, r.Runner, r.Status, uptime)
	}
	w.Flush()
}
