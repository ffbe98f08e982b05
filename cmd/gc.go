package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/yomna-shousha/orange-build-sub000/internal/app"
	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/metadata"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
	"github.com/yomna-shousha/orange-build-sub000/internal/storage"
)

var gcForce bool

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Garbage collect orphaned instance state",
	Long: `Reconciles runner and host state and removes leftovers no instance
owns anymore.

Without --force, prints what would be cleaned (dry run).
With --force, actually removes the orphaned state.

Detects:
  - Dead descriptors: instance descriptors whose working tree is gone
    and that have no archive to resume from
  - Leaked ports: exposed ports no descriptor on the runner claims
  - Orphaned event logs: host-side audit logs for instances that exist
    nowhere else`,
	RunE: runGC,
}

func init() {
	gcCmd.Flags().BoolVar(&gcForce, "force", false, "Actually remove orphaned state (default is dry run)")
	rootCmd.AddCommand(gcCmd)
}

// deadDescriptor is a descriptor with no working tree and no archive.
type deadDescriptor struct {
	slot       int
	instanceID string
}

// leakedPort is an exposed port no descriptor claims.
type leakedPort struct {
	slot int
	port int
}

// gcResult tracks what gc found and would/did clean up.
type gcResult struct {
	deadDescriptors []deadDescriptor
	leakedPorts     []leakedPort
	orphanedLogs    []string
}

func (r *gcResult) empty() bool {
	return len(r.deadDescriptors) == 0 && len(r.leakedPorts) == 0 && len(r.orphanedLogs) == 0
}

func runGC(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	meta := metadata.NewStore()
	store := app.Default.Store

	result := &gcResult{}

	// Every instance id seen in any descriptor, across all runners.
	known := make(map[string]bool)

	for slot := 0; slot < app.Default.PoolSize(); slot++ {
		client, err := app.Default.DialSlot(slot)
		if err != nil {
			logWarning("Skipping runner %s: %v", config.RunnerName(slot), err)
			continue
		}

		descriptors, err := meta.ListRunner(ctx, client)
		if err != nil {
			logWarning("Skipping runner %s: %v", config.RunnerName(slot), err)
			continue
		}

		claimed := make(map[int]bool)
		for _, m := range descriptors {
			known[m.InstanceID] = true
			if m.AllocatedPort != 0 {
				claimed[m.AllocatedPort] = true
			}

			if hasWorkingTree(ctx, client, m.InstanceID) {
				continue
			}
			// Without storage an archive cannot be ruled out, so the
			// descriptor has to stay.
			if store == nil {
				continue
			}
			saved, err := store.Exists(ctx, storage.InstanceKey(m.InstanceID))
			if err != nil {
				logWarning("Archive check failed for %s: %v", m.InstanceID, err)
				continue
			}
			if !saved {
				result.deadDescriptors = append(result.deadDescriptors,
					deadDescriptor{slot: slot, instanceID: m.InstanceID})
			}
		}

		exposed, err := client.ExposedPorts(ctx)
		if err != nil {
			logging.Debug("exposed port scan failed", "slot", slot, "error", err)
			continue
		}
		for _, port := range exposed {
			if !claimed[port] {
				result.leakedPorts = append(result.leakedPorts, leakedPort{slot: slot, port: port})
			}
		}
	}

	if store != nil {
		ids, err := eventLogIDs(paths().EventsDir)
		if err != nil {
			return fmt.Errorf("failed to scan events directory: %w", err)
		}
		for _, id := range ids {
			if known[id] {
				continue
			}
			saved, err := store.Exists(ctx, storage.InstanceKey(id))
			if err != nil || saved {
				continue
			}
			result.orphanedLogs = append(result.orphanedLogs, id)
		}
	}

	if result.empty() {
		logInfo("No orphaned state found")
		return nil
	}

	if !gcForce {
		printGCDryRun(result)
		return nil
	}

	return executeGC(ctx, result)
}

// hasWorkingTree reports whether the instance's directory still exists on
// the runner.
func hasWorkingTree(ctx context.Context, c sandbox.Client, instanceID string) bool {
	result, err := c.Exec(ctx, sandbox.ExecRequest{Cmd: shellquote.Join("test", "-d", instanceID)})
	return err == nil && result.Success()
}

// eventLogIDs scans the host events directory and returns the instance ids
// it holds logs for.
func eventLogIDs(eventsDir string) ([]string, error) {
	entries, err := os.ReadDir(eventsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := strings.CutSuffix(entry.Name(), ".events.jsonl")
		if !ok {
			continue
		}
		if config.ValidateInstanceID(id) == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func printGCDryRun(result *gcResult) {
	fmt.Println("Dry run (use --force to actually clean up):")
	fmt.Println()

	if len(result.deadDescriptors) > 0 {
		fmt.Println("Dead descriptors (no working tree, no archive):")
		for _, d := range result.deadDescriptors {
			fmt.Printf("  %s on %s\n", d.instanceID, config.RunnerName(d.slot))
		}
		fmt.Println()
	}

	if len(result.leakedPorts) > 0 {
		fmt.Println("Leaked port exposures (no descriptor claims them):")
		for _, lp := range result.leakedPorts {
			fmt.Printf("  port %d on %s\n", lp.port, config.RunnerName(lp.slot))
		}
		fmt.Println()
	}

	if len(result.orphanedLogs) > 0 {
		fmt.Println("Orphaned event logs (instance gone everywhere):")
		for _, id := range result.orphanedLogs {
			fmt.Printf("  %s\n", id)
		}
		fmt.Println()
	}
}

func executeGC(ctx context.Context, result *gcResult) error {
	for _, d := range result.deadDescriptors {
		logInfo("Removing dead descriptor: %s", d.instanceID)
		client, err := app.Default.DialSlot(d.slot)
		if err != nil {
			logWarning("Failed to dial runner %s: %v", config.RunnerName(d.slot), err)
			continue
		}
		if err := client.RemovePath(ctx, metadata.DescriptorPath(d.instanceID), false); err != nil {
			logWarning("Failed to remove descriptor %s: %v", d.instanceID, err)
		}
	}

	for _, lp := range result.leakedPorts {
		logInfo("Withdrawing leaked port %d on %s", lp.port, config.RunnerName(lp.slot))
		client, err := app.Default.DialSlot(lp.slot)
		if err != nil {
			logWarning("Failed to dial runner %s: %v", config.RunnerName(lp.slot), err)
			continue
		}
		if err := client.UnexposePort(ctx, lp.port); err != nil {
			logWarning("Failed to unexpose port %d: %v", lp.port, err)
		}
	}

	auditLog := auditLogger()
	for _, id := range result.orphanedLogs {
		logInfo("Removing orphaned event log: %s", id)
		if err := auditLog.Remove(id); err != nil {
			logWarning("Failed to remove event log for %s: %v", id, err)
		}
	}

	logSuccess("Garbage collection complete")
	return nil
}
