package instance

import (
	"context"
	"sort"

	"github.com/yomna-shousha/orange-build-sub000/internal/audit"
	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/errors"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/metadata"
)

// Info is the status view of one instance.
type Info struct {
	Runner  string
	Meta    *metadata.InstanceMetadata
	Running bool
}

// Status loads an instance's descriptor and probes its dev server process.
// A missing descriptor is a structured not-found error.
func (o *Orchestrator) Status(ctx context.Context, instanceID string) (*Info, error) {
	client, meta, err := o.resolve(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	info := &Info{Runner: o.app.RunnerFor(instanceID), Meta: meta}
	if meta.ProcessID != "" {
		alive, err := client.IsProcessAlive(ctx, meta.ProcessID)
		if err != nil {
			logging.Debug("liveness probe failed", "instance", instanceID, "error", err)
		} else {
			info.Running = alive
		}
	}
	return info, nil
}

// List enumerates instances across every pool slot, sorted by instance id.
// Unreachable runners are skipped with a warning.
func (o *Orchestrator) List(ctx context.Context) ([]*Info, error) {
	if o.app.Dialer == nil {
		return nil, errors.ConfigError("no runner backend configured", nil)
	}

	var infos []*Info
	for slot := 0; slot < o.app.PoolSize(); slot++ {
		runner := config.RunnerName(slot)
		client, err := o.app.DialSlot(slot)
		if err != nil {
			logging.Warn("runner dial failed", "runner", runner, "error", err)
			continue
		}
		metas, err := o.meta.ListRunner(ctx, client)
		if err != nil {
			logging.Warn("runner scan failed", "runner", runner, "error", err)
			continue
		}
		for _, m := range metas {
			info := &Info{Runner: runner, Meta: m}
			if m.ProcessID != "" {
				if alive, err := client.IsProcessAlive(ctx, m.ProcessID); err == nil {
					info.Running = alive
				}
			}
			infos = append(infos, info)
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Meta.InstanceID < infos[j].Meta.InstanceID
	})
	return infos, nil
}

// Shutdown tears an instance down: kills the runner's background
// processes, withdraws exposed ports, removes the working tree, and drops
// the cached descriptor. Cleanup failures are logged, not propagated; the
// descriptor file stays behind for audit.
func (o *Orchestrator) Shutdown(ctx context.Context, instanceID string) error {
	client, meta, err := o.resolve(ctx, instanceID)
	if err != nil {
		return err
	}

	logging.Info("shutting down instance", "instance", instanceID)

	if err := client.KillAll(ctx); err != nil {
		logging.Warn("kill failed during shutdown", "instance", instanceID, "error", err)
	}

	if meta.AllocatedPort != 0 {
		if err := client.UnexposePort(ctx, meta.AllocatedPort); err != nil {
			logging.Warn("unexpose failed", "instance", instanceID, "port", meta.AllocatedPort, "error", err)
		}
	} else {
		// No recorded port; withdraw whatever is exposed.
		exposed, err := client.ExposedPorts(ctx)
		if err != nil {
			logging.Warn("exposed port scan failed", "instance", instanceID, "error", err)
		}
		for _, port := range exposed {
			if err := client.UnexposePort(ctx, port); err != nil {
				logging.Warn("unexpose failed", "instance", instanceID, "port", port, "error", err)
			}
		}
	}

	if err := client.RemovePath(ctx, meta.Dir(), true); err != nil {
		logging.Warn("working tree removal failed", "instance", instanceID, "error", err)
	}

	o.meta.Invalidate(instanceID)
	o.event(audit.EventShutdown, instanceID, "")
	return nil
}
