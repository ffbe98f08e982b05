// Package monitor provides background health monitoring for instances.
package monitor

import (
	"context"
	"sort"
	"time"

	"github.com/yomna-shousha/orange-build-sub000/internal/app"
	"github.com/yomna-shousha/orange-build-sub000/internal/audit"
	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/metadata"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
)

// Status classifies one instance's dev server at sweep time.
type Status string

const (
	// StatusRunning means the recorded process is alive.
	StatusRunning Status = "running"

	// StatusStopped means no process is recorded or the recorded one died.
	StatusStopped Status = "stopped"

	// StatusDegraded means setup failed; there is nothing to probe.
	StatusDegraded Status = "degraded"
)

// CheckResult holds the result of a single instance health check.
type CheckResult struct {
	InstanceID string
	Runner     string
	Status     Status
	Uptime     time.Duration
}

// Restarter restarts a dead instance, normally the save/resume engine's
// resume path.
type Restarter func(ctx context.Context, instanceID string) error

// Monitor periodically sweeps every pool slot and checks the instances
// recorded there.
type Monitor struct {
	interval time.Duration
	app      *app.App
	meta     *metadata.Store
	restart  Restarter
	auditLog *audit.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithAutoRestart enables automatic restart of dead dev servers through
// the given restarter.
func WithAutoRestart(restart Restarter) Option {
	return func(m *Monitor) {
		m.restart = restart
	}
}

// WithAuditLogger sets the audit logger for recording health events.
func WithAuditLogger(logger *audit.Logger) Option {
	return func(m *Monitor) {
		m.auditLog = logger
	}
}

// New creates a new Monitor.
func New(a *app.App, interval time.Duration, opts ...Option) *Monitor {
	m := &Monitor{
		interval: interval,
		app:      a,
		meta:     metadata.NewStore(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts the monitoring loop. It blocks until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	logging.Debug("starting health monitor", "interval", m.interval, "autoRestart", m.restart != nil)

	// Run an immediate sweep, then loop on interval.
	m.CheckAll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Debug("health monitor stopping")
			return ctx.Err()
		case <-ticker.C:
			m.CheckAll(ctx)
		}
	}
}

// CheckAll sweeps every pool slot once and returns the per-instance
// results sorted by instance id.
func (m *Monitor) CheckAll(ctx context.Context) []CheckResult {
	var results []CheckResult
	for slot := 0; slot < m.app.PoolSize(); slot++ {
		if ctx.Err() != nil {
			break
		}
		runner := config.RunnerName(slot)
		client, err := m.app.DialSlot(slot)
		if err != nil {
			logging.Warn("monitor cannot reach runner", "runner", runner, "error", err)
			continue
		}
		metas, err := m.meta.ListRunner(ctx, client)
		if err != nil {
			logging.Warn("monitor cannot list runner", "runner", runner, "error", err)
			continue
		}

		for _, meta := range metas {
			status := m.classify(ctx, client, meta)
			result := CheckResult{
				InstanceID: meta.InstanceID,
				Runner:     runner,
				Status:     status,
			}
			if status == StatusRunning {
				if started := meta.Started(); !started.IsZero() {
					result.Uptime = time.Since(started)
				}
			}
			results = append(results, result)

			if m.auditLog != nil {
				_ = m.auditLog.LogEvent(audit.EventHealth, meta.InstanceID, string(status))
			}

			// Restart only servers that ran and died. Instances that
			// never started may have a setup still in flight.
			if m.restart != nil && status == StatusStopped && meta.ProcessID != "" {
				m.restartInstance(ctx, meta.InstanceID, status)
			}
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].InstanceID < results[j].InstanceID })
	return results
}

func (m *Monitor) classify(ctx context.Context, client sandbox.Client, meta *metadata.InstanceMetadata) Status {
	if meta.SetupError != "" {
		return StatusDegraded
	}
	if meta.ProcessID == "" {
		return StatusStopped
	}
	alive, err := client.IsProcessAlive(ctx, meta.ProcessID)
	if err != nil {
		logging.Debug("liveness probe failed", "instance", meta.InstanceID, "error", err)
		return StatusStopped
	}
	if alive {
		return StatusRunning
	}
	return StatusStopped
}

func (m *Monitor) restartInstance(ctx context.Context, instanceID string, status Status) {
	logging.Info("auto-restarting instance", "instance", instanceID, "status", status)
	if err := m.restart(ctx, instanceID); err != nil {
		logging.Warn("auto-restart failed", "instance", instanceID, "error", err)
		if m.auditLog != nil {
			_ = m.auditLog.LogEvent(audit.EventError, instanceID, "auto-restart failed: "+err.Error())
		}
	}
}
