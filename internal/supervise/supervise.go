// Package supervise starts instance dev servers and polls their logs for
// readiness.
//
// Readiness is heuristic: dev servers announce themselves in free text, so
// the supervisor watches for an ordered set of signatures. An explicit
// local URL is the most authoritative signal; framework phrases like
// "ready in" or "listening on" are secondary. Not seeing any signature
// within the budget degrades the result instead of failing it: a dev
// server that started but has not proven itself is still returned, with a
// warning.
package supervise

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yomna-shousha/orange-build-sub000/internal/errors"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
)

// PollInterval between readiness checks.
const PollInterval = 500 * time.Millisecond

// DefaultBudget bounds readiness polling when no budget is configured.
const DefaultBudget = 10 * time.Second

// urlPattern is the primary readiness signal: a local URL in the logs.
var urlPattern = regexp.MustCompile(`https?://(?:localhost|0\.0\.0\.0|127\.0\.0\.1|\[::1?\]):\d+`)

// readyPhrases are secondary signals, checked in order after the URL
// pattern. Matching is case-insensitive.
var readyPhrases = []string{
	"ready in",
	"Local:",
	"compiled successfully",
	"listening on",
	"server running",
	"started server",
}

// DevServerCommand is the standard dev server invocation. The port rides an
// explicit flag; vite and wrangler both honor it.
func DevServerCommand(port int) string {
	return fmt.Sprintf("npm run dev -- --port %d", port)
}

// Options tune one supervised start.
type Options struct {
	// Command overrides DevServerCommand.
	Command string

	// Env is extra environment for the dev server process.
	Env map[string]string
}

// StartResult is the supervisor's outcome. The process handle is present
// whenever the start itself succeeded, ready or not.
type StartResult struct {
	Process        *sandbox.Process
	Port           int
	Ready          bool
	TimedOut       bool
	MatchedPattern string
}

// Supervisor starts dev server processes and awaits readiness.
type Supervisor struct {
	Interval time.Duration
	Budget   time.Duration
}

// New creates a Supervisor with the given polling budget. Zero selects
// DefaultBudget.
func New(budget time.Duration) *Supervisor {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Supervisor{Interval: PollInterval, Budget: budget}
}

// Start launches the dev server in the instance's working directory and
// polls its logs until a readiness signature appears or the budget
// elapses. Log-fetch errors during polling are swallowed and retried.
func (s *Supervisor) Start(ctx context.Context, c sandbox.Client, instanceID string, port int, opts Options) (*StartResult, error) {
	cmd := opts.Command
	if cmd == "" {
		cmd = DevServerCommand(port)
	}

	proc, err := c.StartProcess(ctx, sandbox.ExecRequest{
		Cmd: cmd,
		Cwd: instanceID,
		Env: opts.Env,
	})
	if err != nil {
		return nil, errors.RunnerFailed("dev server start", err)
	}

	logging.Debug("dev server started, polling readiness",
		"instance", instanceID, "process", proc.ID, "port", port)

	result := &StartResult{Process: proc, Port: port}
	offset := 0
	deadline := time.Now().Add(s.Budget)

	for time.Now().Before(deadline) {
		logs, err := c.ProcessLogs(ctx, proc.ID)
		if err != nil {
			logging.Debug("log fetch failed, retrying", "process", proc.ID, "error", err)
		} else if len(logs) > offset {
			fresh := logs[offset:]
			offset = len(logs)
			if pattern, ok := matchReady(fresh); ok {
				result.Ready = true
				result.MatchedPattern = pattern
				logging.Info("dev server ready",
					"instance", instanceID, "process", proc.ID, "pattern", pattern)
				return result, nil
			}
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(s.Interval):
		}
	}

	result.TimedOut = true
	logging.Warn("dev server readiness timeout, continuing unverified",
		"instance", instanceID, "process", proc.ID, "budget", s.Budget)
	return result, nil
}

// matchReady tests log text against the readiness signatures in order.
// For a URL match the matched URL itself is reported; phrase matches
// report the phrase.
func matchReady(text string) (string, bool) {
	if url := urlPattern.FindString(text); url != "" {
		return url, true
	}

	lower := strings.ToLower(text)
	for _, phrase := range readyPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return phrase, true
		}
	}
	return "", false
}
