// Package errlog is the per-instance runtime error store: a bounded,
// append-only log of execution and compile failures, persisted as one JSON
// file per instance on its runner.
//
// Entries come from failed command executions, setup steps, and the
// in-sandbox error capture agent. The store keeps at most MaxEntries
// entries; recording beyond that evicts the oldest first.
package errlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
)

// MaxEntries caps the per-instance error log. FIFO eviction.
const MaxEntries = 100

// Severity levels for recorded errors.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
	SeverityFatal   = "fatal"
)

// ErrorDir is the workspace-relative directory holding error logs.
const ErrorDir = ".orange/errors"

// Path returns the workspace-relative error log path for an instance.
func Path(instanceID string) string {
	return ErrorDir + "/" + instanceID + ".json"
}

// RuntimeError is one recorded failure.
type RuntimeError struct {
	Timestamp    string `json:"timestamp"`
	Message      string `json:"message"`
	Stack        string `json:"stack,omitempty"`
	Severity     string `json:"severity"`
	Source       string `json:"source"`
	FilePath     string `json:"filePath,omitempty"`
	LineNumber   int    `json:"lineNumber,omitempty"`
	ColumnNumber int    `json:"columnNumber,omitempty"`
	RawOutput    string `json:"rawOutput,omitempty"`
}

// New returns an error-severity entry with the timestamp stamped.
func New(source, message string) RuntimeError {
	return RuntimeError{
		Timestamp: time.Now().Format(time.RFC3339),
		Message:   message,
		Severity:  SeverityError,
		Source:    source,
	}
}

// FromExec builds an entry for a command that exited non-zero. Stderr
// becomes the message when present, the full output is kept raw.
func FromExec(cmd string, result *sandbox.ExecResult) RuntimeError {
	msg := result.Stderr
	if msg == "" {
		msg = result.Stdout
	}
	if msg == "" {
		msg = fmt.Sprintf("command exited %d", result.ExitCode)
	}

	entry := New("command", msg)
	entry.RawOutput = fmt.Sprintf("$ %s\nexit %d\n%s%s", cmd, result.ExitCode, result.Stdout, result.Stderr)
	return entry
}

// Record appends an entry to an instance's error log, evicting the oldest
// entries beyond MaxEntries. An unreadable or corrupt log is reset rather
// than propagated: error capture must not fail the operation that produced
// the error.
func Record(ctx context.Context, c sandbox.Client, instanceID string, entry RuntimeError) error {
	entries, err := List(ctx, c, instanceID)
	if err != nil {
		logging.Warn("resetting unreadable error log", "instance", instanceID, "error", err)
		entries = nil
	}

	entries = append(entries, entry)
	if len(entries) > MaxEntries {
		entries = entries[len(entries)-MaxEntries:]
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal error log: %w", err)
	}
	if err := c.WriteFile(ctx, Path(instanceID), data); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}
	return nil
}

// List returns all recorded entries for an instance, oldest first. A
// missing log file means no errors: empty slice, nil error.
func List(ctx context.Context, c sandbox.Client, instanceID string) ([]RuntimeError, error) {
	data, _, err := c.ReadFile(ctx, Path(instanceID), 0)
	if err != nil {
		return nil, nil
	}

	var entries []RuntimeError
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("corrupt error log for %s: %w", instanceID, err)
	}
	return entries, nil
}

// Clear removes an instance's error log.
func Clear(ctx context.Context, c sandbox.Client, instanceID string) error {
	if err := c.RemovePath(ctx, Path(instanceID), false); err != nil {
		return fmt.Errorf("failed to clear error log: %w", err)
	}
	return nil
}
