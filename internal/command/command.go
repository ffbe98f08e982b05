// Package command runs shell commands scoped to an instance's working
// directory.
//
// A non-zero exit is a result, not an error: it is recorded in the
// instance's runtime error log and handed back to the caller with its
// output intact. Only a transport failure (runner unreachable, timeout
// machinery broken) surfaces as a Go error.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/yomna-shousha/orange-build-sub000/internal/errlog"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
)

// Run executes cmd in the instance's working directory. Zero timeout
// selects the client default. Non-zero exit codes are recorded to the
// instance error log best-effort before the result is returned.
func Run(ctx context.Context, c sandbox.Client, instanceID, cmd string, timeout time.Duration) (*sandbox.ExecResult, error) {
	logging.Debug("executing instance command", "instance", instanceID, "cmd", cmd)

	result, err := c.Exec(ctx, sandbox.ExecRequest{
		Cmd:     cmd,
		Cwd:     instanceID,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute command: %w", err)
	}

	if !result.Success() {
		logging.Debug("instance command exited non-zero",
			"instance", instanceID, "cmd", cmd, "exitCode", result.ExitCode)
		if rerr := errlog.Record(ctx, c, instanceID, errlog.FromExec(cmd, result)); rerr != nil {
			logging.Warn("failed to record command failure",
				"instance", instanceID, "error", rerr)
		}
	}

	return result, nil
}
