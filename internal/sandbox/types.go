package sandbox

import (
	"errors"
	"fmt"
	"time"
)

// DefaultExecTimeout bounds a single exec call when the request does not
// set its own timeout.
const DefaultExecTimeout = 60 * time.Second

// Sentinel errors returned by runner clients.
var (
	// ErrRunnerUnavailable indicates the runner could not be reached.
	ErrRunnerUnavailable = errors.New("runner unavailable")

	// ErrProcessNotFound indicates an unknown background process id.
	ErrProcessNotFound = errors.New("process not found")

	// ErrTimeout indicates a command exceeded its time budget.
	ErrTimeout = errors.New("command timed out")
)

// Error wraps a runner operation failure with its context.
type Error struct {
	Op     string // operation, e.g. "exec", "write_file"
	Runner string // runner name
	Err    error
}

func (e *Error) Error() string {
	if e.Runner != "" {
		return fmt.Sprintf("sandbox %s (%s): %v", e.Op, e.Runner, e.Err)
	}
	return fmt.Sprintf("sandbox %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// opError builds an *Error for the given operation.
func opError(op, runner string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Runner: runner, Err: err}
}

// ExecRequest describes one command to run inside a runner.
type ExecRequest struct {
	// Cmd is the shell command line. It is passed to sh -c, so callers are
	// responsible for quoting (see the shellquote helpers).
	Cmd string

	// Cwd is the working directory. Empty means the runner default.
	Cwd string

	// Env holds extra environment variables for this command only.
	Env map[string]string

	// Timeout bounds execution. Zero selects DefaultExecTimeout.
	Timeout time.Duration
}

// ExecResult is the outcome of a completed command. A non-zero ExitCode is
// a valid result, not an error.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the command exited zero.
func (r *ExecResult) Success() bool {
	return r.ExitCode == 0
}

// Process is a handle to a background process started inside a runner.
type Process struct {
	ID      string
	Cmd     string
	Started time.Time
}

// FileEntry describes one file or directory inside a runner.
type FileEntry struct {
	Path    string // relative to the listed directory
	Size    int64
	IsDir   bool
	ModTime time.Time
}
