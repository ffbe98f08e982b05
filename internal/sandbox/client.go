package sandbox

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Client is the narrow interface every instance operation goes through.
// Implementations must be safe for concurrent use.
type Client interface {
	// Exec runs a command to completion and returns its result. A non-zero
	// exit code is returned in the result, not as an error.
	Exec(ctx context.Context, req ExecRequest) (*ExecResult, error)

	// WriteFile writes data to a path inside the runner, creating parent
	// directories as needed.
	WriteFile(ctx context.Context, path string, data []byte) error

	// ReadFile reads up to maxBytes from a path. The bool result reports
	// whether the content was truncated. maxBytes <= 0 means no limit.
	ReadFile(ctx context.Context, path string, maxBytes int) ([]byte, bool, error)

	// ListFiles lists a directory. With recursive set, entries for the whole
	// subtree are returned with slash-separated relative paths.
	ListFiles(ctx context.Context, path string, recursive bool) ([]FileEntry, error)

	// RemovePath deletes a file, or a directory tree when recursive is set.
	RemovePath(ctx context.Context, path string, recursive bool) error

	// StartProcess launches a long-running command and returns its handle.
	StartProcess(ctx context.Context, req ExecRequest) (*Process, error)

	// ProcessLogs returns the cumulative combined output of a process.
	ProcessLogs(ctx context.Context, processID string) (string, error)

	// IsProcessAlive reports whether a process is still running.
	IsProcessAlive(ctx context.Context, processID string) (bool, error)

	// KillProcess terminates one background process.
	KillProcess(ctx context.Context, processID string) error

	// KillAll terminates every background process on the runner.
	KillAll(ctx context.Context) error

	// ExposePort makes a port reachable and returns its preview URL.
	ExposePort(ctx context.Context, port int, name string) (string, error)

	// UnexposePort withdraws a previously exposed port.
	UnexposePort(ctx context.Context, port int) error

	// ExposedPorts lists currently exposed ports.
	ExposedPorts(ctx context.Context) ([]int, error)

	// Ping verifies the runner is reachable.
	Ping(ctx context.Context) error
}

// Dialer resolves a runner name to a Client.
type Dialer interface {
	Dial(runnerName string) (Client, error)
}

// HTTPDialer dials remote runner daemons. Pattern must contain one %s,
// replaced with the runner name, e.g. "http://%s.runners.internal:8080".
type HTTPDialer struct {
	Pattern string
	HTTP    *http.Client
}

// Dial returns an HTTPClient for the named runner.
func (d *HTTPDialer) Dial(runnerName string) (Client, error) {
	if !strings.Contains(d.Pattern, "%s") {
		return nil, fmt.Errorf("runner url pattern %q missing %%s", d.Pattern)
	}
	return NewHTTPClient(runnerName, fmt.Sprintf(d.Pattern, runnerName), d.HTTP), nil
}

// LocalDialer dials local runner backends rooted under RunnersDir.
type LocalDialer struct {
	RunnersDir    string
	PreviewDomain string
}

// Dial returns a LocalClient for the named runner.
func (d *LocalDialer) Dial(runnerName string) (Client, error) {
	return NewLocalClient(runnerName, d.RunnersDir, d.PreviewDomain)
}

// MockDialer returns pre-registered mock clients, falling back to a shared
// default. Used by tests.
type MockDialer struct {
	Clients  map[string]*Mock
	Fallback *Mock
}

// NewMockDialer creates a MockDialer with a shared fallback mock.
func NewMockDialer() *MockDialer {
	return &MockDialer{
		Clients:  make(map[string]*Mock),
		Fallback: NewMock(),
	}
}

// Dial returns the mock registered for the runner, or the fallback.
func (d *MockDialer) Dial(runnerName string) (Client, error) {
	if c, ok := d.Clients[runnerName]; ok {
		return c, nil
	}
	if d.Fallback != nil {
		return d.Fallback, nil
	}
	return nil, fmt.Errorf("no mock registered for runner %s", runnerName)
}
