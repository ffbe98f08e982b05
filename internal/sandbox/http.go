package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
)

// defaultHTTPTimeout bounds runner daemon round trips that carry no command
// of their own (health, port, process queries).
const defaultHTTPTimeout = 30 * time.Second

// HTTPClient drives a remote runner daemon over HTTP+JSON. File operations
// ride the exec channel as base64 so the daemon surface stays minimal.
type HTTPClient struct {
	runner  string
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a client for one runner daemon. A nil httpClient
// selects a default with a 30s timeout.
func NewHTTPClient(runner, baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPClient{
		runner:  runner,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

type execPayload struct {
	Cmd       string            `json:"cmd"`
	Cwd       string            `json:"cwd,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	TimeoutMS int64             `json:"timeoutMs,omitempty"`
}

type execReply struct {
	ExitCode   int    `json:"exitCode"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMS int64  `json:"durationMs"`
}

type processReply struct {
	ID    string `json:"id"`
	Alive bool   `json:"alive"`
}

type logsReply struct {
	Logs string `json:"logs"`
}

type portPayload struct {
	Port int    `json:"port"`
	Name string `json:"name,omitempty"`
}

type portReply struct {
	URL string `json:"url"`
}

type portsReply struct {
	Ports []int `json:"ports"`
}

// doJSON performs one request against the runner daemon. Connection-level
// failures map to ErrRunnerUnavailable; non-2xx responses become errors
// carrying the response body.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRunnerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("runner daemon returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *HTTPClient) Exec(ctx context.Context, req ExecRequest) (*ExecResult, error) {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = DefaultExecTimeout
	}

	// The HTTP client timeout must outlast the command budget.
	ctx, cancel := context.WithTimeout(ctx, timeout+defaultHTTPTimeout)
	defer cancel()

	payload := execPayload{
		Cmd:       req.Cmd,
		Cwd:       req.Cwd,
		Env:       req.Env,
		TimeoutMS: timeout.Milliseconds(),
	}

	var reply execReply
	if err := c.doJSON(ctx, http.MethodPost, "/v1/exec", payload, &reply); err != nil {
		return nil, opError("exec", c.runner, err)
	}

	return &ExecResult{
		ExitCode: reply.ExitCode,
		Stdout:   reply.Stdout,
		Stderr:   reply.Stderr,
		Duration: time.Duration(reply.DurationMS) * time.Millisecond,
	}, nil
}

func (c *HTTPClient) WriteFile(ctx context.Context, path string, data []byte) error {
	xferID := uuid.NewString()[:8]
	for _, cmd := range writeFileCommands(path, data, xferID) {
		res, err := c.Exec(ctx, ExecRequest{Cmd: cmd})
		if err != nil {
			return opError("write_file", c.runner, err)
		}
		if !res.Success() {
			return opError("write_file", c.runner,
				fmt.Errorf("command %q exited %d: %s", cmd, res.ExitCode, res.Stderr))
		}
	}
	logging.Debug("wrote file via exec channel", "runner", c.runner, "path", path, "bytes", len(data))
	return nil
}

func (c *HTTPClient) ReadFile(ctx context.Context, path string, maxBytes int) ([]byte, bool, error) {
	res, err := c.Exec(ctx, ExecRequest{Cmd: readFileCommand(path, maxBytes)})
	if err != nil {
		return nil, false, opError("read_file", c.runner, err)
	}
	if !res.Success() {
		return nil, false, opError("read_file", c.runner,
			fmt.Errorf("read %s exited %d: %s", path, res.ExitCode, res.Stderr))
	}

	data, err := decodeBase64Output(res.Stdout)
	if err != nil {
		return nil, false, opError("read_file", c.runner, err)
	}

	if maxBytes > 0 && len(data) > maxBytes {
		return data[:maxBytes], true, nil
	}
	return data, false, nil
}

func (c *HTTPClient) ListFiles(ctx context.Context, path string, recursive bool) ([]FileEntry, error) {
	res, err := c.Exec(ctx, ExecRequest{Cmd: listFilesCommand(path, recursive)})
	if err != nil {
		return nil, opError("list_files", c.runner, err)
	}
	if !res.Success() {
		return nil, opError("list_files", c.runner,
			fmt.Errorf("list %s exited %d: %s", path, res.ExitCode, res.Stderr))
	}
	return parseFindOutput(res.Stdout), nil
}

func (c *HTTPClient) RemovePath(ctx context.Context, path string, recursive bool) error {
	cmd := removePathCommand(path, recursive)
	res, err := c.Exec(ctx, ExecRequest{Cmd: cmd})
	if err != nil {
		return opError("remove_path", c.runner, err)
	}
	if !res.Success() {
		return opError("remove_path", c.runner,
			fmt.Errorf("remove %s exited %d: %s", path, res.ExitCode, res.Stderr))
	}
	return nil
}

func (c *HTTPClient) StartProcess(ctx context.Context, req ExecRequest) (*Process, error) {
	payload := execPayload{Cmd: req.Cmd, Cwd: req.Cwd, Env: req.Env}

	var reply processReply
	if err := c.doJSON(ctx, http.MethodPost, "/v1/processes", payload, &reply); err != nil {
		return nil, opError("start_process", c.runner, err)
	}

	return &Process{ID: reply.ID, Cmd: req.Cmd, Started: time.Now()}, nil
}

func (c *HTTPClient) ProcessLogs(ctx context.Context, processID string) (string, error) {
	var reply logsReply
	err := c.doJSON(ctx, http.MethodGet, "/v1/processes/"+processID+"/logs", nil, &reply)
	if err != nil {
		return "", opError("process_logs", c.runner, err)
	}
	return reply.Logs, nil
}

func (c *HTTPClient) IsProcessAlive(ctx context.Context, processID string) (bool, error) {
	var reply processReply
	err := c.doJSON(ctx, http.MethodGet, "/v1/processes/"+processID, nil, &reply)
	if err != nil {
		return false, opError("process_alive", c.runner, err)
	}
	return reply.Alive, nil
}

func (c *HTTPClient) KillProcess(ctx context.Context, processID string) error {
	err := c.doJSON(ctx, http.MethodDelete, "/v1/processes/"+processID, nil, nil)
	return opError("kill_process", c.runner, err)
}

func (c *HTTPClient) KillAll(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodDelete, "/v1/processes", nil, nil)
	return opError("kill_all", c.runner, err)
}

func (c *HTTPClient) ExposePort(ctx context.Context, port int, name string) (string, error) {
	var reply portReply
	err := c.doJSON(ctx, http.MethodPost, "/v1/ports", portPayload{Port: port, Name: name}, &reply)
	if err != nil {
		return "", opError("expose_port", c.runner, err)
	}
	return reply.URL, nil
}

func (c *HTTPClient) UnexposePort(ctx context.Context, port int) error {
	err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/v1/ports/%d", port), nil, nil)
	return opError("unexpose_port", c.runner, err)
}

func (c *HTTPClient) ExposedPorts(ctx context.Context) ([]int, error) {
	var reply portsReply
	err := c.doJSON(ctx, http.MethodGet, "/v1/ports", nil, &reply)
	if err != nil {
		return nil, opError("exposed_ports", c.runner, err)
	}
	return reply.Ports, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, nil)
	return opError("ping", c.runner, err)
}
