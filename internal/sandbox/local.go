package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"

	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/system"
)

// LocalClient implements Client against the local machine. Each runner gets
// a root directory under RunnersDir; paths in requests are interpreted
// relative to that root, matching the remote daemon's workspace-relative
// convention.
//
// Background processes are tracked with pid files under .orange/procs so
// separate CLI invocations see the same state.
type LocalClient struct {
	runner        string
	root          string
	previewDomain string

	fs   system.FileSystem
	exec system.CommandExecutor
}

// NewLocalClient creates a local backend rooted at runnersDir/runner.
func NewLocalClient(runner, runnersDir, previewDomain string) (*LocalClient, error) {
	root, err := securejoin.SecureJoin(runnersDir, runner)
	if err != nil {
		return nil, opError("dial", runner, err)
	}

	c := &LocalClient{
		runner:        runner,
		root:          root,
		previewDomain: previewDomain,
		fs:            system.DefaultFS(),
		exec:          system.DefaultExecutor(),
	}

	if err := c.fs.MkdirAll(c.procsDir(), 0o755); err != nil {
		return nil, opError("dial", runner, err)
	}
	return c, nil
}

func (c *LocalClient) procsDir() string {
	return filepath.Join(c.root, ".orange", "procs")
}

func (c *LocalClient) portsFile() string {
	return filepath.Join(c.root, ".orange", "ports.json")
}

// resolve maps a workspace-relative path onto the runner root without
// letting it escape.
func (c *LocalClient) resolve(path string) (string, error) {
	return securejoin.SecureJoin(c.root, path)
}

// shellLine builds the sh invocation for a request, applying env and cwd.
func (c *LocalClient) shellLine(req ExecRequest) (string, error) {
	cwd := c.root
	if req.Cwd != "" {
		resolved, err := c.resolve(req.Cwd)
		if err != nil {
			return "", err
		}
		cwd = resolved
	}

	line := fmt.Sprintf("cd %s && %s", shellquote.Join(cwd), req.Cmd)
	if len(req.Env) > 0 {
		pairs := make([]string, 0, len(req.Env))
		for k, v := range req.Env {
			pairs = append(pairs, k+"="+v)
		}
		sort.Strings(pairs)
		line = shellquote.Join(append([]string{"env"}, pairs...)...) + " sh -c " + shellquote.Join(line)
	}
	return line, nil
}

func (c *LocalClient) Exec(ctx context.Context, req ExecRequest) (*ExecResult, error) {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = DefaultExecTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	line, err := c.shellLine(req)
	if err != nil {
		return nil, opError("exec", c.runner, err)
	}

	start := time.Now()
	stdout, stderr, code, err := c.exec.ExecuteCapture(ctx, "sh", "-c", line)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, opError("exec", c.runner, ErrTimeout)
		}
		return nil, opError("exec", c.runner, err)
	}

	return &ExecResult{
		ExitCode: code,
		Stdout:   string(stdout),
		Stderr:   string(stderr),
		Duration: time.Since(start),
	}, nil
}

func (c *LocalClient) WriteFile(ctx context.Context, path string, data []byte) error {
	resolved, err := c.resolve(path)
	if err != nil {
		return opError("write_file", c.runner, err)
	}
	if err := c.fs.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return opError("write_file", c.runner, err)
	}
	if err := c.fs.WriteFile(resolved, data, 0o644); err != nil {
		return opError("write_file", c.runner, err)
	}
	return nil
}

func (c *LocalClient) ReadFile(ctx context.Context, path string, maxBytes int) ([]byte, bool, error) {
	resolved, err := c.resolve(path)
	if err != nil {
		return nil, false, opError("read_file", c.runner, err)
	}

	data, err := c.fs.ReadFile(resolved)
	if err != nil {
		return nil, false, opError("read_file", c.runner, err)
	}

	if maxBytes > 0 && len(data) > maxBytes {
		return data[:maxBytes], true, nil
	}
	return data, false, nil
}

func (c *LocalClient) ListFiles(ctx context.Context, path string, recursive bool) ([]FileEntry, error) {
	resolved, err := c.resolve(path)
	if err != nil {
		return nil, opError("list_files", c.runner, err)
	}

	var entries []FileEntry
	if err := c.walk(resolved, "", recursive, &entries); err != nil {
		return nil, opError("list_files", c.runner, err)
	}
	return entries, nil
}

func (c *LocalClient) walk(dir, prefix string, recursive bool, entries *[]FileEntry) error {
	dirEntries, err := c.fs.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, de := range dirEntries {
		rel := de.Name()
		if prefix != "" {
			rel = prefix + "/" + de.Name()
		}

		entry := FileEntry{Path: rel, IsDir: de.IsDir()}
		if info, err := de.Info(); err == nil {
			entry.Size = info.Size()
			entry.ModTime = info.ModTime()
		}
		*entries = append(*entries, entry)

		if recursive && de.IsDir() {
			if err := c.walk(filepath.Join(dir, de.Name()), rel, true, entries); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *LocalClient) RemovePath(ctx context.Context, path string, recursive bool) error {
	resolved, err := c.resolve(path)
	if err != nil {
		return opError("remove_path", c.runner, err)
	}

	if recursive {
		err = c.fs.RemoveAll(resolved)
	} else {
		err = c.fs.Remove(resolved)
		if err != nil && errors.Is(err, fs.ErrNotExist) {
			err = nil
		}
	}
	if err != nil {
		return opError("remove_path", c.runner, err)
	}
	return nil
}

func (c *LocalClient) StartProcess(ctx context.Context, req ExecRequest) (*Process, error) {
	id := "proc-" + uuid.NewString()[:8]
	logPath := filepath.Join(c.procsDir(), id+".log")
	pidPath := filepath.Join(c.procsDir(), id+".pid")

	line, err := c.shellLine(req)
	if err != nil {
		return nil, opError("start_process", c.runner, err)
	}

	// Detach with nohup and report the child pid on stdout.
	launcher := fmt.Sprintf("nohup sh -c %s > %s 2>&1 & echo $!",
		shellquote.Join(line), shellquote.Join(logPath))

	out, err := c.exec.Execute(ctx, "sh", "-c", launcher)
	if err != nil {
		return nil, opError("start_process", c.runner, err)
	}

	pid := strings.TrimSpace(string(out))
	if _, convErr := strconv.Atoi(pid); convErr != nil {
		return nil, opError("start_process", c.runner,
			fmt.Errorf("unexpected launcher output %q", pid))
	}

	if err := c.fs.WriteFile(pidPath, []byte(pid), 0o644); err != nil {
		return nil, opError("start_process", c.runner, err)
	}

	logging.Debug("started background process", "runner", c.runner, "id", id, "pid", pid)
	return &Process{ID: id, Cmd: req.Cmd, Started: time.Now()}, nil
}

func (c *LocalClient) pidFor(processID string) (string, error) {
	data, err := c.fs.ReadFile(filepath.Join(c.procsDir(), processID+".pid"))
	if err != nil {
		return "", ErrProcessNotFound
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *LocalClient) ProcessLogs(ctx context.Context, processID string) (string, error) {
	data, err := c.fs.ReadFile(filepath.Join(c.procsDir(), processID+".log"))
	if err != nil {
		return "", opError("process_logs", c.runner, ErrProcessNotFound)
	}
	return string(data), nil
}

func (c *LocalClient) IsProcessAlive(ctx context.Context, processID string) (bool, error) {
	pid, err := c.pidFor(processID)
	if err != nil {
		return false, opError("process_alive", c.runner, err)
	}

	_, _, code, err := c.exec.ExecuteCapture(ctx, "kill", "-0", pid)
	if err != nil {
		return false, opError("process_alive", c.runner, err)
	}
	return code == 0, nil
}

func (c *LocalClient) KillProcess(ctx context.Context, processID string) error {
	pid, err := c.pidFor(processID)
	if err != nil {
		return opError("kill_process", c.runner, err)
	}

	// TERM first, then a KILL for anything that ignored it.
	c.exec.Execute(ctx, "kill", pid)
	c.exec.Execute(ctx, "sh", "-c", fmt.Sprintf("sleep 0.2; kill -9 %s 2>/dev/null || true", pid))

	c.fs.Remove(filepath.Join(c.procsDir(), processID+".pid"))
	return nil
}

func (c *LocalClient) KillAll(ctx context.Context) error {
	entries, err := c.fs.ReadDir(c.procsDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return opError("kill_all", c.runner, err)
	}

	for _, de := range entries {
		if strings.HasSuffix(de.Name(), ".pid") {
			id := strings.TrimSuffix(de.Name(), ".pid")
			if err := c.KillProcess(ctx, id); err != nil {
				logging.Debug("kill during kill_all", "runner", c.runner, "id", id, "error", err)
			}
		}
	}
	return nil
}

func (c *LocalClient) loadPorts() (map[int]string, error) {
	ports := make(map[int]string)
	data, err := c.fs.ReadFile(c.portsFile())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ports, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &ports); err != nil {
		return nil, err
	}
	return ports, nil
}

func (c *LocalClient) savePorts(ports map[int]string) error {
	data, err := json.Marshal(ports)
	if err != nil {
		return err
	}
	return c.fs.WriteFile(c.portsFile(), data, 0o644)
}

func (c *LocalClient) ExposePort(ctx context.Context, port int, name string) (string, error) {
	ports, err := c.loadPorts()
	if err != nil {
		return "", opError("expose_port", c.runner, err)
	}

	url := fmt.Sprintf("http://localhost:%d", port)
	if c.previewDomain != "" && name != "" {
		url = fmt.Sprintf("https://%s.%s", name, c.previewDomain)
	}

	ports[port] = url
	if err := c.savePorts(ports); err != nil {
		return "", opError("expose_port", c.runner, err)
	}
	return url, nil
}

func (c *LocalClient) UnexposePort(ctx context.Context, port int) error {
	ports, err := c.loadPorts()
	if err != nil {
		return opError("unexpose_port", c.runner, err)
	}
	delete(ports, port)
	if err := c.savePorts(ports); err != nil {
		return opError("unexpose_port", c.runner, err)
	}
	return nil
}

func (c *LocalClient) ExposedPorts(ctx context.Context) ([]int, error) {
	ports, err := c.loadPorts()
	if err != nil {
		return nil, opError("exposed_ports", c.runner, err)
	}

	out := make([]int, 0, len(ports))
	for p := range ports {
		out = append(out, p)
	}
	sort.Ints(out)
	return out, nil
}

func (c *LocalClient) Ping(ctx context.Context) error {
	if !c.fs.Exists(c.root) {
		return opError("ping", c.runner, ErrRunnerUnavailable)
	}
	return nil
}
