package sandbox

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockCall records one Client method invocation.
type MockCall struct {
	Method string
	Args   []string
}

// ExecRule scripts the result for commands containing Match. Rules are
// evaluated in registration order; the first match wins.
type ExecRule struct {
	Match  string
	Result ExecResult
	Err    error
}

// mockProc is one scripted background process.
type mockProc struct {
	logs  string
	alive bool
}

// Mock implements Client for tests. All methods are safe for concurrent use
// and every call is recorded in CallLog.
type Mock struct {
	mu sync.Mutex

	// CallLog records all invocations in order.
	CallLog []MockCall

	// Files is the fake runner filesystem, keyed by workspace-relative path.
	Files map[string][]byte

	// Rules script Exec results; see ExecRule.
	Rules []ExecRule

	// DefaultExec is returned when no rule matches.
	DefaultExec ExecResult

	procs   map[string]*mockProc
	procSeq int

	ports map[int]string

	// Error injection, one per operation.
	ExecErr   error
	WriteErr  error
	ReadErr   error
	ListErr   error
	RemoveErr error
	StartErr  error
	LogsErr   error
	AliveErr  error
	KillErr   error
	ExposeErr error
	PingErr   error
}

// NewMock creates an empty Mock.
func NewMock() *Mock {
	return &Mock{
		Files: make(map[string][]byte),
		procs: make(map[string]*mockProc),
		ports: make(map[int]string),
	}
}

// AddRule scripts an exec result for commands containing match.
func (m *Mock) AddRule(match string, result ExecResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rules = append(m.Rules, ExecRule{Match: match, Result: result})
}

// AddRuleErr scripts an exec error for commands containing match.
func (m *Mock) AddRuleErr(match string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rules = append(m.Rules, ExecRule{Match: match, Err: err})
}

// AddProcess registers a scripted background process.
func (m *Mock) AddProcess(id, logs string, alive bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.procs[id] = &mockProc{logs: logs, alive: alive}
}

// SetProcessLogs replaces the logs of a scripted process.
func (m *Mock) SetProcessLogs(id, logs string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.procs[id]; ok {
		p.logs = logs
	}
}

// SetProcessAlive flips the liveness of a scripted process.
func (m *Mock) SetProcessAlive(id string, alive bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.procs[id]; ok {
		p.alive = alive
	}
}

// Calls returns the method names recorded so far.
func (m *Mock) Calls(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockCall
	for _, c := range m.CallLog {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (m *Mock) record(method string, args ...string) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

func (m *Mock) Exec(ctx context.Context, req ExecRequest) (*ExecResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Exec", req.Cmd, req.Cwd)

	if m.ExecErr != nil {
		return nil, m.ExecErr
	}

	for _, rule := range m.Rules {
		if strings.Contains(req.Cmd, rule.Match) {
			if rule.Err != nil {
				return nil, rule.Err
			}
			result := rule.Result
			return &result, nil
		}
	}

	result := m.DefaultExec
	return &result, nil
}

func (m *Mock) WriteFile(ctx context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("WriteFile", path)

	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Files[path] = append([]byte(nil), data...)
	return nil
}

func (m *Mock) ReadFile(ctx context.Context, path string, maxBytes int) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ReadFile", path)

	if m.ReadErr != nil {
		return nil, false, m.ReadErr
	}

	data, ok := m.Files[path]
	if !ok {
		return nil, false, &Error{Op: "read_file", Err: fmt.Errorf("no such file: %s", path)}
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return append([]byte(nil), data[:maxBytes]...), true, nil
	}
	return append([]byte(nil), data...), false, nil
}

func (m *Mock) ListFiles(ctx context.Context, path string, recursive bool) ([]FileEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListFiles", path)

	if m.ListErr != nil {
		return nil, m.ListErr
	}

	prefix := strings.TrimSuffix(path, "/") + "/"
	if path == "" || path == "." {
		prefix = ""
	}

	seen := make(map[string]FileEntry)
	for p, data := range m.Files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rel := strings.TrimPrefix(p, prefix)
		if rel == "" {
			continue
		}

		if idx := strings.Index(rel, "/"); idx >= 0 && !recursive {
			dir := rel[:idx]
			seen[dir] = FileEntry{Path: dir, IsDir: true}
			continue
		}

		if recursive {
			// Emit intermediate directories once.
			parts := strings.Split(rel, "/")
			for i := 1; i < len(parts); i++ {
				dir := strings.Join(parts[:i], "/")
				seen[dir] = FileEntry{Path: dir, IsDir: true}
			}
		}
		seen[rel] = FileEntry{Path: rel, Size: int64(len(data))}
	}

	out := make([]FileEntry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (m *Mock) RemovePath(ctx context.Context, path string, recursive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RemovePath", path)

	if m.RemoveErr != nil {
		return m.RemoveErr
	}

	delete(m.Files, path)
	if recursive {
		prefix := strings.TrimSuffix(path, "/") + "/"
		for p := range m.Files {
			if strings.HasPrefix(p, prefix) {
				delete(m.Files, p)
			}
		}
	}
	return nil
}

func (m *Mock) StartProcess(ctx context.Context, req ExecRequest) (*Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("StartProcess", req.Cmd, req.Cwd)

	if m.StartErr != nil {
		return nil, m.StartErr
	}

	m.procSeq++
	id := fmt.Sprintf("proc-%d", m.procSeq)
	if _, ok := m.procs[id]; !ok {
		m.procs[id] = &mockProc{alive: true}
	}
	return &Process{ID: id, Cmd: req.Cmd, Started: time.Now()}, nil
}

func (m *Mock) ProcessLogs(ctx context.Context, processID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ProcessLogs", processID)

	if m.LogsErr != nil {
		return "", m.LogsErr
	}

	p, ok := m.procs[processID]
	if !ok {
		return "", ErrProcessNotFound
	}
	return p.logs, nil
}

func (m *Mock) IsProcessAlive(ctx context.Context, processID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("IsProcessAlive", processID)

	if m.AliveErr != nil {
		return false, m.AliveErr
	}

	p, ok := m.procs[processID]
	if !ok {
		return false, nil
	}
	return p.alive, nil
}

func (m *Mock) KillProcess(ctx context.Context, processID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("KillProcess", processID)

	if m.KillErr != nil {
		return m.KillErr
	}

	if p, ok := m.procs[processID]; ok {
		p.alive = false
	}
	return nil
}

func (m *Mock) KillAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("KillAll")

	if m.KillErr != nil {
		return m.KillErr
	}

	for _, p := range m.procs {
		p.alive = false
	}
	return nil
}

func (m *Mock) ExposePort(ctx context.Context, port int, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ExposePort", fmt.Sprintf("%d", port), name)

	if m.ExposeErr != nil {
		return "", m.ExposeErr
	}

	url := fmt.Sprintf("https://%s.preview.test", name)
	if name == "" {
		url = fmt.Sprintf("https://port-%d.preview.test", port)
	}
	m.ports[port] = url
	return url, nil
}

func (m *Mock) UnexposePort(ctx context.Context, port int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UnexposePort", fmt.Sprintf("%d", port))

	if m.ExposeErr != nil {
		return m.ExposeErr
	}
	delete(m.ports, port)
	return nil
}

func (m *Mock) ExposedPorts(ctx context.Context) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ExposedPorts")

	if m.ExposeErr != nil {
		return nil, m.ExposeErr
	}

	out := make([]int, 0, len(m.ports))
	for p := range m.ports {
		out = append(out, p)
	}
	sort.Ints(out)
	return out, nil
}

func (m *Mock) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Ping")
	return m.PingErr
}
