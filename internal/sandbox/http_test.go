package sandbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeRunner implements the runner daemon surface for tests.
type fakeRunner struct {
	t *testing.T

	// exec scripts responses by command substring.
	exec func(payload execPayload) execReply

	processes map[string]processReply
	logs      map[string]string
	ports     map[int]string
}

func newFakeRunner(t *testing.T) (*fakeRunner, *httptest.Server) {
	f := &fakeRunner{
		t:         t,
		processes: make(map[string]processReply),
		logs:      make(map[string]string),
		ports:     make(map[int]string),
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeRunner) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/exec":
		var payload execPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reply := execReply{}
		if f.exec != nil {
			reply = f.exec(payload)
		}
		json.NewEncoder(w).Encode(reply)

	case r.Method == http.MethodPost && r.URL.Path == "/v1/processes":
		json.NewEncoder(w).Encode(processReply{ID: "proc-1", Alive: true})

	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/logs"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/processes/"), "/logs")
		json.NewEncoder(w).Encode(logsReply{Logs: f.logs[id]})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/processes/"):
		id := strings.TrimPrefix(r.URL.Path, "/v1/processes/")
		reply, ok := f.processes[id]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(reply)

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/v1/processes"):
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodPost && r.URL.Path == "/v1/ports":
		var payload portPayload
		json.NewDecoder(r.Body).Decode(&payload)
		url := "https://" + payload.Name + ".preview.test"
		f.ports[payload.Port] = url
		json.NewEncoder(w).Encode(portReply{URL: url})

	case r.Method == http.MethodGet && r.URL.Path == "/v1/ports":
		var ports []int
		for p := range f.ports {
			ports = append(ports, p)
		}
		json.NewEncoder(w).Encode(portsReply{Ports: ports})

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/v1/ports/"):
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodGet && r.URL.Path == "/v1/health":
		w.WriteHeader(http.StatusOK)

	default:
		http.Error(w, "unexpected request: "+r.Method+" "+r.URL.Path, http.StatusNotFound)
	}
}

func TestHTTPClient_Exec(t *testing.T) {
	fake, srv := newFakeRunner(t)
	fake.exec = func(payload execPayload) execReply {
		if payload.Cmd != "npm install" {
			t.Errorf("Cmd = %q, want %q", payload.Cmd, "npm install")
		}
		if payload.Cwd != "my-app" {
			t.Errorf("Cwd = %q, want %q", payload.Cwd, "my-app")
		}
		return execReply{ExitCode: 1, Stdout: "out", Stderr: "err", DurationMS: 42}
	}

	client := NewHTTPClient("orange-runner-0", srv.URL, nil)
	res, err := client.Exec(context.Background(), ExecRequest{Cmd: "npm install", Cwd: "my-app"})
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}

	// Non-zero exit is a result, not an error.
	if res.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", res.ExitCode)
	}
	if res.Stdout != "out" || res.Stderr != "err" {
		t.Errorf("streams = %q/%q, want out/err", res.Stdout, res.Stderr)
	}
	if res.Success() {
		t.Error("Success() should be false for exit 1")
	}
}

func TestHTTPClient_Exec_RunnerDown(t *testing.T) {
	client := NewHTTPClient("orange-runner-0", "http://127.0.0.1:1", nil)

	_, err := client.Exec(context.Background(), ExecRequest{Cmd: "true"})
	if err == nil {
		t.Fatal("expected error for unreachable runner")
	}
	if !strings.Contains(err.Error(), "runner unavailable") {
		t.Errorf("error should wrap ErrRunnerUnavailable, got %v", err)
	}

	var sandboxErr *Error
	if !errors.As(err, &sandboxErr) {
		t.Fatalf("error should be *Error, got %T", err)
	}
	if sandboxErr.Op != "exec" || sandboxErr.Runner != "orange-runner-0" {
		t.Errorf("Error context = %s/%s, want exec/orange-runner-0", sandboxErr.Op, sandboxErr.Runner)
	}
}

func TestHTTPClient_WriteReadFile(t *testing.T) {
	content := []byte("name = \"my-app\"\n")
	files := make(map[string][]byte)
	var pending strings.Builder

	fake, srv := newFakeRunner(t)
	fake.exec = func(payload execPayload) execReply {
		cmd := payload.Cmd
		switch {
		case strings.HasPrefix(cmd, "mkdir") || strings.HasPrefix(cmd, "rm -f"):
			return execReply{}
		case strings.HasPrefix(cmd, "printf"):
			// Extract the quoted base64 chunk.
			parts := strings.SplitN(cmd, "'", 3)
			if len(parts) < 3 {
				// Unquoted single-word chunk.
				fields := strings.Fields(cmd)
				pending.WriteString(fields[2])
				return execReply{}
			}
			pending.WriteString(parts[1])
			return execReply{}
		case strings.Contains(cmd, "base64 -d"):
			data, err := base64.StdEncoding.DecodeString(pending.String())
			if err != nil {
				return execReply{ExitCode: 1, Stderr: err.Error()}
			}
			files["my-app/wrangler.toml"] = data
			pending.Reset()
			return execReply{}
		case strings.Contains(cmd, "base64 <") || strings.Contains(cmd, "| base64"):
			return execReply{Stdout: base64.StdEncoding.EncodeToString(files["my-app/wrangler.toml"])}
		}
		return execReply{ExitCode: 127, Stderr: "unexpected: " + cmd}
	}

	client := NewHTTPClient("orange-runner-0", srv.URL, nil)
	ctx := context.Background()

	if err := client.WriteFile(ctx, "my-app/wrangler.toml", content); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if string(files["my-app/wrangler.toml"]) != string(content) {
		t.Fatalf("runner file = %q, want %q", files["my-app/wrangler.toml"], content)
	}

	got, truncated, err := client.ReadFile(ctx, "my-app/wrangler.toml", 0)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if truncated {
		t.Error("unbounded read should not truncate")
	}
	if string(got) != string(content) {
		t.Errorf("ReadFile = %q, want %q", got, content)
	}
}

func TestHTTPClient_ReadFile_Truncation(t *testing.T) {
	fake, srv := newFakeRunner(t)
	fake.exec = func(payload execPayload) execReply {
		// head -c 6 of "0123456789" is "012345".
		return execReply{Stdout: base64.StdEncoding.EncodeToString([]byte("012345"))}
	}

	client := NewHTTPClient("orange-runner-0", srv.URL, nil)
	data, truncated, err := client.ReadFile(context.Background(), "big.log", 5)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !truncated {
		t.Error("read past maxBytes should report truncation")
	}
	if string(data) != "01234" {
		t.Errorf("data = %q, want %q", data, "01234")
	}
}

func TestHTTPClient_ProcessLifecycle(t *testing.T) {
	fake, srv := newFakeRunner(t)
	fake.processes["proc-1"] = processReply{ID: "proc-1", Alive: true}
	fake.logs["proc-1"] = "VITE ready in 300 ms\n"

	client := NewHTTPClient("orange-runner-0", srv.URL, nil)
	ctx := context.Background()

	proc, err := client.StartProcess(ctx, ExecRequest{Cmd: "npm run dev"})
	if err != nil {
		t.Fatalf("StartProcess failed: %v", err)
	}
	if proc.ID != "proc-1" {
		t.Errorf("ID = %q, want proc-1", proc.ID)
	}

	alive, err := client.IsProcessAlive(ctx, "proc-1")
	if err != nil {
		t.Fatalf("IsProcessAlive failed: %v", err)
	}
	if !alive {
		t.Error("process should be alive")
	}

	logs, err := client.ProcessLogs(ctx, "proc-1")
	if err != nil {
		t.Fatalf("ProcessLogs failed: %v", err)
	}
	if !strings.Contains(logs, "ready in") {
		t.Errorf("logs = %q, want ready line", logs)
	}

	if err := client.KillProcess(ctx, "proc-1"); err != nil {
		t.Fatalf("KillProcess failed: %v", err)
	}
	if err := client.KillAll(ctx); err != nil {
		t.Fatalf("KillAll failed: %v", err)
	}
}

func TestHTTPClient_Ports(t *testing.T) {
	_, srv := newFakeRunner(t)
	client := NewHTTPClient("orange-runner-0", srv.URL, nil)
	ctx := context.Background()

	url, err := client.ExposePort(ctx, 8003, "my-app-1a2b3c4d")
	if err != nil {
		t.Fatalf("ExposePort failed: %v", err)
	}
	if url != "https://my-app-1a2b3c4d.preview.test" {
		t.Errorf("url = %q", url)
	}

	ports, err := client.ExposedPorts(ctx)
	if err != nil {
		t.Fatalf("ExposedPorts failed: %v", err)
	}
	if len(ports) != 1 || ports[0] != 8003 {
		t.Errorf("ports = %v, want [8003]", ports)
	}

	if err := client.UnexposePort(ctx, 8003); err != nil {
		t.Fatalf("UnexposePort failed: %v", err)
	}
}

func TestHTTPClient_Ping(t *testing.T) {
	_, srv := newFakeRunner(t)
	client := NewHTTPClient("orange-runner-0", srv.URL, nil)

	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestHTTPDialer(t *testing.T) {
	d := &HTTPDialer{Pattern: "http://%s.runners.internal:8080"}

	client, err := d.Dial("orange-runner-3")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	httpClient, ok := client.(*HTTPClient)
	if !ok {
		t.Fatalf("client type = %T, want *HTTPClient", client)
	}
	if httpClient.baseURL != "http://orange-runner-3.runners.internal:8080" {
		t.Errorf("baseURL = %q", httpClient.baseURL)
	}
}

func TestHTTPDialer_BadPattern(t *testing.T) {
	d := &HTTPDialer{Pattern: "http://static:8080"}
	if _, err := d.Dial("orange-runner-0"); err == nil {
		t.Errorf("expected error for pattern without %%s")
	}
}
