package supervise

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
)

func fastSupervisor(budget time.Duration) *Supervisor {
	s := New(budget)
	s.Interval = time.Millisecond
	return s
}

func TestStart_ReadyOnURL(t *testing.T) {
	mock := sandbox.NewMock()
	mock.AddProcess("proc-1", "  VITE v5.2.0  ready in 321 ms\n\n  ➜  Local:   http://localhost:8006/\n", true)

	result, err := fastSupervisor(time.Second).Start(context.Background(), mock, "demo-app-1a2b3c4d", 8006, Options{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if !result.Ready || result.TimedOut {
		t.Errorf("result = %+v, want ready", result)
	}
	// The URL is the most authoritative signal and wins over "ready in".
	if result.MatchedPattern != "http://localhost:8006" {
		t.Errorf("pattern = %q, want the matched URL", result.MatchedPattern)
	}
	if result.Process == nil || result.Process.ID == "" {
		t.Error("process handle missing")
	}
	if result.Port != 8006 {
		t.Errorf("port = %d, want 8006", result.Port)
	}
}

func TestStart_ReadyOnPhrase(t *testing.T) {
	mock := sandbox.NewMock()
	mock.AddProcess("proc-1", "webpack 5.91.0 compiled successfully in 2183 ms\n", true)

	result, err := fastSupervisor(time.Second).Start(context.Background(), mock, "demo-app-1a2b3c4d", 8006, Options{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !result.Ready || result.MatchedPattern != "compiled successfully" {
		t.Errorf("result = %+v", result)
	}
}

func TestStart_OffsetTracking(t *testing.T) {
	mock := sandbox.NewMock()
	mock.AddProcess("proc-1", "starting dev server...\n", true)

	go func() {
		time.Sleep(20 * time.Millisecond)
		mock.SetProcessLogs("proc-1", "starting dev server...\nserver running at port 8006\n")
	}()

	result, err := fastSupervisor(2*time.Second).Start(context.Background(), mock, "demo-app-1a2b3c4d", 8006, Options{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !result.Ready || result.MatchedPattern != "server running" {
		t.Errorf("result = %+v, want readiness from fresh log bytes", result)
	}
	if polls := len(mock.Calls("ProcessLogs")); polls < 2 {
		t.Errorf("got %d log fetches, want repeated polling", polls)
	}
}

func TestStart_Timeout(t *testing.T) {
	mock := sandbox.NewMock()
	mock.AddProcess("proc-1", "installing something forever...\n", true)

	result, err := fastSupervisor(20*time.Millisecond).Start(context.Background(), mock, "demo-app-1a2b3c4d", 8006, Options{})
	if err != nil {
		t.Fatalf("timeout must not be an error: %v", err)
	}

	if result.Ready || !result.TimedOut {
		t.Errorf("result = %+v, want timed out", result)
	}
	// Degraded, not failed: the handle is still usable.
	if result.Process == nil {
		t.Error("process handle must survive a readiness timeout")
	}
}

func TestStart_LogErrorsSwallowed(t *testing.T) {
	mock := sandbox.NewMock()
	mock.LogsErr = errors.New("log endpoint flaking")

	result, err := fastSupervisor(20*time.Millisecond).Start(context.Background(), mock, "demo-app-1a2b3c4d", 8006, Options{})
	if err != nil {
		t.Fatalf("log fetch errors must be swallowed: %v", err)
	}
	if !result.TimedOut {
		t.Errorf("result = %+v, want timeout after swallowed errors", result)
	}
}

func TestStart_StartFailure(t *testing.T) {
	mock := sandbox.NewMock()
	mock.StartErr = errors.New("runner rejected the process")

	_, err := fastSupervisor(time.Second).Start(context.Background(), mock, "demo-app-1a2b3c4d", 8006, Options{})
	if err == nil {
		t.Fatal("a failed process start is fatal")
	}
}

func TestStart_UsesInstanceDirAndCommand(t *testing.T) {
	mock := sandbox.NewMock()
	mock.AddProcess("proc-1", "ready in 10ms", true)

	_, err := fastSupervisor(time.Second).Start(context.Background(), mock, "demo-app-1a2b3c4d", 8006, Options{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	starts := mock.Calls("StartProcess")
	if len(starts) != 1 {
		t.Fatalf("got %d starts, want 1", len(starts))
	}
	if starts[0].Args[0] != "npm run dev -- --port 8006" {
		t.Errorf("cmd = %q", starts[0].Args[0])
	}
	if starts[0].Args[1] != "demo-app-1a2b3c4d" {
		t.Errorf("cwd = %q, want instance dir", starts[0].Args[1])
	}
}

func TestMatchReady_Order(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"vite", "➜  Local:   http://localhost:5173/", "http://localhost:5173", true},
		{"next", "ready - started server on 0.0.0.0:3000, url: http://0.0.0.0:3000", "http://0.0.0.0:3000", true},
		{"ipv6", "Listening on http://[::1]:8080", "http://[::1]:8080", true},
		{"wrangler", "Ready on http://127.0.0.1:8787", "http://127.0.0.1:8787", true},
		{"phrase only", "VITE ready in 250 ms", "ready in", true},
		{"listening", "Server listening on port 4000", "listening on", true},
		{"case fold", "SERVER RUNNING", "server running", true},
		{"noise", "Compiling modules 34/120", "", false},
		{"external url ignored", "fetching https://registry.npmjs.org:443", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchReady(tt.text)
			if ok != tt.ok || got != tt.want {
				t.Errorf("matchReady(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.ok)
			}
		})
	}
}
