package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetup_HandlerSelection(t *testing.T) {
	tests := []struct {
		name string
		json bool
		want string
	}{
		{name: "text handler", json: false, want: "msg="},
		{name: "json handler", json: true, want: `"msg"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Setup(false, tt.json, &buf)

			Info("dialing runner", "runner", "orange-runner-2")

			out := buf.String()
			if !strings.Contains(out, "dialing runner") {
				t.Errorf("output missing message: %s", out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q missing handler marker %q", out, tt.want)
			}
		})
	}
}

func TestSetup_DebugGating(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		visible bool
	}{
		{name: "verbose shows debug", verbose: true, visible: true},
		{name: "quiet hides debug", verbose: false, visible: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Setup(tt.verbose, false, &buf)

			if Verbose != tt.verbose {
				t.Errorf("Verbose = %v, want %v", Verbose, tt.verbose)
			}

			Debug("descriptor cache miss", "instance", "demo-app-1a2b3c4d")

			got := strings.Contains(buf.String(), "descriptor cache miss")
			if got != tt.visible {
				t.Errorf("debug line visible = %v, want %v (output: %s)", got, tt.visible, buf.String())
			}
		})
	}
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	Setup(true, false, &buf)

	Debug("probe sent")
	Info("instance ready")
	Warn("readiness timeout")
	Error("runner unreachable")

	out := buf.String()
	for _, msg := range []string{"probe sent", "instance ready", "readiness timeout", "runner unreachable"} {
		if !strings.Contains(out, msg) {
			t.Errorf("output missing %q: %s", msg, out)
		}
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, false, &buf)

	logger := With("instance", "demo-app-1a2b3c4d")
	if logger == nil {
		t.Fatal("With() returned nil")
	}

	logger.Info("setup step complete", "step", "install-deps")

	out := buf.String()
	if !strings.Contains(out, "setup step complete") {
		t.Errorf("output missing message: %s", out)
	}
	if !strings.Contains(out, "demo-app-1a2b3c4d") {
		t.Errorf("output missing bound attribute: %s", out)
	}
}

func TestSetup_NilWriterFallsBackToStderr(t *testing.T) {
	Setup(false, false, nil)

	if Logger == nil {
		t.Fatal("Logger is nil after Setup with nil writer")
	}
}
