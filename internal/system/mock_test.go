package system

import (
	"context"
	"errors"
	"io/fs"
	"sort"
	"testing"
)

func TestMockFS_ReadWriteFile(t *testing.T) {
	mockFS := NewMockFS()

	content := []byte(`{"id":"demo-app-1a2b3c4d"}`)
	if err := mockFS.WriteFile("/runners/orange-runner-0/instance.json", content, 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	data, err := mockFS.ReadFile("/runners/orange-runner-0/instance.json")
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("ReadFile = %q, want %q", data, content)
	}
}

func TestMockFS_ReadFile_NotExists(t *testing.T) {
	mockFS := NewMockFS()

	if _, err := mockFS.ReadFile("/runners/orange-runner-0/missing.json"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile error = %v, want fs.ErrNotExist", err)
	}
}

func TestMockFS_AddFileRegistersParents(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/runners/orange-runner-3/demo-app-1a2b3c4d/package.json", []byte("{}"), 0644)

	for _, dir := range []string{
		"/runners",
		"/runners/orange-runner-3",
		"/runners/orange-runner-3/demo-app-1a2b3c4d",
	} {
		if !mockFS.IsDir(dir) {
			t.Errorf("IsDir(%q) = false, want true", dir)
		}
	}
}

func TestMockFS_ExistsAndIsDir(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/work/app.zip", []byte("PK"), 0644)
	mockFS.AddDir("/work/template")

	tests := []struct {
		path   string
		exists bool
		isDir  bool
	}{
		{"/work/app.zip", true, false},
		{"/work/template", true, true},
		{"/work/other", false, false},
	}
	for _, tt := range tests {
		if got := mockFS.Exists(tt.path); got != tt.exists {
			t.Errorf("Exists(%q) = %v, want %v", tt.path, got, tt.exists)
		}
		if got := mockFS.IsDir(tt.path); got != tt.isDir {
			t.Errorf("IsDir(%q) = %v, want %v", tt.path, got, tt.isDir)
		}
	}
}

func TestMockFS_Remove(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/tmp/orange-template-1a2b3c4d.zip", []byte("PK"), 0644)

	if err := mockFS.Remove("/tmp/orange-template-1a2b3c4d.zip"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if mockFS.Exists("/tmp/orange-template-1a2b3c4d.zip") {
		t.Error("file should be removed")
	}

	if err := mockFS.Remove("/tmp/orange-template-1a2b3c4d.zip"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Remove missing = %v, want fs.ErrNotExist", err)
	}
}

func TestMockFS_RemoveAll(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/runners/orange-runner-0/src/index.ts", []byte("x"), 0644)
	mockFS.AddFile("/runners/orange-runner-0/package.json", []byte("{}"), 0644)
	mockFS.AddDir("/runners/orange-runner-0/node_modules")
	mockFS.AddFile("/runners/orange-runner-1/package.json", []byte("{}"), 0644)

	if err := mockFS.RemoveAll("/runners/orange-runner-0"); err != nil {
		t.Fatalf("RemoveAll error: %v", err)
	}

	if mockFS.Exists("/runners/orange-runner-0/src/index.ts") {
		t.Error("nested file should be removed")
	}
	if mockFS.Exists("/runners/orange-runner-0/node_modules") {
		t.Error("nested dir should be removed")
	}
	if !mockFS.Exists("/runners/orange-runner-1/package.json") {
		t.Error("sibling runner should be untouched")
	}
}

func TestMockFS_MkdirAll(t *testing.T) {
	mockFS := NewMockFS()

	if err := mockFS.MkdirAll("/runners/orange-runner-2/demo-app-1a2b3c4d", 0755); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}

	for _, dir := range []string{
		"/runners",
		"/runners/orange-runner-2",
		"/runners/orange-runner-2/demo-app-1a2b3c4d",
	} {
		if !mockFS.IsDir(dir) {
			t.Errorf("IsDir(%q) = false, want true", dir)
		}
	}
}

func TestMockFS_ReadDir(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/runners/orange-runner-0/package.json", []byte("{}"), 0644)
	mockFS.AddFile("/runners/orange-runner-0/src/index.ts", []byte("x"), 0644)
	mockFS.AddDir("/runners/orange-runner-0/public")

	entries, err := mockFS.ReadDir("/runners/orange-runner-0")
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}

	names := make([]string, 0, len(entries))
	dirs := make(map[string]bool)
	for _, e := range entries {
		names = append(names, e.Name())
		dirs[e.Name()] = e.IsDir()
	}
	sort.Strings(names)

	want := []string{"package.json", "public", "src"}
	if len(names) != len(want) {
		t.Fatalf("ReadDir names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("ReadDir names = %v, want %v", names, want)
		}
	}
	if dirs["package.json"] {
		t.Error("package.json listed as directory")
	}
	if !dirs["src"] || !dirs["public"] {
		t.Error("src and public should list as directories")
	}
}

func TestMockFS_ReadDir_NotExists(t *testing.T) {
	mockFS := NewMockFS()

	if _, err := mockFS.ReadDir("/runners/orange-runner-9"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadDir error = %v, want fs.ErrNotExist", err)
	}
}

func TestMockFS_ErrorInjection(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.ReadFileErr = fs.ErrPermission

	if _, err := mockFS.ReadFile("/anything"); !errors.Is(err, fs.ErrPermission) {
		t.Errorf("ReadFile error = %v, want fs.ErrPermission", err)
	}
}

func TestMockExecutor_Execute(t *testing.T) {
	exec := NewMockExecutor()
	exec.AddResponse("git", []byte("main\n"), nil)

	output, err := exec.Execute(context.Background(), "git", "branch", "--show-current")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if string(output) != "main\n" {
		t.Errorf("Output = %q, want %q", output, "main\n")
	}

	cmd, ok := exec.LastCommand()
	if !ok {
		t.Fatal("no command recorded")
	}
	if cmd.Name != "git" || len(cmd.Args) != 2 || cmd.Args[0] != "branch" {
		t.Errorf("recorded command = %+v", cmd)
	}
}

func TestMockExecutor_ResponseLookup(t *testing.T) {
	exec := NewMockExecutor()
	exec.Responses["git push"] = MockResponse{Output: []byte("pushed")}
	exec.Responses["git"] = MockResponse{Output: []byte("generic git")}
	exec.DefaultResponse = MockResponse{Output: []byte("fallback")}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"git", []string{"push", "origin", "main"}, "pushed"},
		{"git", []string{"status"}, "generic git"},
		{"git", nil, "generic git"},
		{"zip", []string{"-r", "out.zip", "."}, "fallback"},
	}
	for _, tt := range tests {
		out, err := exec.Execute(context.Background(), tt.name, tt.args...)
		if err != nil {
			t.Fatalf("Execute(%s %v) error: %v", tt.name, tt.args, err)
		}
		if string(out) != tt.want {
			t.Errorf("Execute(%s %v) = %q, want %q", tt.name, tt.args, out, tt.want)
		}
	}
}

func TestMockExecutor_Reset(t *testing.T) {
	exec := NewMockExecutor()
	exec.Execute(context.Background(), "zip", "-r", "out.zip", ".")
	exec.Execute(context.Background(), "git", "init")

	if len(exec.Commands) != 2 {
		t.Fatalf("Commands length = %d, want 2", len(exec.Commands))
	}

	exec.Reset()

	if len(exec.Commands) != 0 {
		t.Errorf("Commands length after reset = %d, want 0", len(exec.Commands))
	}
	if _, ok := exec.LastCommand(); ok {
		t.Error("LastCommand should report nothing after reset")
	}
}

func TestMockExecutor_ExecuteCapture(t *testing.T) {
	exec := NewMockExecutor()
	exec.Responses["npm"] = MockResponse{
		Stdout:   []byte("built\n"),
		Stderr:   []byte("warning: peer dep\n"),
		ExitCode: 1,
	}

	stdout, stderr, code, err := exec.ExecuteCapture(context.Background(), "npm", "run", "build")
	if err != nil {
		t.Fatalf("ExecuteCapture error: %v", err)
	}
	if string(stdout) != "built\n" {
		t.Errorf("Stdout = %q, want %q", stdout, "built\n")
	}
	if string(stderr) != "warning: peer dep\n" {
		t.Errorf("Stderr = %q, want %q", stderr, "warning: peer dep\n")
	}
	if code != 1 {
		t.Errorf("ExitCode = %d, want 1", code)
	}
}

func TestMockExecutor_ExecuteCapture_OutputFallback(t *testing.T) {
	exec := NewMockExecutor()
	exec.AddResponse("sh", []byte("v20.1.0\n"), nil)

	stdout, _, code, err := exec.ExecuteCapture(context.Background(), "sh", "-c", "node --version")
	if err != nil {
		t.Fatalf("ExecuteCapture error: %v", err)
	}
	if string(stdout) != "v20.1.0\n" {
		t.Errorf("Stdout = %q, want %q", stdout, "v20.1.0\n")
	}
	if code != 0 {
		t.Errorf("ExitCode = %d, want 0", code)
	}
}
