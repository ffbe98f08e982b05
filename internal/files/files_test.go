package files

import (
	"context"
	"testing"

	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
)

const testInstance = "demo-app-1a2b3c4d"

func seedWorkingTree(mock *sandbox.Mock) {
	for p, content := range map[string]string{
		"package.json":               `{"name":"demo-app"}`,
		"wrangler.toml":              `name = "demo-app"`,
		"src/app.ts":                 "export {}",
		"src/components/Button.tsx":  "export const Button = null",
		"public/logo.png":            "\x89PNG",
		"node_modules/react/x.js":    "module.exports = {}",
		"dist/bundle.js":             "!function(){}",
		".wrangler/state/cache.json": "{}",
	} {
		mock.Files[testInstance+"/"+p] = []byte(content)
	}
}

// flatten collects file paths from a tree, depth first.
func flatten(node *FileTreeNode, into map[string]string) {
	if node.Path != "." {
		into[node.Path] = node.Type
	}
	for _, child := range node.Children {
		flatten(child, into)
	}
}

func TestTree(t *testing.T) {
	mock := sandbox.NewMock()
	seedWorkingTree(mock)

	root, err := Tree(context.Background(), mock, testInstance)
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}

	got := make(map[string]string)
	flatten(root, got)

	for _, want := range []string{"package.json", "wrangler.toml", "src", "src/app.ts", "src/components/Button.tsx"} {
		if _, ok := got[want]; !ok {
			t.Errorf("tree missing %q (got %v)", want, got)
		}
	}
	if got["src"] != TypeDirectory {
		t.Errorf("src type = %q, want directory", got["src"])
	}

	for _, banned := range []string{"node_modules/react/x.js", "dist/bundle.js", ".wrangler/state/cache.json", "public/logo.png"} {
		if _, ok := got[banned]; ok {
			t.Errorf("tree should exclude %q", banned)
		}
	}
}

func TestTree_EmptyInstance(t *testing.T) {
	root, err := Tree(context.Background(), sandbox.NewMock(), testInstance)
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}
	if len(root.Children) != 0 {
		t.Errorf("got %d children, want 0", len(root.Children))
	}
}

func TestExcluded(t *testing.T) {
	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"src/app.ts", false, false},
		{"node_modules", true, true},
		{"node_modules/react/index.js", false, true},
		{"src/node_modules/x.js", false, true},
		{"assets/photo.JPG", false, true},
		{"assets/photo.svg", false, false},
		{"dist", true, true},
		{".orange", true, true},
	}

	for _, tt := range tests {
		if got := excluded(tt.path, tt.isDir); got != tt.want {
			t.Errorf("excluded(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestFetch(t *testing.T) {
	mock := sandbox.NewMock()
	seedWorkingTree(mock)

	out, err := Fetch(context.Background(), mock, testInstance, []string{"src/app.ts", "missing.ts"}, false)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// Unreadable paths are skipped, not fatal.
	if len(out) != 1 {
		t.Fatalf("got %d files, want 1", len(out))
	}
	if out[0].Path != "src/app.ts" || out[0].Content != "export {}" {
		t.Errorf("out[0] = %+v", out[0])
	}
}

func TestFetch_EscapeAttemptStaysInside(t *testing.T) {
	mock := sandbox.NewMock()
	mock.Files["secret"] = []byte("runner-level")
	mock.Files[testInstance+"/secret"] = []byte("instance-level")

	out, err := Fetch(context.Background(), mock, testInstance, []string{"../secret"}, false)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(out) != 1 || out[0].Content != "instance-level" {
		t.Errorf("out = %+v, want the instance-scoped file", out)
	}
}

func TestFetch_Redaction(t *testing.T) {
	mock := sandbox.NewMock()
	seedWorkingTree(mock)
	mock.Files[testInstance+"/"+ProtectedManifest] = []byte(`["wrangler.toml", ".dev.vars"]`)

	out, err := Fetch(context.Background(), mock, testInstance, []string{"wrangler.toml", "src/app.ts"}, true)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d files, want 2", len(out))
	}

	if !out[0].Redacted || out[0].Content != RedactedMarker {
		t.Errorf("wrangler.toml should be redacted, got %+v", out[0])
	}
	if out[1].Redacted || out[1].Content != "export {}" {
		t.Errorf("src/app.ts should be untouched, got %+v", out[1])
	}
}

func TestFetch_UnfilteredIgnoresManifest(t *testing.T) {
	mock := sandbox.NewMock()
	seedWorkingTree(mock)
	mock.Files[testInstance+"/"+ProtectedManifest] = []byte(`["wrangler.toml"]`)

	out, err := Fetch(context.Background(), mock, testInstance, []string{"wrangler.toml"}, false)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(out) != 1 || out[0].Redacted {
		t.Errorf("unfiltered fetch must not redact, got %+v", out)
	}
}

func TestFetch_MalformedManifest(t *testing.T) {
	mock := sandbox.NewMock()
	seedWorkingTree(mock)
	mock.Files[testInstance+"/"+ProtectedManifest] = []byte("{broken")

	out, err := Fetch(context.Background(), mock, testInstance, []string{"wrangler.toml"}, true)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(out) != 1 || out[0].Redacted {
		t.Errorf("malformed manifest protects nothing, got %+v", out)
	}
}
