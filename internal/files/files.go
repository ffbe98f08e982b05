// Package files builds navigable file trees of instance working
// directories and fetches file contents with redaction support.
//
// Trees are rebuilt on demand from a recursive listing and never persisted.
// Dependency, VCS, and build output directories are excluded, as are binary
// assets, so the tree stays navigable for editors and agents.
package files

import (
	"context"
	"encoding/json"
	"path"
	"sort"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/yomna-shousha/orange-build-sub000/internal/errors"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
)

// Node types.
const (
	TypeFile      = "file"
	TypeDirectory = "directory"
)

// RedactedMarker replaces protected file content in filtered fetches.
const RedactedMarker = "[redacted]"

// ProtectedManifest is the template-provided list of do-not-touch paths,
// relative to the instance root.
const ProtectedManifest = "do-not-touch.json"

// maxFetchBytes caps a single fetched file.
const maxFetchBytes = 1 << 20

// excludedDirs are never descended into.
var excludedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	".wrangler":    true,
	".cache":       true,
	".orange":      true,
}

// binaryExts are omitted from trees: assets, not code.
var binaryExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".webp": true, ".avif": true, ".woff": true, ".woff2": true, ".ttf": true,
	".eot": true, ".otf": true, ".zip": true, ".gz": true, ".tar": true,
	".mp3": true, ".mp4": true, ".webm": true, ".wasm": true, ".pdf": true,
}

// FileTreeNode is one node of an instance file tree. Paths are relative to
// the instance root.
type FileTreeNode struct {
	Path     string          `json:"path"`
	Type     string          `json:"type"`
	Children []*FileTreeNode `json:"children,omitempty"`
}

// FileContent is one fetched file.
type FileContent struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Redacted  bool   `json:"redacted,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Tree lists an instance's working directory into a tree rooted at ".".
func Tree(ctx context.Context, c sandbox.Client, instanceID string) (*FileTreeNode, error) {
	entries, err := c.ListFiles(ctx, instanceID, true)
	if err != nil {
		return nil, errors.RunnerFailed("list files", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	root := &FileTreeNode{Path: ".", Type: TypeDirectory}
	index := map[string]*FileTreeNode{"": root}

	for _, entry := range entries {
		if excluded(entry.Path, entry.IsDir) {
			continue
		}

		node := &FileTreeNode{Path: entry.Path, Type: TypeFile}
		if entry.IsDir {
			node.Type = TypeDirectory
			index[entry.Path] = node
		}

		parent := ensureDir(index, parentOf(entry.Path))
		parent.Children = append(parent.Children, node)
	}

	return root, nil
}

// excluded reports whether a listing entry stays out of the tree.
func excluded(relPath string, isDir bool) bool {
	for _, seg := range strings.Split(relPath, "/") {
		if excludedDirs[seg] {
			return true
		}
	}
	if !isDir && binaryExts[strings.ToLower(path.Ext(relPath))] {
		return true
	}
	return false
}

// parentOf returns the parent directory path, "" for root-level entries.
func parentOf(relPath string) string {
	if idx := strings.LastIndex(relPath, "/"); idx >= 0 {
		return relPath[:idx]
	}
	return ""
}

// ensureDir returns the node for a directory path, creating intermediate
// directory nodes when the listing did not emit them.
func ensureDir(index map[string]*FileTreeNode, dirPath string) *FileTreeNode {
	if node, ok := index[dirPath]; ok {
		return node
	}

	node := &FileTreeNode{Path: dirPath, Type: TypeDirectory}
	index[dirPath] = node

	parent := ensureDir(index, parentOf(dirPath))
	parent.Children = append(parent.Children, node)
	return node
}

// Fetch reads the given instance-relative paths. With filtered set, paths
// named in the instance's do-not-touch manifest come back with their
// content replaced by RedactedMarker. Unreadable paths are skipped, not
// fatal: a fetch is a best-effort snapshot.
func Fetch(ctx context.Context, c sandbox.Client, instanceID string, paths []string, filtered bool) ([]FileContent, error) {
	var protected map[string]bool
	if filtered {
		protected = loadProtected(ctx, c, instanceID)
	}

	var out []FileContent
	for _, p := range paths {
		rel := strings.TrimPrefix(path.Clean("/"+p), "/")
		if rel == "" || rel == "." {
			continue
		}

		full, err := securejoin.SecureJoin(instanceID, rel)
		if err != nil {
			logging.Warn("skipping unjoinable path", "instance", instanceID, "path", p, "error", err)
			continue
		}

		if filtered && protected[rel] {
			out = append(out, FileContent{Path: rel, Content: RedactedMarker, Redacted: true})
			continue
		}

		data, truncated, err := c.ReadFile(ctx, full, maxFetchBytes)
		if err != nil {
			logging.Debug("skipping unreadable file", "instance", instanceID, "path", rel, "error", err)
			continue
		}
		out = append(out, FileContent{Path: rel, Content: string(data), Truncated: truncated})
	}

	return out, nil
}

// loadProtected reads the do-not-touch manifest. Missing or malformed
// manifests mean nothing is protected.
func loadProtected(ctx context.Context, c sandbox.Client, instanceID string) map[string]bool {
	manifestPath, err := securejoin.SecureJoin(instanceID, ProtectedManifest)
	if err != nil {
		return nil
	}

	data, _, err := c.ReadFile(ctx, manifestPath, maxFetchBytes)
	if err != nil {
		return nil
	}

	var listed []string
	if err := json.Unmarshal(data, &listed); err != nil {
		logging.Warn("malformed do-not-touch manifest", "instance", instanceID, "error", err)
		return nil
	}

	protected := make(map[string]bool, len(listed))
	for _, p := range listed {
		protected[strings.TrimPrefix(path.Clean("/"+p), "/")] = true
	}
	return protected
}
