// Package template is the client for the template repository: packaged
// project archives in object storage, extracted into runner filesystems on
// first use.
//
// Extraction is idempotent. EnsureExists probes for the template's manifest
// before doing any work, so repeated creates against a warm runner cost one
// shell round trip. Archives travel to the runner over the exec channel and
// are unpacked in place with unzip.
package template

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"

	"github.com/yomna-shousha/orange-build-sub000/internal/errors"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
	"github.com/yomna-shousha/orange-build-sub000/internal/storage"
	"github.com/yomna-shousha/orange-build-sub000/internal/system"
)

// manifestFile is the probe for an already-extracted template. Every
// template ships a wrangler.toml at its root.
const manifestFile = "wrangler.toml"

// Repository fetches template and instance archives from object storage and
// materializes them inside runners.
type Repository struct {
	store storage.ObjectStore
}

// NewRepository creates a Repository backed by the given store.
func NewRepository(store storage.ObjectStore) *Repository {
	return &Repository{store: store}
}

// EnsureExists makes sure the named template is extracted at targetDir on
// the runner. Present manifest means no-op. Returns TemplateNotFound when
// the repository has no such template.
func (r *Repository) EnsureExists(ctx context.Context, c sandbox.Client, name, targetDir string) error {
	probe := path.Join(targetDir, manifestFile)
	if result, err := c.Exec(ctx, sandbox.ExecRequest{Cmd: shellquote.Join("test", "-f", probe)}); err == nil && result.Success() {
		logging.Debug("template already extracted", "template", name, "dir", targetDir)
		return nil
	}

	data, err := r.store.Get(ctx, storage.TemplateKey(name))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errors.TemplateNotFound(name)
		}
		return errors.StorageError("get", err)
	}

	logging.Debug("extracting template", "template", name, "dir", targetDir, "bytes", len(data))
	return extract(ctx, c, data, targetDir)
}

// EnsureInstance restores a saved instance archive into the runner's
// workspace root. Instance archives carry workspace-relative paths (the
// instance directory plus its .orange bookkeeping), so extraction happens
// at the root, not in a subdirectory.
func (r *Repository) EnsureInstance(ctx context.Context, c sandbox.Client, instanceID string) error {
	data, err := r.store.Get(ctx, storage.InstanceKey(instanceID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errors.InstanceNotFound(instanceID)
		}
		return errors.StorageError("get", err)
	}

	logging.Debug("restoring instance archive", "instance", instanceID, "bytes", len(data))
	return extract(ctx, c, data, ".")
}

// extract ships the archive to the runner and unpacks it at dest. The
// transfer file is removed afterwards regardless of outcome.
func extract(ctx context.Context, c sandbox.Client, data []byte, dest string) error {
	tmp := "/tmp/orange-extract-" + uuid.NewString()[:8] + ".zip"

	if err := c.WriteFile(ctx, tmp, data); err != nil {
		return errors.RunnerFailed("archive upload", err)
	}
	defer func() {
		if err := c.RemovePath(ctx, tmp, false); err != nil {
			logging.Debug("failed to remove transfer archive", "path", tmp, "error", err)
		}
	}()

	result, err := c.Exec(ctx, sandbox.ExecRequest{
		Cmd: shellquote.Join("unzip", "-o", "-q", tmp, "-d", dest),
	})
	if err != nil {
		return errors.RunnerFailed("archive extract", err)
	}
	if !result.Success() {
		return errors.RunnerFailed("archive extract",
			fmt.Errorf("unzip exited %d: %s", result.ExitCode, result.Stderr))
	}
	return nil
}

// Publish zips a local directory and stores it as a template archive. The
// zip runs on the host, not in a runner.
func (r *Repository) Publish(ctx context.Context, name, dir string) error {
	fs := system.DefaultFS()
	if !fs.IsDir(dir) {
		return errors.ValidationError(fmt.Sprintf("not a directory: %s", dir))
	}

	tmp := filepath.Join(os.TempDir(), "orange-template-"+uuid.NewString()[:8]+".zip")
	defer func() {
		if err := fs.Remove(tmp); err != nil && fs.Exists(tmp) {
			logging.Debug("failed to remove temp archive", "path", tmp, "error", err)
		}
	}()

	line := fmt.Sprintf("cd %s && zip -r -q %s . -x 'node_modules/*' '.git/*' 'dist/*'",
		shellquote.Join(dir), shellquote.Join(tmp))
	if out, err := system.DefaultExecutor().Execute(ctx, "sh", "-c", line); err != nil {
		return errors.StorageError("pack", fmt.Errorf("%w: %s", err, out))
	}

	data, err := fs.ReadFile(tmp)
	if err != nil {
		return errors.StorageError("pack", err)
	}

	if err := r.store.Put(ctx, storage.TemplateKey(name), data); err != nil {
		return errors.StorageError("put", err)
	}

	logging.Info("template published", "template", name, "bytes", len(data))
	return nil
}

// List returns the names of all published templates, sorted.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	keys, err := r.store.List(ctx, storage.TemplatePrefix())
	if err != nil {
		return nil, errors.StorageError("list", err)
	}

	var names []string
	for _, key := range keys {
		if name := storage.NameFromKey(key); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
