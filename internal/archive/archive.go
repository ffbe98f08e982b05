// Package archive saves live instances to durable object storage and
// restores them on demand. Archives are zip files holding the instance's
// working tree plus its descriptor and error log, minus dependency, VCS,
// and build-output directories.
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/yomna-shousha/orange-build-sub000/internal/app"
	"github.com/yomna-shousha/orange-build-sub000/internal/audit"
	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/errlog"
	"github.com/yomna-shousha/orange-build-sub000/internal/errors"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/metadata"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
	"github.com/yomna-shousha/orange-build-sub000/internal/storage"
	"github.com/yomna-shousha/orange-build-sub000/internal/template"
)

const buildTimeout = 5 * time.Minute

// packExcludes are instance-relative directories left out of archives.
// node_modules and .git are reconstructed by the resume setup sequence.
var packExcludes = []string{"node_modules/*", ".git/*", ".wrangler/*", "dist/*", ".cache/*"}

// SetupRunner re-runs the instance setup sequence after a restore. The
// lifecycle orchestrator implements it.
type SetupRunner interface {
	ResumeSetup(ctx context.Context, instanceID string) (*metadata.InstanceMetadata, error)
}

// Engine is the save/resume pipeline.
type Engine struct {
	app       *app.App
	meta      *metadata.Store
	templates *template.Repository
	setup     SetupRunner
	audit     *audit.Logger
}

// NewEngine creates an Engine backed by the app's dialer and store.
func NewEngine(a *app.App, setup SetupRunner) *Engine {
	return &Engine{
		app:       a,
		meta:      metadata.NewStore(),
		templates: template.NewRepository(a.Store),
		setup:     setup,
		audit:     audit.NewLogger(a.Paths.EventsDir),
	}
}

// PackResult reports one packing run.
type PackResult struct {
	Data       []byte
	Built      bool
	CompressMS int64
}

// SaveResult reports one save. Compression and upload timings are kept
// separate for observability.
type SaveResult struct {
	Key        string
	Bytes      int
	Built      bool
	CompressMS int64
	UploadMS   int64
}

// ResumeResult reports one resume.
type ResumeResult struct {
	Meta           *metadata.InstanceMetadata
	AlreadyRunning bool
	Restored       bool
	DownloadMS     int64
	SetupMS        int64
}

// archivePath is the runner-local staging path for an instance's archive.
// Keyed by instance id: an instance packs at most once at a time.
func archivePath(instanceID string) string {
	return "/tmp/orange-archive-" + instanceID + ".zip"
}

// packCommand assembles the zip invocation. The descriptor and error log
// are added only when present so a missing error log does not fail the
// pack.
func packCommand(instanceID, dest string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "members=%s; ", shellquote.Join(instanceID))
	fmt.Fprintf(&b, "[ -f %[1]s ] && members=\"$members %[1]s\"; ", shellquote.Join(metadata.DescriptorPath(instanceID)))
	fmt.Fprintf(&b, "[ -f %[1]s ] && members=\"$members %[1]s\"; ", shellquote.Join(errlog.Path(instanceID)))
	fmt.Fprintf(&b, "zip -r -q %s $members", shellquote.Join(dest))
	for _, pattern := range packExcludes {
		fmt.Fprintf(&b, " -x '%s'", path.Join(instanceID, pattern))
	}
	return b.String()
}

// Pack archives an instance's working tree and returns the zip bytes. With
// build set, a failing build aborts the pack: a non-building instance must
// not be archived silently.
func (e *Engine) Pack(ctx context.Context, c sandbox.Client, instanceID string, build bool) (*PackResult, error) {
	res := &PackResult{}

	if build {
		result, err := c.Exec(ctx, sandbox.ExecRequest{
			Cmd:     "npm run build",
			Cwd:     instanceID,
			Timeout: buildTimeout,
		})
		if err != nil {
			return nil, errors.RunnerFailed("build", err)
		}
		if !result.Success() {
			detail := strings.TrimSpace(result.Stderr)
			if detail == "" {
				detail = strings.TrimSpace(result.Stdout)
			}
			return nil, errors.BuildFailed(instanceID, fmt.Errorf("npm run build exited %d: %s", result.ExitCode, detail))
		}
		res.Built = true
	}

	dest := archivePath(instanceID)
	start := time.Now()
	result, err := c.Exec(ctx, sandbox.ExecRequest{Cmd: packCommand(instanceID, dest)})
	if err != nil {
		return nil, errors.RunnerFailed("pack", err)
	}
	if !result.Success() {
		return nil, errors.RunnerFailed("pack", fmt.Errorf("zip exited %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr)))
	}

	defer func() {
		if err := c.RemovePath(ctx, dest, false); err != nil {
			logging.Debug("archive staging cleanup failed", "path", dest, "error", err)
		}
	}()

	data, _, err := c.ReadFile(ctx, dest, 0)
	if err != nil {
		return nil, errors.RunnerFailed("archive read", err)
	}
	res.Data = data
	res.CompressMS = time.Since(start).Milliseconds()
	return res, nil
}

// Save packs an instance and uploads the archive to durable storage under
// instances/<id>.zip.
func (e *Engine) Save(ctx context.Context, instanceID string, build bool) (*SaveResult, error) {
	if err := config.ValidateInstanceID(instanceID); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	if e.app.Store == nil {
		return nil, errors.ConfigError("object storage not configured", nil)
	}
	client, err := e.dial(instanceID)
	if err != nil {
		return nil, err
	}
	if _, err := e.meta.Get(ctx, client, instanceID); err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return nil, errors.InstanceNotFound(instanceID)
		}
		return nil, errors.RunnerFailed("metadata read", err)
	}

	pack, err := e.Pack(ctx, client, instanceID, build)
	if err != nil {
		return nil, err
	}

	key := storage.InstanceKey(instanceID)
	uploadStart := time.Now()
	if err := e.app.Store.Put(ctx, key, pack.Data); err != nil {
		return nil, errors.StorageError("put", err)
	}

	res := &SaveResult{
		Key:        key,
		Bytes:      len(pack.Data),
		Built:      pack.Built,
		CompressMS: pack.CompressMS,
		UploadMS:   time.Since(uploadStart).Milliseconds(),
	}
	logging.Info("instance saved", "instance", instanceID, "key", key, "bytes", res.Bytes,
		"compressMs", res.CompressMS, "uploadMs", res.UploadMS)
	e.event(audit.EventSave, instanceID, fmt.Sprintf("key=%s bytes=%d", key, res.Bytes))
	return res, nil
}

// Resume brings a saved instance back up. A live dev server short-circuits
// to "already running" unless force is set; a missing local descriptor
// triggers a restore from durable storage before setup re-runs.
func (e *Engine) Resume(ctx context.Context, instanceID string, force bool) (*ResumeResult, error) {
	if err := config.ValidateInstanceID(instanceID); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	client, err := e.dial(instanceID)
	if err != nil {
		return nil, err
	}

	res := &ResumeResult{}

	meta, err := e.meta.Get(ctx, client, instanceID)
	switch {
	case err == nil:
		if meta.ProcessID != "" {
			alive, aliveErr := client.IsProcessAlive(ctx, meta.ProcessID)
			if aliveErr != nil {
				logging.Debug("liveness probe failed", "instance", instanceID, "error", aliveErr)
			}
			if alive && !force {
				res.Meta = meta
				res.AlreadyRunning = true
				e.event(audit.EventResume, instanceID, "already running")
				return res, nil
			}
			if alive {
				// Forced restart; stop the stale server first.
				if err := client.KillProcess(ctx, meta.ProcessID); err != nil {
					logging.Warn("stale process kill failed", "instance", instanceID, "error", err)
				}
			}
		}
	case errors.Is(err, metadata.ErrNotFound):
		downloadStart := time.Now()
		if err := e.templates.EnsureInstance(ctx, client, instanceID); err != nil {
			return nil, err
		}
		res.DownloadMS = time.Since(downloadStart).Milliseconds()
		res.Restored = true
	default:
		return nil, errors.RunnerFailed("metadata read", err)
	}

	setupStart := time.Now()
	meta, err = e.setup.ResumeSetup(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	res.Meta = meta
	res.SetupMS = time.Since(setupStart).Milliseconds()

	logging.Info("instance resumed", "instance", instanceID,
		"downloadMs", res.DownloadMS, "setupMs", res.SetupMS, "restored", res.Restored)
	e.event(audit.EventResume, instanceID, fmt.Sprintf("download=%dms setup=%dms", res.DownloadMS, res.SetupMS))
	return res, nil
}

func (e *Engine) dial(instanceID string) (sandbox.Client, error) {
	if e.app.Dialer == nil {
		return nil, errors.ConfigError("no runner backend configured", nil)
	}
	c, err := e.app.DialInstance(instanceID)
	if err != nil {
		return nil, errors.RunnerFailed("dial", err)
	}
	return c, nil
}

func (e *Engine) event(eventType audit.EventType, instanceID, details string) {
	if err := e.audit.LogEvent(eventType, instanceID, details); err != nil {
		logging.Debug("audit write failed", "instance", instanceID, "error", err)
	}
}
