package instance

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/yomna-shousha/orange-build-sub000/internal/audit"
	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/errlog"
	"github.com/yomna-shousha/orange-build-sub000/internal/errors"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/metadata"
	"github.com/yomna-shousha/orange-build-sub000/internal/ports"
	"github.com/yomna-shousha/orange-build-sub000/internal/provision"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
	"github.com/yomna-shousha/orange-build-sub000/internal/supervise"
)

const (
	// envFile is the local env override file dev servers read on start.
	envFile = ".dev.vars"

	installTimeout = 5 * time.Minute
	installCommand = "npm ci || npm install"

	// gitSetupCommand initializes the working tree repository with an
	// initial import commit. Idempotent: an existing .git is left alone.
	gitSetupCommand = `if [ ! -d .git ]; then git init -q && git add -A && git -c user.name=orange -c user.email=orange@localhost commit -q -m "initial import"; fi`
)

// CreateRequest describes one instance creation.
type CreateRequest struct {
	TemplateName string
	ProjectName  string

	// WebhookURL, when set, is recorded in the descriptor for the
	// in-sandbox error-capture agent to call back on.
	WebhookURL string

	// LocalEnv is written to the instance's env file alongside the minted
	// credential.
	LocalEnv map[string]string

	// Wait blocks the call until setup completes. Without it setup runs in
	// the background and the completion metadata write is the only
	// synchronization point.
	Wait bool

	// DevCommand overrides the default dev server invocation.
	DevCommand string
}

// CreateResult reports a creation. For background setups only InstanceID,
// Runner, and the initial Meta snapshot are populated.
type CreateResult struct {
	InstanceID string
	Runner     string
	Meta       *metadata.InstanceMetadata
	Ready      bool
	TimedOut   bool
	Warnings   []string
}

// Create materializes a new instance from a template and runs its setup
// sequence. The descriptor is persisted before setup starts, so a status
// call issued immediately after Create returns never reports not-found.
func (o *Orchestrator) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := config.ValidateProjectName(req.ProjectName); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	if req.TemplateName == "" {
		return nil, errors.ValidationError("template name cannot be empty")
	}
	if o.app.HostConfig == nil {
		return nil, errors.ConfigError("host configuration not loaded", nil)
	}
	if o.app.Store == nil {
		return nil, errors.ConfigError("object storage not configured", nil)
	}

	instanceID := NewInstanceID(req.ProjectName)
	runner := o.app.RunnerFor(instanceID)
	client, err := o.dial(instanceID)
	if err != nil {
		return nil, err
	}

	logging.Info("creating instance", "instance", instanceID, "template", req.TemplateName, "runner", runner)
	o.event(audit.EventCreate, instanceID, "template "+req.TemplateName)

	if err := o.templates.EnsureExists(ctx, client, req.TemplateName, instanceID); err != nil {
		return nil, err
	}

	meta := metadata.New(instanceID, req.TemplateName, req.ProjectName)
	meta.WebhookURL = req.WebhookURL
	if err := o.meta.Put(ctx, client, meta); err != nil {
		return nil, errors.RunnerFailed("metadata write", err)
	}

	opts := setupOptions{LocalEnv: req.LocalEnv, DevCommand: req.DevCommand}

	if !req.Wait {
		snapshot := *meta
		go func() {
			// Setup outlives the request that started it.
			out := o.runSetup(context.Background(), client, meta, opts)
			if out.Err != nil {
				logging.Error("background setup failed", "instance", instanceID, "error", out.Err)
				return
			}
			logging.Info("background setup finished", "instance", instanceID, "ready", out.Ready)
		}()
		return &CreateResult{InstanceID: instanceID, Runner: runner, Meta: &snapshot}, nil
	}

	out := o.runSetup(ctx, client, meta, opts)
	if out.Err != nil {
		return nil, out.Err
	}
	return &CreateResult{
		InstanceID: instanceID,
		Runner:     runner,
		Meta:       meta,
		Ready:      out.Ready,
		TimedOut:   out.TimedOut,
		Warnings:   out.Warnings,
	}, nil
}

// ResumeSetup re-runs the setup sequence for an instance whose working
// tree already exists, allocating a fresh port and process. Used by the
// save/resume engine after restoring an archive.
func (o *Orchestrator) ResumeSetup(ctx context.Context, instanceID string) (*metadata.InstanceMetadata, error) {
	if o.app.HostConfig == nil {
		return nil, errors.ConfigError("host configuration not loaded", nil)
	}
	client, err := o.dial(instanceID)
	if err != nil {
		return nil, err
	}
	meta, err := o.load(ctx, client, instanceID)
	if err != nil {
		return nil, err
	}

	// Stale runtime fields; this run decides them anew.
	meta.ProcessID = ""
	meta.AllocatedPort = 0
	meta.PreviewURL = ""
	meta.SetupError = ""

	out := o.runSetup(ctx, client, meta, setupOptions{Resume: true})
	if out.Err != nil {
		return nil, out.Err
	}
	return meta, nil
}

// setupOptions tune one run of the setup sequence.
type setupOptions struct {
	LocalEnv   map[string]string
	DevCommand string

	// Resume skips the parts of setup an archived instance already
	// carries: the project rename and, when present, the env file.
	Resume bool
}

// setupState is threaded through the steps of one setup run.
type setupState struct {
	client sandbox.Client
	meta   *metadata.InstanceMetadata
	opts   setupOptions
	token  string
	start  *supervise.StartResult
}

// setupOutcome is the aggregated result of a setup run.
type setupOutcome struct {
	Ready    bool
	TimedOut bool
	Warnings []string
	Err      error
}

// setupStep is one entry in the setup sequence. Non-fatal steps degrade to
// a recorded warning and the sequence continues.
type setupStep struct {
	name  string
	fatal bool
	run   func(ctx context.Context, st *setupState) error
}

// setupSteps is the ordered sequence with its degradation policy. This
// table is the single place that declares which steps may fail softly.
func (o *Orchestrator) setupSteps() []setupStep {
	return []setupStep{
		{"mint-credential", false, o.stepMintCredential},
		{"rename-project", false, o.stepRenameProject},
		{"provision-resources", false, o.stepProvision},
		{"allocate-port", true, o.stepAllocatePort},
		{"install-deps", false, o.stepInstall},
		{"write-env", false, o.stepWriteEnv},
		{"git-init", false, o.stepGitInit},
		{"start-server", true, o.stepStartServer},
		{"expose-port", false, o.stepExpose},
	}
}

// runSetup executes the setup sequence and finishes with exactly one
// metadata write, success or not. Background observers key off that write.
func (o *Orchestrator) runSetup(ctx context.Context, client sandbox.Client, meta *metadata.InstanceMetadata, opts setupOptions) *setupOutcome {
	st := &setupState{client: client, meta: meta, opts: opts}
	out := &setupOutcome{}

	for _, step := range o.setupSteps() {
		err := step.run(ctx, st)
		if err == nil {
			continue
		}
		if step.fatal {
			logging.Error("setup failed", "instance", meta.InstanceID, "step", step.name, "error", err)
			o.event(audit.EventError, meta.InstanceID, fmt.Sprintf("setup %s: %v", step.name, err))
			o.recordSetupError(ctx, st, step.name, err, errlog.SeverityFatal)
			meta.SetupError = fmt.Sprintf("%s: %v", step.name, err)
			out.Err = err
			break
		}
		msg := fmt.Sprintf("%s: %v", step.name, err)
		out.Warnings = append(out.Warnings, msg)
		logging.Warn("setup step degraded", "instance", meta.InstanceID, "step", step.name, "error", err)
		o.event(audit.EventSetup, meta.InstanceID, "degraded "+msg)
		o.recordSetupError(ctx, st, step.name, err, errlog.SeverityWarning)
	}

	if out.Err == nil && st.start != nil {
		out.Ready = st.start.Ready
		out.TimedOut = st.start.TimedOut
		if st.start.Ready {
			o.event(audit.EventReady, meta.InstanceID, meta.PreviewURL)
		}
	}

	if err := o.meta.Put(ctx, client, meta); err != nil {
		logging.Error("metadata completion write failed", "instance", meta.InstanceID, "error", err)
		if out.Err == nil {
			out.Err = errors.RunnerFailed("metadata write", err)
		}
	}
	return out
}

// recordSetupError appends a setup failure to the instance's runtime error
// log. Recording is best-effort.
func (o *Orchestrator) recordSetupError(ctx context.Context, st *setupState, step string, cause error, severity string) {
	entry := errlog.New("setup", fmt.Sprintf("%s: %v", step, cause))
	entry.Severity = severity
	if err := errlog.Record(ctx, st.client, st.meta.InstanceID, entry); err != nil {
		logging.Debug("error record failed", "instance", st.meta.InstanceID, "error", err)
	}
}

func (o *Orchestrator) stepMintCredential(ctx context.Context, st *setupState) error {
	token, err := o.minter.Mint(ctx, st.meta.InstanceID, TokenTTL())
	if err != nil {
		return fmt.Errorf("mint credential: %w", err)
	}
	st.token = token
	return nil
}

// pkgNameRe matches a JSON "name" property. The top-level name is the
// first occurrence in any real package.json.
var pkgNameRe = regexp.MustCompile(`("name"\s*:\s*)"[^"]*"`)

// renamePackageJSON rewrites the first "name" property, preserving the
// file's formatting otherwise.
func renamePackageJSON(text, name string) string {
	replaced := false
	return pkgNameRe.ReplaceAllStringFunc(text, func(m string) string {
		if replaced {
			return m
		}
		replaced = true
		sub := pkgNameRe.FindStringSubmatch(m)
		return sub[1] + `"` + name + `"`
	})
}

// stepRenameProject stamps the project name into the deployment manifest
// and package.json so previews and deploys carry the user's name instead
// of the template's.
func (o *Orchestrator) stepRenameProject(ctx context.Context, st *setupState) error {
	if st.opts.Resume {
		return nil
	}
	id := st.meta.InstanceID

	manifestPath := path.Join(id, provision.ManifestFile)
	data, _, err := st.client.ReadFile(ctx, manifestPath, 0)
	if err != nil {
		return fmt.Errorf("read %s: %w", provision.ManifestFile, err)
	}
	rewritten := provision.RewriteName(string(data), st.meta.ProjectName)
	if rewritten != string(data) {
		if err := st.client.WriteFile(ctx, manifestPath, []byte(rewritten)); err != nil {
			return fmt.Errorf("write %s: %w", provision.ManifestFile, err)
		}
	}

	pkgPath := path.Join(id, "package.json")
	data, _, err = st.client.ReadFile(ctx, pkgPath, 0)
	if err != nil {
		// Not every template carries a package.json.
		logging.Debug("package.json not read", "instance", id, "error", err)
		return nil
	}
	updated := renamePackageJSON(string(data), st.meta.ProjectName)
	if updated != string(data) {
		if err := st.client.WriteFile(ctx, pkgPath, []byte(updated)); err != nil {
			return fmt.Errorf("write package.json: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) stepProvision(ctx context.Context, st *setupState) error {
	res, err := o.provisioner.Run(ctx, st.client, st.meta.InstanceID)
	if err != nil {
		return fmt.Errorf("provision resources: %w", err)
	}
	if len(res.Failed) > 0 {
		tokens := make([]string, 0, len(res.Failed))
		for token := range res.Failed {
			tokens = append(tokens, token)
		}
		sort.Strings(tokens)
		return fmt.Errorf("provisioning incomplete: %s", strings.Join(tokens, ", "))
	}
	return nil
}

// stepAllocatePort reserves a dev server port, excluding ports other
// instances on the same runner have recorded. The recorded set covers
// reserved-but-not-yet-bound ports the probe alone would miss.
func (o *Orchestrator) stepAllocatePort(ctx context.Context, st *setupState) error {
	peers, err := o.meta.ListRunner(ctx, st.client)
	if err != nil {
		logging.Debug("peer scan failed", "instance", st.meta.InstanceID, "error", err)
	}
	var excluded []int
	for _, peer := range peers {
		if peer.InstanceID == st.meta.InstanceID || peer.AllocatedPort == 0 {
			continue
		}
		excluded = append(excluded, peer.AllocatedPort)
	}

	port, err := ports.Allocate(ctx, st.client, o.app.HostConfig.PortRange, excluded)
	if err != nil {
		return errors.PortAllocationFailed(err)
	}
	st.meta.AllocatedPort = port
	return nil
}

func (o *Orchestrator) stepInstall(ctx context.Context, st *setupState) error {
	result, err := st.client.Exec(ctx, sandbox.ExecRequest{
		Cmd:     installCommand,
		Cwd:     st.meta.InstanceID,
		Timeout: installTimeout,
	})
	if err != nil {
		return fmt.Errorf("install dependencies: %w", err)
	}
	if !result.Success() {
		return fmt.Errorf("npm install exited %d: %s", result.ExitCode, tailLine(result))
	}
	return nil
}

// renderEnvFile produces the env file content: caller overrides in sorted
// order, the minted credential last.
func renderEnvFile(localEnv map[string]string, token string) string {
	keys := make([]string, 0, len(localEnv))
	for k := range localEnv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, localEnv[k])
	}
	if token != "" {
		fmt.Fprintf(&b, "%s=%s\n", EnvInstanceToken, token)
	}
	return b.String()
}

func (o *Orchestrator) stepWriteEnv(ctx context.Context, st *setupState) error {
	envPath := path.Join(st.meta.InstanceID, envFile)
	if st.opts.Resume {
		if _, _, err := st.client.ReadFile(ctx, envPath, 1); err == nil {
			// The archive carried an env file; keep it.
			return nil
		}
	}

	content := renderEnvFile(st.opts.LocalEnv, st.token)
	if content == "" {
		return nil
	}
	if err := st.client.WriteFile(ctx, envPath, []byte(content)); err != nil {
		return fmt.Errorf("write %s: %w", envFile, err)
	}
	return nil
}

func (o *Orchestrator) stepGitInit(ctx context.Context, st *setupState) error {
	result, err := st.client.Exec(ctx, sandbox.ExecRequest{
		Cmd: gitSetupCommand,
		Cwd: st.meta.InstanceID,
	})
	if err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	if !result.Success() {
		return fmt.Errorf("git init exited %d: %s", result.ExitCode, tailLine(result))
	}
	return nil
}

// stepStartServer launches the dev server under the supervisor. A failed
// start is fatal; a readiness timeout degrades the result instead.
func (o *Orchestrator) stepStartServer(ctx context.Context, st *setupState) error {
	env := make(map[string]string)
	if st.token != "" {
		env[EnvInstanceToken] = st.token
	}

	res, err := o.supervisor.Start(ctx, st.client, st.meta.InstanceID, st.meta.AllocatedPort, supervise.Options{
		Command: st.opts.DevCommand,
		Env:     env,
	})
	if err != nil {
		return err
	}
	st.start = res
	st.meta.ProcessID = res.Process.ID
	if res.TimedOut {
		logging.Warn("dev server readiness timed out", "instance", st.meta.InstanceID, "port", st.meta.AllocatedPort)
	}
	return nil
}

func (o *Orchestrator) stepExpose(ctx context.Context, st *setupState) error {
	url, err := st.client.ExposePort(ctx, st.meta.AllocatedPort, st.meta.InstanceID)
	if err != nil {
		return fmt.Errorf("expose port %d: %w", st.meta.AllocatedPort, err)
	}
	st.meta.PreviewURL = url
	return nil
}

// tailLine extracts the last non-empty output line for an error message,
// preferring stderr.
func tailLine(result *sandbox.ExecResult) string {
	for _, out := range []string{result.Stderr, result.Stdout} {
		lines := strings.Split(strings.TrimSpace(out), "\n")
		for i := len(lines) - 1; i >= 0; i-- {
			if line := strings.TrimSpace(lines[i]); line != "" {
				return line
			}
		}
	}
	return "(no output)"
}
