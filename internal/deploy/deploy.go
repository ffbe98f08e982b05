// Package deploy publishes instances to the hosting platform. It archives
// the built instance, invokes the platform deploy tool over the sandbox
// channel, and scrapes the resulting live URL and version identifier from
// the tool's output.
package deploy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/yomna-shousha/orange-build-sub000/internal/app"
	"github.com/yomna-shousha/orange-build-sub000/internal/archive"
	"github.com/yomna-shousha/orange-build-sub000/internal/audit"
	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/errors"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/metadata"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
)

const deployTimeout = 5 * time.Minute

// Pipeline deploys instances. Deploys always archive first with a build
// step, so the stored snapshot matches what went live.
type Pipeline struct {
	app    *app.App
	meta   *metadata.Store
	engine *archive.Engine
	audit  *audit.Logger
}

// NewPipeline creates a Pipeline sharing the given archive engine.
func NewPipeline(a *app.App, engine *archive.Engine) *Pipeline {
	return &Pipeline{
		app:    a,
		meta:   metadata.NewStore(),
		engine: engine,
		audit:  audit.NewLogger(a.Paths.EventsDir),
	}
}

// Result reports one deploy.
type Result struct {
	URL       string
	VersionID string

	// Dispatch marks a deploy into the shared multi-tenant namespace.
	Dispatch bool

	// FallbackURL marks a constructed best-guess URL: the deploy tool's
	// output carried no recognizable URL.
	FallbackURL bool

	Save *archive.SaveResult
}

// deployCommand builds the platform deploy invocation.
func deployCommand(dispatchNamespace string) string {
	args := []string{"npx", "wrangler", "deploy"}
	if dispatchNamespace != "" {
		args = append(args, "--dispatch-namespace", dispatchNamespace)
	}
	return shellquote.Join(args...)
}

func fallbackURL(projectName string) string {
	return fmt.Sprintf("https://%s.workers.dev", projectName)
}

// Deploy archives the instance with a build step and publishes it. In
// dispatch mode the live URL is constructed from the project name and the
// configured domain; otherwise it is scraped from the tool output, with a
// constructed fallback when scraping fails.
func (p *Pipeline) Deploy(ctx context.Context, instanceID string) (*Result, error) {
	if err := config.ValidateInstanceID(instanceID); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	if p.app.HostConfig == nil {
		return nil, errors.ConfigError("host configuration not loaded", nil)
	}
	platform := p.app.HostConfig.Platform

	client, err := p.dial(instanceID)
	if err != nil {
		return nil, err
	}
	meta, err := p.meta.Get(ctx, client, instanceID)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return nil, errors.InstanceNotFound(instanceID)
		}
		return nil, errors.RunnerFailed("metadata read", err)
	}

	save, err := p.engine.Save(ctx, instanceID, true)
	if err != nil {
		return nil, err
	}

	cmd := deployCommand(platform.DispatchNamespace)
	logging.Info("deploying instance", "instance", instanceID, "dispatch", platform.DispatchNamespace != "")
	result, err := client.Exec(ctx, sandbox.ExecRequest{Cmd: cmd, Cwd: instanceID, Timeout: deployTimeout})
	if err != nil {
		return nil, errors.RunnerFailed("deploy", err)
	}
	if !result.Success() {
		detail := strings.TrimSpace(result.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(result.Stdout)
		}
		return nil, errors.DeployError(fmt.Sprintf("wrangler deploy exited %d", result.ExitCode), fmt.Errorf("%s", detail))
	}

	res := &Result{Save: save}
	if platform.DispatchNamespace != "" {
		res.Dispatch = true
		res.VersionID = ParseVersionID(result.Stdout)
		if platform.DispatchDomain != "" {
			res.URL = fmt.Sprintf("https://%s.%s", meta.ProjectName, platform.DispatchDomain)
		} else {
			res.URL = fallbackURL(meta.ProjectName)
			res.FallbackURL = true
			logging.Warn("dispatch domain not configured, using constructed url", "instance", instanceID, "url", res.URL)
		}
	} else {
		out := ParseOutput(result.Stdout)
		res.URL = out.URL
		res.VersionID = out.VersionID
		if res.URL == "" {
			res.URL = fallbackURL(meta.ProjectName)
			res.FallbackURL = true
			logging.Warn("deploy output carried no url, using constructed fallback", "instance", instanceID, "url", res.URL)
		}
	}

	logging.Info("instance deployed", "instance", instanceID, "url", res.URL, "version", res.VersionID)
	p.event(audit.EventDeploy, instanceID, res.URL)
	return res, nil
}

func (p *Pipeline) dial(instanceID string) (sandbox.Client, error) {
	if p.app.Dialer == nil {
		return nil, errors.ConfigError("no runner backend configured", nil)
	}
	c, err := p.app.DialInstance(instanceID)
	if err != nil {
		return nil, errors.RunnerFailed("dial", err)
	}
	return c, nil
}

func (p *Pipeline) event(eventType audit.EventType, instanceID, details string) {
	if err := p.audit.LogEvent(eventType, instanceID, details); err != nil {
		logging.Debug("audit write failed", "instance", instanceID, "error", err)
	}
}
