package instance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yomna-shousha/orange-build-sub000/internal/app"
	"github.com/yomna-shousha/orange-build-sub000/internal/audit"
	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/errors"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/metadata"
	"github.com/yomna-shousha/orange-build-sub000/internal/provision"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
	"github.com/yomna-shousha/orange-build-sub000/internal/supervise"
	"github.com/yomna-shousha/orange-build-sub000/internal/template"
)

// Orchestrator owns the instance lifecycle. One orchestrator serves all
// instances of an App; its metadata cache is the authoritative in-process
// view of descriptor state.
type Orchestrator struct {
	app         *app.App
	meta        *metadata.Store
	templates   *template.Repository
	provisioner *provision.Provisioner
	supervisor  *supervise.Supervisor
	minter      CredentialMinter
	audit       *audit.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMinter substitutes the credential minter.
func WithMinter(m CredentialMinter) Option {
	return func(o *Orchestrator) { o.minter = m }
}

// WithSupervisor substitutes the dev server supervisor.
func WithSupervisor(s *supervise.Supervisor) Option {
	return func(o *Orchestrator) { o.supervisor = s }
}

// WithProvisioner substitutes the resource provisioner.
func WithProvisioner(p *provision.Provisioner) Option {
	return func(o *Orchestrator) { o.provisioner = p }
}

// New creates an Orchestrator backed by the app's dialer, store, and
// configuration.
func New(a *app.App, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		app:       a,
		meta:      metadata.NewStore(),
		templates: template.NewRepository(a.Store),
		minter:    NewStaticMinter(""),
		audit:     audit.NewLogger(a.Paths.EventsDir),
	}

	var platform config.PlatformConfig
	var readyBudget time.Duration
	if a.HostConfig != nil {
		platform = a.HostConfig.Platform
		readyBudget = time.Duration(a.HostConfig.ReadyTimeoutMS) * time.Millisecond
	}
	o.provisioner = provision.NewProvisioner(platform)
	o.supervisor = supervise.New(readyBudget)

	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewInstanceID derives a fresh instance id from a project name by
// appending a short random suffix.
func NewInstanceID(projectName string) string {
	return projectName + "-" + uuid.NewString()[:8]
}

// dial resolves an instance id to its runner's client.
func (o *Orchestrator) dial(instanceID string) (sandbox.Client, error) {
	if o.app.Dialer == nil {
		return nil, errors.ConfigError("no runner backend configured", nil)
	}
	c, err := o.app.DialInstance(instanceID)
	if err != nil {
		return nil, errors.RunnerFailed("dial", err)
	}
	return c, nil
}

// load fetches an instance's descriptor, mapping a missing descriptor to
// the structured not-found error.
func (o *Orchestrator) load(ctx context.Context, c sandbox.Client, instanceID string) (*metadata.InstanceMetadata, error) {
	meta, err := o.meta.Get(ctx, c, instanceID)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return nil, errors.InstanceNotFound(instanceID)
		}
		return nil, errors.RunnerFailed("metadata read", err)
	}
	return meta, nil
}

// event writes an audit event, logging failures instead of propagating.
func (o *Orchestrator) event(eventType audit.EventType, instanceID, details string) {
	if err := o.audit.LogEvent(eventType, instanceID, details); err != nil {
		logging.Debug("audit write failed", "instance", instanceID, "error", err)
	}
}
