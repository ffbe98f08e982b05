// Package app provides the application context for orangectl.
// It allows dependency injection for testing.
package app

import (
	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/pool"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
	"github.com/yomna-shousha/orange-build-sub000/internal/storage"
)

// App holds the application dependencies
type App struct {
	// Paths holds the configured paths
	Paths *config.Paths

	// HostConfig is the loaded host configuration
	HostConfig *config.HostConfig

	// Dialer resolves runner names to sandbox clients
	Dialer sandbox.Dialer

	// Store is the durable object store for archives
	Store storage.ObjectStore
}

// Option is a function that configures the App
type Option func(*App)

// WithPaths sets custom paths
func WithPaths(paths *config.Paths) Option {
	return func(a *App) {
		a.Paths = paths
	}
}

// WithHostConfig sets a custom host config
func WithHostConfig(cfg *config.HostConfig) Option {
	return func(a *App) {
		a.HostConfig = cfg
	}
}

// WithDialer sets a custom runner dialer
func WithDialer(d sandbox.Dialer) Option {
	return func(a *App) {
		a.Dialer = d
	}
}

// WithStore sets a custom object store
func WithStore(s storage.ObjectStore) Option {
	return func(a *App) {
		a.Store = s
	}
}

// New creates a new App with the given options.
// Dependencies not provided via options are built from the host config:
// a remote HTTP dialer when runnerUrlPattern is set, the local runner
// backend otherwise, and the configured bucket store when storage is
// reachable.
func New(opts ...Option) *App {
	app := &App{
		Paths: config.DefaultPaths(),
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.HostConfig == nil {
		cfg, err := config.LoadHostConfig(app.Paths.ConfigDir)
		if err != nil {
			logging.Debug("host config not loaded", "error", err)
		} else {
			app.HostConfig = cfg
		}
	}

	if app.Dialer == nil && app.HostConfig != nil {
		if app.HostConfig.RunnerURLPattern != "" {
			app.Dialer = &sandbox.HTTPDialer{Pattern: app.HostConfig.RunnerURLPattern}
		} else {
			app.Dialer = &sandbox.LocalDialer{
				RunnersDir:    app.Paths.RunnersDir,
				PreviewDomain: app.HostConfig.PreviewDomain,
			}
		}
	}

	if app.Store == nil && app.HostConfig != nil {
		store, err := storage.NewBucketStore(app.HostConfig.Storage)
		if err != nil {
			logging.Debug("object store not initialized", "error", err)
		} else {
			app.Store = store
		}
	}

	return app
}

// PoolSize returns the configured runner pool size.
func (a *App) PoolSize() int {
	if a.HostConfig == nil {
		return config.DefaultPoolSize
	}
	return a.HostConfig.PoolSize
}

// RunnerFor returns the runner name an instance id hashes onto.
func (a *App) RunnerFor(instanceID string) string {
	return pool.SlotFor(instanceID, a.PoolSize())
}

// DialInstance resolves an instance id to its runner's client.
func (a *App) DialInstance(instanceID string) (sandbox.Client, error) {
	return a.Dialer.Dial(a.RunnerFor(instanceID))
}

// DialSlot returns the client for a pool slot index.
func (a *App) DialSlot(slot int) (sandbox.Client, error) {
	return a.Dialer.Dial(config.RunnerName(slot))
}

// Default is the default application instance
var Default = New()

// SetDefault sets the default application instance (used for testing)
func SetDefault(app *App) {
	Default = app
}

// ResetDefault resets to the default application instance
func ResetDefault() {
	Default = New()
}
