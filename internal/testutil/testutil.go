// Package testutil provides test utilities for command tests
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/yomna-shousha/orange-build-sub000/internal/app"
	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/metadata"
	"github.com/yomna-shousha/orange-build-sub000/internal/pool"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
	"github.com/yomna-shousha/orange-build-sub000/internal/storage"
)

// TestEnv holds the test environment
type TestEnv struct {
	T          *testing.T
	TmpDir     string
	Paths      *config.Paths
	HostConfig *config.HostConfig
	Dialer     *sandbox.MockDialer
	Store      *storage.MemStore
	App        *app.App
	cleanup    func()
}

// NewTestEnv creates a new test environment with a mock runner pool
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()
	paths := config.PathsFor(filepath.Join(tmpDir, "config"), filepath.Join(tmpDir, "state"))

	for _, dir := range []string{
		paths.ConfigDir,
		paths.StateDir,
		paths.EventsDir,
		paths.RunnersDir,
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	hostConfig := &config.HostConfig{
		PoolSize:       2,
		PreviewDomain:  "preview.test",
		PortRange:      config.PortRange{From: 8001, To: 8099},
		ReadyTimeoutMS: 200,
	}

	// Write host config so code paths that reload it see the same values
	configData, _ := json.MarshalIndent(hostConfig, "", "  ")
	if err := os.WriteFile(filepath.Join(paths.ConfigDir, "config.json"), configData, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	dialer := sandbox.NewMockDialer()
	store := storage.NewMemStore()

	testApp := app.New(
		app.WithPaths(paths),
		app.WithHostConfig(hostConfig),
		app.WithDialer(dialer),
		app.WithStore(store),
	)

	// Save original default and set test app
	originalDefault := app.Default
	app.SetDefault(testApp)

	env := &TestEnv{
		T:          t,
		TmpDir:     tmpDir,
		Paths:      paths,
		HostConfig: hostConfig,
		Dialer:     dialer,
		Store:      store,
		App:        testApp,
		cleanup: func() {
			app.SetDefault(originalDefault)
		},
	}

	return env
}

// Cleanup restores the original app default
func (e *TestEnv) Cleanup() {
	if e.cleanup != nil {
		e.cleanup()
	}
}

// MockFor returns the mock client for a runner, creating it on first use.
func (e *TestEnv) MockFor(runnerName string) *sandbox.Mock {
	if m, ok := e.Dialer.Clients[runnerName]; ok {
		return m
	}
	m := sandbox.NewMock()
	e.Dialer.Clients[runnerName] = m
	return m
}

// RunnerMock returns the mock for the runner an instance id hashes onto.
func (e *TestEnv) RunnerMock(instanceID string) *sandbox.Mock {
	return e.MockFor(pool.SlotFor(instanceID, e.HostConfig.PoolSize))
}

// AddInstance seeds an instance descriptor on its runner and returns the
// runner's mock for further rule setup.
func (e *TestEnv) AddInstance(meta *metadata.InstanceMetadata) *sandbox.Mock {
	e.T.Helper()

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		e.T.Fatalf("Failed to marshal instance metadata: %v", err)
	}

	mock := e.RunnerMock(meta.InstanceID)
	mock.Files[metadata.DescriptorPath(meta.InstanceID)] = data
	return mock
}

// AddTemplate seeds a template archive in the object store.
func (e *TestEnv) AddTemplate(name string, data []byte) {
	e.Store.Seed(storage.TemplateKey(name), data)
}

// GetInstance loads an instance descriptor from its runner
func (e *TestEnv) GetInstance(instanceID string) *metadata.InstanceMetadata {
	e.T.Helper()

	data, ok := e.RunnerMock(instanceID).Files[metadata.DescriptorPath(instanceID)]
	if !ok {
		return nil
	}

	var meta metadata.InstanceMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		e.T.Fatalf("Failed to parse instance metadata: %v", err)
	}
	return &meta
}

// InstanceExists checks if an instance descriptor exists on its runner
func (e *TestEnv) InstanceExists(instanceID string) bool {
	_, ok := e.RunnerMock(instanceID).Files[metadata.DescriptorPath(instanceID)]
	return ok
}

// DefaultMetadata returns a basic instance descriptor for testing
func DefaultMetadata(instanceID string) *metadata.InstanceMetadata {
	meta := metadata.New(instanceID, "vite-app", "demo-app")
	meta.AllocatedPort = 8003
	return meta
}
