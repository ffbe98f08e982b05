// Package testutil provides test fixtures and utilities.
//
// This package contains embedded fixtures and a test environment that wires
// the application context to a mock runner pool and an in-memory object
// store.
//
// # Test Environment
//
// NewTestEnv builds an App backed by mocks and installs it as the default:
//
//	env := testutil.NewTestEnv(t)
//	defer env.Cleanup()
//
//	mock := env.AddInstance(testutil.DefaultMetadata("demo-app-1a2b3c4d"))
//	mock.AddRule("npm run build", sandbox.ExecResult{ExitCode: 0})
//
// # Fixtures
//
// Fixtures are embedded using go:embed:
//
//	fixtures/valid_host_config.json
//	fixtures/invalid_host_config.json
//	fixtures/valid_instance_metadata.json
//	fixtures/valid_manifest.toml
//
// # Loading Fixtures
//
// Helper functions load and parse fixtures into typed objects:
//
//	cfg, err := testutil.ValidHostConfig()
//	meta, err := testutil.ValidInstanceMetadata()
//	text, err := testutil.ManifestText()
//
// # Raw Fixture Access
//
// For custom parsing or testing edge cases:
//
//	data, err := testutil.LoadFixture("valid_host_config.json")
package testutil
