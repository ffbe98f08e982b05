package testutil

import (
	"embed"
	"encoding/json"

	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/metadata"
	"github.com/yomna-shousha/orange-build-sub000/internal/provision"
)

//go:embed fixtures/*.json fixtures/*.toml
var fixturesFS embed.FS

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// LoadHostConfigFixture loads a host config fixture.
func LoadHostConfigFixture(name string) (*config.HostConfig, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	var cfg config.HostConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadMetadataFixture loads an instance descriptor fixture.
func LoadMetadataFixture(name string) (*metadata.InstanceMetadata, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	var meta metadata.InstanceMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ValidHostConfig returns the valid host config fixture.
func ValidHostConfig() (*config.HostConfig, error) {
	return LoadHostConfigFixture("valid_host_config.json")
}

// InvalidHostConfig returns the invalid host config fixture.
func InvalidHostConfig() (*config.HostConfig, error) {
	return LoadHostConfigFixture("invalid_host_config.json")
}

// ValidInstanceMetadata returns the valid instance descriptor fixture.
func ValidInstanceMetadata() (*metadata.InstanceMetadata, error) {
	return LoadMetadataFixture("valid_instance_metadata.json")
}

// ManifestText returns the raw deployment manifest fixture. Placeholder
// scanning and rewriting are textual, so most tests want the bytes rather
// than the parsed form.
func ManifestText() (string, error) {
	data, err := LoadFixture("valid_manifest.toml")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ValidManifest returns the parsed deployment manifest fixture.
func ValidManifest() (*provision.Manifest, error) {
	text, err := ManifestText()
	if err != nil {
		return nil, err
	}
	return provision.ParseManifest(text)
}
