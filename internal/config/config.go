package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// projectNameRegex validates project names.
// Names must start with a lowercase letter or digit, followed by lowercase
// letters, digits, or hyphens. Maximum length is 63 characters since project
// names end up as subdomain labels in preview and deployment URLs.
var projectNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

// instanceIDRegex validates instance identifiers (project name plus a short
// hex suffix, e.g. "my-app-1a2b3c4d").
var instanceIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,70}[a-z0-9]$`)

// ValidateProjectName checks if a project name is valid.
// Valid names:
//   - Start with a lowercase letter or digit
//   - Contain only lowercase letters, digits, or hyphens
//   - Are between 1 and 63 characters long
//   - Do not contain path separators or special characters
func ValidateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}

	if !projectNameRegex.MatchString(name) {
		return fmt.Errorf("invalid project name %q: must start with a lowercase letter or digit, contain only lowercase letters, digits, or hyphens, and be at most 63 characters", name)
	}

	return nil
}

// ValidateInstanceID checks if an instance identifier is valid.
func ValidateInstanceID(id string) error {
	if id == "" {
		return fmt.Errorf("instance id cannot be empty")
	}

	if !instanceIDRegex.MatchString(id) {
		return fmt.Errorf("invalid instance id %q", id)
	}

	return nil
}

// safePath validates that a constructed path stays within the base directory.
// This prevents path traversal attacks where names like "../../../etc/passwd"
// could escape the intended directory.
func safePath(baseDir, name, suffix string) (string, error) {
	// Reject absolute paths in name
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("name cannot be an absolute path")
	}

	// Reject names containing path separators
	if filepath.Dir(name) != "." {
		return "", fmt.Errorf("name cannot contain path separators")
	}

	// Construct the path
	path := filepath.Join(baseDir, name+suffix)

	// Get absolute paths for comparison
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("invalid base directory: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	// Ensure the resolved path is within the base directory
	// Add separator to prevent prefix matching (e.g., /var/lib/orange vs /var/lib/orange-evil)
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return "", fmt.Errorf("path escapes base directory")
	}

	return path, nil
}

const (
	DefaultConfigDir = "/etc/orange-build"
	DefaultStateDir  = "/var/lib/orange-build"
	RunnerPrefix     = "orange-runner-"

	// DefaultPoolSize is the number of runner slots instances hash onto.
	DefaultPoolSize = 10

	// DefaultReadyTimeoutMS bounds the dev server readiness poll.
	DefaultReadyTimeoutMS = 10000

	// Reserved dev server port range inside each runner.
	DefaultPortFrom = 8001
	DefaultPortTo   = 8099
)

// Environment variables consulted for credentials. Secrets never live in
// config.json.
const (
	EnvStorageAccessKey = "ORANGE_STORAGE_ACCESS_KEY"
	EnvStorageSecretKey = "ORANGE_STORAGE_SECRET_KEY"
	EnvPlatformAPIToken = "ORANGE_PLATFORM_API_TOKEN"
	EnvGitHubToken      = "ORANGE_GITHUB_TOKEN"
)

// PortRange is the inclusive range of ports reserved for dev servers.
type PortRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// StorageConfig describes the S3-compatible bucket that holds template and
// instance archives.
type StorageConfig struct {
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region,omitempty"`
	UseSSL    bool   `json:"useSSL"`
	AccessKey string `json:"-"` // Resolved from ORANGE_STORAGE_ACCESS_KEY
	SecretKey string `json:"-"` // Resolved from ORANGE_STORAGE_SECRET_KEY
}

// PlatformConfig describes the deployment platform account used for resource
// provisioning and worker deploys.
type PlatformConfig struct {
	AccountID         string `json:"accountId,omitempty"`
	APIBaseURL        string `json:"apiBaseUrl,omitempty"`
	DispatchNamespace string `json:"dispatchNamespace,omitempty"`
	DispatchDomain    string `json:"dispatchDomain,omitempty"`
	APIToken          string `json:"-"` // Resolved from ORANGE_PLATFORM_API_TOKEN
}

// HasCredentials reports whether provisioning calls can be authenticated.
func (p *PlatformConfig) HasCredentials() bool {
	return p.AccountID != "" && p.APIToken != ""
}

// HostConfig represents the host configuration from config.json
type HostConfig struct {
	PoolSize         int            `json:"poolSize"`
	RunnerURLPattern string         `json:"runnerUrlPattern,omitempty"` // e.g. "http://%s.runners.internal:8080"; empty selects the local runner
	PreviewDomain    string         `json:"previewDomain,omitempty"`    // e.g. "preview.orange-build.dev"
	PortRange        PortRange      `json:"portRange"`
	ReadyTimeoutMS   int            `json:"readyTimeoutMs,omitempty"`
	StateDir         string         `json:"stateDir,omitempty"`
	Storage          StorageConfig  `json:"storage"`
	Platform         PlatformConfig `json:"platform"`
	GitHubToken      string         `json:"-"` // Resolved from ORANGE_GITHUB_TOKEN
}

// applyDefaults fills zero values with the built-in defaults.
func (c *HostConfig) applyDefaults() {
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.PortRange.From == 0 {
		c.PortRange.From = DefaultPortFrom
	}
	if c.PortRange.To == 0 {
		c.PortRange.To = DefaultPortTo
	}
	if c.ReadyTimeoutMS == 0 {
		c.ReadyTimeoutMS = DefaultReadyTimeoutMS
	}
	if c.Platform.APIBaseURL == "" {
		c.Platform.APIBaseURL = "https://api.cloudflare.com/client/v4"
	}
}

// resolveEnv pulls credentials from the environment.
func (c *HostConfig) resolveEnv() {
	c.Storage.AccessKey = os.Getenv(EnvStorageAccessKey)
	c.Storage.SecretKey = os.Getenv(EnvStorageSecretKey)
	c.Platform.APIToken = os.Getenv(EnvPlatformAPIToken)
	c.GitHubToken = os.Getenv(EnvGitHubToken)
}

// Validate checks that the HostConfig is valid.
func (c *HostConfig) Validate() error {
	if c.PoolSize < 1 {
		return fmt.Errorf("poolSize must be at least 1 (got %d)", c.PoolSize)
	}

	if c.PortRange.From < 1024 || c.PortRange.To > 65535 {
		return fmt.Errorf("portRange must be within 1024-65535 (got %d-%d)", c.PortRange.From, c.PortRange.To)
	}

	if c.PortRange.From > c.PortRange.To {
		return fmt.Errorf("portRange from %d exceeds to %d", c.PortRange.From, c.PortRange.To)
	}

	if c.RunnerURLPattern != "" && !strings.Contains(c.RunnerURLPattern, "%s") {
		return fmt.Errorf("runnerUrlPattern must contain %%s for the runner name")
	}

	return nil
}

// Paths holds the configured paths
type Paths struct {
	ConfigDir  string
	StateDir   string
	EventsDir  string // lifecycle event logs, one JSONL file per instance
	RunnersDir string // local-mode runner roots
}

// DefaultPaths returns the default path configuration
func DefaultPaths() *Paths {
	stateDir := DefaultStateDir
	return &Paths{
		ConfigDir:  DefaultConfigDir,
		StateDir:   stateDir,
		EventsDir:  filepath.Join(stateDir, "events"),
		RunnersDir: filepath.Join(stateDir, "runners"),
	}
}

// PathsFor returns a path configuration rooted at the given dirs.
func PathsFor(configDir, stateDir string) *Paths {
	return &Paths{
		ConfigDir:  configDir,
		StateDir:   stateDir,
		EventsDir:  filepath.Join(stateDir, "events"),
		RunnersDir: filepath.Join(stateDir, "runners"),
	}
}

// EventLogPath returns the lifecycle event log path for an instance.
func (p *Paths) EventLogPath(instanceID string) (string, error) {
	return safePath(p.EventsDir, instanceID, ".events.jsonl")
}

// RunnerRoot returns the local filesystem root for a runner slot.
func (p *Paths) RunnerRoot(runnerName string) (string, error) {
	return safePath(p.RunnersDir, runnerName, "")
}

// LoadHostConfig loads the host configuration from config.json
func LoadHostConfig(configDir string) (*HostConfig, error) {
	configPath := filepath.Join(configDir, "config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read host config: %w", err)
	}

	var config HostConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse host config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid host config: %w", err)
	}

	config.resolveEnv()

	return &config, nil
}

// RunnerName returns the runner name for a pool slot index.
func RunnerName(slot int) string {
	return fmt.Sprintf("%s%d", RunnerPrefix, slot)
}
