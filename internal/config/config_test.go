package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPaths(t *testing.T) {
	paths := DefaultPaths()

	if paths.ConfigDir != DefaultConfigDir {
		t.Errorf("ConfigDir = %q, want %q", paths.ConfigDir, DefaultConfigDir)
	}
	if paths.StateDir != DefaultStateDir {
		t.Errorf("StateDir = %q, want %q", paths.StateDir, DefaultStateDir)
	}
	if paths.EventsDir != filepath.Join(DefaultStateDir, "events") {
		t.Errorf("EventsDir = %q, want %q", paths.EventsDir, filepath.Join(DefaultStateDir, "events"))
	}
	if paths.RunnersDir != filepath.Join(DefaultStateDir, "runners") {
		t.Errorf("RunnersDir = %q, want %q", paths.RunnersDir, filepath.Join(DefaultStateDir, "runners"))
	}
}

func TestRunnerName(t *testing.T) {
	tests := []struct {
		slot int
		want string
	}{
		{0, "orange-runner-0"},
		{7, "orange-runner-7"},
		{12, "orange-runner-12"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := RunnerName(tt.slot)
			if got != tt.want {
				t.Errorf("RunnerName(%d) = %q, want %q", tt.slot, got, tt.want)
			}
		})
	}
}

func TestLoadHostConfig(t *testing.T) {
	// Create a temporary directory
	tmpDir := t.TempDir()

	// Create a test config file
	config := HostConfig{
		PoolSize:         4,
		RunnerURLPattern: "http://%s.runners.internal:8080",
		PreviewDomain:    "preview.orange-build.dev",
		PortRange: PortRange{
			From: 8001,
			To:   8099,
		},
		Storage: StorageConfig{
			Endpoint: "storage.internal:9000",
			Bucket:   "orange-archives",
		},
		Platform: PlatformConfig{
			AccountID:         "acct-123",
			DispatchNamespace: "orange-apps",
			DispatchDomain:    "apps.orange-build.dev",
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	configPath := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	// Test loading the config
	loaded, err := LoadHostConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadHostConfig failed: %v", err)
	}

	if loaded.PoolSize != config.PoolSize {
		t.Errorf("PoolSize = %d, want %d", loaded.PoolSize, config.PoolSize)
	}
	if loaded.PortRange.From != config.PortRange.From {
		t.Errorf("PortRange.From = %d, want %d", loaded.PortRange.From, config.PortRange.From)
	}
	if loaded.PortRange.To != config.PortRange.To {
		t.Errorf("PortRange.To = %d, want %d", loaded.PortRange.To, config.PortRange.To)
	}
	if loaded.Storage.Bucket != config.Storage.Bucket {
		t.Errorf("Storage.Bucket = %q, want %q", loaded.Storage.Bucket, config.Storage.Bucket)
	}
	if loaded.Platform.DispatchNamespace != config.Platform.DispatchNamespace {
		t.Errorf("Platform.DispatchNamespace = %q, want %q", loaded.Platform.DispatchNamespace, config.Platform.DispatchNamespace)
	}
}

func TestLoadHostConfig_Defaults(t *testing.T) {
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	loaded, err := LoadHostConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadHostConfig failed: %v", err)
	}

	if loaded.PoolSize != DefaultPoolSize {
		t.Errorf("PoolSize = %d, want default %d", loaded.PoolSize, DefaultPoolSize)
	}
	if loaded.PortRange.From != DefaultPortFrom || loaded.PortRange.To != DefaultPortTo {
		t.Errorf("PortRange = %d-%d, want default %d-%d",
			loaded.PortRange.From, loaded.PortRange.To, DefaultPortFrom, DefaultPortTo)
	}
	if loaded.ReadyTimeoutMS != DefaultReadyTimeoutMS {
		t.Errorf("ReadyTimeoutMS = %d, want default %d", loaded.ReadyTimeoutMS, DefaultReadyTimeoutMS)
	}
}

func TestLoadHostConfig_EnvCredentials(t *testing.T) {
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv(EnvStorageAccessKey, "ak-test")
	t.Setenv(EnvStorageSecretKey, "sk-test")
	t.Setenv(EnvPlatformAPIToken, "pt-test")
	t.Setenv(EnvGitHubToken, "gh-test")

	loaded, err := LoadHostConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadHostConfig failed: %v", err)
	}

	if loaded.Storage.AccessKey != "ak-test" {
		t.Errorf("Storage.AccessKey = %q, want %q", loaded.Storage.AccessKey, "ak-test")
	}
	if loaded.Storage.SecretKey != "sk-test" {
		t.Errorf("Storage.SecretKey = %q, want %q", loaded.Storage.SecretKey, "sk-test")
	}
	if loaded.Platform.APIToken != "pt-test" {
		t.Errorf("Platform.APIToken = %q, want %q", loaded.Platform.APIToken, "pt-test")
	}
	if loaded.GitHubToken != "gh-test" {
		t.Errorf("GitHubToken = %q, want %q", loaded.GitHubToken, "gh-test")
	}
}

func TestLoadHostConfig_NotFound(t *testing.T) {
	_, err := LoadHostConfig("/nonexistent/path")
	if err == nil {
		t.Error("Expected error for nonexistent config, got nil")
	}
}

func TestLoadHostConfig_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte("not valid json"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	_, err := LoadHostConfig(tmpDir)
	if err == nil {
		t.Error("Expected error for invalid JSON, got nil")
	}
}

func TestHostConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*HostConfig)
		wantErr bool
	}{
		{"defaults are valid", func(c *HostConfig) {}, false},
		{"zero pool size", func(c *HostConfig) { c.PoolSize = -1 }, true},
		{"inverted port range", func(c *HostConfig) { c.PortRange = PortRange{From: 9000, To: 8000} }, true},
		{"privileged port", func(c *HostConfig) { c.PortRange = PortRange{From: 80, To: 8099} }, true},
		{"pattern without placeholder", func(c *HostConfig) { c.RunnerURLPattern = "http://runner:8080" }, true},
		{"pattern with placeholder", func(c *HostConfig) { c.RunnerURLPattern = "http://%s:8080" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := HostConfig{}
			config.applyDefaults()
			tt.mutate(&config)

			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlatformConfig_HasCredentials(t *testing.T) {
	tests := []struct {
		name   string
		config PlatformConfig
		want   bool
	}{
		{"both set", PlatformConfig{AccountID: "acct", APIToken: "tok"}, true},
		{"missing token", PlatformConfig{AccountID: "acct"}, false},
		{"missing account", PlatformConfig{APIToken: "tok"}, false},
		{"neither", PlatformConfig{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.HasCredentials(); got != tt.want {
				t.Errorf("HasCredentials() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSafePath(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		base    string
		fname   string
		suffix  string
		wantErr bool
	}{
		{"valid name", tmpDir, "instance1", ".json", false},
		{"valid with dash", tmpDir, "my-app-1a2b3c4d", ".events.jsonl", false},
		{"path traversal", tmpDir, "../escape", ".json", true},
		{"deep traversal", tmpDir, "../../etc/passwd", "", true},
		{"absolute escape", tmpDir, "/etc/passwd", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := safePath(tt.base, tt.fname, tt.suffix)
			if (err != nil) != tt.wantErr {
				t.Errorf("safePath(%q, %q, %q) error = %v, wantErr %v",
					tt.base, tt.fname, tt.suffix, err, tt.wantErr)
			}
		})
	}
}

func TestPaths_EventLogPath_PathTraversal(t *testing.T) {
	paths := PathsFor(t.TempDir(), t.TempDir())

	_, err := paths.EventLogPath("../../../etc/passwd")
	if err == nil {
		t.Error("Expected error for path traversal, got nil")
	}
}

func TestValidateProjectName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		// Valid names
		{"myproject", false},
		{"my-project", false},
		{"project123", false},
		{"123project", false},
		{"a", false},
		{"a-b-c", false},

		// Invalid names
		{"", true},                             // empty
		{"My-Project", true},                   // uppercase
		{"my project", true},                   // space
		{"my_project", true},                   // underscore breaks subdomains
		{"../../../etc/passwd", true},          // path traversal
		{"/absolute/path", true},               // absolute path
		{"my.project", true},                   // dots
		{"-starts-with-dash", true},            // starts with dash
		{"has@special", true},                  // special characters
		{"has$dollar", true},                   // special characters
		{"has;semicolon", true},                // injection attempt
		{"a" + string(make([]byte, 64)), true}, // too long (64+ chars)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProjectName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProjectName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}

func TestValidateInstanceID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"my-app-1a2b3c4d", false},
		{"app-00000000", false},
		{"a0", false},
		{"", true},
		{"My-App-1A2B3C4D", true},
		{"app/../../etc", true},
		{"app.zip", true},
		{"-app-1a2b3c4d", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateInstanceID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInstanceID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}
