// Package config provides configuration types and loading for orangectl.
//
// # Configuration Files
//
// Host-level settings are loaded from /etc/orange-build/config.json. Secrets
// never live in the file; they are resolved from ORANGE_* environment
// variables at load time.
//
// # Host Configuration
//
// HostConfig contains system-wide settings:
//
//	type HostConfig struct {
//	    PoolSize         int            // Number of runner slots
//	    RunnerURLPattern string         // Remote runner base URL, %s = runner name
//	    PortRange        PortRange      // Reserved dev server ports
//	    Storage          StorageConfig  // S3-compatible archive bucket
//	    Platform         PlatformConfig // Deployment platform account
//	}
//
// An empty RunnerURLPattern selects the local runner backend, which hosts
// instance filesystems under {stateDir}/runners/.
//
// # Name Validation
//
// Project names become subdomain labels in preview and deployment URLs, so
// they are restricted to lowercase letters, digits, and hyphens:
//
//	config.ValidateProjectName("my-app")         // ok
//	config.ValidateProjectName("My_App")         // error
//	config.ValidateInstanceID("my-app-1a2b3c4d") // ok
//
// # Validation
//
// HostConfig implements Validate() to check for required fields and valid
// values. LoadHostConfig applies defaults, validates, and resolves
// credentials in that order.
package config
