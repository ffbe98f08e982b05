// Package errors provides typed errors with exit codes for orangectl.
//
// # Error Types
//
// OrangeError is the base error type that wraps an error with an exit code:
//
//	type OrangeError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
// Defined exit codes for different error categories:
//
//	ExitSuccess          = 0  // Success
//	ExitGeneralError     = 1  // General/unknown errors
//	ExitInstanceNotFound = 2  // Instance does not exist
//	ExitTemplateNotFound = 3  // Template does not exist
//	ExitPortAllocation   = 4  // Port allocation failure
//	ExitRunnerFailed     = 5  // Runner operation failed
//	ExitConfigError      = 6  // Configuration error
//	ExitStorageError     = 7  // Object storage operation failed
//	ExitBuildFailed      = 8  // Project build failed
//	ExitDeployError      = 9  // Deployment failed
//	ExitExportError      = 10 // Repository export failed
//
// # Error Constructors
//
// Use the provided constructors for consistent error creation:
//
//	errors.InstanceNotFound("my-app-1a2b3c4d")
//	errors.TemplateNotFound("vite-react")
//	errors.RunnerFailed("exec", err)
//	errors.DeployError("wrangler deploy failed", err)
//
// # Extracting Exit Codes
//
// Use GetExitCode to extract the exit code from an error chain:
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
