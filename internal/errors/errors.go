package errors

import (
	"errors"
	"fmt"
)

// Exit codes for orangectl
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitInstanceNotFound = 2
	ExitTemplateNotFound = 3
	ExitPortAllocation   = 4
	ExitRunnerFailed     = 5
	ExitConfigError      = 6
	ExitStorageError     = 7
	ExitBuildFailed      = 8
	ExitDeployError      = 9
	ExitExportError      = 10
)

// OrangeError is the base error type for orangectl
type OrangeError struct {
	Code    int
	Message string
	Cause   error
}

func (e *OrangeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *OrangeError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *OrangeError) ExitCode() int {
	return e.Code
}

// New creates a new OrangeError
func New(code int, message string) *OrangeError {
	return &OrangeError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an OrangeError
func Wrap(code int, message string, cause error) *OrangeError {
	return &OrangeError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// InstanceNotFound returns an error for a missing instance
func InstanceNotFound(id string) *OrangeError {
	return New(ExitInstanceNotFound, fmt.Sprintf("instance not found: %s", id))
}

// TemplateNotFound returns an error for a missing template
func TemplateNotFound(name string) *OrangeError {
	return New(ExitTemplateNotFound, fmt.Sprintf("template not found: %s", name))
}

// PortAllocationFailed returns an error for port allocation failure
func PortAllocationFailed(cause error) *OrangeError {
	return Wrap(ExitPortAllocation, "failed to allocate port", cause)
}

// RunnerFailed returns an error for runner operations
func RunnerFailed(op string, cause error) *OrangeError {
	return Wrap(ExitRunnerFailed, fmt.Sprintf("runner %s failed", op), cause)
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *OrangeError {
	return Wrap(ExitConfigError, message, cause)
}

// StorageError returns an error for object storage operations
func StorageError(op string, cause error) *OrangeError {
	return Wrap(ExitStorageError, fmt.Sprintf("storage %s failed", op), cause)
}

// BuildFailed returns an error for a failed project build
func BuildFailed(instance string, cause error) *OrangeError {
	return Wrap(ExitBuildFailed, fmt.Sprintf("build failed for %s", instance), cause)
}

// DeployError returns an error for deployment operations
func DeployError(message string, cause error) *OrangeError {
	return Wrap(ExitDeployError, message, cause)
}

// ExportError returns an error for repository export operations
func ExportError(message string, cause error) *OrangeError {
	return Wrap(ExitExportError, message, cause)
}

// InstanceNotRunning returns an error when an instance exists but has no live dev server
func InstanceNotRunning(id string) *OrangeError {
	return New(ExitGeneralError, fmt.Sprintf("instance %s is not running", id))
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *OrangeError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var orangeErr *OrangeError
	if errors.As(err, &orangeErr) {
		return orangeErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
