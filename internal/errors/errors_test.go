package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestOrangeError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *OrangeError
		wantMsg string
	}{
		{
			name:    "without cause",
			err:     New(ExitGeneralError, "something went wrong"),
			wantMsg: "something went wrong",
		},
		{
			name:    "with cause",
			err:     Wrap(ExitGeneralError, "operation failed", fmt.Errorf("underlying error")),
			wantMsg: "operation failed: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestOrangeError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ExitGeneralError, "wrapped", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	// Without cause
	errNoCause := New(ExitGeneralError, "no cause")
	if unwrapped := errNoCause.Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}

func TestOrangeError_ExitCode(t *testing.T) {
	tests := []struct {
		code int
		name string
	}{
		{ExitSuccess, "success"},
		{ExitGeneralError, "general"},
		{ExitInstanceNotFound, "instance not found"},
		{ExitTemplateNotFound, "template not found"},
		{ExitPortAllocation, "port allocation"},
		{ExitRunnerFailed, "runner failed"},
		{ExitConfigError, "config error"},
		{ExitStorageError, "storage error"},
		{ExitBuildFailed, "build failed"},
		{ExitDeployError, "deploy error"},
		{ExitExportError, "export error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "test")
			if got := err.ExitCode(); got != tt.code {
				t.Errorf("ExitCode() = %d, want %d", got, tt.code)
			}
		})
	}
}

func TestInstanceNotFound(t *testing.T) {
	err := InstanceNotFound("my-app-1a2b3c4d")

	if err.Code != ExitInstanceNotFound {
		t.Errorf("Code = %d, want %d", err.Code, ExitInstanceNotFound)
	}

	if err.Message != "instance not found: my-app-1a2b3c4d" {
		t.Errorf("Message = %q, want %q", err.Message, "instance not found: my-app-1a2b3c4d")
	}
}

func TestTemplateNotFound(t *testing.T) {
	err := TemplateNotFound("vite-react")

	if err.Code != ExitTemplateNotFound {
		t.Errorf("Code = %d, want %d", err.Code, ExitTemplateNotFound)
	}

	if err.Message != "template not found: vite-react" {
		t.Errorf("Message = %q, want %q", err.Message, "template not found: vite-react")
	}
}

func TestPortAllocationFailed(t *testing.T) {
	cause := fmt.Errorf("no ports available")
	err := PortAllocationFailed(cause)

	if err.Code != ExitPortAllocation {
		t.Errorf("Code = %d, want %d", err.Code, ExitPortAllocation)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
}

func TestRunnerFailed(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := RunnerFailed("exec", cause)

	if err.Code != ExitRunnerFailed {
		t.Errorf("Code = %d, want %d", err.Code, ExitRunnerFailed)
	}

	if err.Message != "runner exec failed" {
		t.Errorf("Message = %q, want %q", err.Message, "runner exec failed")
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
}

func TestConfigError(t *testing.T) {
	cause := fmt.Errorf("invalid json")
	err := ConfigError("failed to parse config", cause)

	if err.Code != ExitConfigError {
		t.Errorf("Code = %d, want %d", err.Code, ExitConfigError)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
}

func TestStorageError(t *testing.T) {
	cause := fmt.Errorf("bucket not found")
	err := StorageError("get", cause)

	if err.Code != ExitStorageError {
		t.Errorf("Code = %d, want %d", err.Code, ExitStorageError)
	}

	if err.Message != "storage get failed" {
		t.Errorf("Message = %q, want %q", err.Message, "storage get failed")
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
}

func TestBuildFailed(t *testing.T) {
	cause := fmt.Errorf("exit status 1")
	err := BuildFailed("my-app-1a2b3c4d", cause)

	if err.Code != ExitBuildFailed {
		t.Errorf("Code = %d, want %d", err.Code, ExitBuildFailed)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name:     "OrangeError",
			err:      InstanceNotFound("test"),
			wantCode: ExitInstanceNotFound,
		},
		{
			name:     "wrapped OrangeError",
			err:      fmt.Errorf("outer: %w", TemplateNotFound("test")),
			wantCode: ExitTemplateNotFound,
		},
		{
			name:     "regular error",
			err:      fmt.Errorf("some error"),
			wantCode: ExitGeneralError,
		},
		{
			name:     "nil error",
			err:      nil,
			wantCode: ExitGeneralError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.wantCode {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.wantCode)
			}
		})
	}
}

func TestIs(t *testing.T) {
	target := fmt.Errorf("target error")
	wrapped := fmt.Errorf("wrapped: %w", target)

	if !Is(wrapped, target) {
		t.Error("Is() should return true for wrapped error")
	}

	other := fmt.Errorf("other error")
	if Is(wrapped, other) {
		t.Error("Is() should return false for different error")
	}
}

func TestAs(t *testing.T) {
	orangeErr := InstanceNotFound("test")
	wrapped := fmt.Errorf("wrapped: %w", orangeErr)

	var target *OrangeError
	if !As(wrapped, &target) {
		t.Error("As() should return true for wrapped OrangeError")
	}

	if target.Code != ExitInstanceNotFound {
		t.Errorf("target.Code = %d, want %d", target.Code, ExitInstanceNotFound)
	}

	// Test with non-OrangeError
	regularErr := fmt.Errorf("regular error")
	if As(regularErr, &target) {
		t.Error("As() should return false for non-OrangeError")
	}
}

func TestErrorChaining(t *testing.T) {
	// Test that our errors work with standard error unwrapping
	root := fmt.Errorf("root cause")
	middle := Wrap(ExitConfigError, "config error", root)
	outer := fmt.Errorf("operation failed: %w", middle)

	// Should be able to find root cause
	if !errors.Is(outer, root) {
		t.Error("errors.Is should find root cause")
	}

	// Should be able to extract OrangeError
	var orangeErr *OrangeError
	if !errors.As(outer, &orangeErr) {
		t.Error("errors.As should find OrangeError")
	}

	if orangeErr.Code != ExitConfigError {
		t.Errorf("Code = %d, want %d", orangeErr.Code, ExitConfigError)
	}
}
