// Package system abstracts host OS operations behind small interfaces so
// code that touches the host (the local runner backend, host-side zip and
// git invocations) can be tested against scripted fakes.
package system

import (
	"context"
	"io/fs"
	"os"
)

// FileSystem is the host filesystem surface the local runner backend and
// the template publisher go through.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm fs.FileMode) error

	// Remove removes a single file or empty directory; RemoveAll takes a
	// whole tree.
	Remove(path string) error
	RemoveAll(path string) error

	MkdirAll(path string, perm fs.FileMode) error

	// Exists and IsDir swallow stat errors; a path that cannot be statted
	// reports false.
	Exists(path string) bool
	IsDir(path string) bool

	ReadDir(path string) ([]fs.DirEntry, error)
}

// CommandExecutor runs host commands (sh lines for the local backend, zip
// for template publishing).
type CommandExecutor interface {
	// Execute runs a command and returns its combined output.
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)

	// ExecuteCapture runs a command and returns stdout, stderr, and the exit
	// code. A non-zero exit is not an error; err is set only when the command
	// could not be run at all.
	ExecuteCapture(ctx context.Context, name string, args ...string) (stdout, stderr []byte, exitCode int, err error)
}

var (
	defaultFS       FileSystem      = &osFileSystem{}
	defaultExecutor CommandExecutor = &osExecutor{}
)

// DefaultFS returns the process-wide FileSystem.
func DefaultFS() FileSystem {
	return defaultFS
}

// DefaultExecutor returns the process-wide CommandExecutor.
func DefaultExecutor() CommandExecutor {
	return defaultExecutor
}

// SetDefaultFS swaps the process-wide FileSystem. Tests pair it with
// ResetDefaults.
func SetDefaultFS(fs FileSystem) {
	defaultFS = fs
}

// SetDefaultExecutor swaps the process-wide CommandExecutor. Tests pair it
// with ResetDefaults.
func SetDefaultExecutor(exec CommandExecutor) {
	defaultExecutor = exec
}

// ResetDefaults restores the OS-backed implementations.
func ResetDefaults() {
	defaultFS = &osFileSystem{}
	defaultExecutor = &osExecutor{}
}

type osFileSystem struct{}

func (f *osFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (f *osFileSystem) WriteFile(path string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (f *osFileSystem) Remove(path string) error {
	return os.Remove(path)
}

func (f *osFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (f *osFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (f *osFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (f *osFileSystem) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (f *osFileSystem) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}
