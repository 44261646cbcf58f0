// Package system provides abstractions for OS operations to enable testing.
package system

import (
	"context"
	"os"
)

// FileSystem abstracts the file reads forage-gw performs on the host.
type FileSystem interface {
	// ReadFile reads the named file and returns the contents.
	ReadFile(path string) ([]byte, error)

	// Exists returns true if the path exists.
	Exists(path string) bool
}

// CommandExecutor abstracts command execution for testability.
type CommandExecutor interface {
	// Run runs a command keeping stdout and stderr apart. A non-zero exit
	// is reported through err; use ExitCode to recover the status.
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

	// RunWithStdin is Run with stdin fed to the command.
	RunWithStdin(ctx context.Context, stdin string, name string, args ...string) (stdout, stderr []byte, err error)
}

// Default instances using real OS operations.
var (
	defaultFS       FileSystem      = &osFileSystem{}
	defaultExecutor CommandExecutor = &osExecutor{}
)

// DefaultFS returns the default FileSystem implementation using real OS operations.
func DefaultFS() FileSystem {
	return defaultFS
}

// DefaultExecutor returns the default CommandExecutor implementation.
func DefaultExecutor() CommandExecutor {
	return defaultExecutor
}

// osFileSystem implements FileSystem using real OS operations.
type osFileSystem struct{}

func (f *osFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (f *osFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
