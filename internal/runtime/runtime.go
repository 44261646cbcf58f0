// Package runtime defines the sandbox runtime contract for forage-gw.
// The supervisor only ever talks to a sandbox through these interfaces, which
// lets the same orchestration logic drive a container backend in production
// and a scripted mock in tests.
package runtime

import (
	"context"
	"errors"
	"time"
)

// Status represents the lifecycle state of a process inside a sandbox
type Status string

const (
	StatusStarting  Status = "starting"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusKilled    Status = "killed"
	StatusError     Status = "error"
)

// Live reports whether the status is starting or running.
func (s Status) Live() bool {
	return s == StatusStarting || s == StatusRunning
}

// ErrPortTimeout is returned by WaitForPort when the port never accepted a
// connection within the timeout. A crashed process reports the same error.
var ErrPortTimeout = errors.New("timed out waiting for port")

// Logs holds the captured output streams of a process
type Logs struct {
	Stdout string
	Stderr string
}

// StartOptions holds options for starting a background process
type StartOptions struct {
	Env        map[string]string // Environment passed verbatim to the process
	WorkingDir string
}

// ExecOptions holds options for running a short-lived command to completion
type ExecOptions struct {
	Env     map[string]string
	Timeout time.Duration // Zero means no timeout beyond the caller's context
	// Stdin is fed to the command. It cannot be combined with Env.
	Stdin string
}

// ExecResult holds the result of executing a command in a sandbox
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Process is a reference to an OS process inside a sandbox. The sandbox owns
// the process; holders must expect it to be killed or replaced by others.
type Process interface {
	// ID returns the sandbox-assigned process identifier
	ID() string

	// Command returns the command line the process was started with
	Command() string

	// Status returns the status observed when the handle was obtained
	Status() Status

	// Kill terminates the process
	Kill(ctx context.Context) error

	// WaitForPort blocks until the process's network namespace accepts TCP
	// connections on port, or returns ErrPortTimeout after timeout.
	WaitForPort(ctx context.Context, port int, timeout time.Duration) error

	// Logs returns the captured stdout and stderr of the process
	Logs(ctx context.Context) (Logs, error)
}

// Sandbox is the interface that sandbox backends must implement.
// All methods should be safe for concurrent use.
type Sandbox interface {
	// ID returns a stable identifier for the sandbox
	ID() string

	// ListProcesses returns the processes currently known to the sandbox in
	// listing order
	ListProcesses(ctx context.Context) ([]Process, error)

	// StartProcess launches command in the background and returns immediately
	StartProcess(ctx context.Context, command string, opts StartOptions) (Process, error)

	// Exec runs command to completion. A non-zero exit is reported in the
	// result, not as an error.
	Exec(ctx context.Context, command string, opts ExecOptions) (*ExecResult, error)
}
