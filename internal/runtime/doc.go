// Package runtime provides a unified interface for sandbox process runtimes.
//
// Supported backends:
//   - container: a docker or podman container driven through "exec"
//   - mock: scripted in-memory sandbox for tests
//
// # Sandbox Interface
//
// The Sandbox interface defines the primitives the gateway supervisor needs:
//   - ListProcesses: enumerate processes with their command lines and status
//   - StartProcess: launch a background process with an explicit environment
//   - Exec: run a short command to completion (config writes, mount checks)
//
// Each Process handle supports Kill, WaitForPort and Logs. WaitForPort is the
// readiness primitive: it blocks until the port accepts a TCP connection or
// the timeout expires, and never distinguishes a crashed process from a slow
// one.
//
// # Container Backend
//
// NewContainerSandbox detects podman or docker (podman preferred). Background
// processes write their output to per-PID files under LogDir inside the
// container so that Logs works for processes started by a different
// supervisor invocation.
//
// # Mock Sandbox
//
// For testing, use NewMockSandbox() to create a mock implementation that can
// be configured with existing processes, injected errors, and port readiness,
// and used to verify which operations the supervisor performed.
package runtime
