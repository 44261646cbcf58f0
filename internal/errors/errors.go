package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes for forage-gw
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitConfigError  = 2
	ExitSandboxError = 3
	ExitLaunchFailed = 4
	ExitNotReady     = 5
)

// maxStderr bounds how much captured output is embedded in an error message.
const maxStderr = 4096

// GatewayError is the base error type for forage-gw
type GatewayError struct {
	Code    int
	Message string
	Cause   error
	Stderr  string
}

func (e *GatewayError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s\nstderr:\n%s", msg, e.Stderr)
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *GatewayError) ExitCode() int {
	return e.Code
}

// New creates a new GatewayError
func New(code int, message string) *GatewayError {
	return &GatewayError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a GatewayError
func Wrap(code int, message string, cause error) *GatewayError {
	return &GatewayError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *GatewayError {
	return Wrap(ExitConfigError, message, cause)
}

// SandboxError returns an error for sandbox runtime failures
func SandboxError(op string, cause error) *GatewayError {
	return Wrap(ExitSandboxError, fmt.Sprintf("sandbox %s failed", op), cause)
}

// LaunchFailed returns an error for a gateway process that could not be started
func LaunchFailed(command string, cause error) *GatewayError {
	return Wrap(ExitLaunchFailed, fmt.Sprintf("failed to launch gateway %q", command), cause)
}

// NotReady returns an error for a freshly launched gateway that never became
// reachable. Captured stderr is trimmed and embedded for diagnosis.
func NotReady(port int, cause error, stderr string) *GatewayError {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) > maxStderr {
		stderr = "..." + stderr[len(stderr)-maxStderr:]
	}
	return &GatewayError{
		Code:    ExitNotReady,
		Message: fmt.Sprintf("gateway did not become reachable on port %d", port),
		Cause:   cause,
		Stderr:  stderr,
	}
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *GatewayError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.ExitCode()
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
