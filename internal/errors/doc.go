// Package errors provides typed errors with exit codes for forage-gw.
//
// # Error Types
//
// GatewayError is the base error type that wraps an error with an exit code:
//
//	type GatewayError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	    Stderr  string // Captured stderr of the gateway process, if any
//	}
//
// # Exit Codes
//
//	ExitSuccess      = 0 // Success
//	ExitGeneralError = 1 // General/unknown errors
//	ExitConfigError  = 2 // Supervisor configuration error
//	ExitSandboxError = 3 // Sandbox runtime unavailable or misbehaving
//	ExitLaunchFailed = 4 // Gateway process could not be started
//	ExitNotReady     = 5 // Gateway started but never opened its port
//
// # Fatal vs Advisory
//
// Only fatal failures (launch, readiness of a fresh process) surface as
// GatewayError values. Advisory failures such as a failed config pre-seed or
// a failed kill of a stale process are logged by the caller and dropped.
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
