// Package logging provides logging utilities for forage-gw.
//
// This package provides two categories of output:
//   - Structured logs: supervisor decisions and advisory failures (via slog)
//   - User output: Formatted messages for operators running the CLI
//
// # Structured Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("probing gateway", "pid", proc.ID(), "port", port)
//	logging.Warn("config pre-seed failed", "error", err)
//
// Advisory failures in the supervisor are always logged at Warn so that
// a swallowed error still leaves a trace.
//
// # User Output
//
//	logging.UserInfo("Ensuring gateway in %s...", name)
//	logging.UserSuccess("Gateway ready (pid %s)", pid)
//	logging.UserWarning("Reused gateway was restarted")
//	logging.UserError("Gateway failed: %v", err)
//
// Output destinations default to stdout (info, success) and stderr
// (warning, error) and can be redirected with SetUserOutput.
package logging
