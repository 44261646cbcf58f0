// Package health decides whether a gateway process is accepting connections.
//
// # Probing
//
// Probe waits for a process's port with a caller-supplied timeout:
//
//	outcome, err := health.Probe(ctx, proc, 18789, 180*time.Second)
//	// outcome is OutcomeReachable or OutcomeTimedOut
//
// Any wait error, including a crashed process, counts as OutcomeTimedOut.
// The wait error is returned alongside for diagnostics.
//
// # Health Status
//
// Check combines discovery and a probe into a summary for the status
// command:
//
//	StatusHealthy   - Gateway process live and port reachable
//	StatusUnhealthy - Gateway process live but port not reachable
//	StatusStopped   - No live gateway process
package health
