// Package supervisor keeps exactly one reachable gateway running in a
// sandbox.
//
// # Lifecycle
//
// Ensure walks a fixed sequence of states:
//
//	Idle -> Discovering -> Reusing  -> Probing -> Ready
//	                    -> Starting -> Probing -> Ready | Failed
//	Reusing -> Probing -> Restarting -> Starting
//
// A discovered gateway is probed with the full startup timeout before it is
// judged stuck, because a slow cold start looks identical to a hung one
// until the timeout expires. A stuck gateway is killed and replaced exactly
// once; there is no loop back to reuse after a restart.
//
// # Failure Policy
//
// Each step reports a stepResult. Advisory steps (mount, discovery, config
// seed, kill, log retrieval) are logged and skipped on failure. Fatal steps
// (launch, readiness of a fresh process) end Ensure with a typed error from
// internal/errors.
//
// # Concurrency
//
// Calls to Ensure for the same sandbox on one Supervisor are serialized.
// Separate supervisor processes are not coordinated; the full-timeout
// reuse probe keeps a concurrent caller from killing a gateway that is
// merely slow to start.
package supervisor
