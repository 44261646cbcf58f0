// Package seed builds the gateway's service configuration and writes it into
// the sandbox before the gateway's own startup script runs.
//
// The startup script only runs its first-run setup when no config file
// exists, and that setup is the step that hangs or fails. Writing a minimal
// valid config first makes the script skip it. Seeding is best-effort: the
// supervisor logs a failed Seed and carries on, leaving the script's own
// bootstrap as the fallback.
//
// # Document Shape
//
//	{
//	  "gateway":  {"port", "mode", "bind", "trustedProxies", "auth", "controlUi"},
//	  "models":   {"providers": {"<name>": {...}}},
//	  "agents":   {"defaults": {"model": {"primary": "<provider>/<model>"}}},
//	  "channels": {}
//	}
//
// At most one provider is present, chosen by credentials.Select.
package seed
