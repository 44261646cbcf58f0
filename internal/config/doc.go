// Package config provides configuration types and loading for forage-gw.
//
// # Configuration File
//
// Settings are read from a single file, by default
// /etc/forage-gw/forage-gw.toml. The format follows the extension:
//
//   - .toml: TOML (the default)
//   - .yaml, .yml: YAML
//
// Values absent from the file keep their defaults, so an empty file is a
// valid configuration. Unknown keys are rejected.
//
// # Example
//
//	[gateway]
//	port = 18789
//	command = "/usr/local/bin/start-openclaw.sh"
//	trusted_proxies = ["10.1.0.0"]
//
//	[timeouts]
//	startup = "180s"
//	exec = "10s"
//
//	[storage]
//	bucket = "openclaw-data"
//
// # Paths
//
// State such as the audit log lives under StateDir. The audit package joins
// its per-sandbox files onto it with filepath-securejoin, so a container
// name can never resolve outside it.
package config
