// Package testutil provides fixtures and a ready-wired test environment for
// packages that sit above internal/app.
//
// # Fixtures
//
// Configuration and gateway config fixtures are embedded:
//
//	fixtures/valid_config.toml
//	fixtures/valid_config.yaml
//	fixtures/invalid_config.toml
//	fixtures/seeded_openclaw.json
//
// Config fixtures are parsed through config.Load, so they exercise the same
// decoding and validation as the real loader:
//
//	cfg, err := testutil.ValidConfig()
//	_, err = testutil.InvalidConfig() // err != nil
//
// # Test environment
//
// NewTestEnv wires an App to a MockSandbox and a file-backed audit log in a
// temporary directory:
//
//	env := testutil.NewTestEnv(t)
//	env.AddGateway(runtime.StatusRunning, true)
//	res, err := env.App.Supervisor().Ensure(ctx, env.Sandbox, env.Env)
package testutil
