package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/system"
)

// current is the application context, loaded on first use.
var current *app.App

// getApp returns the application context, loading configuration from
// --config on first use.
func getApp() (*app.App, error) {
	if current != nil {
		return current, nil
	}
	a, err := app.Load(system.DefaultFS(), configPath)
	if err != nil {
		return nil, errors.ConfigError("failed to load configuration", err)
	}
	current = a
	return a, nil
}

// setApp replaces the application context (used for testing).
func setApp(a *app.App) {
	current = a
}

// openSandbox resolves a container name to a sandbox.
func openSandbox(a *app.App, name string) (runtime.Sandbox, error) {
	sb, err := a.Sandbox(name)
	if err != nil {
		return nil, errors.SandboxError("open "+name, err)
	}
	return sb, nil
}

// environ is the caller's environment, replaceable in tests.
var environ = os.Environ

// callerEnv returns the caller's environment as a map.
func callerEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
