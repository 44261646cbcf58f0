package testutil

import (
	"strings"
	"testing"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/system"
)

// DefaultSandbox is the name of the sandbox created by NewTestEnv
const DefaultSandbox = "openclaw"

// TestEnv holds the test environment
type TestEnv struct {
	T       *testing.T
	TmpDir  string
	Config  *config.Config
	Sandbox *runtime.MockSandbox
	Audit   *audit.Logger
	App     *app.App

	// Env is the caller environment handed to the supervisor
	Env map[string]string
}

// NewTestEnv creates an App wired to a MockSandbox, a mock executor and an
// audit log under a temporary state directory. Extra options are applied
// after the defaults.
func NewTestEnv(t *testing.T, opts ...app.Option) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()

	cfg := config.Default()
	cfg.StateDir = tmpDir

	sb := runtime.NewMockSandbox(DefaultSandbox)
	logger := audit.NewLogger(tmpDir)

	base := []app.Option{
		app.WithConfig(cfg),
		app.WithFS(system.NewMockFS()),
		app.WithExecutor(system.NewMockExecutor()),
		app.WithAudit(logger),
		app.WithSandboxFactory(func(name string) (runtime.Sandbox, error) {
			return sb, nil
		}),
	}

	return &TestEnv{
		T:       t,
		TmpDir:  tmpDir,
		Config:  cfg,
		Sandbox: sb,
		Audit:   logger,
		App:     app.New(append(base, opts...)...),
		Env:     map[string]string{},
	}
}

// WithCredentials adds an API key for provider to Env
func (e *TestEnv) WithCredentials(provider, key string) *TestEnv {
	e.Env[strings.ToUpper(provider)+"_API_KEY"] = key
	return e
}

// AddGateway registers a gateway process in the sandbox
func (e *TestEnv) AddGateway(status runtime.Status, reachable bool) *runtime.MockProcess {
	return e.Sandbox.AddProcess(&runtime.MockProcess{
		Cmd:        e.Config.Gateway.Command,
		ProcStatus: status,
		Reachable:  reachable,
	})
}

// EventTypes returns the audit event types recorded for the sandbox, in order
func (e *TestEnv) EventTypes() []audit.EventType {
	e.T.Helper()

	events, err := e.Audit.Events(DefaultSandbox)
	if err != nil {
		e.T.Fatalf("Failed to read audit events: %v", err)
	}
	types := make([]audit.EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

// EnvList renders Env as KEY=VALUE entries
func (e *TestEnv) EnvList() []string {
	list := make([]string, 0, len(e.Env))
	for k, v := range e.Env {
		list = append(list, k+"="+v)
	}
	return list
}
