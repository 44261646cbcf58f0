// Package app provides the application context for forage-gw.
// It allows dependency injection for testing.
package app

import (
	"sync"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/seed"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/supervisor"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/system"
)

// SandboxFactory opens a sandbox by container name
type SandboxFactory func(name string) (runtime.Sandbox, error)

// App holds the application dependencies
type App struct {
	// Config is the loaded supervisor configuration
	Config *config.Config

	// FS is used to read configuration
	FS system.FileSystem

	// Executor drives the container engine
	Executor system.CommandExecutor

	// Audit receives lifecycle events
	Audit audit.Sink

	// OpenSandbox creates sandboxes; defaults to container-backed ones
	OpenSandbox SandboxFactory

	once       sync.Once
	supervisor *supervisor.Supervisor
}

// Option is a function that configures the App
type Option func(*App)

// WithConfig sets a custom configuration
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithFS sets a custom file system
func WithFS(fs system.FileSystem) Option {
	return func(a *App) {
		a.FS = fs
	}
}

// WithExecutor sets a custom command executor
func WithExecutor(e system.CommandExecutor) Option {
	return func(a *App) {
		a.Executor = e
	}
}

// WithAudit sets a custom audit sink
func WithAudit(sink audit.Sink) Option {
	return func(a *App) {
		a.Audit = sink
	}
}

// WithSandboxFactory sets a custom sandbox factory
func WithSandboxFactory(f SandboxFactory) Option {
	return func(a *App) {
		a.OpenSandbox = f
	}
}

// New creates a new App with the given options.
// Unset dependencies fall back to the real OS and default configuration.
func New(opts ...Option) *App {
	a := &App{}

	for _, opt := range opts {
		opt(a)
	}

	if a.Config == nil {
		a.Config = config.Default()
	}
	if a.FS == nil {
		a.FS = system.DefaultFS()
	}
	if a.Executor == nil {
		a.Executor = system.DefaultExecutor()
	}
	if a.Audit == nil {
		a.Audit = audit.NewLogger(a.Config.StateDir)
	}
	if a.OpenSandbox == nil {
		a.OpenSandbox = a.containerSandbox
	}

	return a
}

// Load creates an App whose configuration is read from path through the
// given file system. An empty path uses the default location.
func Load(fs system.FileSystem, path string, opts ...Option) (*App, error) {
	cfg, err := config.Load(fs, path)
	if err != nil {
		return nil, err
	}
	return New(append([]Option{WithFS(fs), WithConfig(cfg)}, opts...)...), nil
}

func (a *App) containerSandbox(name string) (runtime.Sandbox, error) {
	opts := []runtime.ContainerOption{runtime.WithExecutor(a.Executor)}
	if a.Config.Runtime.Engine != "" {
		opts = append(opts, runtime.WithEngine(a.Config.Runtime.Engine))
	}
	if a.Config.Runtime.LogDir != "" {
		opts = append(opts, runtime.WithLogDir(a.Config.Runtime.LogDir))
	}
	return runtime.NewContainerSandbox(name, opts...)
}

// Sandbox validates name and opens the sandbox
func (a *App) Sandbox(name string) (runtime.Sandbox, error) {
	if err := config.ValidateContainerName(name); err != nil {
		return nil, err
	}
	return a.OpenSandbox(name)
}

// Supervisor returns the shared supervisor, built on first use so every
// caller shares one set of per-sandbox leases.
func (a *App) Supervisor() *supervisor.Supervisor {
	a.once.Do(func() {
		a.supervisor = supervisor.New(a.Config, supervisor.WithAudit(a.Audit))
	})
	return a.supervisor
}

// Seeder returns a seeder for the configured gateway config path
func (a *App) Seeder() *seed.Seeder {
	return seed.NewSeeder(a.Config.Gateway.ConfigPath, a.Config.Timeouts.Exec.Duration)
}

// AuditLog returns the file-backed audit log, or nil when the sink is
// something else
func (a *App) AuditLog() *audit.Logger {
	l, _ := a.Audit.(*audit.Logger)
	return l
}
