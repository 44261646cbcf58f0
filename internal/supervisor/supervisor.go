package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/credentials"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/environ"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/health"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/process"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/seed"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/storage"
)

// Supervisor ensures a single reachable gateway per sandbox
type Supervisor struct {
	Port           int
	Command        string
	StartupTimeout time.Duration
	ListTimeout    time.Duration
	SeedOptions    seed.Options

	seeder  *seed.Seeder
	mounter *storage.Mounter
	audit   audit.Sink
	leases  leases
}

// Option configures a Supervisor
type Option func(*Supervisor)

// WithAudit records lifecycle transitions to sink.
func WithAudit(sink audit.Sink) Option {
	return func(s *Supervisor) {
		s.audit = sink
	}
}

// WithMounter overrides the storage mounter.
func WithMounter(m *storage.Mounter) Option {
	return func(s *Supervisor) {
		s.mounter = m
	}
}

// WithSeeder overrides the config seeder.
func WithSeeder(sd *seed.Seeder) Option {
	return func(s *Supervisor) {
		s.seeder = sd
	}
}

// New creates a Supervisor from configuration.
func New(cfg *config.Config, opts ...Option) *Supervisor {
	s := &Supervisor{
		Port:           cfg.Gateway.Port,
		Command:        cfg.Gateway.Command,
		StartupTimeout: cfg.Timeouts.Startup.Duration,
		ListTimeout:    cfg.Timeouts.List.Duration,
		SeedOptions: seed.Options{
			Port:              cfg.Gateway.Port,
			Mode:              cfg.Gateway.Mode,
			Bind:              cfg.Gateway.Bind,
			TrustedProxies:    cfg.Gateway.TrustedProxies,
			AllowInsecureAuth: cfg.Gateway.AllowInsecureAuth,
		},
		seeder: seed.NewSeeder(cfg.Gateway.ConfigPath, cfg.Timeouts.Exec.Duration),
		mounter: &storage.Mounter{
			MountPoint: cfg.Storage.MountPoint,
			Bucket:     cfg.Storage.Bucket,
			Endpoint:   cfg.Storage.Endpoint,
			Timeout:    cfg.Timeouts.Exec.Duration,
		},
		audit: audit.Discard,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Result describes how Ensure obtained its gateway
type Result struct {
	Process runtime.Process
	// Reused is set when an already running gateway passed the probe.
	Reused bool
	// Restarted is set when a stuck gateway was killed and replaced.
	Restarted bool
	// Seeded is set when a config document was written before launch.
	Seeded bool
}

// run carries one Ensure invocation
type run struct {
	sb     runtime.Sandbox
	env    map[string]string
	state  State
	result Result
}

// Ensure returns a gateway reachable on the configured port, reusing a
// running one when it answers within the startup timeout and otherwise
// starting a fresh one. env is the caller's environment, used for
// credentials, the launch environment and bucket mounting.
func (s *Supervisor) Ensure(ctx context.Context, sb runtime.Sandbox, env map[string]string) (*Result, error) {
	release, err := s.leases.acquire(ctx, sb.ID())
	if err != nil {
		return nil, errors.SandboxError("acquire lease for "+sb.ID(), err)
	}
	defer release()

	r := &run{sb: sb, env: env, state: StateIdle}

	s.transition(r, StateDiscovering)
	s.settle(r, "mount", s.mount(ctx, r))

	if existing := s.discover(ctx, r); existing != nil {
		s.transition(r, StateReusing)
		s.transition(r, StateProbing)
		outcome, waitErr := health.Probe(ctx, existing, s.Port, s.StartupTimeout)
		if outcome == health.OutcomeReachable {
			r.result.Process = existing
			r.result.Reused = true
			s.record(r, audit.EventReuse, existing.ID(), "", nil)
			s.transition(r, StateReady)
			return &r.result, nil
		}
		if ctx.Err() != nil {
			return nil, s.interrupted(r, existing, ctx.Err())
		}

		s.transition(r, StateRestarting)
		r.result.Restarted = true
		s.settle(r, "kill", s.kill(ctx, r, existing, waitErr))
	}

	s.transition(r, StateStarting)
	launchEnv := environ.Build(env)
	s.settle(r, "seed", s.seed(ctx, r))

	proc, step := s.launch(ctx, r, launchEnv)
	if err := s.settle(r, "launch", step); err != nil {
		return nil, err
	}

	s.transition(r, StateProbing)
	if outcome, waitErr := health.Probe(ctx, proc, s.Port, s.StartupTimeout); outcome != health.OutcomeReachable {
		if ctx.Err() != nil {
			return nil, s.interrupted(r, proc, ctx.Err())
		}
		err := s.notReady(ctx, r, proc, waitErr)
		s.transition(r, StateFailed)
		return nil, err
	}

	r.result.Process = proc
	s.record(r, audit.EventReady, proc.ID(), "", nil)
	s.transition(r, StateReady)
	return &r.result, nil
}

// settle logs a failed step and returns the error only when it is fatal.
func (s *Supervisor) settle(r *run, step string, res stepResult) error {
	if !res.failed() {
		return nil
	}
	if res.kind == stepAdvisory {
		logging.Warn("gateway step failed, continuing", "sandbox", r.sb.ID(), "step", step, "error", res.err)
		return nil
	}
	logging.Error("gateway step failed", "sandbox", r.sb.ID(), "step", step, "error", res.err)
	s.record(r, audit.EventFailed, "", step, res.err)
	s.transition(r, StateFailed)
	return res.err
}

func (s *Supervisor) transition(r *run, next State) {
	logging.Debug("gateway state", "sandbox", r.sb.ID(), "from", r.state, "to", next)
	r.state = next
}

func (s *Supervisor) record(r *run, typ audit.EventType, procID, details string, err error) {
	event := audit.Event{
		Type:    typ,
		Sandbox: r.sb.ID(),
		Process: procID,
		Details: details,
	}
	if err != nil {
		event.Error = err.Error()
	}
	if logErr := s.audit.Log(event); logErr != nil {
		logging.Warn("failed to write audit event", "sandbox", r.sb.ID(), "type", typ, "error", logErr)
	}
}

func (s *Supervisor) mount(ctx context.Context, r *run) stepResult {
	if s.mounter == nil || !s.mounter.Configured(r.env) {
		return ok()
	}
	if err := s.mounter.Ensure(ctx, r.sb, r.env); err != nil {
		return advisory(err)
	}
	s.record(r, audit.EventMount, "", s.mounter.MountPoint, nil)
	return ok()
}

func (s *Supervisor) discover(ctx context.Context, r *run) runtime.Process {
	listCtx := ctx
	if s.ListTimeout > 0 {
		var cancel context.CancelFunc
		listCtx, cancel = context.WithTimeout(ctx, s.ListTimeout)
		defer cancel()
	}

	proc := process.Find(listCtx, r.sb)
	if proc != nil {
		s.record(r, audit.EventDiscover, proc.ID(), proc.Command(), nil)
	}
	return proc
}

func (s *Supervisor) kill(ctx context.Context, r *run, proc runtime.Process, cause error) stepResult {
	logging.Info("gateway not reachable, restarting", "sandbox", r.sb.ID(), "process", proc.ID(), "cause", cause)
	s.record(r, audit.EventKill, proc.ID(), "", cause)
	if err := proc.Kill(ctx); err != nil {
		return advisory(fmt.Errorf("failed to kill process %s: %w", proc.ID(), err))
	}
	return ok()
}

func (s *Supervisor) seed(ctx context.Context, r *run) stepResult {
	creds := credentials.FromEnv(r.env)
	sel, found := credentials.Select(creds)
	if !found {
		logging.Info("no provider credentials, skipping config seed", "sandbox", r.sb.ID())
		return ok()
	}

	opts := s.SeedOptions
	opts.GatewayToken = creds.GatewayToken
	cfg := seed.Build(sel, opts)

	if err := s.seeder.Seed(ctx, r.sb, cfg); err != nil {
		return advisory(err)
	}

	r.result.Seeded = true
	s.record(r, audit.EventSeed, "", "provider="+sel.Provider.Name, nil)
	return ok()
}

func (s *Supervisor) launch(ctx context.Context, r *run, env map[string]string) (runtime.Process, stepResult) {
	proc, err := r.sb.StartProcess(ctx, s.Command, runtime.StartOptions{Env: env})
	if err != nil {
		return nil, fatal(errors.LaunchFailed(s.Command, err))
	}
	logging.Info("launched gateway", "sandbox", r.sb.ID(), "process", proc.ID(), "command", s.Command)
	s.record(r, audit.EventLaunch, proc.ID(), s.Command, nil)
	return proc, ok()
}

// interrupted ends a run whose context ended during a readiness wait. The
// process is left running.
func (s *Supervisor) interrupted(r *run, proc runtime.Process, cause error) error {
	err := errors.SandboxError("readiness wait for process "+proc.ID(), cause)
	logging.Warn("gateway readiness wait interrupted", "sandbox", r.sb.ID(), "process", proc.ID(), "state", r.state, "error", cause)
	s.record(r, audit.EventFailed, proc.ID(), "wait interrupted", cause)
	s.transition(r, StateFailed)
	return err
}

// notReady builds the error for a fresh gateway that never answered. Log
// retrieval is advisory: without it the timeout error is returned as is.
func (s *Supervisor) notReady(ctx context.Context, r *run, proc runtime.Process, waitErr error) error {
	var stderr string
	logs, err := proc.Logs(ctx)
	if err != nil {
		s.settle(r, "logs", advisory(err))
	} else {
		stderr = logs.Stderr
	}

	notReady := errors.NotReady(s.Port, waitErr, stderr)
	logging.Error("gateway failed to become ready", "sandbox", r.sb.ID(), "process", proc.ID(), "port", s.Port)
	s.record(r, audit.EventFailed, proc.ID(), "probe", notReady)
	return notReady
}
