// Package monitor provides the periodic gateway watch loop.
package monitor

import (
	"context"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/health"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/supervisor"
)

// Ensurer brings a sandbox's gateway to a reachable state.
type Ensurer interface {
	Ensure(ctx context.Context, sb runtime.Sandbox, env map[string]string) (*supervisor.Result, error)
}

// CheckResult holds the result of one pass over a sandbox.
type CheckResult struct {
	Sandbox string
	Status  health.Status
	// Health is set in check-only mode.
	Health *health.CheckResult
	// Ensured is set when the supervisor ran successfully.
	Ensured *supervisor.Result
	Err     error
}

// Monitor periodically ensures or checks the gateway in each sandbox.
type Monitor struct {
	interval     time.Duration
	sandboxes    []runtime.Sandbox
	ensurer      Ensurer
	env          map[string]string
	autoRestart  bool
	port         int
	probeTimeout time.Duration
	report       func(CheckResult)
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithAutoRestart makes each pass call Ensure instead of only checking.
func WithAutoRestart(enabled bool) Option {
	return func(m *Monitor) {
		m.autoRestart = enabled
	}
}

// WithEnv sets the environment passed to Ensure.
func WithEnv(env map[string]string) Option {
	return func(m *Monitor) {
		m.env = env
	}
}

// WithProbe sets the port and timeout used in check-only mode.
func WithProbe(port int, timeout time.Duration) Option {
	return func(m *Monitor) {
		m.port = port
		m.probeTimeout = timeout
	}
}

// WithReporter receives every result as it is produced.
func WithReporter(fn func(CheckResult)) Option {
	return func(m *Monitor) {
		m.report = fn
	}
}

// New creates a new Monitor.
func New(interval time.Duration, sandboxes []runtime.Sandbox, ensurer Ensurer, opts ...Option) *Monitor {
	m := &Monitor{
		interval:     interval,
		sandboxes:    sandboxes,
		ensurer:      ensurer,
		port:         config.DefaultPort,
		probeTimeout: config.DefaultListTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts the monitoring loop. It blocks until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	logging.Debug("starting gateway monitor", "interval", m.interval, "autoRestart", m.autoRestart, "sandboxes", len(m.sandboxes))

	// Run an immediate pass, then loop on interval.
	m.checkAll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Debug("gateway monitor stopping")
			return ctx.Err()
		case <-ticker.C:
			m.checkAll(ctx)
		}
	}
}

// checkAll makes one pass over every sandbox in order.
func (m *Monitor) checkAll(ctx context.Context) []CheckResult {
	var results []CheckResult
	for _, sb := range m.sandboxes {
		if ctx.Err() != nil {
			break
		}

		var result CheckResult
		if m.autoRestart {
			result = m.ensure(ctx, sb)
		} else {
			result = m.check(ctx, sb)
		}
		results = append(results, result)

		if m.report != nil {
			m.report(result)
		}
	}
	return results
}

func (m *Monitor) ensure(ctx context.Context, sb runtime.Sandbox) CheckResult {
	result := CheckResult{Sandbox: sb.ID()}

	ensured, err := m.ensurer.Ensure(ctx, sb, m.env)
	if err != nil {
		logging.Warn("gateway ensure failed", "sandbox", sb.ID(), "error", err)
		result.Status = health.StatusUnhealthy
		result.Err = err
		return result
	}

	if ensured.Restarted {
		logging.UserInfo("Restarted gateway in %s (process %s)", sb.ID(), ensured.Process.ID())
	} else if !ensured.Reused {
		logging.UserInfo("Started gateway in %s (process %s)", sb.ID(), ensured.Process.ID())
	}

	result.Status = health.StatusHealthy
	result.Ensured = ensured
	return result
}

func (m *Monitor) check(ctx context.Context, sb runtime.Sandbox) CheckResult {
	h := health.Check(ctx, sb, m.port, m.probeTimeout)
	return CheckResult{
		Sandbox: sb.ID(),
		Status:  h.Status(),
		Health:  h,
	}
}
