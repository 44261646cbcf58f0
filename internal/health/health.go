package health

import (
	"context"
	"fmt"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/process"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/runtime"
)

// Outcome is the result of a readiness probe
type Outcome int

const (
	OutcomeTimedOut Outcome = iota
	OutcomeReachable
)

func (o Outcome) String() string {
	if o == OutcomeReachable {
		return "reachable"
	}
	return "timed-out"
}

// Probe waits up to timeout for proc to accept connections on port.
func Probe(ctx context.Context, proc runtime.Process, port int, timeout time.Duration) (Outcome, error) {
	start := time.Now()
	logging.Debug("probing gateway port", "process", proc.ID(), "port", port, "timeout", timeout)

	if err := proc.WaitForPort(ctx, port, timeout); err != nil {
		logging.Debug("gateway port not reachable", "process", proc.ID(), "port", port,
			"elapsed", time.Since(start), "error", err)
		return OutcomeTimedOut, err
	}

	logging.Debug("gateway port reachable", "process", proc.ID(), "port", port, "elapsed", time.Since(start))
	return OutcomeReachable, nil
}

// Status represents the health status of a gateway
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusStopped   Status = "stopped"
)

// CheckResult contains the results of health checks
type CheckResult struct {
	Sandbox   string
	ProcessID string
	Command   string
	Process   runtime.Status
	Reachable bool
	Elapsed   time.Duration
}

// Status summarises the result.
func (r *CheckResult) Status() Status {
	switch {
	case r.ProcessID == "":
		return StatusStopped
	case r.Reachable:
		return StatusHealthy
	default:
		return StatusUnhealthy
	}
}

// ElapsedString returns the probe duration in human-readable format.
func (r *CheckResult) ElapsedString() string {
	return formatDuration(r.Elapsed)
}

// Check looks up the gateway in sb and probes it once. Unlike the
// supervisor it never starts or kills anything.
func Check(ctx context.Context, sb runtime.Sandbox, port int, timeout time.Duration) *CheckResult {
	result := &CheckResult{Sandbox: sb.ID()}

	proc := process.Find(ctx, sb)
	if proc == nil {
		return result
	}
	result.ProcessID = proc.ID()
	result.Command = proc.Command()
	result.Process = proc.Status()

	start := time.Now()
	outcome, _ := Probe(ctx, proc, port, timeout)
	result.Elapsed = time.Since(start)
	result.Reachable = outcome == OutcomeReachable
	return result
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
