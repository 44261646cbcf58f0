package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/runtime"
)

func TestProbe_Reachable(t *testing.T) {
	proc := &runtime.MockProcess{ProcID: "42", Cmd: "openclaw gateway", ProcStatus: runtime.StatusStarting, Reachable: true}

	outcome, err := Probe(context.Background(), proc, 18789, 180*time.Second)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if outcome != OutcomeReachable {
		t.Errorf("outcome = %s, want reachable", outcome)
	}

	waits := proc.Waits()
	if len(waits) != 1 || waits[0] != 180*time.Second {
		t.Errorf("WaitForPort timeouts = %v, want [3m0s]", waits)
	}
}

func TestProbe_TimedOut(t *testing.T) {
	proc := &runtime.MockProcess{ProcID: "42", Cmd: "openclaw gateway", ProcStatus: runtime.StatusRunning}

	outcome, err := Probe(context.Background(), proc, 18789, time.Second)
	if outcome != OutcomeTimedOut {
		t.Errorf("outcome = %s, want timed-out", outcome)
	}
	if !errors.Is(err, runtime.ErrPortTimeout) {
		t.Errorf("error = %v, want ErrPortTimeout", err)
	}
}

func TestProbe_KilledProcessTimesOut(t *testing.T) {
	proc := &runtime.MockProcess{ProcID: "42", Cmd: "openclaw gateway", ProcStatus: runtime.StatusKilled, Reachable: true}

	outcome, err := Probe(context.Background(), proc, 18789, time.Second)
	if outcome != OutcomeTimedOut || err == nil {
		t.Errorf("Probe() = %s, %v; want timed-out with error", outcome, err)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name  string
		procs []*runtime.MockProcess
		want  Status
	}{
		{
			name: "healthy",
			procs: []*runtime.MockProcess{
				{Cmd: "openclaw gateway", ProcStatus: runtime.StatusRunning, Reachable: true},
			},
			want: StatusHealthy,
		},
		{
			name: "unhealthy",
			procs: []*runtime.MockProcess{
				{Cmd: "/usr/local/bin/start-openclaw.sh", ProcStatus: runtime.StatusRunning},
			},
			want: StatusUnhealthy,
		},
		{
			name: "only management process",
			procs: []*runtime.MockProcess{
				{Cmd: "openclaw devices list", ProcStatus: runtime.StatusRunning, Reachable: true},
			},
			want: StatusStopped,
		},
		{
			name: "no processes",
			want: StatusStopped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb := runtime.NewMockSandbox("dev")
			for _, p := range tt.procs {
				sb.AddProcess(p)
			}

			result := Check(context.Background(), sb, 18789, time.Second)
			if got := result.Status(); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
			if result.Sandbox != "dev" {
				t.Errorf("Sandbox = %q, want %q", result.Sandbox, "dev")
			}
		})
	}
}

func TestCheck_DoesNotStartOrKill(t *testing.T) {
	sb := runtime.NewMockSandbox("dev")
	p := sb.AddProcess(&runtime.MockProcess{Cmd: "openclaw gateway", ProcStatus: runtime.StatusRunning})

	Check(context.Background(), sb, 18789, time.Second)

	if len(sb.GetCallsFor("StartProcess")) != 0 {
		t.Error("Check() should not start processes")
	}
	if p.Kills() != 0 {
		t.Error("Check() should not kill processes")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"millis", 250 * time.Millisecond, "250ms"},
		{"seconds", 30 * time.Second, "30s"},
		{"minutes", 3*time.Minute + 5*time.Second, "3m 5s"},
		{"hours", 2*time.Hour + 30*time.Minute, "2h 30m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatDuration(tt.duration); got != tt.want {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.duration, got, tt.want)
			}
		})
	}
}
