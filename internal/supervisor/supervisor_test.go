package supervisor

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/runtime"
)

type memorySink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memorySink) Log(e audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memorySink) types() []audit.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []audit.EventType
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

func withKeys() map[string]string {
	return map[string]string{
		"ANTHROPIC_API_KEY": "sk-ant-test",
		"OPENAI_API_KEY":    "sk-openai-ignored",
	}
}

func newTestSupervisor(opts ...Option) (*Supervisor, *memorySink) {
	sink := &memorySink{}
	opts = append([]Option{WithAudit(sink)}, opts...)
	return New(config.Default(), opts...), sink
}

func gateway(status runtime.Status, reachable bool) *runtime.MockProcess {
	return &runtime.MockProcess{Cmd: "/bin/bash /usr/local/bin/start-openclaw.sh", ProcStatus: status, Reachable: reachable}
}

func TestEnsure_ReusesReachableGateway(t *testing.T) {
	sup, sink := newTestSupervisor()
	sb := runtime.NewMockSandbox("openclaw")
	existing := sb.AddProcess(gateway(runtime.StatusRunning, true))

	result, err := sup.Ensure(context.Background(), sb, withKeys())
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	if result.Process != existing {
		t.Errorf("Process = %v, want the existing handle", result.Process)
	}
	if !result.Reused || result.Restarted || result.Seeded {
		t.Errorf("Result = %+v, want reused only", result)
	}
	if n := len(sb.GetCallsFor("StartProcess")); n != 0 {
		t.Errorf("StartProcess calls = %d, want 0", n)
	}
	if n := len(sb.GetCallsFor("Exec")); n != 0 {
		t.Errorf("Exec calls = %d, want 0 (no seed on reuse)", n)
	}
	if existing.Kills() != 0 {
		t.Errorf("Kill calls = %d, want 0", existing.Kills())
	}

	want := []audit.EventType{audit.EventDiscover, audit.EventReuse}
	if got := sink.types(); !equalTypes(got, want) {
		t.Errorf("audit events = %v, want %v", got, want)
	}
}

func TestEnsure_ReuseProbeUsesFullTimeout(t *testing.T) {
	sup, _ := newTestSupervisor()
	sb := runtime.NewMockSandbox("openclaw")
	existing := sb.AddProcess(gateway(runtime.StatusStarting, true))

	if _, err := sup.Ensure(context.Background(), sb, nil); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	waits := existing.Waits()
	if len(waits) != 1 || waits[0] != config.DefaultStartupTimeout {
		t.Errorf("reuse probe timeouts = %v, want [%v]", waits, config.DefaultStartupTimeout)
	}
}

func TestEnsure_RestartsStuckGateway(t *testing.T) {
	sup, sink := newTestSupervisor()
	sb := runtime.NewMockSandbox("openclaw")
	stuck := sb.AddProcess(gateway(runtime.StatusRunning, false))

	result, err := sup.Ensure(context.Background(), sb, withKeys())
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	if result.Process == stuck {
		t.Error("Process should be a new handle")
	}
	if !result.Restarted || !result.Seeded || result.Reused {
		t.Errorf("Result = %+v, want restarted and seeded", result)
	}
	if stuck.Kills() != 1 {
		t.Errorf("Kill calls = %d, want 1", stuck.Kills())
	}
	if n := len(sb.GetCallsFor("StartProcess")); n != 1 {
		t.Errorf("StartProcess calls = %d, want 1", n)
	}
	if n := len(sb.GetCallsFor("Exec")); n != 1 {
		t.Errorf("Exec calls = %d, want 1 (seed)", n)
	}

	fresh := result.Process.(*runtime.MockProcess)
	if waits := fresh.Waits(); len(waits) != 1 || waits[0] != config.DefaultStartupTimeout {
		t.Errorf("fresh probe timeouts = %v, want [%v]", waits, config.DefaultStartupTimeout)
	}

	want := []audit.EventType{audit.EventDiscover, audit.EventKill, audit.EventSeed, audit.EventLaunch, audit.EventReady}
	if got := sink.types(); !equalTypes(got, want) {
		t.Errorf("audit events = %v, want %v", got, want)
	}
}

func TestEnsure_Idempotent(t *testing.T) {
	sup, _ := newTestSupervisor()
	sb := runtime.NewMockSandbox("openclaw")

	first, err := sup.Ensure(context.Background(), sb, withKeys())
	if err != nil {
		t.Fatalf("first Ensure() error = %v", err)
	}
	second, err := sup.Ensure(context.Background(), sb, withKeys())
	if err != nil {
		t.Fatalf("second Ensure() error = %v", err)
	}

	if second.Process != first.Process {
		t.Error("second Ensure() should return the same handle")
	}
	if !second.Reused {
		t.Error("second Ensure() should reuse")
	}
	if n := len(sb.GetCallsFor("StartProcess")); n != 1 {
		t.Errorf("StartProcess calls = %d, want 1", n)
	}
	if n := len(sb.GetCallsFor("Exec")); n != 1 {
		t.Errorf("Exec calls = %d, want 1", n)
	}
}

func TestEnsure_FreshStartSeedsAndLaunches(t *testing.T) {
	sup, _ := newTestSupervisor()
	sb := runtime.NewMockSandbox("openclaw")
	env := withKeys()
	env["OPENCLAW_GATEWAY_TOKEN"] = "gw-token"
	env["UNRELATED"] = "dropped"

	result, err := sup.Ensure(context.Background(), sb, env)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if result.Reused || result.Restarted || !result.Seeded {
		t.Errorf("Result = %+v, want seeded fresh start", result)
	}

	execs := sb.GetCallsFor("Exec")
	if len(execs) != 1 {
		t.Fatalf("Exec calls = %d, want 1", len(execs))
	}
	cmd := execs[0].Args[0].(string)
	if !strings.Contains(cmd, "/root/.openclaw") {
		t.Errorf("seed command = %q, want the config path", cmd)
	}
	seedOpts := execs[0].Args[1].(runtime.ExecOptions)
	for _, want := range []string{"anthropic", "sk-ant-test", "gw-token"} {
		if !strings.Contains(seedOpts.Stdin, want) {
			t.Errorf("seed payload missing %q", want)
		}
	}
	if strings.Contains(seedOpts.Stdin, "sk-openai-ignored") {
		t.Error("seed payload should only carry the highest priority provider")
	}
	if seedOpts.Timeout != config.DefaultExecTimeout {
		t.Errorf("seed timeout = %v, want %v", seedOpts.Timeout, config.DefaultExecTimeout)
	}

	starts := sb.GetCallsFor("StartProcess")
	if len(starts) != 1 {
		t.Fatalf("StartProcess calls = %d, want 1", len(starts))
	}
	if cmd := starts[0].Args[0].(string); cmd != config.DefaultCommand {
		t.Errorf("launch command = %q, want %q", cmd, config.DefaultCommand)
	}
	opts := starts[0].Args[1].(runtime.StartOptions)
	if opts.Env["ANTHROPIC_API_KEY"] != "sk-ant-test" || opts.Env["OPENCLAW_GATEWAY_TOKEN"] != "gw-token" {
		t.Errorf("launch env = %v, want forwarded credentials", opts.Env)
	}
	if _, ok := opts.Env["UNRELATED"]; ok {
		t.Error("launch env should not forward unrelated variables")
	}
}

func TestEnsure_NoCredentialsSkipsSeed(t *testing.T) {
	sup, _ := newTestSupervisor()
	sb := runtime.NewMockSandbox("openclaw")

	result, err := sup.Ensure(context.Background(), sb, map[string]string{})
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if result.Seeded {
		t.Error("Seeded should be false without credentials")
	}
	if n := len(sb.GetCallsFor("Exec")); n != 0 {
		t.Errorf("Exec calls = %d, want 0", n)
	}
	if n := len(sb.GetCallsFor("StartProcess")); n != 1 {
		t.Errorf("StartProcess calls = %d, want 1", n)
	}
}

func TestEnsure_IgnoresManagementProcess(t *testing.T) {
	sup, _ := newTestSupervisor()
	sb := runtime.NewMockSandbox("openclaw")
	mgmt := sb.AddProcess(&runtime.MockProcess{Cmd: "openclaw devices list --json", ProcStatus: runtime.StatusRunning, Reachable: true})

	result, err := sup.Ensure(context.Background(), sb, nil)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if result.Process == mgmt || result.Reused {
		t.Error("management process must not be reused")
	}
	if mgmt.Kills() != 0 {
		t.Error("management process must not be killed")
	}
}

func TestEnsure_NotReadyEmbedsStderr(t *testing.T) {
	sup, sink := newTestSupervisor()
	sb := runtime.NewMockSandbox("openclaw")
	sb.NewProcess = func(cmd string, opts runtime.StartOptions) *runtime.MockProcess {
		return &runtime.MockProcess{Output: runtime.Logs{Stderr: "Error: missing gateway.mode\n"}}
	}

	_, err := sup.Ensure(context.Background(), sb, withKeys())
	if err == nil {
		t.Fatal("Ensure() should fail")
	}

	if code := errors.GetExitCode(err); code != errors.ExitNotReady {
		t.Errorf("exit code = %d, want %d", code, errors.ExitNotReady)
	}
	if !strings.Contains(err.Error(), "Error: missing gateway.mode") {
		t.Errorf("error = %v, want captured stderr", err)
	}
	if !stderrors.Is(err, runtime.ErrPortTimeout) {
		t.Errorf("error = %v, want to wrap ErrPortTimeout", err)
	}

	types := sink.types()
	if len(types) == 0 || types[len(types)-1] != audit.EventFailed {
		t.Errorf("audit events = %v, want trailing failed", types)
	}
}

func TestEnsure_LogsFailureReturnsTimeout(t *testing.T) {
	sup, _ := newTestSupervisor()
	sb := runtime.NewMockSandbox("openclaw")
	sb.NewProcess = func(cmd string, opts runtime.StartOptions) *runtime.MockProcess {
		return &runtime.MockProcess{LogsErr: stderrors.New("log file vanished")}
	}

	_, err := sup.Ensure(context.Background(), sb, nil)
	if err == nil {
		t.Fatal("Ensure() should fail")
	}
	if !stderrors.Is(err, runtime.ErrPortTimeout) {
		t.Errorf("error = %v, want the timeout error", err)
	}
	if strings.Contains(err.Error(), "log file vanished") {
		t.Errorf("error = %v, should not be masked by the log failure", err)
	}
	if code := errors.GetExitCode(err); code != errors.ExitNotReady {
		t.Errorf("exit code = %d, want %d", code, errors.ExitNotReady)
	}
}

func TestEnsure_NoRetryAfterRestartFails(t *testing.T) {
	sup, _ := newTestSupervisor()
	sb := runtime.NewMockSandbox("openclaw")
	stuck := sb.AddProcess(gateway(runtime.StatusRunning, false))
	sb.NewProcess = func(cmd string, opts runtime.StartOptions) *runtime.MockProcess {
		return &runtime.MockProcess{}
	}

	if _, err := sup.Ensure(context.Background(), sb, nil); err == nil {
		t.Fatal("Ensure() should fail")
	}
	if n := len(sb.GetCallsFor("StartProcess")); n != 1 {
		t.Errorf("StartProcess calls = %d, want exactly 1", n)
	}
	if stuck.Kills() != 1 {
		t.Errorf("Kill calls = %d, want 1", stuck.Kills())
	}
}

func TestEnsure_LaunchFailureIsFatal(t *testing.T) {
	sup, _ := newTestSupervisor()
	sb := runtime.NewMockSandbox("openclaw")
	cause := stderrors.New("exec: no such file")
	sb.SetError("StartProcess", cause)

	_, err := sup.Ensure(context.Background(), sb, withKeys())
	if err == nil {
		t.Fatal("Ensure() should fail")
	}
	if code := errors.GetExitCode(err); code != errors.ExitLaunchFailed {
		t.Errorf("exit code = %d, want %d", code, errors.ExitLaunchFailed)
	}
	if !stderrors.Is(err, cause) {
		t.Errorf("error = %v, want to wrap launch cause", err)
	}
	if n := len(sb.GetCallsFor("StartProcess")); n != 1 {
		t.Errorf("StartProcess calls = %d, want 1 (no retry)", n)
	}
}

func TestEnsure_AdvisoryFailuresDoNotBlock(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*runtime.MockSandbox)
	}{
		{
			name: "listing fails",
			setup: func(sb *runtime.MockSandbox) {
				sb.SetError("ListProcesses", stderrors.New("ps: timeout"))
			},
		},
		{
			name: "seed write fails",
			setup: func(sb *runtime.MockSandbox) {
				sb.ExecHandler = func(cmd string, opts runtime.ExecOptions) *runtime.ExecResult {
					return &runtime.ExecResult{ExitCode: 1, Stderr: "read-only file system"}
				}
			},
		},
		{
			name: "exec errors",
			setup: func(sb *runtime.MockSandbox) {
				sb.SetError("Exec", stderrors.New("exec: timeout"))
			},
		},
		{
			name: "kill fails",
			setup: func(sb *runtime.MockSandbox) {
				p := sb.AddProcess(gateway(runtime.StatusRunning, false))
				p.KillErr = stderrors.New("operation not permitted")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sup, _ := newTestSupervisor()
			sb := runtime.NewMockSandbox("openclaw")
			tt.setup(sb)

			result, err := sup.Ensure(context.Background(), sb, withKeys())
			if err != nil {
				t.Fatalf("Ensure() error = %v", err)
			}
			if result.Process == nil {
				t.Fatal("Process should be set")
			}
			if n := len(sb.GetCallsFor("StartProcess")); n != 1 {
				t.Errorf("StartProcess calls = %d, want 1", n)
			}
		})
	}
}

func TestEnsure_MountFailureIsAdvisory(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Bucket = "openclaw-data"
	sup := New(cfg)

	sb := runtime.NewMockSandbox("openclaw")
	sb.ExecHandler = func(cmd string, opts runtime.ExecOptions) *runtime.ExecResult {
		if cmd == "mount" {
			return &runtime.ExecResult{}
		}
		if strings.Contains(cmd, "s3fs") {
			return &runtime.ExecResult{ExitCode: 1, Stderr: "fuse: device not found"}
		}
		return &runtime.ExecResult{}
	}

	env := withKeys()
	env["R2_ACCESS_KEY_ID"] = "id"
	env["R2_SECRET_ACCESS_KEY"] = "secret"
	env["CF_ACCOUNT_ID"] = "acct"

	result, err := sup.Ensure(context.Background(), sb, env)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if !result.Seeded {
		t.Error("seed should still run after a failed mount")
	}

	execs := sb.GetCallsFor("Exec")
	if len(execs) != 3 {
		t.Fatalf("Exec calls = %d, want 3 (mount check, mount, seed)", len(execs))
	}
	if execs[0].Args[0].(string) != "mount" {
		t.Errorf("first Exec = %q, want mount check", execs[0].Args[0])
	}
}

func TestEnsure_ConcurrentCallsLaunchOnce(t *testing.T) {
	sup, _ := newTestSupervisor()
	sb := runtime.NewMockSandbox("openclaw")

	gate := make(chan struct{})
	sb.NewProcess = func(cmd string, opts runtime.StartOptions) *runtime.MockProcess {
		return &runtime.MockProcess{Reachable: true, Gate: gate}
	}

	var wg sync.WaitGroup
	results := make([]*Result, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = sup.Ensure(context.Background(), sb, withKeys())
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Ensure() #%d error = %v", i, err)
		}
	}
	if results[0].Process != results[1].Process {
		t.Error("concurrent callers should share one gateway")
	}
	if n := len(sb.GetCallsFor("StartProcess")); n != 1 {
		t.Errorf("StartProcess calls = %d, want 1", n)
	}
}

func TestEnsure_LeaseHonoursContext(t *testing.T) {
	sup, _ := newTestSupervisor()
	sb := runtime.NewMockSandbox("openclaw")

	release, err := sup.leases.acquire(context.Background(), "openclaw")
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = sup.Ensure(ctx, sb, nil)
	if err == nil {
		t.Fatal("Ensure() should fail while the lease is held")
	}
	if code := errors.GetExitCode(err); code != errors.ExitSandboxError {
		t.Errorf("exit code = %d, want %d", code, errors.ExitSandboxError)
	}
	if len(sb.CallLog) != 0 {
		t.Errorf("sandbox calls = %v, want none", sb.CallLog)
	}
}

func TestEnsure_ReuseWaitInterruptedKeepsGateway(t *testing.T) {
	sup, sink := newTestSupervisor()
	sb := runtime.NewMockSandbox("openclaw")

	gate := make(chan struct{})
	defer close(gate)
	starting := sb.AddProcess(&runtime.MockProcess{
		Cmd:        "openclaw gateway",
		ProcStatus: runtime.StatusStarting,
		Reachable:  true,
		Gate:       gate,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sup.Ensure(ctx, sb, withKeys())
	if err == nil {
		t.Fatal("Ensure() should fail when the context ends during the readiness wait")
	}
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want to wrap context.DeadlineExceeded", err)
	}
	if code := errors.GetExitCode(err); code != errors.ExitSandboxError {
		t.Errorf("exit code = %d, want %d", code, errors.ExitSandboxError)
	}
	if starting.Kills() != 0 {
		t.Errorf("Kill calls = %d, want 0", starting.Kills())
	}
	if n := len(sb.GetCallsFor("StartProcess")); n != 0 {
		t.Errorf("StartProcess calls = %d, want 0", n)
	}
	if n := len(sb.GetCallsFor("Exec")); n != 0 {
		t.Errorf("Exec calls = %d, want 0", n)
	}

	want := []audit.EventType{audit.EventDiscover, audit.EventFailed}
	if got := sink.types(); !equalTypes(got, want) {
		t.Errorf("audit events = %v, want %v", got, want)
	}
}

func TestEnsure_FreshWaitInterruptedIsNotNotReady(t *testing.T) {
	sup, _ := newTestSupervisor()
	sb := runtime.NewMockSandbox("openclaw")

	gate := make(chan struct{})
	defer close(gate)
	sb.NewProcess = func(cmd string, opts runtime.StartOptions) *runtime.MockProcess {
		return &runtime.MockProcess{
			Reachable: true,
			Gate:      gate,
			Output:    runtime.Logs{Stderr: "still booting\n"},
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := sup.Ensure(ctx, sb, withKeys())
	if err == nil {
		t.Fatal("Ensure() should fail when the context is cancelled during the readiness wait")
	}
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want to wrap context.Canceled", err)
	}
	if code := errors.GetExitCode(err); code == errors.ExitNotReady {
		t.Errorf("exit code = %d, cancellation must not report not-ready", code)
	}
	if n := len(sb.GetCallsFor("StartProcess")); n != 1 {
		t.Errorf("StartProcess calls = %d, want 1", n)
	}
	if p := sb.Processes[0]; p.Kills() != 0 {
		t.Errorf("Kill calls = %d, want 0", p.Kills())
	}
}

func TestEnsure_LeasesArePerSandbox(t *testing.T) {
	sup, _ := newTestSupervisor()

	release, err := sup.leases.acquire(context.Background(), "other")
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := sup.Ensure(ctx, runtime.NewMockSandbox("openclaw"), nil); err != nil {
		t.Errorf("Ensure() error = %v, leases should not cross sandboxes", err)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateDiscovering, "discovering"},
		{StateRestarting, "restarting"},
		{StateReady, "ready"},
		{StateFailed, "failed"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestStepResult(t *testing.T) {
	if advisory(nil).failed() {
		t.Error("advisory(nil) should not be a failure")
	}
	if !advisory(stderrors.New("x")).failed() {
		t.Error("advisory(err) should be a failure")
	}
	if r := fatal(stderrors.New("x")); r.kind != stepFatal {
		t.Errorf("fatal().kind = %v, want stepFatal", r.kind)
	}
}

func equalTypes(a, b []audit.EventType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
