package runtime

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/system"
)

func newTestContainer(t *testing.T, exec *system.MockExecutor) *ContainerSandbox {
	t.Helper()
	c, err := NewContainerSandbox("forage-dev",
		WithEngine("docker"),
		WithExecutor(exec),
		WithPollInterval(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewContainerSandbox: %v", err)
	}
	return c
}

// script returns the sh -c argument of a recorded docker exec call
func script(cmd system.MockCommand) string {
	if len(cmd.Args) == 0 {
		return ""
	}
	return cmd.Args[len(cmd.Args)-1]
}

func TestNewContainerSandbox_RequiresName(t *testing.T) {
	if _, err := NewContainerSandbox("", WithEngine("docker")); err == nil {
		t.Error("expected error for empty container name")
	}
}

func TestContainerSandbox_ListProcesses(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.DefaultResponse = system.MockResponse{Output: []byte(`    1 Ss   /sbin/tini -- sleep infinity
   42 S    /bin/bash /usr/local/bin/start-openclaw.sh
   57 Sl   openclaw gateway --port 18789
   90 Z    [openclaw] <defunct>
  101 R    ps -eo pid=,stat=,args=
`)}

	c := newTestContainer(t, exec)
	procs, err := c.ListProcesses(context.Background())
	if err != nil {
		t.Fatalf("ListProcesses: %v", err)
	}

	if len(procs) != 5 {
		t.Fatalf("got %d processes, want 5", len(procs))
	}

	tests := []struct {
		idx     int
		pid     string
		command string
		status  Status
	}{
		{1, "42", "/bin/bash /usr/local/bin/start-openclaw.sh", StatusRunning},
		{2, "57", "openclaw gateway --port 18789", StatusRunning},
		{3, "90", "[openclaw] <defunct>", StatusCompleted},
	}
	for _, tt := range tests {
		p := procs[tt.idx]
		if p.ID() != tt.pid || p.Command() != tt.command || p.Status() != tt.status {
			t.Errorf("procs[%d] = (%s, %q, %s), want (%s, %q, %s)",
				tt.idx, p.ID(), p.Command(), p.Status(), tt.pid, tt.command, tt.status)
		}
	}

	cmd, _ := exec.LastCommand()
	if cmd.Name != "docker" || cmd.Args[0] != "exec" || cmd.Args[1] != "forage-dev" {
		t.Errorf("unexpected command: %s", cmd)
	}
}

func TestContainerSandbox_ListProcesses_Failure(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.DefaultResponse = system.MockResponse{
		Stderr: []byte("Error: No such container: forage-dev"),
		Err:    &system.MockExitError{Code: 1},
	}

	c := newTestContainer(t, exec)
	if _, err := c.ListProcesses(context.Background()); err == nil {
		t.Error("expected error when ps fails")
	}
}

func TestContainerSandbox_StartProcess(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.DefaultResponse = system.MockResponse{Output: []byte("314\n")}

	c := newTestContainer(t, exec)
	env := map[string]string{"OPENAI_API_KEY": "sk-it's", "A": "1"}
	p, err := c.StartProcess(context.Background(), "/usr/local/bin/start-openclaw.sh", StartOptions{Env: env})
	if err != nil {
		t.Fatalf("StartProcess: %v", err)
	}

	if p.ID() != "314" || p.Status() != StatusStarting {
		t.Errorf("process = (%s, %s), want (314, starting)", p.ID(), p.Status())
	}

	cmd, _ := exec.LastCommand()
	if cmd.Args[1] != "-i" {
		t.Errorf("args = %q, want stdin attached", cmd.Args)
	}
	for _, arg := range cmd.Args {
		if strings.Contains(arg, "sk-it") {
			t.Errorf("secret leaked into argv: %q", cmd.Args)
		}
	}
	if want := "export A=1\nexport OPENAI_API_KEY=sk-it\\'s\n"; cmd.Stdin != want {
		t.Errorf("stdin = %q, want %q", cmd.Stdin, want)
	}
	s := script(cmd)
	if !strings.HasPrefix(s, `eval "$(cat)"`) {
		t.Errorf("script does not load env first: %s", s)
	}
	if !strings.Contains(s, "nohup /usr/local/bin/start-openclaw.sh >") {
		t.Errorf("script missing nohup launch: %s", s)
	}
	if !strings.Contains(s, "/tmp/forage-gw/$pid.err") {
		t.Errorf("script missing log rename: %s", s)
	}
}

func TestContainerSandbox_StartProcess_BadPID(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.DefaultResponse = system.MockResponse{Output: []byte("sh: nohup: not found\n")}

	c := newTestContainer(t, exec)
	if _, err := c.StartProcess(context.Background(), "x", StartOptions{}); err == nil {
		t.Error("expected error for non-numeric pid")
	}
}

func TestContainerProcess_WaitForPort(t *testing.T) {
	exec := system.NewMockExecutor()
	checks := 0
	exec.Handler = func(cmd system.MockCommand) system.MockResponse {
		if strings.HasPrefix(script(cmd), "nc -z") {
			checks++
			if checks < 3 {
				return system.MockResponse{Err: &system.MockExitError{Code: 1}}
			}
		}
		return system.MockResponse{}
	}

	c := newTestContainer(t, exec)
	p := &containerProcess{sandbox: c, pid: "57", status: StatusRunning}

	if err := p.WaitForPort(context.Background(), 18789, time.Second); err != nil {
		t.Fatalf("WaitForPort: %v", err)
	}
	if checks != 3 {
		t.Errorf("checks = %d, want 3", checks)
	}
}

func TestContainerProcess_WaitForPort_Timeout(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.DefaultResponse = system.MockResponse{Err: &system.MockExitError{Code: 1}}

	c := newTestContainer(t, exec)
	p := &containerProcess{sandbox: c, pid: "57", status: StatusRunning}

	err := p.WaitForPort(context.Background(), 18789, 20*time.Millisecond)
	if !errors.Is(err, ErrPortTimeout) {
		t.Errorf("err = %v, want ErrPortTimeout", err)
	}
}

func TestContainerProcess_Logs(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.Handler = func(cmd system.MockCommand) system.MockResponse {
		switch script(cmd) {
		case "cat /tmp/forage-gw/57.out":
			return system.MockResponse{Output: []byte("listening\n")}
		case "cat /tmp/forage-gw/57.err":
			return system.MockResponse{Output: []byte("warn: no channels\n")}
		}
		return system.MockResponse{Err: &system.MockExitError{Code: 1}}
	}

	c := newTestContainer(t, exec)
	p := &containerProcess{sandbox: c, pid: "57"}

	logs, err := p.Logs(context.Background())
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if logs.Stdout != "listening\n" || logs.Stderr != "warn: no channels\n" {
		t.Errorf("logs = %+v", logs)
	}
}

func TestContainerProcess_Logs_MissingStdout(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.Handler = func(cmd system.MockCommand) system.MockResponse {
		if script(cmd) == "cat /tmp/forage-gw/57.err" {
			return system.MockResponse{Output: []byte("Error: bad config\n")}
		}
		return system.MockResponse{
			Stderr: []byte("cat: can't open '/tmp/forage-gw/57.out': No such file or directory"),
			Err:    &system.MockExitError{Code: 1},
		}
	}

	c := newTestContainer(t, exec)
	p := &containerProcess{sandbox: c, pid: "57"}

	logs, err := p.Logs(context.Background())
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if logs.Stderr != "Error: bad config\n" || logs.Stdout != "" {
		t.Errorf("logs = %+v", logs)
	}
}

func TestContainerProcess_Logs_MissingStderr(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.DefaultResponse = system.MockResponse{Err: &system.MockExitError{Code: 1}}

	c := newTestContainer(t, exec)
	p := &containerProcess{sandbox: c, pid: "57"}

	if _, err := p.Logs(context.Background()); err == nil {
		t.Error("expected error when stderr cannot be read")
	}
}

func TestContainerSandbox_StartProcess_LogsUseLaunchFiles(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.DefaultResponse = system.MockResponse{Output: []byte("314\n")}

	c := newTestContainer(t, exec)
	p, err := c.StartProcess(context.Background(), "openclaw gateway", StartOptions{})
	if err != nil {
		t.Fatalf("StartProcess: %v", err)
	}

	cmd, _ := exec.LastCommand()
	s := script(cmd)
	name := p.(*containerProcess).logName
	errFile := "/tmp/forage-gw/" + name + ".err"

	create := strings.Index(s, ": >"+errFile)
	launch := strings.Index(s, "nohup openclaw gateway")
	if create < 0 || launch < 0 || create > launch {
		t.Errorf("log files must be created before the launch: %s", s)
	}
	if !strings.Contains(s, "2>>"+errFile) {
		t.Errorf("stderr not appended to %s: %s", errFile, s)
	}
	if strings.Contains(s, "mv ") {
		t.Errorf("script must not rename logs after the fork: %s", s)
	}

	exec.DefaultResponse = system.MockResponse{Output: []byte("out")}
	if _, err := p.Logs(context.Background()); err != nil {
		t.Fatalf("Logs: %v", err)
	}
	cmd, _ = exec.LastCommand()
	if got := script(cmd); got != "cat /tmp/forage-gw/"+name+".out" {
		t.Errorf("Logs read %q, want the launch file", got)
	}
}

func TestContainerProcess_Kill(t *testing.T) {
	exec := system.NewMockExecutor()
	c := newTestContainer(t, exec)
	p := &containerProcess{sandbox: c, pid: "57", status: StatusRunning}

	if err := p.Kill(context.Background()); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if p.Status() != StatusKilled {
		t.Errorf("Status = %s, want killed", p.Status())
	}
	cmd, _ := exec.LastCommand()
	if script(cmd) != "kill 57" {
		t.Errorf("script = %q, want kill 57", script(cmd))
	}
}

func TestContainerSandbox_Exec_NonZeroIsNotError(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.DefaultResponse = system.MockResponse{
		Stderr: []byte("mkdir: permission denied"),
		Err:    &system.MockExitError{Code: 2},
	}

	c := newTestContainer(t, exec)
	result, err := c.Exec(context.Background(), "mkdir -p /root/.openclaw", ExecOptions{Timeout: time.Second})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if result.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", result.ExitCode)
	}
}

func TestContainerSandbox_Exec_EnvWithStdinRejected(t *testing.T) {
	exec := system.NewMockExecutor()
	c := newTestContainer(t, exec)

	_, err := c.Exec(context.Background(), "cat", ExecOptions{Env: map[string]string{"A": "1"}, Stdin: "x"})
	if err == nil {
		t.Error("expected error when env and stdin are combined")
	}
	if len(exec.Commands) != 0 {
		t.Errorf("commands = %v, want none", exec.Commands)
	}
}

func TestStatusLive(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusStarting, true},
		{StatusRunning, true},
		{StatusCompleted, false},
		{StatusFailed, false},
		{StatusKilled, false},
		{StatusError, false},
	}
	for _, tt := range tests {
		if got := tt.status.Live(); got != tt.want {
			t.Errorf("%s.Live() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
