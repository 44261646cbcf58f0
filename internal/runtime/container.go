package runtime

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/system"
)

const (
	// DefaultLogDir is where background process output is kept inside the container.
	DefaultLogDir = "/tmp/forage-gw"

	// DefaultPollInterval is the delay between port checks in WaitForPort.
	DefaultPollInterval = time.Second
)

// ContainerSandbox implements the Sandbox interface on top of a running
// docker or podman container. Every operation is a "<engine> exec" call.
type ContainerSandbox struct {
	// Engine is the container command to use (docker or podman)
	Engine string

	// Container is the name or ID of the target container
	Container string

	// LogDir holds <pid>.out and <pid>.err for started processes
	LogDir string

	// PollInterval is the delay between port checks
	PollInterval time.Duration

	executor system.CommandExecutor
}

// ContainerOption configures a ContainerSandbox
type ContainerOption func(*ContainerSandbox)

// WithEngine forces a specific container engine instead of auto-detection
func WithEngine(engine string) ContainerOption {
	return func(c *ContainerSandbox) {
		c.Engine = engine
	}
}

// WithExecutor sets the command executor (useful for testing)
func WithExecutor(e system.CommandExecutor) ContainerOption {
	return func(c *ContainerSandbox) {
		c.executor = e
	}
}

// WithLogDir overrides DefaultLogDir
func WithLogDir(dir string) ContainerOption {
	return func(c *ContainerSandbox) {
		c.LogDir = dir
	}
}

// WithPollInterval overrides DefaultPollInterval
func WithPollInterval(d time.Duration) ContainerOption {
	return func(c *ContainerSandbox) {
		c.PollInterval = d
	}
}

// DetectEngine returns the available container command, preferring podman.
func DetectEngine() (string, error) {
	for _, engine := range []string{"podman", "docker"} {
		if _, err := exec.LookPath(engine); err == nil {
			logging.Debug("detected container engine", "engine", engine)
			return engine, nil
		}
	}
	return "", fmt.Errorf("neither podman nor docker found in PATH")
}

// NewContainerSandbox creates a sandbox backed by an existing container.
func NewContainerSandbox(container string, opts ...ContainerOption) (*ContainerSandbox, error) {
	if container == "" {
		return nil, fmt.Errorf("container name is required")
	}

	c := &ContainerSandbox{
		Container:    container,
		LogDir:       DefaultLogDir,
		PollInterval: DefaultPollInterval,
		executor:     system.DefaultExecutor(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.Engine == "" {
		engine, err := DetectEngine()
		if err != nil {
			return nil, err
		}
		c.Engine = engine
	}

	return c, nil
}

// ID returns the container name
func (c *ContainerSandbox) ID() string {
	return c.Container
}

// run executes a shell script inside the container. env and stdin never
// appear in the engine's argv: env is sent on stdin as an export prologue
// that the script evaluates before running.
func (c *ContainerSandbox) run(ctx context.Context, script string, env map[string]string, stdin string) (*ExecResult, error) {
	if len(env) > 0 {
		if stdin != "" {
			return nil, fmt.Errorf("env and stdin cannot both be passed to %s exec", c.Engine)
		}
		stdin = exportScript(env)
		script = "eval \"$(cat)\" || exit 125\n" + script
	}

	args := []string{"exec"}
	if stdin != "" {
		args = append(args, "-i")
	}
	args = append(args, c.Container, "sh", "-c", script)

	var stdout, stderr []byte
	var err error
	if stdin != "" {
		stdout, stderr, err = c.executor.RunWithStdin(ctx, stdin, c.Engine, args...)
	} else {
		stdout, stderr, err = c.executor.Run(ctx, c.Engine, args...)
	}
	result := &ExecResult{
		ExitCode: system.ExitCode(err),
		Stdout:   string(stdout),
		Stderr:   string(stderr),
	}

	if result.ExitCode < 0 {
		return result, fmt.Errorf("%s exec failed: %s: %w", c.Engine, strings.TrimSpace(result.Stderr), err)
	}

	return result, nil
}

// exportScript renders env as sorted, shell-quoted export lines.
func exportScript(env map[string]string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString("export " + shellquote.Join(k+"="+env[k]) + "\n")
	}
	return b.String()
}

// Exec runs a command to completion inside the container
func (c *ContainerSandbox) Exec(ctx context.Context, command string, opts ExecOptions) (*ExecResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return c.run(ctx, command, opts.Env, opts.Stdin)
}

// ListProcesses lists processes inside the container using ps
func (c *ContainerSandbox) ListProcesses(ctx context.Context) ([]Process, error) {
	result, err := c.run(ctx, "ps -eo pid=,stat=,args=", nil, "")
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("ps exited with %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return c.parsePS(result.Stdout), nil
}

// parsePS turns "pid stat args..." lines into process handles
func (c *ContainerSandbox) parsePS(output string) []Process {
	var procs []Process
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			continue
		}
		procs = append(procs, &containerProcess{
			sandbox: c,
			pid:     fields[0],
			command: strings.Join(fields[2:], " "),
			status:  statusFromStat(fields[1]),
		})
	}
	return procs
}

// statusFromStat maps a ps STAT column to a Status
func statusFromStat(stat string) Status {
	switch stat[0] {
	case 'Z', 'X':
		return StatusCompleted
	default:
		return StatusRunning
	}
}

// StartProcess launches command in the background. Output goes to a pair of
// files created before the fork under a per-launch name, so they exist
// whatever the child does. Once the PID is known they are also hard-linked as
// <pid>.out/<pid>.err for processes found later through ListProcesses.
func (c *ContainerSandbox) StartProcess(ctx context.Context, command string, opts StartOptions) (Process, error) {
	logName := "start-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	out := c.LogDir + "/" + logName + ".out"
	errFile := c.LogDir + "/" + logName + ".err"

	logging.Debug("starting process", "container", c.Container, "command", command)

	result, err := c.run(ctx, startScript(command, opts.WorkingDir, c.LogDir, out, errFile), opts.Env, "")
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("start exited with %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	pid := strings.TrimSpace(result.Stdout)
	if _, err := strconv.Atoi(pid); err != nil {
		return nil, fmt.Errorf("unexpected pid %q from start", pid)
	}

	return &containerProcess{
		sandbox: c,
		pid:     pid,
		logName: logName,
		command: command,
		status:  StatusStarting,
	}, nil
}

func startScript(command, workDir, logDir, out, errFile string) string {
	q := func(s string) string { return shellquote.Join(s) }

	var b strings.Builder
	if workDir != "" {
		fmt.Fprintf(&b, "cd %s && ", q(workDir))
	}
	fmt.Fprintf(&b, "mkdir -p %s && : >%s && : >%s && { ", q(logDir), q(out), q(errFile))
	fmt.Fprintf(&b, "nohup %s >>%s 2>>%s </dev/null & ", command, q(out), q(errFile))
	b.WriteString("pid=$!; ")
	fmt.Fprintf(&b, "ln -f %s %s/$pid.out 2>/dev/null; ", q(out), q(logDir))
	fmt.Fprintf(&b, "ln -f %s %s/$pid.err 2>/dev/null; ", q(errFile), q(logDir))
	b.WriteString("echo $pid; }")
	return b.String()
}

// containerProcess is a process handle inside a ContainerSandbox
type containerProcess struct {
	sandbox *ContainerSandbox
	pid     string
	// logName is the base name of the output files; empty means the pid
	logName string
	command string
	status  Status
}

func (p *containerProcess) ID() string      { return p.pid }
func (p *containerProcess) Command() string { return p.command }
func (p *containerProcess) Status() Status  { return p.status }

// Kill sends SIGTERM to the process
func (p *containerProcess) Kill(ctx context.Context) error {
	result, err := p.sandbox.run(ctx, "kill "+p.pid, nil, "")
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("kill %s exited with %d: %s", p.pid, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	p.status = StatusKilled
	return nil
}

// WaitForPort polls the port from inside the container until it accepts a
// connection or the timeout expires
func (p *containerProcess) WaitForPort(ctx context.Context, port int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	check := fmt.Sprintf("nc -z 127.0.0.1 %d", port)
	ticker := time.NewTicker(p.sandbox.PollInterval)
	defer ticker.Stop()

	for {
		result, err := p.sandbox.run(ctx, check, nil, "")
		if err == nil && result.ExitCode == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: port %d after %s", ErrPortTimeout, port, timeout)
		case <-ticker.C:
		}
	}
}

// Logs reads the captured output files for the process. A missing stdout
// file is tolerated as long as stderr can be read.
func (p *containerProcess) Logs(ctx context.Context) (Logs, error) {
	stderr, err := p.readLog(ctx, ".err")
	if err != nil {
		return Logs{}, err
	}
	stdout, err := p.readLog(ctx, ".out")
	if err != nil {
		logging.Debug("stdout log unavailable", "container", p.sandbox.Container, "process", p.pid, "error", err)
	}
	return Logs{Stdout: stdout, Stderr: stderr}, nil
}

func (p *containerProcess) readLog(ctx context.Context, suffix string) (string, error) {
	name := p.logName
	if name == "" {
		name = p.pid
	}
	path := p.sandbox.LogDir + "/" + name + suffix
	result, err := p.sandbox.run(ctx, "cat "+shellquote.Join(path), nil, "")
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("reading %s: %s", path, strings.TrimSpace(result.Stderr))
	}
	return result.Stdout, nil
}

// Ensure ContainerSandbox implements Sandbox
var _ Sandbox = (*ContainerSandbox)(nil)
