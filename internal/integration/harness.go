package integration

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/seed"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/system"
)

// EnvEnable turns on container-backed tests
const EnvEnable = "FORAGE_GW_INTEGRATION_TESTS"

const (
	// Image is the base image for test containers
	Image = "docker.io/library/alpine:3.20"

	// GatewayScript listens on the gateway port like a healthy gateway.
	// nc runs as a child so ps keeps showing the launcher name.
	GatewayScript = "#!/bin/sh\necho 'gateway starting' >&2\nnc -lk 18789 >/dev/null\n"

	// BrokenScript stays alive without ever opening the port
	BrokenScript = "#!/bin/sh\necho 'Error: listen EADDRINUSE 0.0.0.0:18789' >&2\nsleep 3600\n"

	// BrokenCommand is where BrokenScript is installed
	BrokenCommand = "/usr/local/bin/broken-openclaw.sh"
)

// TestHarness provides a real container for integration testing.
type TestHarness struct {
	t         *testing.T
	engine    string
	container string
	executor  system.CommandExecutor
	sandbox   *runtime.ContainerSandbox
	stateDir  string
}

// NewHarness starts a test container with the fake launchers installed.
// It will skip the test if FORAGE_GW_INTEGRATION_TESTS is not set.
func NewHarness(t *testing.T) *TestHarness {
	t.Helper()

	if os.Getenv(EnvEnable) != "1" {
		t.Skipf("integration tests disabled (set %s=1 to enable)", EnvEnable)
	}

	engine, err := runtime.DetectEngine()
	if err != nil {
		t.Skipf("no container engine available: %v", err)
	}

	h := &TestHarness{
		t:         t,
		engine:    engine,
		container: "forage-gw-it-" + strconv.FormatInt(time.Now().UnixNano(), 36),
		executor:  system.DefaultExecutor(),
		stateDir:  t.TempDir(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	if _, stderr, err := h.executor.Run(ctx, engine, "run", "-d", "--name", h.container, Image, "sleep", "infinity"); err != nil {
		t.Skipf("failed to start test container: %v: %s", err, strings.TrimSpace(string(stderr)))
	}
	t.Cleanup(h.Cleanup)

	h.sandbox, err = runtime.NewContainerSandbox(h.container,
		runtime.WithEngine(engine),
		runtime.WithExecutor(h.executor),
		runtime.WithPollInterval(250*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("Failed to open sandbox: %v", err)
	}

	h.MustExec(ctx, "apk add --no-cache procps netcat-openbsd")
	h.Install(ctx, config.DefaultCommand, GatewayScript)
	h.Install(ctx, BrokenCommand, BrokenScript)

	return h
}

// Sandbox returns the container-backed sandbox.
func (h *TestHarness) Sandbox() *runtime.ContainerSandbox {
	return h.sandbox
}

// Config returns a supervisor configuration suited to the test container.
func (h *TestHarness) Config() *config.Config {
	cfg := config.Default()
	cfg.StateDir = h.stateDir
	cfg.Runtime.Engine = h.engine
	cfg.Timeouts.Startup = config.Duration{Duration: 30 * time.Second}
	return cfg
}

// MustExec runs a command in the container and fails the test on error.
func (h *TestHarness) MustExec(ctx context.Context, command string) *runtime.ExecResult {
	h.t.Helper()

	result, err := h.sandbox.Exec(ctx, command, runtime.ExecOptions{})
	if err != nil {
		h.t.Fatalf("exec %q: %v", command, err)
	}
	if result.ExitCode != 0 {
		h.t.Fatalf("exec %q exited with %d: %s", command, result.ExitCode, result.Stderr)
	}
	return result
}

// Install writes an executable script into the container.
func (h *TestHarness) Install(ctx context.Context, path, script string) {
	h.t.Helper()
	command := seed.WriteCommand(path) + " && " + shellquote.Join("chmod", "+x", path)
	result, err := h.sandbox.Exec(ctx, command, runtime.ExecOptions{Stdin: script})
	if err != nil {
		h.t.Fatalf("install %s: %v", path, err)
	}
	if result.ExitCode != 0 {
		h.t.Fatalf("install %s exited with %d: %s", path, result.ExitCode, result.Stderr)
	}
}

// Cleanup removes the test container.
func (h *TestHarness) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, stderr, err := h.executor.Run(ctx, h.engine, "rm", "-f", h.container); err != nil {
		h.t.Logf("Warning: failed to remove container %s: %v: %s", h.container, err, strings.TrimSpace(string(stderr)))
	}
}

// String identifies the harness in test logs.
func (h *TestHarness) String() string {
	return fmt.Sprintf("%s container %s", h.engine, h.container)
}
