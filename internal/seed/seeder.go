package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/tidwall/jsonc"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/runtime"
)

const (
	// DefaultPath is where the gateway looks for its config
	DefaultPath = "/root/.openclaw/openclaw.json"

	// DefaultTimeout bounds the write command
	DefaultTimeout = 10 * time.Second
)

// Seeder writes a ServiceConfig into a sandbox
type Seeder struct {
	Path    string
	Timeout time.Duration
}

// NewSeeder creates a Seeder for path, falling back to the defaults for
// zero values
func NewSeeder(path string, timeout time.Duration) *Seeder {
	if path == "" {
		path = DefaultPath
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Seeder{Path: path, Timeout: timeout}
}

// WriteCommand returns a shell command that creates the parent directory of
// dst and copies its stdin to dst, readable by the owner only.
func WriteCommand(dst string) string {
	return strings.Join([]string{
		shellquote.Join("mkdir", "-p", path.Dir(dst)),
		"(umask 077 && cat > " + shellquote.Join(dst) + ")",
		shellquote.Join("chmod", "600", dst),
	}, " && ")
}

// Seed serializes cfg and writes it into the sandbox
func (s *Seeder) Seed(ctx context.Context, sb runtime.Sandbox, cfg *ServiceConfig) error {
	payload, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal service config: %w", err)
	}

	logging.Debug("seeding gateway config", "sandbox", sb.ID(), "path", s.Path, "bytes", len(payload))

	result, err := sb.Exec(ctx, WriteCommand(s.Path), runtime.ExecOptions{Timeout: s.Timeout, Stdin: string(payload)})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", s.Path, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("writing %s exited with %d: %s", s.Path, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return nil
}

// Read loads the config currently present in the sandbox. Comments and
// trailing commas are accepted, since the gateway itself tolerates them.
func (s *Seeder) Read(ctx context.Context, sb runtime.Sandbox) (*ServiceConfig, error) {
	result, err := sb.Exec(ctx, shellquote.Join("cat", s.Path), runtime.ExecOptions{Timeout: s.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("reading %s exited with %d: %s", s.Path, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	var cfg ServiceConfig
	if err := json.Unmarshal(jsonc.ToJSON([]byte(result.Stdout)), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.Path, err)
	}
	return &cfg, nil
}
