// Package storage mounts the gateway's persistent bucket inside a sandbox.
//
// Mounting is best effort. A sandbox without bucket credentials simply runs
// without persistence, and the supervisor proceeds when mounting fails.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/runtime"
)

// Environment variables carrying bucket credentials
const (
	EnvAccessKeyID     = "R2_ACCESS_KEY_ID"
	EnvSecretAccessKey = "R2_SECRET_ACCESS_KEY"
	EnvAccountID       = "CF_ACCOUNT_ID"
)

// PasswdFile holds the s3fs credentials inside the sandbox.
const PasswdFile = "/etc/passwd-s3fs"

// Mounter ensures a bucket is mounted in a sandbox
type Mounter struct {
	MountPoint string
	Bucket     string
	// Endpoint overrides the URL derived from the account ID.
	Endpoint string
	Timeout  time.Duration
}

// Configured reports whether env carries everything needed to mount.
func (m *Mounter) Configured(env map[string]string) bool {
	if m.Bucket == "" || m.MountPoint == "" {
		return false
	}
	if env[EnvAccessKeyID] == "" || env[EnvSecretAccessKey] == "" {
		return false
	}
	return m.endpoint(env) != ""
}

func (m *Mounter) endpoint(env map[string]string) string {
	if m.Endpoint != "" {
		return m.Endpoint
	}
	if id := env[EnvAccountID]; id != "" {
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", id)
	}
	return ""
}

// Ensure mounts the bucket unless it is already mounted. It is a no-op
// when credentials are missing, so calling it repeatedly is safe.
func (m *Mounter) Ensure(ctx context.Context, sb runtime.Sandbox, env map[string]string) error {
	if !m.Configured(env) {
		logging.Debug("bucket mount not configured, skipping", "sandbox", sb.ID())
		return nil
	}

	mounted, err := m.Mounted(ctx, sb)
	if err != nil {
		return err
	}
	if mounted {
		logging.Debug("bucket already mounted", "sandbox", sb.ID(), "mount_point", m.MountPoint)
		return nil
	}

	res, err := sb.Exec(ctx, m.mountCommand(env), runtime.ExecOptions{Timeout: m.Timeout, Stdin: passwd(env)})
	if err != nil {
		return fmt.Errorf("failed to mount bucket: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("failed to mount bucket (exit %d): %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	logging.Info("mounted bucket", "sandbox", sb.ID(), "bucket", m.Bucket, "mount_point", m.MountPoint)
	return nil
}

// Mounted reports whether MountPoint appears in the sandbox mount table.
func (m *Mounter) Mounted(ctx context.Context, sb runtime.Sandbox) (bool, error) {
	res, err := sb.Exec(ctx, "mount", runtime.ExecOptions{Timeout: m.Timeout})
	if err != nil {
		return false, fmt.Errorf("failed to list mounts: %w", err)
	}
	if res.ExitCode != 0 {
		return false, fmt.Errorf("failed to list mounts (exit %d): %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return hasMountPoint(res.Stdout, m.MountPoint), nil
}

// hasMountPoint scans `mount` output lines of the form
// "<source> on <target> type <fstype> (<options>)".
func hasMountPoint(output, target string) bool {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		for i := 0; i+1 < len(fields); i++ {
			if fields[i] == "on" && fields[i+1] == target {
				return true
			}
		}
	}
	return false
}

// mountCommand writes the credentials read from stdin to PasswdFile and
// mounts the bucket.
func (m *Mounter) mountCommand(env map[string]string) string {
	return strings.Join([]string{
		shellquote.Join("mkdir", "-p", m.MountPoint),
		"(umask 077 && cat > " + shellquote.Join(PasswdFile) + ")",
		shellquote.Join("chmod", "600", PasswdFile),
		shellquote.Join("s3fs", m.Bucket, m.MountPoint,
			"-o", "passwd_file="+PasswdFile,
			"-o", "url="+m.endpoint(env),
			"-o", "use_path_request_style",
			"-o", "allow_other"),
	}, " && ")
}

func passwd(env map[string]string) string {
	return env[EnvAccessKeyID] + ":" + env[EnvSecretAccessKey] + "\n"
}
