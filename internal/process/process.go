// Package process identifies the gateway among the processes running in a
// sandbox.
//
// The gateway binary is also invoked for short-lived management commands
// (version queries, device listing, onboarding) whose command lines share
// the binary name. A command line is a gateway only if it contains a
// launcher pattern and no management pattern.
package process

import (
	"context"
	"strings"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/runtime"
)

// LauncherPatterns recognise a gateway-starting command line. The clawdbot
// and moltbot entries cover installs that predate the rename.
var LauncherPatterns = []string{
	"start-openclaw.sh",
	"openclaw gateway",
	"start-moltbot.sh",
	"clawdbot gateway",
}

// ManagementPatterns recognise management subcommands of the same binary.
var ManagementPatterns = []string{
	"openclaw devices",
	"openclaw --version",
	"openclaw onboard",
	"clawdbot devices",
	"clawdbot --version",
	"clawdbot onboard",
}

// Kind classifies a command line
type Kind int

const (
	KindOther Kind = iota
	KindService
	KindManagement
)

func (k Kind) String() string {
	switch k {
	case KindService:
		return "service"
	case KindManagement:
		return "management"
	default:
		return "other"
	}
}

// KindOf classifies a single command line. Management patterns win over
// launcher patterns.
func KindOf(command string) Kind {
	switch {
	case containsAny(command, ManagementPatterns):
		return KindManagement
	case containsAny(command, LauncherPatterns):
		return KindService
	default:
		return KindOther
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Pick returns the first live service process in listing order, or nil.
func Pick(procs []runtime.Process) runtime.Process {
	for _, p := range procs {
		if KindOf(p.Command()) != KindService {
			continue
		}
		if !p.Status().Live() {
			continue
		}
		return p
	}
	return nil
}

// Lister is the part of a sandbox the classifier needs
type Lister interface {
	ListProcesses(ctx context.Context) ([]runtime.Process, error)
}

// Find lists the sandbox's processes and picks the gateway. Discovery is
// advisory: a listing failure is logged and reported as no gateway.
func Find(ctx context.Context, sb Lister) runtime.Process {
	procs, err := sb.ListProcesses(ctx)
	if err != nil {
		logging.Warn("failed to list sandbox processes", "error", err)
		return nil
	}

	p := Pick(procs)
	if p == nil {
		logging.Debug("no gateway process found", "processes", len(procs))
		return nil
	}

	logging.Debug("found gateway process", "id", p.ID(), "status", p.Status(), "command", p.Command())
	return p
}
