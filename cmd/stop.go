package cmd

import (
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/process"
)

var stopCmd = &cobra.Command{
	Use:   "stop <container>",
	Short: "Stop the gateway in a container",
	Args:  cobra.ExactArgs(1),
	RunE:  runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	sb, err := openSandbox(a, args[0])
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	proc := process.Find(ctx, sb)
	if proc == nil {
		logInfo("No gateway running in %s", sb.ID())
		return nil
	}

	logInfo("Stopping gateway in %s (process %s)...", sb.ID(), proc.ID())
	if err := proc.Kill(ctx); err != nil {
		return errors.SandboxError("kill process "+proc.ID(), err)
	}

	_ = a.Audit.Log(audit.Event{Type: audit.EventKill, Sandbox: sb.ID(), Process: proc.ID(), Details: "stop"})

	logSuccess("Stopped gateway in %s", sb.ID())
	return nil
}
