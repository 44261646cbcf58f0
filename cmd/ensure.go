package cmd

import (
	"github.com/spf13/cobra"
)

var ensureCmd = &cobra.Command{
	Use:   "ensure <container>",
	Short: "Make sure the gateway in a container is running and reachable",
	Long: `Reuses a running gateway when it answers within the startup timeout,
otherwise kills it, seeds its config and launches a fresh one.

Provider credentials and channel tokens are read from the environment.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnsure,
}

func init() {
	rootCmd.AddCommand(ensureCmd)
}

func runEnsure(cmd *cobra.Command, args []string) error {
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

	logInfo("Ensuring gateway in %s (port %d)...", sb.ID(), a.Config.Gateway.Port)

	result, err := a.Supervisor().Ensure(ctx, sb, callerEnv())
	if err != nil {
		logError("Gateway in %s is not ready", sb.ID())
		return err
	}

	switch {
	case result.Reused:
		logSuccess("Gateway already running in %s (process %s)", sb.ID(), result.Process.ID())
	case result.Restarted:
		logSuccess("Gateway restarted in %s (process %s)", sb.ID(), result.Process.ID())
	default:
		logSuccess("Gateway started in %s (process %s)", sb.ID(), result.Process.ID())
	}
	if !result.Reused && !result.Seeded {
		logWarning("No provider credentials found; gateway config was not seeded")
	}

	return nil
}
