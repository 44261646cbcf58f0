package cmd

import (
	"fmt"
	"time"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	gwenviron "github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/environ"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/runtime"
)

var (
	execGatewayEnv bool
	execTimeout    time.Duration
)

var execCmd = &cobra.Command{
	Use:   "exec <container> -- <command>",
	Short: "Execute a command in the container",
	Long: `Run a one-off command inside the container and print its output.

With --gateway-env the command sees the same environment the gateway is
launched with, which is useful for management commands such as
"openclaw devices list".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	execCmd.Flags().BoolVar(&execGatewayEnv, "gateway-env", false, "Pass the gateway launch environment")
	execCmd.Flags().DurationVar(&execTimeout, "timeout", 0, "Command timeout (default: exec timeout from config)")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	dash := cmd.ArgsLenAtDash()
	if dash != 1 || len(args) < 2 {
		return errors.ValidationError("usage: forage-gw exec <container> -- <command>")
	}

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

	opts := runtime.ExecOptions{Timeout: execTimeout}
	if opts.Timeout <= 0 {
		opts.Timeout = a.Config.Timeouts.Exec.Duration
	}
	if execGatewayEnv {
		opts.Env = gwenviron.Build(callerEnv())
	}

	result, err := sb.Exec(ctx, shellquote.Join(args[1:]...), opts)
	if err != nil {
		return errors.SandboxError("exec in "+sb.ID(), err)
	}

	fmt.Fprint(cmd.OutOrStdout(), result.Stdout)
	fmt.Fprint(cmd.ErrOrStderr(), result.Stderr)

	if result.ExitCode != 0 {
		return errors.New(errors.ExitGeneralError, fmt.Sprintf("command exited with %d", result.ExitCode))
	}
	return nil
}
