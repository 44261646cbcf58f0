package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/health"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/monitor"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/runtime"
)

var watchCmd = &cobra.Command{
	Use:   "watch <container>...",
	Short: "Keep gateways running in the background",
	Long: `Periodically ensures the gateway in each container, restarting it when
it stops answering. Runs in the foreground until interrupted.

With --check-only, gateways are probed and reported but never started or
killed.

Can be wrapped in a systemd service for persistent supervision.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

var (
	watchInterval  time.Duration
	watchCheckOnly bool
)

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Interval between passes (default: the configured watch interval)")
	watchCmd.Flags().BoolVar(&watchCheckOnly, "check-only", false, "Only report gateway health")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	sandboxes := make([]runtime.Sandbox, 0, len(args))
	for _, name := range args {
		sb, err := openSandbox(a, name)
		if err != nil {
			return err
		}
		sandboxes = append(sandboxes, sb)
	}

	interval := watchInterval
	if interval <= 0 {
		interval = a.Config.Watch.Interval.Duration
	}

	mon := monitor.New(interval, sandboxes, a.Supervisor(),
		monitor.WithAutoRestart(!watchCheckOnly),
		monitor.WithEnv(callerEnv()),
		monitor.WithProbe(a.Config.Gateway.Port, a.Config.Timeouts.Exec.Duration),
		monitor.WithReporter(reportWatch),
	)

	logInfo("Watching %d sandbox(es) (interval: %s, check-only: %v)", len(sandboxes), interval, watchCheckOnly)

	ctx, stop := signalContext()
	defer stop()

	err = mon.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logInfo("Watch stopped")
		return nil
	}
	return err
}

func reportWatch(r monitor.CheckResult) {
	switch {
	case r.Err != nil:
		logWarning("%s: %s: %v", r.Sandbox, r.Status, r.Err)
	case r.Status != health.StatusHealthy:
		logWarning("%s: %s", r.Sandbox, r.Status)
	default:
		logSuccess("%s: %s", r.Sandbox, r.Status)
	}
}
