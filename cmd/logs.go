package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/process"
)

var logsCmd = &cobra.Command{
	Use:   "logs <container>",
	Short: "View gateway output",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

var (
	logsLines      int
	logsStderrOnly bool
)

func init() {
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "Number of lines to show per stream (0 for all)")
	logsCmd.Flags().BoolVar(&logsStderrOnly, "stderr", false, "Only show standard error")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
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
		return errors.New(errors.ExitSandboxError, fmt.Sprintf("no gateway process running in %s", sb.ID()))
	}

	logs, err := proc.Logs(ctx)
	if err != nil {
		return errors.SandboxError("read logs of process "+proc.ID(), err)
	}

	out := cmd.OutOrStdout()
	if !logsStderrOnly {
		fmt.Fprintln(out, "==> stdout <==")
		writeTail(out, logs.Stdout, logsLines)
	}
	fmt.Fprintln(out, "==> stderr <==")
	writeTail(out, logs.Stderr, logsLines)
	return nil
}

// writeTail writes the last n lines of s, or all of it when n <= 0.
func writeTail(w io.Writer, s string, n int) {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return
	}
	lines := strings.Split(s, "\n")
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}
