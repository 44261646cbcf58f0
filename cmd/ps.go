package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/process"
)

var psCmd = &cobra.Command{
	Use:   "ps <container>",
	Short: "List processes in a container and how they are classified",
	Args:  cobra.ExactArgs(1),
	RunE:  runPs,
}

var psAll bool

func init() {
	psCmd.Flags().BoolVarP(&psAll, "all", "a", false, "Include processes unrelated to the gateway")
	rootCmd.AddCommand(psCmd)
}

func runPs(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	sb, err := openSandbox(a, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.Config.Timeouts.List.Duration)
	defer cancel()

	procs, err := sb.ListProcesses(ctx)
	if err != nil {
		return errors.SandboxError("list processes in "+sb.ID(), err)
	}

	gateway := process.Pick(procs)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PID\tSTATUS\tKIND\tCOMMAND")
	fmt.Fprintln(w, "---\t------\t----\t-------")

	shown := 0
	for _, p := range procs {
		kind := process.KindOf(p.Command())
		if kind == process.KindOther && !psAll {
			continue
		}
		marker := ""
		if gateway != nil && p.ID() == gateway.ID() {
			marker = " *"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", p.ID(), marker, p.Status(), kind, p.Command())
		shown++
	}

	if err := w.Flush(); err != nil {
		return err
	}

	if shown == 0 {
		logInfo("No gateway-related processes in %s", sb.ID())
	}
	return nil
}
