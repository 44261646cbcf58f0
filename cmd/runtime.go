package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/runtime"
)

var runtimeCmd = &cobra.Command{
	Use:   "runtime",
	Short: "Show container engine information",
	Long: `Display which container engine forage-gw drives.

The engine is taken from [runtime] engine in the configuration, or
auto-detected from PATH (podman preferred over docker).`,
	Args: cobra.NoArgs,
	RunE: runRuntime,
}

func init() {
	rootCmd.AddCommand(runtimeCmd)
}

func runRuntime(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	engine := a.Config.Runtime.Engine
	if engine != "" {
		fmt.Fprintf(out, "Active engine: %s (configured)\n", engine)
	} else if detected, err := runtime.DetectEngine(); err != nil {
		fmt.Fprintf(out, "Detection failed: %s\n", err)
	} else {
		fmt.Fprintf(out, "Active engine: %s (detected)\n", detected)
	}

	logDir := a.Config.Runtime.LogDir
	if logDir == "" {
		logDir = runtime.DefaultLogDir
	}
	fmt.Fprintf(out, "Process logs:  %s\n", logDir)
	fmt.Fprintf(out, "Gateway port:  %d\n", a.Config.Gateway.Port)

	return nil
}
