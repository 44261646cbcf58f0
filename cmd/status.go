package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/health"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/logging"
)

var statusCmd = &cobra.Command{
	Use:   "status <container>",
	Short: "Show the gateway status of a container",
	Long: `Probes the gateway once without starting or killing anything, and
shows the seeded provider and recent lifecycle events.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

var (
	statusFormat  string
	statusTimeout time.Duration
	statusEvents  int
)

func init() {
	statusCmd.Flags().StringVarP(&statusFormat, "output", "o", "text", "Output format (text, json)")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 0, "Probe timeout (default: the configured exec timeout)")
	statusCmd.Flags().IntVar(&statusEvents, "events", 5, "Number of recent events to show")
	rootCmd.AddCommand(statusCmd)
}

var (
	labelStyle     = lipgloss.NewStyle().Bold(true).Width(10)
	healthyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	unhealthyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	stoppedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// statusReport is the JSON form of the status command
type statusReport struct {
	Sandbox   string        `json:"sandbox"`
	Status    health.Status `json:"status"`
	Process   string        `json:"process,omitempty"`
	Command   string        `json:"command,omitempty"`
	Port      int           `json:"port"`
	Reachable bool          `json:"reachable"`
	Provider  string        `json:"provider,omitempty"`
	Model     string        `json:"model,omitempty"`
	Events    []audit.Event `json:"events,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusFormat != "text" && statusFormat != "json" {
		return fmt.Errorf("unsupported output format %q", statusFormat)
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

	timeout := statusTimeout
	if timeout <= 0 {
		timeout = a.Config.Timeouts.Exec.Duration
	}

	port := a.Config.Gateway.Port
	result := health.Check(ctx, sb, port, timeout)

	report := statusReport{
		Sandbox:   result.Sandbox,
		Status:    result.Status(),
		Process:   result.ProcessID,
		Command:   result.Command,
		Port:      port,
		Reachable: result.Reachable,
	}

	if cfg, err := a.Seeder().Read(ctx, sb); err != nil {
		logging.Debug("no readable gateway config", "sandbox", sb.ID(), "error", err)
	} else {
		report.Provider, _, _ = cfg.Provider()
		report.Model = cfg.Agents.Defaults.Model.Primary
	}

	if log := a.AuditLog(); log != nil {
		events, err := log.Tail(sb.ID(), statusEvents)
		if err != nil {
			logging.Debug("failed to read audit log", "sandbox", sb.ID(), "error", err)
		}
		report.Events = events
	}

	out := cmd.OutOrStdout()
	if statusFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	renderStatus(out, report, result)
	return nil
}

func renderStatus(w io.Writer, r statusReport, result *health.CheckResult) {
	row := func(label, value string) {
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value))
	}

	row("Sandbox:", r.Sandbox)
	row("Gateway:", statusStyle(r.Status).Render(string(r.Status)))

	if r.Process != "" {
		row("Process:", fmt.Sprintf("%s %s", r.Process, dimStyle.Render("("+string(result.Process)+")")))
		row("Command:", r.Command)
		if r.Reachable {
			row("Port:", fmt.Sprintf("%d %s", r.Port, dimStyle.Render("reachable in "+result.ElapsedString())))
		} else {
			row("Port:", fmt.Sprintf("%d %s", r.Port, dimStyle.Render("not reachable after "+result.ElapsedString())))
		}
	} else {
		row("Port:", fmt.Sprintf("%d", r.Port))
	}

	if r.Provider != "" {
		row("Provider:", r.Provider)
		row("Model:", r.Model)
	}

	if len(r.Events) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, labelStyle.UnsetWidth().Render("Recent events:"))
		for _, e := range r.Events {
			ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
			line := fmt.Sprintf("  [%s] %-8s", ts, e.Type)
			if e.Process != "" {
				line += " " + e.Process
			}
			if e.Error != "" {
				line += " " + dimStyle.Render(e.Error)
			}
			fmt.Fprintln(w, line)
		}
	}
}

func statusStyle(s health.Status) lipgloss.Style {
	switch s {
	case health.StatusHealthy:
		return healthyStyle
	case health.StatusUnhealthy:
		return unhealthyStyle
	default:
		return stoppedStyle
	}
}
