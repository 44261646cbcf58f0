package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var auditLogCmd = &cobra.Command{
	Use:   "audit-log <container>",
	Short: "Display the gateway lifecycle trail for a container",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditLog,
}

var (
	auditLogFormat string
	auditLogClear  bool
)

func init() {
	auditLogCmd.Flags().StringVarP(&auditLogFormat, "output", "o", "text", "Output format (text, jsonl)")
	auditLogCmd.Flags().BoolVar(&auditLogClear, "clear", false, "Delete the container's trail instead of printing it")
	rootCmd.AddCommand(auditLogCmd)
}

func runAuditLog(cmd *cobra.Command, args []string) error {
	name := args[0]

	a, err := getApp()
	if err != nil {
		return err
	}

	log := a.AuditLog()
	if log == nil {
		logInfo("Audit log is disabled")
		return nil
	}

	if auditLogClear {
		if err := log.Remove(name); err != nil {
			return fmt.Errorf("failed to clear audit log: %w", err)
		}
		logSuccess("Cleared audit log for %s", name)
		return nil
	}

	events, err := log.Events(name)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if len(events) == 0 {
		logInfo("No events found for sandbox %s", name)
		return nil
	}

	out := cmd.OutOrStdout()
	for _, e := range events {
		if auditLogFormat == "jsonl" {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			fmt.Fprintln(out, string(data))
			continue
		}

		ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
		line := fmt.Sprintf("[%s] %-8s %s", ts, e.Type, e.Sandbox)
		if e.Process != "" {
			line += " pid=" + e.Process
		}
		if e.Details != "" {
			line += " (" + e.Details + ")"
		}
		if e.Error != "" {
			line += " error: " + e.Error
		}
		fmt.Fprintln(out, line)
	}

	return nil
}
