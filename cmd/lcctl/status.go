package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/lifecycled/internal/monitor"
	"github.com/fyrsmithlabs/lifecycled/internal/server"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusCmd prints the daemon's pass status
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show groups, order and recent passes",
	Long: `Show the daemon's registered observer groups, the group order the
next pass will use, and a summary of the last completed pass.

Examples:
  # Show status
  lcctl status

  # Against a different server
  lcctl status --server http://localhost:9700`,
	RunE: runStatus,
}

// runStatus handles the status command
func runStatus(cmd *cobra.Command, args []string) error {
	client := monitor.NewStatusClient(serverURL)

	status, err := client.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", serverURL, err)
	}

	fmt.Fprint(cmd.OutOrStdout(), renderStatus(status))
	return nil
}

// renderStatus formats a status response for the terminal.
func renderStatus(status server.StatusResponse) string {
	var b strings.Builder

	service := status.Service
	if status.Version != "" {
		service += " " + status.Version
	}
	fmt.Fprintf(&b, "Status:  %s\n", status.Status)
	fmt.Fprintf(&b, "Service: %s\n", service)
	fmt.Fprintf(&b, "Mode:    %s\n", status.Mode)
	fmt.Fprintf(&b, "Order:   %s\n", monitor.FormatOrder(status.Order))

	b.WriteString("\nGroups:\n")
	if len(status.Groups) == 0 {
		b.WriteString("  (no observers registered)\n")
	}
	for _, group := range status.Groups {
		name := group.Name
		if name == "" {
			name = "(unnamed)"
		}
		members := make([]string, len(group.Members))
		for i, mem := range group.Members {
			members[i] = mem.Key
			if len(mem.Phases) > 0 {
				members[i] += " [" + strings.Join(mem.Phases, " ") + "]"
			}
		}
		fmt.Fprintf(&b, "  %-12s %s\n", name, strings.Join(members, "  "))
	}

	if cp := status.CurrentPass; cp != nil {
		fmt.Fprintf(&b, "\nCurrent pass: %s running (%d phases done)\n", cp.Op, len(cp.Phases))
	}

	if lp := status.LastPass; lp != nil {
		fmt.Fprintf(&b, "\nLast pass: %s %s in %s (%s)\n",
			lp.Op, lp.Status,
			monitor.FormatDurationMS(lp.DurationMS),
			monitor.FormatAge(time.Since(lp.FinishedAt)))
		if len(lp.Phases) > 0 {
			fmt.Fprintf(&b, "  %s\n", monitor.FormatPhases(lp.Phases))
		}
		if lp.Error != "" {
			fmt.Fprintf(&b, "  error: %s\n", lp.Error)
		}
	} else {
		b.WriteString("\nLast pass: none yet\n")
	}

	return b.String()
}
