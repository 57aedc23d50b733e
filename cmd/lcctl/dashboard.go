package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/lifecycled/internal/monitor"
)

var dashboardInterval time.Duration

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().DurationVar(&dashboardInterval, "interval", 5*time.Second, "refresh interval")
}

// dashboardCmd runs the terminal dashboard
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live terminal dashboard for the daemon",
	Long: `Run a full-screen terminal dashboard showing groups, the group
order, pass durations and the currently running pass.

Examples:
  # Refresh every 5 seconds (default)
  lcctl dashboard

  # Faster refresh
  lcctl dashboard --interval 1s`,
	RunE: runDashboard,
}

// runDashboard handles the dashboard command
func runDashboard(cmd *cobra.Command, args []string) error {
	model := monitor.NewModel(serverURL, dashboardInterval)
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}
