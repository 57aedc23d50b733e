// Package main implements the lcctl CLI for operating a lifecycled daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/lifecycled/internal/config"
	"github.com/fyrsmithlabs/lifecycled/internal/monitor"
)

var (
	// serverURL is the base URL for the lifecycled HTTP API
	serverURL string
	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lcctl",
	Short: "CLI for lifecycled daemon operations",
	Long: `lcctl is a command-line interface for a running lifecycled daemon.
It checks health, inspects pass status, reads and changes the group order,
and runs a terminal dashboard.`,
	Version: version,
}

func init() {
	cfg := config.Load()
	defaultURL := fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "lifecycled server URL")
	rootCmd.AddCommand(healthCmd)
}

// healthCmd checks daemon health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check lifecycled daemon health",
	Long: `Check the health status of the lifecycled daemon.

Examples:
  # Check health
  lcctl health

  # Check health on a different server
  lcctl health --server http://localhost:9700`,
	RunE: runHealth,
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	client := monitor.NewStatusClient(serverURL)

	health, err := client.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", serverURL, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Server Status: %s\n", health.Status)
	if health.Version != "" {
		fmt.Fprintf(out, "Server Version: %s\n", health.Version)
	}
	fmt.Fprintf(out, "Server URL: %s\n", serverURL)

	return nil
}
