package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/lifecycled/internal/monitor"
)

func init() {
	rootCmd.AddCommand(orderCmd)
	orderCmd.AddCommand(orderGetCmd)
	orderCmd.AddCommand(orderSetCmd)
}

// orderCmd groups the order subcommands
var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Read or change the group order",
	Long: `Read or change the group order the daemon uses for passes.

The order applies at the start of the next pass: start walks the groups
left to right, stop walks them right to left.`,
}

var orderGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current group order",
	Long: `Print the group order the next pass will use.

Examples:
  lcctl order get`,
	RunE: runOrderGet,
}

var orderSetCmd = &cobra.Command{
	Use:   "set <group> [group...]",
	Short: "Replace the group order",
	Long: `Replace the group order. Groups may be listed as separate
arguments or as one comma-separated list.

Examples:
  lcctl order set datasource messaging server
  lcctl order set datasource,messaging,server`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOrderSet,
}

// runOrderGet handles the order get command
func runOrderGet(cmd *cobra.Command, args []string) error {
	client := monitor.NewStatusClient(serverURL)

	order, err := client.GroupOrder(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", serverURL, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), monitor.FormatOrder(order))
	return nil
}

// runOrderSet handles the order set command
func runOrderSet(cmd *cobra.Command, args []string) error {
	client := monitor.NewStatusClient(serverURL)

	applied, err := client.SetGroupOrder(cmd.Context(), parseOrderArgs(args))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Order updated: %s\n", monitor.FormatOrder(applied))
	return nil
}

// parseOrderArgs flattens command arguments into group names, splitting
// any comma-separated lists.
func parseOrderArgs(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
