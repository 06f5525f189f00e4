package cmd

import (
	"fmt"
	"io"
	"net/http"

	"github.com/ardanlabs/powmesh/foundation/blockchain/state"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusNode uint

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the status of the nodes.",
	RunE:  statusRun,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().UintVarP(&statusNode, "node", "n", 0, "Node to query, all nodes when not set.")
}

func statusRun(cmd *cobra.Command, args []string) error {
	var statuses []state.NodeStatus

	switch statusNode {
	case 0:
		if err := send(http.MethodGet, "/v1/nodes", nil, &statuses); err != nil {
			return err
		}

	default:
		var status state.NodeStatus
		if err := send(http.MethodGet, fmt.Sprintf("/v1/nodes/%d", statusNode), nil, &status); err != nil {
			return err
		}
		statuses = append(statuses, status)
	}

	printStatuses(cmd.OutOrStdout(), statuses)

	return nil
}

func printStatuses(w io.Writer, statuses []state.NodeStatus) {
	fmt.Fprintf(w, "%-8s %-22s %-7s %-8s %s\n", "NODE", "STATUS", "LENGTH", "PENDING", "TIP")
	for _, s := range statuses {
		status := statusColor(s.Status).Sprintf("%-22s", s.Status)
		fmt.Fprintf(w, "%-8s %s %-7d %-8d %s\n", s.ID, status, s.Length, s.Pending, s.LatestBlockHash.TerminalString())
	}
}

// statusColor is applied after padding so escape codes do not break alignment.
func statusColor(status state.Status) *color.Color {
	switch status {
	case state.StatusMining:
		return color.New(color.FgYellow)
	case state.StatusAwaitingChainResponse:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgGreen)
	}
}
