package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	mineNode uint
	mineData string
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Ask a node to mine a block with a payload.",
	RunE:  mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().UintVarP(&mineNode, "node", "n", 1, "Node to send the mine command to.")
	mineCmd.Flags().StringVarP(&mineData, "data", "d", "", "Payload for the block.")
	mineCmd.MarkFlagRequired("data")
}

func mineRun(cmd *cobra.Command, args []string) error {
	req := struct {
		Data string `json:"data"`
	}{
		Data: mineData,
	}

	var resp struct {
		Status string `json:"status"`
		Node   uint   `json:"node"`
	}
	if err := send(http.MethodPost, fmt.Sprintf("/v1/nodes/%d/mine", mineNode), req, &resp); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "node-%d: %s\n", resp.Node, resp.Status)

	return nil
}
