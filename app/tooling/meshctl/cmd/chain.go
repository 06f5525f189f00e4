package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type block struct {
	Index     uint64 `json:"index"`
	TimeStamp uint64 `json:"timestamp"`
	Data      string `json:"data"`
	PrevHash  string `json:"prev_hash"`
	Nonce     uint64 `json:"nonce"`
	Hash      string `json:"hash"`
}

var chainNode uint

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the chain held by a node.",
	RunE:  chainRun,
}

func init() {
	rootCmd.AddCommand(chainCmd)
	chainCmd.Flags().UintVarP(&chainNode, "node", "n", 1, "Node to query.")
}

func chainRun(cmd *cobra.Command, args []string) error {
	var blocks []block
	if err := send(http.MethodGet, fmt.Sprintf("/v1/nodes/%d/blocks", chainNode), nil, &blocks); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, b := range blocks {
		fmt.Fprintf(w, "blk[%d] nonce[%d] data[%q]\n  hash: %s\n  prev: %s\n", b.Index, b.Nonce, b.Data, b.Hash, b.PrevHash)
	}

	return nil
}
