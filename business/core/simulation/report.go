package simulation

import (
	"github.com/ardanlabs/powmesh/foundation/blockchain/database"
	"github.com/ardanlabs/powmesh/foundation/blockchain/peer"
	"github.com/ethereum/go-ethereum/common"
)

// NodeReport is the final view of a single node's chain.
type NodeReport struct {
	ID     peer.ID     `json:"id"`
	Length int         `json:"length"`
	Tip    common.Hash `json:"tip"`
	Valid  bool        `json:"valid"`
	Error  string      `json:"error,omitempty"`
}

// Report is the view of every node's chain at a point in time.
type Report struct {
	Nodes  []NodeReport `json:"nodes"`
	Agreed bool         `json:"agreed"`
	Height int          `json:"height"`
}

// Report independently validates every node's chain and reports whether
// all nodes hold the same tip.
func (c *Core) Report() Report {
	bc := database.NewBlockchain(c.genesis)

	rpt := Report{
		Nodes:  make([]NodeReport, 0, len(c.ids)),
		Agreed: true,
	}

	var tip common.Hash
	for i, id := range c.ids {
		blocks := c.nodes[id].RetrieveBlocks()

		nr := NodeReport{
			ID:     id,
			Length: len(blocks),
			Tip:    blocks[len(blocks)-1].Hash,
			Valid:  true,
		}

		if err := bc.Validate(blocks); err != nil {
			nr.Valid = false
			nr.Error = err.Error()
		}

		switch {
		case i == 0:
			tip = nr.Tip
		case nr.Tip != tip:
			rpt.Agreed = false
		}

		if nr.Length > rpt.Height {
			rpt.Height = nr.Length
		}

		rpt.Nodes = append(rpt.Nodes, nr)
	}

	return rpt
}
