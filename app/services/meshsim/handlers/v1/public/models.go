package public

import (
	"time"

	"github.com/ardanlabs/powmesh/foundation/blockchain/database"
	"github.com/ardanlabs/powmesh/foundation/validate"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// MineRequest is the payload for asking a node to mine a block.
type MineRequest struct {
	Data string `json:"data" validate:"required,max=1024"`
}

// Validate checks the data in the model is considered clean.
func (mr MineRequest) Validate() error {
	return validate.Check(mr)
}

type mineResponse struct {
	Status  string `json:"status"`
	Node    uint   `json:"node"`
	TraceID string `json:"trace_id"`
}

type block struct {
	Index     uint64 `json:"index"`
	TimeStamp uint64 `json:"timestamp"`
	Time      string `json:"time"`
	Data      string `json:"data"`
	PrevHash  string `json:"prev_hash"`
	Nonce     uint64 `json:"nonce"`
	Hash      string `json:"hash"`
}

func toBlock(b database.Block) block {
	return block{
		Index:     b.Index,
		TimeStamp: b.TimeStamp,
		Time:      b.Time().Format(time.RFC3339Nano),
		Data:      b.Data,
		PrevHash:  hexutil.Encode(b.PrevHash[:]),
		Nonce:     b.Nonce,
		Hash:      hexutil.Encode(b.Hash[:]),
	}
}

func toBlocks(blocks []database.Block) []block {
	out := make([]block, len(blocks))
	for i, b := range blocks {
		out[i] = toBlock(b)
	}

	return out
}
