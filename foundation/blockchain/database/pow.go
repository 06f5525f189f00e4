package database

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	Index      uint64
	PrevHash   common.Hash
	Data       string
	Difficulty uint16
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle. The search starts at nonce 0 and
// runs until a solution is found or the context is cancelled.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ev("database: POW: MINING: started: blk[%d]", args.Index)
	defer ev("database: POW: MINING: completed: blk[%d]", args.Index)

	// The timestamp is fixed for the whole search.
	timeStamp := uint64(time.Now().UTC().UnixMilli())

	var nonce uint64
	for {
		if nonce > 0 && nonce%1_000_000 == 0 {
			ev("database: POW: MINING: attempts[%d]", nonce)
		}

		// Did we get cancelled trying to solve the problem.
		if ctx.Err() != nil {
			ev("database: POW: MINING: CANCELLED: attempts[%d]", nonce)
			return Block{}, ctx.Err()
		}

		// Hash the block and check if we have solved the puzzle.
		hash := ComputeHash(args.Index, timeStamp, args.Data, args.PrevHash, nonce)
		if !IsHashSolved(args.Difficulty, hash) {
			nonce++
			continue
		}

		ev("database: POW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", args.PrevHash.TerminalString(), hash.TerminalString(), nonce+1)

		return Block{
			Index:     args.Index,
			TimeStamp: timeStamp,
			Data:      args.Data,
			PrevHash:  args.PrevHash,
			Nonce:     nonce,
			Hash:      hash,
		}, nil
	}
}
