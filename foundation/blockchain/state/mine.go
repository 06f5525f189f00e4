package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/powmesh/foundation/blockchain/database"
	"github.com/ardanlabs/powmesh/foundation/blockchain/peer"
)

// Set of errors returned by the state api.
var (
	ErrNoPayload    = errors.New("no payload in mempool")
	ErrBlockIgnored = errors.New("block already superseded")
	ErrStaleBlock   = errors.New("mined block is stale")
	ErrChainBehind  = errors.New("chain is behind blocks announced by the peer")
)

// =============================================================================

// MineNewBlock takes the next payload from the mempool and attempts to create
// a new block with a proper hash on top of the current tip. The lock is only
// held to read the tip and to append, never across the search. If the search
// is cancelled or the tip moved, the payload goes back to the mempool.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	data, ok := s.mempool.Pop()
	if !ok {
		return database.Block{}, ErrNoPayload
	}

	s.setMining(true)
	defer s.setMining(false)

	s.mu.Lock()
	tip := s.db.LatestBlock()
	difficulty := s.db.Difficulty()
	s.mu.Unlock()

	s.evHandler("state: MineNewBlock: MINING: perform POW: tip[%s]", tip)

	args := database.POWArgs{
		Index:      tip.Index + 1,
		PrevHash:   tip.Hash,
		Data:       data,
		Difficulty: difficulty,
		EvHandler:  s.evHandler,
	}

	start := time.Now()
	block, err := database.POW(ctx, args)
	if err != nil {
		s.mempool.PushFront(data)
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		s.mempool.PushFront(data)
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: update local state")

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Append(block); err != nil {
		s.mempool.PushFront(data)
		return database.Block{}, fmt.Errorf("%w: %w", ErrStaleBlock, err)
	}

	s.metrics.BlockMined(s.id, time.Since(start).Seconds())
	s.metrics.ChainLength(s.id, s.db.Len())

	return block, nil
}

// ProcessNewBlock takes a block received from a peer, validates it and if
// that passes, appends the block to the local chain. A block that is already
// superseded by the local chain returns ErrBlockIgnored. Any other error means
// the local chain can't be extended by this block and the caller should
// request the peer's chain.
func (s *State) ProcessNewBlock(from peer.ID, block database.Block) error {
	s.evHandler("state: ProcessNewBlock: started: from[%s]: %s", from, block)
	defer s.evHandler("state: ProcessNewBlock: completed")

	s.mu.Lock()
	defer s.mu.Unlock()

	latest := s.db.LatestBlock()
	if block.Index < latest.Index || block.Hash == latest.Hash {
		s.evHandler("state: ProcessNewBlock: ignored: tip[%s]", latest)
		return ErrBlockIgnored
	}

	if err := s.db.Append(block); err != nil {
		s.evHandler("state: ProcessNewBlock: rejected: %s", err)
		s.metrics.BlockRejected(s.id, database.Reason(err))

		// Peers only announce blocks they hold, so the peer's chain is at
		// least this long.
		if length := block.Index + 1; length > s.announced[from] {
			s.announced[from] = length
		}

		return err
	}

	s.evHandler("viewer: %s: accepted %s from %s", s.id, block, from)

	s.metrics.BlockAccepted(s.id)
	s.metrics.ChainLength(s.id, s.db.Len())

	return nil
}

// ProcessChain evaluates a chain received from a peer against the local chain
// using the longest valid chain rule. It is evaluated whether or not a chain
// was requested from this peer and clears any pending request. If the chain
// is shorter than blocks the peer announced after the request was sent,
// ErrChainBehind is returned and the caller should request the chain again.
func (s *State) ProcessChain(from peer.ID, blocks []database.Block) error {
	s.evHandler("state: ProcessChain: started: from[%s]: blocks[%d]", from, len(blocks))
	defer s.evHandler("state: ProcessChain: completed")

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.awaiting, from)

	announced := s.announced[from]
	if uint64(len(blocks)) >= announced {
		delete(s.announced, from)
	}

	if err := s.db.Replace(blocks); err != nil {
		s.evHandler("state: ProcessChain: kept local chain: %s", err)
		s.metrics.ChainRejected(s.id, database.Reason(err))

		if uint64(len(blocks)) < announced && announced > uint64(s.db.Len()) {
			return fmt.Errorf("%w: %w", ErrChainBehind, err)
		}

		return err
	}

	delete(s.announced, from)

	s.evHandler("viewer: %s: replaced chain with %s's, length %d", s.id, from, s.db.Len())

	s.metrics.ChainReplaced(s.id)
	s.metrics.ChainLength(s.id, s.db.Len())

	return nil
}

// UpsertPayload adds a new payload to the mempool and returns the number of
// payloads waiting to be mined.
func (s *State) UpsertPayload(data string) int {
	n := s.mempool.Push(data)
	s.evHandler("state: UpsertPayload: pending[%d]", n)

	return n
}

// =============================================================================

func (s *State) setMining(mining bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mining = mining
}
