package state

import (
	"github.com/ardanlabs/powmesh/foundation/blockchain/database"
	"github.com/ardanlabs/powmesh/foundation/blockchain/genesis"
	"github.com/ardanlabs/powmesh/foundation/blockchain/peer"
)

// RetrieveID returns the identity of this node.
func (s *State) RetrieveID() peer.ID {
	return s.id
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.LatestBlock()
}

// RetrieveBlocks returns a snapshot of the local chain.
func (s *State) RetrieveBlocks() []database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Blocks()
}

// RetrieveMempool returns a copy of the payloads waiting to be mined.
func (s *State) RetrieveMempool() []string {
	return s.mempool.Copy()
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.id)
}

// QueryPendingLength returns the number of payloads waiting to be mined.
func (s *State) QueryPendingLength() int {
	return s.mempool.Count()
}
