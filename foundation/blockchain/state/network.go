package state

import (
	"fmt"

	"github.com/ardanlabs/powmesh/foundation/blockchain/database"
	"github.com/ardanlabs/powmesh/foundation/blockchain/network"
	"github.com/ardanlabs/powmesh/foundation/blockchain/peer"
)

// NetSendBlockToPeers takes a block and sends it to all the peers.
func (s *State) NetSendBlockToPeers(block database.Block) error {
	s.evHandler("state: NetSendBlockToPeers: started: %s", block)
	defer s.evHandler("state: NetSendBlockToPeers: completed")

	if err := s.net.Broadcast(s.id, network.NewBlockMessage(s.id, block)); err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}

	return nil
}

// NetRequestChain asks the specified peer for its full chain. While a
// request to that peer is outstanding, further requests are suppressed.
func (s *State) NetRequestChain(pr peer.ID) error {
	s.evHandler("state: NetRequestChain: started: peer[%s]", pr)
	defer s.evHandler("state: NetRequestChain: completed: peer[%s]", pr)

	s.mu.Lock()
	if _, exists := s.awaiting[pr]; exists {
		s.mu.Unlock()
		s.evHandler("state: NetRequestChain: already awaiting: peer[%s]", pr)
		return nil
	}
	s.awaiting[pr] = struct{}{}
	s.mu.Unlock()

	if err := s.net.Send(pr, network.NewRequestChain(s.id)); err != nil {
		s.mu.Lock()
		delete(s.awaiting, pr)
		s.mu.Unlock()

		return fmt.Errorf("%s: %w", pr, err)
	}

	s.evHandler("viewer: %s: requested chain from %s", s.id, pr)
	s.metrics.ChainRequested(s.id)

	return nil
}

// NetSendChain sends a snapshot of the local chain to the requesting peer.
func (s *State) NetSendChain(to peer.ID) error {
	s.evHandler("state: NetSendChain: started: peer[%s]", to)
	defer s.evHandler("state: NetSendChain: completed: peer[%s]", to)

	blocks := s.RetrieveBlocks()

	if err := s.net.Send(to, network.NewChain(s.id, blocks)); err != nil {
		return fmt.Errorf("%s: %w", to, err)
	}

	return nil
}
