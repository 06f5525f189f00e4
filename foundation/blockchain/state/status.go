package state

import (
	"fmt"
	"sort"

	"github.com/ardanlabs/powmesh/foundation/blockchain/peer"
)

// Status represents what the node is currently doing.
type Status int

// Set of node statuses. Mining and message handling run concurrently, so a
// node that is mining reports Mining even while it awaits a chain.
const (
	StatusIdle Status = iota
	StatusMining
	StatusAwaitingChainResponse
)

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusMining:
		return "Mining"
	case StatusAwaitingChainResponse:
		return "AwaitingChainResponse"
	}

	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText implements the encoding.TextMarshaler interface.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (s *Status) UnmarshalText(text []byte) error {
	for _, status := range []Status{StatusIdle, StatusMining, StatusAwaitingChainResponse} {
		if status.String() == string(text) {
			*s = status
			return nil
		}
	}

	return fmt.Errorf("unknown status %q", text)
}

// NodeStatus represents a point in time view of a node.
type NodeStatus struct {
	ID       peer.ID   `json:"id"`
	Status   Status    `json:"status"`
	Awaiting []peer.ID `json:"awaiting"`
	Length   int       `json:"length"`
	Pending  int       `json:"pending"`
	peer.PeerStatus
}

// =============================================================================

// RetrieveStatus returns the current status of the node.
func (s *State) RetrieveStatus() NodeStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	awaiting := make([]peer.ID, 0, len(s.awaiting))
	for id := range s.awaiting {
		awaiting = append(awaiting, id)
	}
	sort.Slice(awaiting, func(i, j int) bool { return awaiting[i] < awaiting[j] })

	status := StatusIdle
	switch {
	case s.mining:
		status = StatusMining
	case len(awaiting) > 0:
		status = StatusAwaitingChainResponse
	}

	latest := s.db.LatestBlock()

	return NodeStatus{
		ID:       s.id,
		Status:   status,
		Awaiting: awaiting,
		Length:   s.db.Len(),
		Pending:  s.mempool.Count(),
		PeerStatus: peer.PeerStatus{
			LatestBlockHash:   latest.Hash,
			LatestBlockNumber: latest.Index,
			KnownPeers:        s.knownPeers.Copy(s.id),
		},
	}
}
