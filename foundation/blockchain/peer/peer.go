// Package peer maintains the peer related information such as the set
// of known peers and their status.
package peer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ID represents the unique identity of a node in the network.
type ID uint

// String implements the fmt.Stringer interface.
func (id ID) String() string {
	return fmt.Sprintf("node-%d", uint(id))
}

// Peer represents information about a Node in the network.
type Peer struct {
	ID ID `json:"id"`
}

// New contructs a new peer value.
func New(id ID) Peer {
	return Peer{
		ID: id,
	}
}

// Match validates if the specified id matches this node.
func (p Peer) Match(id ID) bool {
	return p.ID == id
}

// String implements the fmt.Stringer interface.
func (p Peer) String() string {
	return p.ID.String()
}

// =============================================================================

// PeerStatus represents information about the status
// of any given peer.
type PeerStatus struct {
	LatestBlockHash   common.Hash `json:"latest_block_hash"`
	LatestBlockNumber uint64      `json:"latest_block_number"`
	KnownPeers        []Peer      `json:"known_peers"`
}

// =============================================================================

// PeerSet represents the data representation to maintain a set of known peers.
type PeerSet struct {
	mu  sync.RWMutex
	set map[Peer]struct{}
}

// NewPeerSet constructs a new info set to manage node peer information.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[Peer]struct{}),
	}
}

// Add adds a new node to the set.
func (ps *PeerSet) Add(peer Peer) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	_, exists := ps.set[peer]
	if !exists {
		ps.set[peer] = struct{}{}
		return true
	}

	return false
}

// Remove removes a node from the set.
func (ps *PeerSet) Remove(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, peer)
}

// Contains reports whether the peer is in the set.
func (ps *PeerSet) Contains(peer Peer) bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	_, exists := ps.set[peer]
	return exists
}

// Copy returns a list of the known peers excluding the specified node,
// ordered by id.
func (ps *PeerSet) Copy(self ID) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var peers []Peer
	for peer := range ps.set {
		if !peer.Match(self) {
			peers = append(peers, peer)
		}
	}

	sort.Slice(peers, func(i, j int) bool { return peers[i].ID < peers[j].ID })

	return peers
}
