// Package state is the core API for a node in the network and implements all
// the consensus rules for reconciling the local chain with its peers.
package state

import (
	"errors"
	"sync"

	"github.com/ardanlabs/powmesh/foundation/blockchain/database"
	"github.com/ardanlabs/powmesh/foundation/blockchain/genesis"
	"github.com/ardanlabs/powmesh/foundation/blockchain/mempool"
	"github.com/ardanlabs/powmesh/foundation/blockchain/metrics"
	"github.com/ardanlabs/powmesh/foundation/blockchain/network"
	"github.com/ardanlabs/powmesh/foundation/blockchain/peer"
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks and messages.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and message handling.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
}

// Network represents the send primitives a node needs to reach its peers.
type Network interface {
	Broadcast(from peer.ID, msg network.Message) error
	Send(to peer.ID, msg network.Message) error
}

// =============================================================================

// Config represents the configuration required to start a node.
type Config struct {
	ID         peer.ID
	Genesis    genesis.Genesis
	Network    Network
	KnownPeers *peer.PeerSet
	Metrics    *metrics.Metrics
	Gossip     bool
	EvHandler  EventHandler
}

// State manages the blockchain for a single node.
type State struct {
	id        peer.ID
	gossip    bool
	evHandler EventHandler
	mu        sync.Mutex

	genesis    genesis.Genesis
	net        Network
	knownPeers *peer.PeerSet
	metrics    *metrics.Metrics
	mempool    *mempool.Mempool
	db         *database.Blockchain

	mining    bool
	awaiting  map[peer.ID]struct{}
	announced map[peer.ID]uint64

	Worker Worker
}

// New constructs a new node seeded with the genesis block.
func New(cfg Config) (*State, error) {
	if cfg.Network == nil {
		return nil, errors.New("network is required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	state := State{
		id:        cfg.ID,
		gossip:    cfg.Gossip,
		evHandler: ev,

		genesis:    cfg.Genesis,
		net:        cfg.Network,
		knownPeers: knownPeers,
		metrics:    cfg.Metrics,
		mempool:    mempool.New(),
		db:         database.NewBlockchain(cfg.Genesis),

		awaiting:  make(map[peer.ID]struct{}),
		announced: make(map[peer.ID]uint64),
	}

	state.metrics.ChainLength(state.id, state.db.Len())

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: Shutdown: node[%s]", s.id)

	// Stop all mining and message handling activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// GossipEnabled reports whether accepted peer blocks should be re-broadcast.
func (s *State) GossipEnabled() bool {
	return s.gossip
}

// AddKnownPeer provides the ability to add a new peer to
// the known peer list.
func (s *State) AddKnownPeer(pr peer.Peer) bool {
	if pr.Match(s.id) {
		return false
	}

	return s.knownPeers.Add(pr)
}

// TrackMessage records a message handled by this node.
func (s *State) TrackMessage(kind network.Kind) {
	s.metrics.MessageReceived(s.id, kind.String())
}
