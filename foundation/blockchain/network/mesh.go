package network

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/powmesh/foundation/blockchain/peer"
)

// Set of errors returned by the mesh.
var (
	ErrUnknownPeer  = errors.New("unknown peer")
	ErrPeerExists   = errors.New("peer already joined")
	ErrMeshShutdown = errors.New("mesh is shutdown")
)

// EventHandler defines a function that is called when events
// occur in the routing of messages.
type EventHandler func(v string, args ...any)

// Mesh connects every joined node to every other node. Broadcast messages
// are delivered to all other nodes and directed messages to exactly one.
// Delivery is reliable and first in first out for each sender and receiver
// pair. The mesh never inspects or changes a payload.
type Mesh struct {
	mu        sync.RWMutex
	peers     *peer.PeerSet
	mailboxes map[peer.ID]*mailbox
	shutdown  bool
	evHandler EventHandler
}

// NewMesh constructs an empty mesh.
func NewMesh(evHandler EventHandler) *Mesh {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Mesh{
		peers:     peer.NewPeerSet(),
		mailboxes: make(map[peer.ID]*mailbox),
		evHandler: ev,
	}
}

// Join registers the node with the mesh and returns the channel the node
// receives its messages on. The channel is closed when the node leaves or
// the mesh is shutdown.
func (m *Mesh) Join(id peer.ID) (<-chan Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return nil, ErrMeshShutdown
	}

	if m.peers.Contains(peer.New(id)) {
		return nil, fmt.Errorf("%w: %s", ErrPeerExists, id)
	}

	mb := newMailbox()
	m.mailboxes[id] = mb
	m.peers.Add(peer.New(id))

	m.evHandler("network: Join: peer[%s]: peers[%d]", id, len(m.mailboxes))

	return mb.out, nil
}

// Leave removes the node from the mesh and closes its channel.
func (m *Mesh) Leave(id peer.ID) {
	m.mu.Lock()
	mb, exists := m.mailboxes[id]
	if exists {
		delete(m.mailboxes, id)
		m.peers.Remove(peer.New(id))
	}
	m.mu.Unlock()

	if exists {
		mb.close()
		m.evHandler("network: Leave: peer[%s]", id)
	}
}

// Peers returns the set of joined nodes excluding the specified node.
func (m *Mesh) Peers(self peer.ID) []peer.Peer {
	return m.peers.Copy(self)
}

// Broadcast delivers the message to every joined node other than the sender.
func (m *Mesh) Broadcast(from peer.ID, msg Message) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.shutdown {
		return ErrMeshShutdown
	}

	for _, pr := range m.peers.Copy(from) {
		if mb, exists := m.mailboxes[pr.ID]; exists {
			mb.push(msg)
		}
	}

	return nil
}

// Send delivers the message to exactly the specified node.
func (m *Mesh) Send(to peer.ID, msg Message) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.shutdown {
		return ErrMeshShutdown
	}

	mb, exists := m.mailboxes[to]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, to)
	}

	if !mb.push(msg) {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, to)
	}

	return nil
}

// Pending returns the number of messages queued for the specified node.
func (m *Mesh) Pending(id peer.ID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mb, exists := m.mailboxes[id]
	if !exists {
		return 0
	}

	return mb.pending()
}

// Shutdown closes every mailbox. Messages not yet delivered are dropped.
func (m *Mesh) Shutdown() {
	m.mu.Lock()
	m.shutdown = true
	mailboxes := m.mailboxes
	m.mailboxes = make(map[peer.ID]*mailbox)
	m.mu.Unlock()

	for id, mb := range mailboxes {
		mb.close()
		m.peers.Remove(peer.New(id))
	}

	m.evHandler("network: Shutdown: closed mailboxes[%d]", len(mailboxes))
}
