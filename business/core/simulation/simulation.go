// Package simulation provides the core business API for running a network of
// mining nodes connected by a full mesh.
package simulation

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ardanlabs/powmesh/foundation/blockchain/database"
	"github.com/ardanlabs/powmesh/foundation/blockchain/genesis"
	"github.com/ardanlabs/powmesh/foundation/blockchain/metrics"
	"github.com/ardanlabs/powmesh/foundation/blockchain/network"
	"github.com/ardanlabs/powmesh/foundation/blockchain/peer"
	"github.com/ardanlabs/powmesh/foundation/blockchain/state"
	"github.com/ardanlabs/powmesh/foundation/blockchain/worker"
	"github.com/google/uuid"
)

// ErrNodeNotFound is returned when a node id is not part of the network.
var ErrNodeNotFound = errors.New("node not found")

// Config represents the configuration required to run the network.
type Config struct {
	Nodes        int
	Genesis      genesis.Genesis
	Gossip       bool
	MineInterval time.Duration
	Seed         uint64
	Metrics      *metrics.Metrics
	EvHandler    state.EventHandler
}

// Core manages the set of nodes and the mesh connecting them.
type Core struct {
	mesh      *network.Mesh
	ids       []peer.ID
	nodes     map[peer.ID]*state.State
	genesis   genesis.Genesis
	interval  time.Duration
	evHandler state.EventHandler

	mu  sync.Mutex
	rnd *rand.Rand

	wg       sync.WaitGroup
	shut     chan struct{}
	shutOnce sync.Once
}

// New constructs the network. Every node is allocated an id starting at 1,
// joined to the mesh and has its mining and message workers started.
func New(cfg Config) (*Core, error) {
	if cfg.Nodes < 1 {
		return nil, fmt.Errorf("invalid number of nodes[%d]", cfg.Nodes)
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	c := Core{
		mesh:      network.NewMesh(network.EventHandler(ev)),
		nodes:     make(map[peer.ID]*state.State),
		genesis:   cfg.Genesis,
		interval:  cfg.MineInterval,
		evHandler: ev,
		rnd:       rand.New(rand.NewPCG(seed, seed)),
		shut:      make(chan struct{}),
	}

	for i := 1; i <= cfg.Nodes; i++ {
		c.ids = append(c.ids, peer.ID(i))
	}

	inboxes := make(map[peer.ID]<-chan network.Message)
	for _, id := range c.ids {
		inbox, err := c.mesh.Join(id)
		if err != nil {
			c.mesh.Shutdown()
			return nil, fmt.Errorf("join %s: %w", id, err)
		}
		inboxes[id] = inbox
	}

	for _, id := range c.ids {
		st, err := state.New(state.Config{
			ID:        id,
			Genesis:   cfg.Genesis,
			Network:   c.mesh,
			Metrics:   cfg.Metrics,
			Gossip:    cfg.Gossip,
			EvHandler: cfg.EvHandler,
		})
		if err != nil {
			c.mesh.Shutdown()
			return nil, fmt.Errorf("node %s: %w", id, err)
		}

		// Every node joined above, so the mesh knows the full peer list.
		for _, pr := range c.mesh.Peers(id) {
			st.AddKnownPeer(pr)
		}

		c.nodes[id] = st
	}

	// Workers are started once every node exists so no message is
	// handled by a partially built network.
	for _, id := range c.ids {
		worker.Run(c.nodes[id], inboxes[id], cfg.EvHandler)
	}

	ev("simulation: New: nodes[%d]: difficulty[%d]: gossip[%v]", cfg.Nodes, cfg.Genesis.Difficulty, cfg.Gossip)

	return &c, nil
}

// Start begins sending mine commands with random payloads to random nodes at
// the configured interval. A zero interval sends nothing.
func (c *Core) Start() {
	if c.interval <= 0 {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.evHandler("simulation: Start: G started: interval[%v]", c.interval)
		defer c.evHandler("simulation: Start: G completed")

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, _, err := c.MineRandom(); err != nil {
					c.evHandler("simulation: Start: MineRandom: ERROR: %s", err)
				}
			case <-c.shut:
				return
			}
		}
	}()
}

// Shutdown stops the mine triggers, every node, and the mesh.
func (c *Core) Shutdown() {
	c.shutOnce.Do(func() {
		c.evHandler("simulation: Shutdown: started")
		defer c.evHandler("simulation: Shutdown: completed")

		close(c.shut)
		c.wg.Wait()

		for _, id := range c.ids {
			c.nodes[id].Shutdown()
		}

		c.mesh.Shutdown()
	})
}

// =============================================================================

// Mine sends a mine command with the payload to the specified node.
func (c *Core) Mine(id peer.ID, data string) error {
	if _, exists := c.nodes[id]; !exists {
		return fmt.Errorf("%s: %w", id, ErrNodeNotFound)
	}

	c.evHandler("viewer: %s: mine command received", id)

	return c.mesh.Send(id, network.NewMine(data))
}

// MineRandom sends a mine command with a unique payload to a random node.
func (c *Core) MineRandom() (peer.ID, string, error) {
	c.mu.Lock()
	id := c.ids[c.rnd.IntN(len(c.ids))]
	c.mu.Unlock()

	data := uuid.NewString()

	return id, data, c.Mine(id, data)
}

// =============================================================================

// IDs returns the ids of every node in order.
func (c *Core) IDs() []peer.ID {
	ids := make([]peer.ID, len(c.ids))
	copy(ids, c.ids)

	return ids
}

// Genesis returns the genesis the network was started with.
func (c *Core) Genesis() genesis.Genesis {
	return c.genesis
}

// Status returns the status of the specified node.
func (c *Core) Status(id peer.ID) (state.NodeStatus, error) {
	st, exists := c.nodes[id]
	if !exists {
		return state.NodeStatus{}, fmt.Errorf("%s: %w", id, ErrNodeNotFound)
	}

	return st.RetrieveStatus(), nil
}

// Statuses returns the status of every node in order.
func (c *Core) Statuses() []state.NodeStatus {
	statuses := make([]state.NodeStatus, len(c.ids))
	for i, id := range c.ids {
		statuses[i] = c.nodes[id].RetrieveStatus()
	}

	return statuses
}

// Blocks returns a snapshot of the specified node's chain.
func (c *Core) Blocks(id peer.ID) ([]database.Block, error) {
	st, exists := c.nodes[id]
	if !exists {
		return nil, fmt.Errorf("%s: %w", id, ErrNodeNotFound)
	}

	return st.RetrieveBlocks(), nil
}
