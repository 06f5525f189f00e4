package simulation_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/powmesh/business/core/simulation"
	"github.com/ardanlabs/powmesh/foundation/blockchain/genesis"
	"github.com/ardanlabs/powmesh/foundation/blockchain/metrics"
	"github.com/ardanlabs/powmesh/foundation/blockchain/peer"
	"github.com/ardanlabs/powmesh/foundation/blockchain/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCore(t *testing.T, nodes int, interval time.Duration) *simulation.Core {
	t.Helper()

	gen := genesis.Default()
	gen.Difficulty = 1

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	core, err := simulation.New(simulation.Config{
		Nodes:        nodes,
		Genesis:      gen,
		Gossip:       true,
		MineInterval: interval,
		Seed:         42,
		Metrics:      m,
	})
	require.NoError(t, err)
	t.Cleanup(core.Shutdown)

	return core
}

func quiet(core *simulation.Core) bool {
	for _, st := range core.Statuses() {
		if st.Status != state.StatusIdle || st.Pending != 0 {
			return false
		}
	}

	return true
}

// =============================================================================

func TestNew(t *testing.T) {
	_, err := simulation.New(simulation.Config{Nodes: 0, Genesis: genesis.Default()})
	assert.Error(t, err)

	core := newCore(t, 3, 0)
	assert.Equal(t, []peer.ID{1, 2, 3}, core.IDs())

	status, err := core.Status(2)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Length)
	assert.Equal(t, []peer.Peer{{ID: 1}, {ID: 3}}, status.KnownPeers)

	_, err = core.Status(9)
	assert.ErrorIs(t, err, simulation.ErrNodeNotFound)

	assert.ErrorIs(t, core.Mine(9, "x"), simulation.ErrNodeNotFound)

	rpt := core.Report()
	assert.True(t, rpt.Agreed)
	assert.Equal(t, 1, rpt.Height)
}

func TestConvergence(t *testing.T) {
	core := newCore(t, 3, 0)

	require.NoError(t, core.Mine(1, "block-1"))

	require.Eventually(t, func() bool {
		rpt := core.Report()
		return rpt.Agreed && rpt.Height == 2
	}, 5*time.Second, 10*time.Millisecond)

	for _, id := range core.IDs() {
		blocks, err := core.Blocks(id)
		require.NoError(t, err)
		require.Len(t, blocks, 2)
		assert.Equal(t, "block-1", blocks[1].Data)
	}
}

func TestConcurrentMining(t *testing.T) {
	core := newCore(t, 4, 0)

	// Every node mines continuously while the others broadcast.
	var wg sync.WaitGroup
	for _, id := range core.IDs() {
		wg.Add(1)
		go func(id peer.ID) {
			defer wg.Done()
			for i := range 10 {
				assert.NoError(t, core.Mine(id, fmt.Sprintf("%s-%d", id, i)))
				time.Sleep(time.Millisecond)
			}
		}(id)
	}
	wg.Wait()

	require.Eventually(t, func() bool { return quiet(core) }, 10*time.Second, 20*time.Millisecond)

	rpt := core.Report()
	for _, nr := range rpt.Nodes {
		assert.True(t, nr.Valid, "node %s: %s", nr.ID, nr.Error)
		assert.Greater(t, nr.Length, 1)
	}

	// Equal length forks only resolve when one side grows.
	require.NoError(t, core.Mine(1, "tie-breaker"))

	require.Eventually(t, func() bool { return core.Report().Agreed }, 10*time.Second, 20*time.Millisecond)

	for _, nr := range core.Report().Nodes {
		assert.True(t, nr.Valid, "node %s: %s", nr.ID, nr.Error)
	}
}

func TestRandomTriggers(t *testing.T) {
	core := newCore(t, 3, 5*time.Millisecond)
	core.Start()

	require.Eventually(t, func() bool { return core.Report().Height > 3 }, 10*time.Second, 20*time.Millisecond)

	core.Shutdown()

	for _, nr := range core.Report().Nodes {
		assert.True(t, nr.Valid, "node %s: %s", nr.ID, nr.Error)
	}
}
