package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/ardanlabs/powmesh/foundation/blockchain/database"
	"github.com/ardanlabs/powmesh/foundation/blockchain/genesis"
	"github.com/ardanlabs/powmesh/foundation/blockchain/metrics"
	"github.com/ardanlabs/powmesh/foundation/blockchain/network"
	"github.com/ardanlabs/powmesh/foundation/blockchain/peer"
	"github.com/ardanlabs/powmesh/foundation/blockchain/state"
	"github.com/ardanlabs/powmesh/foundation/blockchain/worker"
	"github.com/prometheus/client_golang/prometheus"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type node struct {
	state *state.State
	inbox <-chan network.Message
}

func newNodes(t *testing.T, mesh *network.Mesh, ids ...peer.ID) map[peer.ID]node {
	t.Helper()

	return newMeteredNodes(t, mesh, true, nil, ids...)
}

func newMeteredNodes(t *testing.T, mesh *network.Mesh, gossip bool, m *metrics.Metrics, ids ...peer.ID) map[peer.ID]node {
	t.Helper()

	gen := genesis.Default()
	gen.Difficulty = 1

	nodes := make(map[peer.ID]node)
	for _, id := range ids {
		inbox, err := mesh.Join(id)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to join node %s: %v", failed, id, err)
		}

		st, err := state.New(state.Config{
			ID:      id,
			Genesis: gen,
			Network: mesh,
			Gossip:  gossip,
			Metrics: m,
		})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct node %s: %v", failed, id, err)
		}

		nodes[id] = node{state: st, inbox: inbox}
	}

	return nodes
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}

	return cond()
}

func agree(nodes map[peer.ID]node, length int) bool {
	var tip database.Block
	for _, n := range nodes {
		blocks := n.state.RetrieveBlocks()
		if len(blocks) != length {
			return false
		}

		latest := blocks[len(blocks)-1]
		if tip.Hash != database.ZeroHash && tip.Hash != latest.Hash {
			return false
		}
		tip = latest
	}

	return true
}

func idle(mesh *network.Mesh, nodes map[peer.ID]node) bool {
	for id := range nodes {
		if mesh.Pending(id) != 0 {
			return false
		}
	}

	return true
}

// handled sums the messages of the given kind handled across all nodes.
func handled(t *testing.T, reg *prometheus.Registry, kind network.Kind) int {
	t.Helper()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to gather metrics: %v", failed, err)
	}

	var total float64
	for _, mf := range mfs {
		if mf.GetName() != "powmesh_messages_received_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "kind" && lp.GetValue() == kind.String() {
					total += m.GetCounter().GetValue()
				}
			}
		}
	}

	return int(total)
}

// =============================================================================

func Test_MineAndPropagate(t *testing.T) {
	t.Log("Given the need to propagate mined blocks across the network.")
	{
		t.Log("\tTest 0:\tWhen a node is asked to mine.")
		{
			mesh := network.NewMesh(nil)
			defer mesh.Shutdown()

			nodes := newNodes(t, mesh, 1, 2, 3)
			for _, n := range nodes {
				worker.Run(n.state, n.inbox, nil)
				defer n.state.Shutdown()
			}

			if err := mesh.Send(1, network.NewMine("block-1")); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to send a mine command: %v", failed, err)
			}

			if !waitFor(5*time.Second, func() bool { return agree(nodes, 2) }) {
				t.Fatalf("\t%s\tTest 0:\tShould have every node holding the mined block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have every node holding the mined block.", success)

			if got := nodes[3].state.RetrieveLatestBlock().Data; got != "block-1" {
				t.Fatalf("\t%s\tTest 0:\tShould carry the payload, got %q.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould carry the payload.", success)
		}
	}
}

func Test_ForkConvergence(t *testing.T) {
	t.Log("Given the need for forked nodes to converge.")
	{
		t.Log("\tTest 0:\tWhen a node holds a conflicting block.")
		{
			mesh := network.NewMesh(nil)
			defer mesh.Shutdown()

			nodes := newNodes(t, mesh, 1, 2, 3)

			// Node 2 mines a conflicting first block nobody else hears about.
			nodes[2].state.UpsertPayload("fork")
			if _, err := nodes[2].state.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine the fork: %v", failed, err)
			}

			for _, n := range nodes {
				worker.Run(n.state, n.inbox, nil)
				defer n.state.Shutdown()
			}

			for _, data := range []string{"a-1", "a-2"} {
				if err := mesh.Send(1, network.NewMine(data)); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to send a mine command: %v", failed, err)
				}
			}

			if !waitFor(5*time.Second, func() bool { return agree(nodes, 3) }) {
				for id, n := range nodes {
					t.Logf("\t%s\tTest 0:\t%s: %+v", failed, id, n.state.RetrieveStatus())
				}
				t.Fatalf("\t%s\tTest 0:\tShould converge on the longest chain.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould converge on the longest chain.", success)

			for _, block := range nodes[2].state.RetrieveBlocks() {
				if block.Data == "fork" {
					t.Fatalf("\t%s\tTest 0:\tShould drop the conflicting block.", failed)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould drop the conflicting block.", success)
		}
	}
}

func Test_Shutdown(t *testing.T) {
	t.Log("Given the need to stop a node.")
	{
		t.Log("\tTest 0:\tWhen a node is mining a block that can't be solved quickly.")
		{
			mesh := network.NewMesh(nil)
			defer mesh.Shutdown()

			inbox, err := mesh.Join(1)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to join: %v", failed, err)
			}

			gen := genesis.Default()
			gen.Difficulty = 64

			st, err := state.New(state.Config{ID: 1, Genesis: gen, Network: mesh})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct node: %v", failed, err)
			}

			worker.Run(st, inbox, nil)

			if err := mesh.Send(1, network.NewMine("never")); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to send a mine command: %v", failed, err)
			}

			if !waitFor(2*time.Second, func() bool { return st.RetrieveStatus().Status == state.StatusMining }) {
				t.Fatalf("\t%s\tTest 0:\tShould start mining.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould start mining.", success)

			done := make(chan struct{})
			go func() {
				st.Shutdown()
				close(done)
			}()

			select {
			case <-done:
				t.Logf("\t%s\tTest 0:\tShould cancel mining and shutdown.", success)
			case <-time.After(5 * time.Second):
				t.Fatalf("\t%s\tTest 0:\tShould cancel mining and shutdown.", failed)
			}

			if st.QueryPendingLength() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould requeue the payload.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould requeue the payload.", success)

			func() {
				defer func() {
					if r := recover(); r != nil {
						t.Fatalf("\t%s\tTest 0:\tShould be able to shutdown twice: %v", failed, r)
					}
				}()
				st.Shutdown()
			}()
			t.Logf("\t%s\tTest 0:\tShould be able to shutdown twice.", success)
		}
	}
}

func Test_GossipBound(t *testing.T) {
	type table struct {
		name   string
		gossip bool
		nodes  int
	}

	tt := []table{
		{name: "gossip", gossip: true, nodes: 4},
		{name: "no-gossip", gossip: false, nodes: 4},
	}

	t.Log("Given the need to bound block announcements across the network.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen one block is mined on %d nodes with gossip[%v].", testID, tst.nodes, tst.gossip)
			{
				f := func(t *testing.T) {
					reg := prometheus.NewRegistry()
					m, err := metrics.New(reg)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to construct metrics: %v", failed, testID, err)
					}

					mesh := network.NewMesh(nil)
					defer mesh.Shutdown()

					var ids []peer.ID
					for i := 1; i <= tst.nodes; i++ {
						ids = append(ids, peer.ID(i))
					}

					nodes := newMeteredNodes(t, mesh, tst.gossip, m, ids...)
					for _, n := range nodes {
						worker.Run(n.state, n.inbox, nil)
						defer n.state.Shutdown()
					}

					if err := mesh.Send(1, network.NewMine("block-1")); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to send a mine command: %v", failed, testID, err)
					}

					// Every node other than the miner hears the block from the
					// miner. With gossip each of them forwards it once more to
					// everyone else.
					exp := tst.nodes - 1
					if tst.gossip {
						exp = tst.nodes * (tst.nodes - 1)
					}

					done := func() bool {
						return agree(nodes, 2) && idle(mesh, nodes) && handled(t, reg, network.KindNewBlock) >= exp
					}
					if !waitFor(5*time.Second, done) {
						t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, handled(t, reg, network.KindNewBlock))
						t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, exp)
						t.Fatalf("\t%s\tTest %d:\tShould deliver the block to every node.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould deliver the block to every node.", success, testID)

					// Give any extra forwarding a chance to show up.
					time.Sleep(200 * time.Millisecond)

					if got := handled(t, reg, network.KindNewBlock); got != exp {
						t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, got)
						t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, exp)
						t.Fatalf("\t%s\tTest %d:\tShould forward each block at most once per node.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould forward each block at most once per node.", success, testID)

					if got := handled(t, reg, network.KindRequestChain); got != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould not request any chain, got %d.", failed, testID, got)
					}
					t.Logf("\t%s\tTest %d:\tShould not request any chain.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}
