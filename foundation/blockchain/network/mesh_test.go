package network_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/ardanlabs/powmesh/foundation/blockchain/database"
	"github.com/ardanlabs/powmesh/foundation/blockchain/genesis"
	"github.com/ardanlabs/powmesh/foundation/blockchain/network"
	"github.com/ardanlabs/powmesh/foundation/blockchain/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan network.Message) network.Message {
	t.Helper()

	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	return network.Message{}
}

func assertEmpty(t *testing.T, ch <-chan network.Message) {
	t.Helper()

	select {
	case msg := <-ch:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func joinAll(t *testing.T, mesh *network.Mesh, ids ...peer.ID) map[peer.ID]<-chan network.Message {
	t.Helper()

	inboxes := make(map[peer.ID]<-chan network.Message)
	for _, id := range ids {
		inbox, err := mesh.Join(id)
		require.NoError(t, err)
		inboxes[id] = inbox
	}

	return inboxes
}

// =============================================================================

func TestBroadcast(t *testing.T) {
	mesh := network.NewMesh(nil)
	defer mesh.Shutdown()

	inboxes := joinAll(t, mesh, 1, 2, 3)

	block := database.NewGenesisBlock(genesis.Default())
	require.NoError(t, mesh.Broadcast(1, network.NewBlockMessage(1, block)))

	for _, id := range []peer.ID{2, 3} {
		msg := receive(t, inboxes[id])
		assert.Equal(t, network.KindNewBlock, msg.Kind)
		assert.Equal(t, peer.ID(1), msg.From)
		assert.Equal(t, block, msg.Block)
	}

	assertEmpty(t, inboxes[1])
}

func TestSend(t *testing.T) {
	mesh := network.NewMesh(nil)
	defer mesh.Shutdown()

	inboxes := joinAll(t, mesh, 1, 2, 3)

	blocks := []database.Block{database.NewGenesisBlock(genesis.Default())}
	msg := network.NewChain(2, blocks)
	blocks[0].Data = "changed after send"

	require.NoError(t, mesh.Send(1, msg))

	got := receive(t, inboxes[1])
	assert.Equal(t, network.KindChain, got.Kind)
	require.Len(t, got.Blocks, 1)
	assert.Equal(t, genesis.Default().Data, got.Blocks[0].Data)

	assertEmpty(t, inboxes[2])
	assertEmpty(t, inboxes[3])

	err := mesh.Send(9, network.NewRequestChain(1))
	assert.ErrorIs(t, err, network.ErrUnknownPeer)
}

func TestFIFO(t *testing.T) {
	mesh := network.NewMesh(nil)
	defer mesh.Shutdown()

	inboxes := joinAll(t, mesh, 1, 2)

	// Nobody is reading yet, sending must not block.
	const n = 1000
	for i := range n {
		require.NoError(t, mesh.Send(2, network.NewMine(fmt.Sprintf("payload-%d", i))))
	}

	assert.Eventually(t, func() bool { return mesh.Pending(2) >= n-1 }, time.Second, 10*time.Millisecond)

	for i := range n {
		msg := receive(t, inboxes[2])
		require.Equal(t, fmt.Sprintf("payload-%d", i), msg.Data)
	}
}

func TestJoinLeave(t *testing.T) {
	mesh := network.NewMesh(nil)

	inboxes := joinAll(t, mesh, 1, 2)

	_, err := mesh.Join(1)
	assert.ErrorIs(t, err, network.ErrPeerExists)

	assert.Equal(t, []peer.Peer{{ID: 2}}, mesh.Peers(1))

	mesh.Leave(2)

	_, ok := <-inboxes[2]
	assert.False(t, ok, "inbox should be closed after leave")

	assert.ErrorIs(t, mesh.Send(2, network.NewMine("x")), network.ErrUnknownPeer)
	assert.Empty(t, mesh.Peers(1))

	mesh.Shutdown()

	_, ok = <-inboxes[1]
	assert.False(t, ok, "inbox should be closed after shutdown")

	assert.ErrorIs(t, mesh.Broadcast(1, network.NewMine("x")), network.ErrMeshShutdown)

	_, err = mesh.Join(3)
	assert.ErrorIs(t, err, network.ErrMeshShutdown)
}

func TestMessageString(t *testing.T) {
	block := database.NewGenesisBlock(genesis.Default())

	assert.Equal(t, "Mine: data[3 bytes]", network.NewMine("abc").String())
	assert.Equal(t, "RequestChain: requester[node-4]", network.NewRequestChain(4).String())
	assert.Contains(t, network.NewBlockMessage(2, block).String(), "NewBlock: from[node-2]")
	assert.Equal(t, "Chain: from[node-1]: blocks[1]", network.NewChain(1, []database.Block{block}).String())
	assert.Equal(t, "Kind(9)", network.Kind(9).String())
}
