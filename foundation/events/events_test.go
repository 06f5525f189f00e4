package events_test

import (
	"testing"

	"github.com/ardanlabs/powmesh/foundation/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents(t *testing.T) {
	evts := events.New()

	a := evts.Acquire("a", "")
	b := evts.Acquire("b", "")
	assert.Equal(t, 2, evts.Count())
	assert.Equal(t, a, evts.Acquire("a", "ignored"), "acquire should be idempotent")

	evts.Send("viewer: hello")
	assert.Equal(t, "viewer: hello", <-a)
	assert.Equal(t, "viewer: hello", <-b)

	dropped, err := evts.Release("a")
	require.NoError(t, err)
	assert.Zero(t, dropped)
	_, ok := <-a
	assert.False(t, ok, "released channel should be closed")
	_, err = evts.Release("a")
	assert.Error(t, err)

	// A slow subscriber drops events instead of blocking the sender.
	for range 200 {
		evts.Send("viewer: flood")
	}

	dropped, err = evts.Release("b")
	require.NoError(t, err)
	assert.Equal(t, 100, dropped)

	var n int
	for range b {
		n++
	}
	assert.Equal(t, 100, n)

	evts.Acquire("c", "")
	evts.Shutdown()
	assert.Equal(t, 0, evts.Count())
}

func TestEventsMatch(t *testing.T) {
	evts := events.New()
	defer evts.Shutdown()

	node2 := evts.Acquire("node2", "viewer: node-2:")
	all := evts.Acquire("all", "")

	evts.Send("viewer: node-1: mined blk[1]")
	evts.Send("viewer: node-2: accepted blk[1] from node-1")
	evts.Send("viewer: node-20: mined blk[1]")

	assert.Equal(t, "viewer: node-2: accepted blk[1] from node-1", <-node2)
	assert.Empty(t, node2, "only events about node-2 should be delivered")
	assert.Len(t, all, 3)
}
