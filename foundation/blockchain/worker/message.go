package worker

import (
	"errors"

	"github.com/ardanlabs/powmesh/foundation/blockchain/network"
	"github.com/ardanlabs/powmesh/foundation/blockchain/state"
)

// messageOperations drains the node's inbox and handles each message in the
// order it was received.
func (w *Worker) messageOperations() {
	w.evHandler("worker: messageOperations: G started")
	defer w.evHandler("worker: messageOperations: G completed")

	for {
		select {
		case msg, ok := <-w.inbox:
			if !ok {
				w.evHandler("worker: messageOperations: inbox closed")
				return
			}
			if !w.isShutdown() {
				w.handleMessage(msg)
			}
		case <-w.shut:
			w.evHandler("worker: messageOperations: received shut signal")
			return
		}
	}
}

// handleMessage dispatches a single message.
func (w *Worker) handleMessage(msg network.Message) {
	w.evHandler("worker: handleMessage: %s", msg)

	w.state.TrackMessage(msg.Kind)

	switch msg.Kind {
	case network.KindMine:
		w.state.UpsertPayload(msg.Data)
		w.SignalStartMining()

	case network.KindNewBlock:
		w.handleNewBlock(msg)

	case network.KindRequestChain:
		if err := w.state.NetSendChain(msg.Requester); err != nil {
			w.evHandler("worker: handleMessage: NetSendChain: WARNING: %s", err)
		}

	case network.KindChain:
		err := w.state.ProcessChain(msg.From, msg.Blocks)
		switch {
		case errors.Is(err, state.ErrChainBehind):
			w.evHandler("worker: handleMessage: ProcessChain: %s", err)
			if err := w.state.NetRequestChain(msg.From); err != nil {
				w.evHandler("worker: handleMessage: NetRequestChain: WARNING: %s", err)
			}
			return

		case err != nil:
			w.evHandler("worker: handleMessage: ProcessChain: %s", err)
			return
		}

		// The tip moved, any search in flight is stale.
		w.SignalCancelMining()

	default:
		w.evHandler("worker: handleMessage: WARNING: unknown message kind[%s]", msg.Kind)
	}
}

// handleNewBlock appends a peer block, or asks the peer for its chain when
// the block can't be appended.
func (w *Worker) handleNewBlock(msg network.Message) {
	err := w.state.ProcessNewBlock(msg.From, msg.Block)

	switch {
	case err == nil:
		w.SignalCancelMining()

		// Accepted blocks extend the chain, so each block is re-broadcast
		// at most once by this node.
		if w.state.GossipEnabled() {
			if err := w.state.NetSendBlockToPeers(msg.Block); err != nil {
				w.evHandler("worker: handleNewBlock: NetSendBlockToPeers: WARNING: %s", err)
			}
		}

	case errors.Is(err, state.ErrBlockIgnored):

	default:
		if err := w.state.NetRequestChain(msg.From); err != nil {
			w.evHandler("worker: handleNewBlock: NetRequestChain: WARNING: %s", err)
		}
	}
}
