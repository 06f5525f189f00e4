package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/ardanlabs/powmesh/foundation/blockchain/state"
)

// miningOperations handles mining. The G is locked to its own OS thread so a
// long search is never scheduled against message handling.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation takes the next payload from the mempool and writes a
// new block to the chain.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// Make sure there are payloads in the mempool.
	length := w.state.QueryPendingLength()
	if length == 0 {
		w.evHandler("worker: runMiningOperation: MINING: no payloads to mine: pending[%d]", length)
		return
	}

	// After running a mining operation, check if a new operation should
	// be signaled again.
	defer func() {
		length := w.state.QueryPendingLength()
		if length > 0 && !w.isShutdown() {
			w.evHandler("worker: runMiningOperation: MINING: signal new mining operation: pending[%d]", length)
			w.SignalStartMining()
		}
	}()

	// Drain the cancel mining channel before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	// Create a context so mining can be cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Can't return from this function until this G is complete.
	var wg sync.WaitGroup
	wg.Add(1)

	// This G exists to cancel the mining operation.
	go func() {
		defer wg.Done()

		select {
		case <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
			cancel()
		case <-w.shut:
			cancel()
		case <-ctx.Done():
		}
	}()

	// The search runs on this G which owns the locked thread.
	t := time.Now()
	block, err := w.state.MineNewBlock(ctx)
	duration := time.Since(t)

	cancel()
	wg.Wait()

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	if err != nil {
		switch {
		case errors.Is(err, state.ErrNoPayload):
			w.evHandler("worker: runMiningOperation: MINING: WARNING: no payloads in mempool")
		case errors.Is(err, context.Canceled):
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
		case errors.Is(err, state.ErrStaleBlock):
			w.evHandler("worker: runMiningOperation: MINING: WARNING: %s", err)
		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
		}
		return
	}

	w.evHandler("viewer: %s: mined %s", w.state.RetrieveID(), block)

	// WOW, we mined a block. Propose the new block to the network.
	// Log the error, but that's it.
	if err := w.state.NetSendBlockToPeers(block); err != nil {
		w.evHandler("worker: runMiningOperation: MINING: NetSendBlockToPeers: WARNING %s", err)
	}
}
