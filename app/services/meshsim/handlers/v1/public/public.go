// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/powmesh/business/core/simulation"
	"github.com/ardanlabs/powmesh/business/web/errs"
	"github.com/ardanlabs/powmesh/foundation/blockchain/peer"
	"github.com/ardanlabs/powmesh/foundation/events"
	"github.com/ardanlabs/powmesh/foundation/validate"
	"github.com/ardanlabs/powmesh/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of simulation endpoints.
type Handlers struct {
	Log  *zap.SugaredLogger
	Sim  *simulation.Core
	WS   websocket.Upgrader
	Evts *events.Events
}

// Events handles a web socket to provide events to a client. The optional
// node query parameter limits the stream to events about that node.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var match string
	if node := r.URL.Query().Get("node"); node != "" {
		id, err := strconv.ParseUint(node, 10, 64)
		if err != nil {
			return errs.NewTrusted(fmt.Errorf("invalid node id %q", node), http.StatusBadRequest)
		}
		match = fmt.Sprintf("viewer: %s:", peer.ID(id))
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID, match)
	defer func() {
		dropped, err := h.Evts.Release(v.TraceID)
		if err == nil && dropped > 0 {
			h.Log.Infow("events", "traceid", v.TraceID, "status", "subscriber fell behind", "dropped", dropped)
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Sim.Genesis(), http.StatusOK)
}

// Report validates every node's chain and reports whether they agree.
func (h Handlers) Report(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Sim.Report(), http.StatusOK)
}

// Nodes returns the status of every node.
func (h Handlers) Nodes(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Sim.Statuses(), http.StatusOK)
}

// Node returns the status of a single node.
func (h Handlers) Node(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := nodeID(r)
	if err != nil {
		return err
	}

	status, err := h.Sim.Status(id)
	if err != nil {
		return notFound(err)
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// Blocks returns the full chain held by a single node.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := nodeID(r)
	if err != nil {
		return err
	}

	blocks, err := h.Sim.Blocks(id)
	if err != nil {
		return notFound(err)
	}

	return web.Respond(ctx, w, toBlocks(blocks), http.StatusOK)
}

// Mine sends a mine command with the provided payload to a single node.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	traceID := web.GetTraceID(ctx)

	id, err := nodeID(r)
	if err != nil {
		return err
	}

	var req MineRequest
	if err := web.Decode(r, &req); err != nil {
		if validate.IsFieldErrors(err) {
			return err
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("mine", "traceid", traceID, "node", id, "bytes", len(req.Data))

	if err := h.Sim.Mine(id, req.Data); err != nil {
		return notFound(err)
	}

	resp := mineResponse{
		Status:  "mine command sent",
		Node:    uint(id),
		TraceID: traceID,
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// =============================================================================

func nodeID(r *http.Request) (peer.ID, error) {
	id, err := strconv.ParseUint(web.Param(r, "id"), 10, 64)
	if err != nil {
		return 0, errs.NewTrusted(fmt.Errorf("invalid node id %q", web.Param(r, "id")), http.StatusBadRequest)
	}

	return peer.ID(id), nil
}

func notFound(err error) error {
	if errors.Is(err, simulation.ErrNodeNotFound) {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	return err
}
