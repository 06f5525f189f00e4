// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/powmesh/app/services/meshsim/handlers/v1/public"
	"github.com/ardanlabs/powmesh/business/core/simulation"
	"github.com/ardanlabs/powmesh/foundation/events"
	"github.com/ardanlabs/powmesh/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log  *zap.SugaredLogger
	Sim  *simulation.Core
	Evts *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:  cfg.Log,
		Sim:  cfg.Sim,
		WS:   websocket.Upgrader{},
		Evts: cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/report", pbl.Report)
	app.Handle(http.MethodGet, version, "/nodes", pbl.Nodes)
	app.Handle(http.MethodGet, version, "/nodes/:id", pbl.Node)
	app.Handle(http.MethodGet, version, "/nodes/:id/blocks", pbl.Blocks)
	app.Handle(http.MethodPost, version, "/nodes/:id/mine", pbl.Mine)
}
