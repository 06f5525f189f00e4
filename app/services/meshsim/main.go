package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/powmesh/app/services/meshsim/handlers"
	"github.com/ardanlabs/powmesh/business/core/simulation"
	"github.com/ardanlabs/powmesh/foundation/blockchain/genesis"
	"github.com/ardanlabs/powmesh/foundation/blockchain/metrics"
	"github.com/ardanlabs/powmesh/foundation/events"
	"github.com/ardanlabs/powmesh/foundation/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("MESHSIM")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
		}
		Sim struct {
			Nodes        int           `conf:"default:4"`
			Difficulty   uint16        `conf:"default:0,help:zero keeps the genesis difficulty"`
			MineInterval time.Duration `conf:"default:2s"`
			Duration     time.Duration `conf:"default:0s"`
			Gossip       bool          `conf:"default:true"`
			Seed         uint64        `conf:"default:0"`
		}
		Genesis struct {
			Path string
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "proof of work mesh simulation",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "MESHSIM"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Genesis Support

	// A configured difficulty applies to the whole network.
	gen, err := genesis.Resolve(cfg.Genesis.Path, cfg.Sim.Difficulty)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	log.Infow("startup", "status", "genesis", "date", gen.Date, "difficulty", gen.Difficulty)

	// =========================================================================
	// Metrics Support

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mtr, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	// =========================================================================
	// Simulation Support

	// The blockchain packages accept a function of this signature to allow the
	// application to log. The viewer messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		const websocketPrefix = "viewer:"

		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		if strings.HasPrefix(s, websocketPrefix) {
			evts.Send(s)
		}
	}

	sim, err := simulation.New(simulation.Config{
		Nodes:        cfg.Sim.Nodes,
		Genesis:      gen,
		Gossip:       cfg.Sim.Gossip,
		MineInterval: cfg.Sim.MineInterval,
		Seed:         cfg.Sim.Seed,
		Metrics:      mtr,
		EvHandler:    ev,
	})
	if err != nil {
		return err
	}
	defer func() {
		sim.Shutdown()
		logReport(log, sim.Report())
	}()

	sim.Start()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, sim, reg)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// A zero duration runs the simulation until a signal is received.
	var expired <-chan time.Time
	if cfg.Sim.Duration > 0 {
		timer := time.NewTimer(cfg.Sim.Duration)
		defer timer.Stop()
		expired = timer.C
	}

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux, err := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Sim:      sim,
		Evts:     evts,
	})
	if err != nil {
		return fmt.Errorf("constructing public mux: %w", err)
	}

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case <-expired:
		log.Infow("shutdown", "status", "simulation duration reached", "duration", cfg.Sim.Duration)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
	}

	// Release any web sockets that are currently active.
	log.Infow("shutdown", "status", "shutdown web socket channels")
	evts.Shutdown()

	// Give outstanding requests a deadline for completion.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
	defer cancel()

	// Asking listener to shut down and shed load.
	log.Infow("shutdown", "status", "shutdown public API started")
	if err := public.Shutdown(ctx); err != nil {
		public.Close()
		return fmt.Errorf("could not stop public service gracefully: %w", err)
	}

	return nil
}

// logReport writes the final state of every node's chain to the logs.
func logReport(log *zap.SugaredLogger, rpt simulation.Report) {
	for _, nr := range rpt.Nodes {
		log.Infow("report", "node", nr.ID, "length", nr.Length, "tip", nr.Tip.TerminalString(), "valid", nr.Valid, "error", nr.Error)
	}
	log.Infow("report", "agreed", rpt.Agreed, "height", rpt.Height)
}
