package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lcalzada-xor/dgramsniff/internal/adapters/console"
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/radio"
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/sniffer/capture"
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/sniffer/hopping"
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/sniffer/parser"
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/storage"
	webserver "github.com/lcalzada-xor/dgramsniff/internal/adapters/web/server"
	"github.com/lcalzada-xor/dgramsniff/internal/config"
	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
	"github.com/lcalzada-xor/dgramsniff/internal/core/ports"
	"github.com/lcalzada-xor/dgramsniff/internal/core/services/aggregator"
	"github.com/lcalzada-xor/dgramsniff/internal/core/services/monitor"
	"github.com/lcalzada-xor/dgramsniff/internal/core/services/reporting"
	"github.com/lcalzada-xor/dgramsniff/internal/telemetry"
)

// ReasonReplayEnd marks the report emitted when a replay file is exhausted.
const ReasonReplayEnd = "replay-end"

// Application holds the core components of the application.
// It acts as the Facade for the entire system, orchestrating services and infrastructure.
type Application struct {
	Config *config.Config

	Radio      ports.Radio
	Queue      *aggregator.Queue
	Aggregator *aggregator.Aggregator
	Scheduler  *hopping.Scheduler
	Trigger    *reporting.Trigger
	Reporter   *reporting.Reporter
	Monitor    *monitor.Monitor
	Sniffer    *capture.Sniffer

	Store     *storage.SQLiteAdapter
	WebServer *webserver.Server
	Printer   *console.Printer
	Commands  *console.CommandReader

	Stdin  io.Reader
	Stdout io.Writer
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	r, err := newRadio(cfg)
	if err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}
	return NewWithRadio(cfg, r)
}

// NewWithRadio bootstraps the application around an existing radio.
func NewWithRadio(cfg *config.Config, r ports.Radio) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	app := &Application{
		Config: cfg,
		Radio:  r,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}

	if err := app.bootstrap(); err != nil {
		app.closeStore()
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}

	return app, nil
}

func newRadio(cfg *config.Config) (ports.Radio, error) {
	switch cfg.Source {
	case config.SourceReplay:
		return radio.NewReplayRadio(cfg.PcapPath, cfg.Realtime), nil
	case config.SourceMock:
		return radio.NewMockRadio(cfg.MockScenario, cfg.MockRate, 0), nil
	default:
		return radio.NewLinuxRadio(cfg.Interface)
	}
}

// bootstrap orchestrates the initialization sequence.
func (app *Application) bootstrap() error {
	cfg := app.Config
	core := cfg.Core()

	// 1. Foundation & Infrastructure
	telemetry.InitMetrics()

	if err := app.initStorage(); err != nil {
		return err
	}

	// 2. Core
	app.Queue = aggregator.NewQueue(cfg.QueueSize)
	app.Aggregator = aggregator.New(cfg.MaxSSIDs)

	sched, err := hopping.NewScheduler(cfg.Interface, core.Dwell, cfg.StartChannel, time.Now(), app.Radio)
	if err != nil {
		return err
	}
	app.Scheduler = sched

	var channels ports.ChannelReader = app.Scheduler
	if rr, ok := app.Radio.(*radio.ReplayRadio); ok && !rr.Realtime {
		// A file replay credits frames to their recorded channel and never drops
		rr.WaitFor(app.Queue)
		channels = rr
	}

	app.Trigger = reporting.NewTrigger(core.ReportThreshold)
	app.Reporter = reporting.NewReporter(app.Aggregator, channels, app.Queue)
	app.Monitor = monitor.New(cfg.Interface, app.Queue, app.Aggregator, app.Scheduler, app.Trigger, app.Reporter, cfg.PollInterval)

	// 3. Capture path
	app.Sniffer = capture.NewSniffer(cfg.Interface, parser.NewPacketHandler(core.DecodeFrames), app.Queue, channels)
	app.Sniffer.Attach(app.Radio)

	// 4. Sinks & Servers
	if app.Store != nil {
		app.Reporter.AddSink(app.Store)
	}
	if cfg.Console {
		app.Printer = console.NewPrinter(app.Stdout)
		app.Reporter.AddSink(app.Printer)
		app.Commands = console.NewCommandReader(app.Stdin, app.Trigger)
	}
	if cfg.Addr != "" {
		deps := webserver.Deps{
			Stats:     app.Aggregator,
			Scan:      app.Scheduler,
			Drops:     app.Queue,
			Requester: app.Trigger,
			Origins:   cfg.Origins,
		}
		if app.Store != nil {
			deps.Store = app.Store
		}
		app.WebServer = webserver.NewServer(cfg.Addr, deps)
		app.Reporter.AddSink(app.WebServer.WSManager)
		app.Monitor.OnChannelChange(app.WebServer.WSManager.BroadcastChannel)
	}

	slog.Info("Core configured",
		"source", cfg.Source,
		"interface", cfg.Interface,
		"dwell", core.Dwell,
		"report_threshold", core.ReportThreshold,
		"decode_frames", core.DecodeFrames,
		"queue", cfg.QueueSize)
	return nil
}

func (app *Application) initStorage() error {
	if app.Config.DBPath == "" {
		slog.Info("Report archive disabled")
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(app.Config.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create DB directory: %w", err)
	}

	store, err := storage.NewSQLiteAdapter(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init report storage: %w", err)
	}
	app.Store = store
	return nil
}

// Run starts capture, the main loop and the operator surfaces, and blocks
// until ctx is cancelled, a component fails or a replay is exhausted.
func (app *Application) Run(ctx context.Context) error {
	// Commands reader must not keep a finished replay alive
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := app.Radio.SetPromiscuousMode(true); err != nil {
		return fmt.Errorf("enable promiscuous mode: %w", err)
	}
	if err := app.Scheduler.Start(time.Now()); err != nil {
		slog.Warn("Initial channel set failed", "channel", app.Scheduler.CurrentChannel(), "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := app.Radio.Run(gctx)
		if err != nil {
			return fmt.Errorf("radio: %w", err)
		}
		if app.Config.Source == config.SourceReplay {
			slog.Info("Replay exhausted, stopping")
			cancel()
		}
		return nil
	})

	g.Go(func() error {
		return app.Monitor.Run(gctx)
	})

	if app.WebServer != nil {
		g.Go(func() error {
			return app.WebServer.Run(gctx)
		})
	}

	if app.Commands != nil {
		g.Go(func() error {
			if err := app.Commands.Run(gctx); err != nil {
				slog.Warn("Operator console closed", "error", err)
			}
			return nil
		})
	}

	err := g.Wait()

	if app.Config.Source == config.SourceReplay && err == nil {
		if _, emitErr := app.Reporter.Emit(context.Background(), domain.ReportFull, ReasonReplayEnd); emitErr != nil {
			slog.Error("Final report failed", "error", emitErr)
		}
	}
	return err
}

// RestoreNetwork stops scanning, takes the radio out of promiscuous mode
// and closes the archive.
func (app *Application) RestoreNetwork() {
	app.Scheduler.Stop()
	if err := app.Radio.SetPromiscuousMode(false); err != nil {
		slog.Error("Failed to restore interface", "interface", app.Config.Interface, "error", err)
	}
	app.closeStore()
}

func (app *Application) closeStore() {
	if app.Store == nil {
		return
	}
	if err := app.Store.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		slog.Error("Failed to close report storage", "error", err)
	}
	app.Store = nil
}
