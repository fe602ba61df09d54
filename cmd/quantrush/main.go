package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/luxfi/log"

	"github.com/harshim1/quantRush/api/opsserver"
	"github.com/harshim1/quantRush/config"
	"github.com/harshim1/quantRush/domain/orderbook"
	"github.com/harshim1/quantRush/jobs/reporter"
	"github.com/harshim1/quantRush/metrics"
	"github.com/harshim1/quantRush/service"
	"github.com/harshim1/quantRush/simulation"
	"github.com/harshim1/quantRush/strategy"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "quantrush:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// ---------------- Config ----------------

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := parseFlags(cfg, args); err != nil {
		return err
	}

	// ---------------- Logger ----------------

	level, _ := log.ToLevel(cfg.LogLevel)
	logger := log.NewTestLogger(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- Metrics ----------------

	m := metrics.New("quantrush")

	// ---------------- Engine ----------------

	engine := service.NewEngine(orderbook.NewOrderBook(), service.Options{
		Metrics:       m,
		Logger:        logger,
		SnapshotDepth: cfg.SnapshotDepth,
	})

	// The engine outlives the driver so the final book can still be read
	// after an interrupt.
	engineCtx, stopEngine := context.WithCancel(context.Background())
	engineDone := make(chan error, 1)
	go func() { engineDone <- engine.Run(engineCtx) }()
	defer func() {
		stopEngine()
		<-engineDone
	}()

	// ---------------- Background Jobs ----------------

	reporter.New(engine, m, cfg.ReportInterval, logger).Start(engineCtx)

	if cfg.MetricsAddr != "" {
		ops := opsserver.NewServer(engine, m, logger)
		go func() {
			if err := ops.Serve(engineCtx, cfg.MetricsAddr); err != nil {
				logger.Error("ops server exited", "error", err)
			}
		}()
	}

	// ---------------- Recorder ----------------

	opts := []simulation.Option{
		simulation.WithMetrics(m),
		simulation.WithLogger(logger),
	}
	if cfg.CSVPath != "" {
		rec, err := simulation.OpenCSV(cfg.CSVPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				logger.Error("close csv log", "error", err)
			}
		}()
		opts = append(opts, simulation.WithRecorder(rec))
	}

	// ---------------- Simulation ----------------

	mm := strategy.NewMarketMaker(engine, strategy.Params{
		Reference: cfg.ReferencePrice,
		Size:      cfg.QuoteSize,
		Spread:    cfg.Spread,
	}, logger)

	driver := simulation.NewDriver(engine, mm, simulation.Config{
		Reference:    cfg.ReferencePrice,
		InjectSize:   cfg.InjectSize,
		InjectOffset: cfg.InjectOffset,
		Rounds:       cfg.Rounds,
		Interval:     cfg.Interval,
		Seed:         cfg.Seed,
	}, opts...)

	logger.Info("quantrush starting", "run", driver.RunID(), "csv", cfg.CSVPath, "metricsAddr", cfg.MetricsAddr)

	report, err := driver.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("simulation interrupted")
	case err != nil:
		return err
	}

	logger.Info("simulation finished", report.KV()...)
	return nil
}

// parseFlags overrides loaded settings with command-line flags.
func parseFlags(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("quantrush", flag.ContinueOnError)
	fs.IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "simulation rounds, 0 runs until interrupted")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "pause between rounds")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "seed for the injected order flow")
	fs.StringVar(&cfg.CSVPath, "csv", cfg.CSVPath, "per-round CSV log, empty disables it")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address for /metrics, /healthz and /book, empty disables it")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "trace, debug, info, warn or error")
	fs.IntVar(&cfg.SnapshotDepth, "depth", cfg.SnapshotDepth, "levels per side kept in published snapshots, 0 keeps all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return cfg.Validate()
}
