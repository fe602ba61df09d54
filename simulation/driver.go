package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/luxfi/log"
	"github.com/shopspring/decimal"

	"github.com/harshim1/quantRush/domain/orderbook"
	"github.com/harshim1/quantRush/metrics"
	"github.com/harshim1/quantRush/strategy"
)

// Venue is the book the driver trades against. *service.Engine satisfies it.
type Venue interface {
	strategy.Submitter
	Match(ctx context.Context) ([]orderbook.Trade, error)
	MidPrice() (decimal.Decimal, bool)
}

type Config struct {
	Reference    decimal.Decimal
	InjectSize   int64
	InjectOffset decimal.Decimal
	// Rounds == 0 runs until the context is cancelled.
	Rounds   int
	Interval time.Duration
	Seed     uint64
}

// Driver runs the quote / inject / match loop against a venue.
type Driver struct {
	venue    Venue
	mm       *strategy.MarketMaker
	cfg      Config
	rng      *rand.Rand
	recorder Recorder
	metrics  *metrics.Metrics
	logger   log.Logger

	runID   string
	round   int
	report  Report
	started time.Time
	now     func() time.Time
}

type Option func(*Driver)

func WithRecorder(r Recorder) Option {
	return func(d *Driver) { d.recorder = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

func WithLogger(l log.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

func NewDriver(venue Venue, mm *strategy.MarketMaker, cfg Config, opts ...Option) *Driver {
	d := &Driver{
		venue:    venue,
		mm:       mm,
		cfg:      cfg,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
		recorder: nopRecorder{},
		logger:   log.Root(),
		runID:    uuid.NewString(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	d.logger = d.logger.New("module", "simulation", "run", d.runID)
	d.report.RunID = d.runID
	return d
}

func (d *Driver) RunID() string {
	return d.runID
}

// Report returns the summary of the rounds completed so far.
func (d *Driver) Report() Report {
	return d.report
}

// Step runs a single round.
func (d *Driver) Step(ctx context.Context) (Round, error) {
	if _, _, err := d.mm.Quote(ctx); err != nil {
		return Round{}, err
	}

	side, price := d.stimulus()
	if _, err := d.venue.Submit(ctx, price, d.cfg.InjectSize, side); err != nil {
		return Round{}, fmt.Errorf("inject %s %d@%s: %w", side, d.cfg.InjectSize, price, err)
	}

	trades, err := d.venue.Match(ctx)
	if err != nil {
		return Round{}, fmt.Errorf("match: %w", err)
	}
	d.mm.OnTrades(trades)

	rd := Round{
		Timestamp: d.now(),
		Index:     d.round,
		Trades:    len(trades),
		Inventory: d.mm.Inventory(),
	}
	for _, tr := range trades {
		rd.Volume += tr.Quantity
	}

	mark := d.cfg.Reference
	if mid, ok := d.venue.MidPrice(); ok {
		rd.Mid, rd.MidOK = mid, true
		mark = mid
	}
	rd.PnL = d.mm.PnL(mark)

	if err := d.recorder.Record(rd); err != nil {
		return rd, err
	}
	d.round++
	d.report.add(rd)
	d.observe(rd)
	return rd, nil
}

// stimulus picks the injected order: a buy above the reference or a sell
// below it with equal probability.
func (d *Driver) stimulus() (orderbook.Side, decimal.Decimal) {
	if d.rng.IntN(2) == 0 {
		return orderbook.Buy, d.cfg.Reference.Add(d.cfg.InjectOffset)
	}
	return orderbook.Sell, d.cfg.Reference.Sub(d.cfg.InjectOffset)
}

func (d *Driver) observe(rd Round) {
	if d.metrics != nil {
		d.metrics.Rounds.Inc()
		d.metrics.Inventory.Set(float64(rd.Inventory))
		d.metrics.PnL.Set(rd.PnL.InexactFloat64())
	}
	if rd.MidOK {
		d.logger.Info("round", "n", rd.Index, "mid", rd.Mid, "trades", rd.Trades, "inventory", rd.Inventory, "pnl", rd.PnL)
	} else {
		d.logger.Info("round", "n", rd.Index, "mid", "unavailable", "trades", rd.Trades, "inventory", rd.Inventory, "pnl", rd.PnL)
	}
}

// Run steps until the configured number of rounds is done or ctx is
// cancelled, waiting Interval between rounds. On cancellation the report
// covers the completed rounds and the error is ctx.Err().
func (d *Driver) Run(ctx context.Context) (Report, error) {
	d.started = d.now()
	d.logger.Info("simulation started", "rounds", d.cfg.Rounds, "interval", d.cfg.Interval, "seed", d.cfg.Seed)

	var tick <-chan time.Time
	if d.cfg.Interval > 0 {
		t := time.NewTicker(d.cfg.Interval)
		defer t.Stop()
		tick = t.C
	}

	for d.cfg.Rounds == 0 || d.round < d.cfg.Rounds {
		if err := ctx.Err(); err != nil {
			return d.finish(err)
		}
		if _, err := d.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return d.finish(ctx.Err())
			}
			return d.finish(fmt.Errorf("round %d: %w", d.round, err))
		}
		if tick == nil || (d.cfg.Rounds != 0 && d.round == d.cfg.Rounds) {
			continue
		}
		select {
		case <-ctx.Done():
			return d.finish(ctx.Err())
		case <-tick:
		}
	}
	return d.finish(nil)
}

func (d *Driver) finish(err error) (Report, error) {
	d.report.Elapsed = d.now().Sub(d.started)
	if err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Error("simulation aborted", "error", err)
	}
	return d.report, err
}
