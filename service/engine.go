package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/log"
	"github.com/shopspring/decimal"

	"github.com/harshim1/quantRush/domain/orderbook"
	"github.com/harshim1/quantRush/metrics"
	"github.com/harshim1/quantRush/snapshot"
)

// ErrStopped is returned once the engine's Run loop has exited.
var ErrStopped = errors.New("engine stopped")

/*
Engine is the ONLY write entry point into a shared book.

One goroutine (Run) owns the book and applies commands one at a time in
arrival order. Queries are answered from the snapshot published after the
last applied command.
*/
type Engine struct {
	book    *orderbook.OrderBook
	reader  *snapshot.Reader
	metrics *metrics.Metrics
	logger  log.Logger
	depth   int

	cmds    chan command
	stopped chan struct{}

	// applied counts commands run against the book; owned by Run.
	applied uint64
}

type Options struct {
	Metrics *metrics.Metrics
	Logger  log.Logger
	// SnapshotDepth limits published snapshots to the best N levels per
	// side; 0 keeps every level.
	SnapshotDepth int
}

type command struct {
	apply func(*orderbook.OrderBook)
	done  chan struct{}
}

// NewEngine wires the book to its collaborators. The book must not be
// touched directly once Run has started.
func NewEngine(book *orderbook.OrderBook, opts Options) *Engine {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New("quantrush")
	}
	if opts.Logger == nil {
		opts.Logger = log.Root()
	}
	return &Engine{
		book:    book,
		reader:  snapshot.NewReader(snapshot.Capture(book, 0, opts.SnapshotDepth)),
		metrics: opts.Metrics,
		logger:  opts.Logger.New("module", "engine"),
		depth:   opts.SnapshotDepth,
		cmds:    make(chan command),
		stopped: make(chan struct{}),
	}
}

// Run applies commands until ctx is cancelled. It must be called once.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine started", "depth", e.depth)
	defer close(e.stopped)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped", "applied", e.applied)
			return ctx.Err()
		case c := <-e.cmds:
			c.apply(e.book)
			e.applied++
			e.reader.Publish(snapshot.Capture(e.book, e.applied, e.depth))
			close(c.done)
		}
	}
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// Submit rests a new order. Invalid orders return an error wrapping
// orderbook.ErrInvalidOrder.
func (e *Engine) Submit(
	ctx context.Context,
	price decimal.Decimal,
	qty int64,
	side orderbook.Side,
) (orderbook.OrderID, error) {
	var (
		id     orderbook.OrderID
		subErr error
	)
	err := e.do(ctx, func(b *orderbook.OrderBook) {
		id, subErr = b.Submit(price, qty, side)
	})
	if err != nil {
		return 0, err
	}
	if subErr != nil {
		e.metrics.OrdersRejected.Inc()
		e.logger.Warn("order rejected", "side", side, "price", price, "qty", qty, "error", subErr)
		return 0, subErr
	}

	e.metrics.OrdersSubmitted.WithLabelValues(side.String()).Inc()
	e.logger.Debug("order accepted", "id", id, "side", side, "price", price, "qty", qty)
	return id, nil
}

// Match drains all crossing interest and returns the trades in execution
// order.
func (e *Engine) Match(ctx context.Context) ([]orderbook.Trade, error) {
	var (
		trades  []orderbook.Trade
		elapsed time.Duration
	)
	err := e.do(ctx, func(b *orderbook.OrderBook) {
		start := time.Now()
		trades = b.Match()
		elapsed = time.Since(start)
	})
	if err != nil {
		return nil, err
	}

	e.metrics.MatchLatency.Observe(elapsed.Seconds())
	for _, tr := range trades {
		e.metrics.TradesExecuted.Inc()
		e.metrics.TradedQuantity.Add(float64(tr.Quantity))
		e.logger.Debug("trade executed",
			"qty", tr.Quantity,
			"price", tr.Price,
			"buy", tr.BuyOrderID,
			"sell", tr.SellOrderID,
		)
	}
	return trades, nil
}

// do hands fn to the owner goroutine and waits for it to finish. ctx only
// bounds the wait for acceptance; an accepted command always completes.
func (e *Engine) do(ctx context.Context, fn func(*orderbook.OrderBook)) error {
	c := command{apply: fn, done: make(chan struct{})}
	select {
	case e.cmds <- c:
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("engine busy: %w", ctx.Err())
	}
	<-c.done
	return nil
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

// MidPrice reads the latest published snapshot.
func (e *Engine) MidPrice() (decimal.Decimal, bool) {
	return e.reader.Load().MidPrice()
}

// Snapshot returns the latest published view of the book. Callers must
// treat it as read-only.
func (e *Engine) Snapshot() *snapshot.Book {
	return e.reader.Load()
}
