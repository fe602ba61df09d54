package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshim1/quantRush/domain/orderbook"
	"github.com/harshim1/quantRush/metrics"
)

func px(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testLogger() log.Logger {
	level, _ := log.ToLevel("debug")
	return log.NewTestLogger(level)
}

func startEngine(t *testing.T, depth int) (*Engine, *metrics.Metrics) {
	t.Helper()
	m := metrics.New("test")
	e := NewEngine(orderbook.NewOrderBook(), Options{
		Metrics:       m,
		Logger:        testLogger(),
		SnapshotDepth: depth,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e, m
}

func TestEngineScenarioPartialFill(t *testing.T) {
	e, m := startEngine(t, 0)
	ctx := context.Background()

	id0, err := e.Submit(ctx, px("100.0"), 10, orderbook.Buy)
	require.NoError(t, err)
	id1, err := e.Submit(ctx, px("99.5"), 4, orderbook.Sell)
	require.NoError(t, err)
	assert.Equal(t, orderbook.OrderID(0), id0)
	assert.Equal(t, orderbook.OrderID(1), id1)

	trades, err := e.Match(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, int64(4), trades[0].Quantity)
	assert.True(t, trades[0].Price.Equal(px("99.5")))

	s := e.Snapshot()
	assert.Equal(t, uint64(3), s.Seq)
	require.Len(t, s.Bids, 1)
	assert.Equal(t, int64(6), s.Bids[0].Quantity)
	assert.Empty(t, s.Asks)

	_, ok := e.MidPrice()
	assert.False(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersSubmitted.WithLabelValues("buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersSubmitted.WithLabelValues("sell")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesExecuted))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.TradedQuantity))
}

func TestEngineMidPriceFromSnapshot(t *testing.T) {
	e, _ := startEngine(t, 1)
	ctx := context.Background()

	_, ok := e.MidPrice()
	assert.False(t, ok, "empty book has no mid")

	_, err := e.Submit(ctx, px("99"), 5, orderbook.Buy)
	require.NoError(t, err)
	_, err = e.Submit(ctx, px("101"), 5, orderbook.Sell)
	require.NoError(t, err)

	trades, err := e.Match(ctx)
	require.NoError(t, err)
	assert.Empty(t, trades)

	mid, ok := e.MidPrice()
	require.True(t, ok)
	assert.True(t, mid.Equal(px("100")))
}

func TestEngineRejectsInvalidOrder(t *testing.T) {
	e, m := startEngine(t, 0)

	_, err := e.Submit(context.Background(), px("0"), 5, orderbook.Buy)
	require.ErrorIs(t, err, orderbook.ErrInvalidOrder)
	_, err = e.Submit(context.Background(), px("10"), 0, orderbook.Sell)
	require.ErrorIs(t, err, orderbook.ErrInvalidOrder)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrdersRejected))
	assert.Empty(t, e.Snapshot().Bids)
	assert.Empty(t, e.Snapshot().Asks)
}

func TestEngineSerializesConcurrentCallers(t *testing.T) {
	e, m := startEngine(t, 0)
	ctx := context.Background()

	const workers, per = 8, 50
	ids := make(chan orderbook.OrderID, workers*per)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			side := orderbook.Side(w % 2)
			price := px("100")
			for i := 0; i < per; i++ {
				id, err := e.Submit(ctx, price, 1, side)
				assert.NoError(t, err)
				ids <- id
				if i%10 == 0 {
					_, err := e.Match(ctx)
					assert.NoError(t, err)
				}
			}
		}(w)
	}
	wg.Wait()
	close(ids)

	seen := map[orderbook.OrderID]bool{}
	for id := range ids {
		assert.False(t, seen[id], "id %d issued twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*per)

	_, err := e.Match(ctx)
	require.NoError(t, err)

	s := e.Snapshot()
	assert.True(t, len(s.Bids) == 0 || len(s.Asks) == 0, "book must not stay crossed after match")
	assert.Equal(t, float64(workers*per), testutil.ToFloat64(m.OrdersSubmitted.WithLabelValues("buy"))+
		testutil.ToFloat64(m.OrdersSubmitted.WithLabelValues("sell")))
}

func TestEngineContextBoundsAcceptance(t *testing.T) {
	// Run is never started, so nothing accepts the command.
	e := NewEngine(orderbook.NewOrderBook(), Options{Logger: testLogger()})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := e.Submit(ctx, px("100"), 1, orderbook.Buy)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngineStopped(t *testing.T) {
	e := NewEngine(orderbook.NewOrderBook(), Options{Logger: testLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	_, err := e.Submit(context.Background(), px("100"), 1, orderbook.Buy)
	require.NoError(t, err)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	_, err = e.Submit(context.Background(), px("100"), 1, orderbook.Buy)
	require.ErrorIs(t, err, ErrStopped)
	_, err = e.Match(context.Background())
	require.ErrorIs(t, err, ErrStopped)

	// queries keep serving the last snapshot
	require.Len(t, e.Snapshot().Bids, 1)
}
