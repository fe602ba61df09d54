package reporter

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshim1/quantRush/domain/orderbook"
	"github.com/harshim1/quantRush/metrics"
	"github.com/harshim1/quantRush/snapshot"
)

type stubSource struct {
	book  atomic.Pointer[snapshot.Book]
	calls atomic.Int64
}

func (s *stubSource) Snapshot() *snapshot.Book {
	s.calls.Add(1)
	return s.book.Load()
}

type ord struct {
	price string
	qty   int64
	side  orderbook.Side
}

func capture(t *testing.T, seq uint64, orders ...ord) *snapshot.Book {
	t.Helper()
	b := orderbook.NewOrderBook()
	for _, o := range orders {
		_, err := b.Submit(decimal.RequireFromString(o.price), o.qty, o.side)
		require.NoError(t, err)
	}
	return snapshot.Capture(b, seq, 0)
}

func newReporter(src Source) (*Reporter, *metrics.Metrics) {
	level, _ := log.ToLevel("debug")
	m := metrics.New("test")
	return New(src, m, 5*time.Millisecond, log.NewTestLogger(level)), m
}

func TestReportOnceSetsGauges(t *testing.T) {
	src := &stubSource{}
	src.book.Store(capture(t, 1,
		ord{"99.9", 10, orderbook.Buy},
		ord{"99.8", 4, orderbook.Buy},
		ord{"100.1", 7, orderbook.Sell},
	))
	r, m := newReporter(src)

	r.ReportOnce()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BookLevels.WithLabelValues("buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookLevels.WithLabelValues("sell")))
	assert.Equal(t, 14.0, testutil.ToFloat64(m.RestingQuantity.WithLabelValues("buy")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.RestingQuantity.WithLabelValues("sell")))
	assert.InDelta(t, 100.0, testutil.ToFloat64(m.MidPrice), 1e-9)
}

func TestReportOnceKeepsLastMidWhenUnavailable(t *testing.T) {
	src := &stubSource{}
	src.book.Store(capture(t, 1, ord{"99", 1, orderbook.Buy}, ord{"101", 1, orderbook.Sell}))
	r, m := newReporter(src)
	r.ReportOnce()

	src.book.Store(capture(t, 2, ord{"99", 1, orderbook.Buy}))
	r.ReportOnce()

	assert.InDelta(t, 100.0, testutil.ToFloat64(m.MidPrice), 1e-9)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BookLevels.WithLabelValues("sell")))
}

func TestReportOnceSkipsSeenSnapshot(t *testing.T) {
	src := &stubSource{}
	src.book.Store(capture(t, 3, ord{"99", 1, orderbook.Buy}))
	r, m := newReporter(src)
	r.ReportOnce()

	m.BookLevels.WithLabelValues("buy").Set(42)
	r.ReportOnce()
	assert.Equal(t, 42.0, testutil.ToFloat64(m.BookLevels.WithLabelValues("buy")))
}

func TestStartReportsUntilCancelled(t *testing.T) {
	src := &stubSource{}
	src.book.Store(capture(t, 1, ord{"99", 2, orderbook.Buy}))
	r, m := newReporter(src)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)

	require.Eventually(t, func() bool { return src.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RestingQuantity.WithLabelValues("buy")))
}
