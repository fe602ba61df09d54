package reporter

import (
	"context"
	"time"

	"github.com/luxfi/log"

	"github.com/harshim1/quantRush/domain/orderbook"
	"github.com/harshim1/quantRush/metrics"
	"github.com/harshim1/quantRush/snapshot"
)

// Source hands out the latest published book view. *service.Engine
// satisfies it.
type Source interface {
	Snapshot() *snapshot.Book
}

// Reporter copies book state from snapshots into gauges. It never touches
// the live book.
type Reporter struct {
	source   Source
	metrics  *metrics.Metrics
	interval time.Duration
	logger   log.Logger

	lastSeq uint64
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func New(
	source Source,
	m *metrics.Metrics,
	interval time.Duration,
	logger log.Logger,
) *Reporter {
	if logger == nil {
		logger = log.Root()
	}
	return &Reporter{
		source:   source,
		metrics:  m,
		interval: interval,
		logger:   logger.New("module", "reporter"),
	}
}

// ------------------------------------------------
// START LOOP
// ------------------------------------------------

// Start reports once per interval until ctx is done.
func (r *Reporter) Start(ctx context.Context) {
	r.logger.Info("reporter started", "interval", r.interval)

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.ReportOnce()
				return

			case <-ticker.C:
				r.ReportOnce()
			}
		}
	}()
}

// ------------------------------------------------
// REPORT
// ------------------------------------------------

// ReportOnce publishes the current snapshot. Snapshots already reported
// are skipped. The mid-price gauge keeps its last value while the mid is
// unavailable.
func (r *Reporter) ReportOnce() {
	s := r.source.Snapshot()
	if s == nil || (s.Seq == r.lastSeq && r.lastSeq != 0) {
		return
	}
	r.lastSeq = s.Seq

	buy, sell := orderbook.Buy.String(), orderbook.Sell.String()
	r.metrics.BookLevels.WithLabelValues(buy).Set(float64(s.BidLevels))
	r.metrics.BookLevels.WithLabelValues(sell).Set(float64(s.AskLevels))
	r.metrics.RestingQuantity.WithLabelValues(buy).Set(float64(snapshot.Quantity(s.Bids)))
	r.metrics.RestingQuantity.WithLabelValues(sell).Set(float64(snapshot.Quantity(s.Asks)))

	if mid, ok := s.MidPrice(); ok {
		r.metrics.MidPrice.Set(mid.InexactFloat64())
	}
	r.logger.Debug("book reported", "seq", s.Seq, "bidLevels", s.BidLevels, "askLevels", s.AskLevels)
}
