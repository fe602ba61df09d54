package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Order flow
	OrdersSubmitted *prometheus.CounterVec
	OrdersRejected  prometheus.Counter
	TradesExecuted  prometheus.Counter
	TradedQuantity  prometheus.Counter
	MatchLatency    prometheus.Histogram

	// Book state, refreshed by the reporter job
	BookLevels      *prometheus.GaugeVec
	RestingQuantity *prometheus.GaugeVec
	MidPrice        prometheus.Gauge

	// Simulation
	Rounds    prometheus.Counter
	Inventory prometheus.Gauge
	PnL       prometheus.Gauge
}

// New creates the collectors under namespace and registers them together
// with the Go runtime and process collectors.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		OrdersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Orders accepted into the book, by side",
		}, []string{"side"}),

		OrdersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Orders rejected as invalid",
		}),

		TradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_executed_total",
			Help:      "Total number of trades executed",
		}),

		TradedQuantity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traded_quantity_total",
			Help:      "Total quantity executed across all trades",
		}),

		MatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_latency_seconds",
			Help:      "Time spent in a single match call",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 10),
		}),

		BookLevels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "book_levels",
			Help:      "Price levels resting on each side",
		}, []string{"side"}),

		RestingQuantity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "book_resting_quantity",
			Help:      "Resting quantity within the captured depth, by side",
		}, []string{"side"}),

		MidPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mid_price",
			Help:      "Last available mid price",
		}),

		Rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulation_rounds_total",
			Help:      "Simulation rounds completed",
		}),

		Inventory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "strategy_inventory",
			Help:      "Net position of the market maker",
		}),

		PnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "strategy_pnl",
			Help:      "Marked-to-market PnL of the market maker",
		}),
	}

	registry.MustRegister(
		m.OrdersSubmitted,
		m.OrdersRejected,
		m.TradesExecuted,
		m.TradedQuantity,
		m.MatchLatency,
		m.BookLevels,
		m.RestingQuantity,
		m.MidPrice,
		m.Rounds,
		m.Inventory,
		m.PnL,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
