package opsserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/luxfi/log"
	"github.com/shopspring/decimal"

	"github.com/harshim1/quantRush/metrics"
	"github.com/harshim1/quantRush/snapshot"
)

const shutdownTimeout = 5 * time.Second

// Source hands out the latest published book view.
type Source interface {
	Snapshot() *snapshot.Book
}

// Server exposes read-only operational endpoints. It carries no order
// entry.
type Server struct {
	source  Source
	metrics *metrics.Metrics
	logger  log.Logger
	router  chi.Router
}

func NewServer(source Source, m *metrics.Metrics, logger log.Logger) *Server {
	if logger == nil {
		logger = log.Root()
	}
	s := &Server{
		source:  source,
		metrics: m,
		logger:  logger.New("module", "opsserver"),
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Get("/book", s.book)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, lis)
}

func (s *Server) serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(lis)
	}()
	s.logger.Info("ops server listening", "addr", lis.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("ops server stopped")
	return nil
}

// -------------------- Handlers --------------------

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

type levelView struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	Orders   int             `json:"orders"`
}

type bookView struct {
	Seq       uint64           `json:"seq"`
	Taken     time.Time        `json:"taken"`
	Bids      []levelView      `json:"bids"`
	Asks      []levelView      `json:"asks"`
	BidLevels int              `json:"bid_levels"`
	AskLevels int              `json:"ask_levels"`
	MidPrice  *decimal.Decimal `json:"mid_price"`
}

func (s *Server) book(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()

	resp := bookView{
		Seq:       snap.Seq,
		Taken:     snap.Taken,
		Bids:      fromLevels(snap.Bids),
		Asks:      fromLevels(snap.Asks),
		BidLevels: snap.BidLevels,
		AskLevels: snap.AskLevels,
	}
	if mid, ok := snap.MidPrice(); ok {
		resp.MidPrice = &mid
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("encode book", "error", err)
	}
}

// -------------------- Converters --------------------

func fromLevels(levels []snapshot.Level) []levelView {
	out := make([]levelView, 0, len(levels))
	for _, l := range levels {
		out = append(out, levelView{Price: l.Price, Quantity: l.Quantity, Orders: l.Orders})
	}
	return out
}
