package simulation

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var csvHeader = []string{"timestamp", "round", "mid_price", "trades", "volume", "inventory", "pnl"}

// Recorder receives one Round per completed simulation step.
type Recorder interface {
	Record(Round) error
	Close() error
}

// CSVRecorder writes rounds in the simulation_log.csv layout. Rows are
// flushed as they are recorded so a partially finished run stays readable.
type CSVRecorder struct {
	w      *csv.Writer
	closer io.Closer
}

// OpenCSV creates (or truncates) path, making parent directories as needed.
func OpenCSV(path string) (*CSVRecorder, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open csv log: %w", err)
	}
	r, err := newCSVRecorder(f, f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

// NewCSVRecorder writes to w. Close flushes but does not close w.
func NewCSVRecorder(w io.Writer) (*CSVRecorder, error) {
	return newCSVRecorder(w, nil)
}

func newCSVRecorder(w io.Writer, closer io.Closer) (*CSVRecorder, error) {
	r := &CSVRecorder{w: csv.NewWriter(w), closer: closer}
	if err := r.write(csvHeader); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CSVRecorder) Record(rd Round) error {
	mid := ""
	if rd.MidOK {
		mid = rd.Mid.String()
	}
	return r.write([]string{
		rd.Timestamp.UTC().Format(time.RFC3339Nano),
		strconv.Itoa(rd.Index),
		mid,
		strconv.Itoa(rd.Trades),
		strconv.FormatInt(rd.Volume, 10),
		strconv.FormatInt(rd.Inventory, 10),
		rd.PnL.String(),
	})
}

func (r *CSVRecorder) write(row []string) error {
	if err := r.w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	r.w.Flush()
	return r.w.Error()
}

func (r *CSVRecorder) Close() error {
	r.w.Flush()
	err := r.w.Error()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

type nopRecorder struct{}

func (nopRecorder) Record(Round) error { return nil }
func (nopRecorder) Close() error       { return nil }
