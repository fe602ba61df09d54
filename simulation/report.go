package simulation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Round is what one simulation step observed after matching.
type Round struct {
	Timestamp time.Time
	Index     int
	Mid       decimal.Decimal
	MidOK     bool
	Trades    int
	Volume    int64
	Inventory int64
	PnL       decimal.Decimal
}

// Report summarises a run.
type Report struct {
	RunID     string
	Rounds    int
	Trades    int
	Volume    int64
	Inventory int64
	PnL       decimal.Decimal
	MinPnL    decimal.Decimal
	MaxPnL    decimal.Decimal
	LastMid   decimal.Decimal
	LastMidOK bool
	Elapsed   time.Duration
}

func (r *Report) add(rd Round) {
	if r.Rounds == 0 {
		r.MinPnL, r.MaxPnL = rd.PnL, rd.PnL
	} else {
		r.MinPnL = decimal.Min(r.MinPnL, rd.PnL)
		r.MaxPnL = decimal.Max(r.MaxPnL, rd.PnL)
	}
	r.Rounds++
	r.Trades += rd.Trades
	r.Volume += rd.Volume
	r.Inventory = rd.Inventory
	r.PnL = rd.PnL
	if rd.MidOK {
		r.LastMid, r.LastMidOK = rd.Mid, true
	}
}

// KV flattens the report into logger key/value pairs.
func (r Report) KV() []interface{} {
	kv := []interface{}{
		"run", r.RunID,
		"rounds", r.Rounds,
		"trades", r.Trades,
		"volume", r.Volume,
		"inventory", r.Inventory,
		"pnl", r.PnL,
		"minPnl", r.MinPnL,
		"maxPnl", r.MaxPnL,
		"elapsed", r.Elapsed,
	}
	if r.LastMidOK {
		kv = append(kv, "lastMid", r.LastMid)
	} else {
		kv = append(kv, "lastMid", "unavailable")
	}
	return kv
}
