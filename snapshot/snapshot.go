package snapshot

import (
	"time"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Book is a read-only copy of both sides of an order book. Bids are best
// first (descending), asks best first (ascending).
type Book struct {
	Seq   uint64
	Taken time.Time
	Bids  []Level
	Asks  []Level

	// BidLevels and AskLevels count every level on the side, including
	// those beyond the captured depth.
	BidLevels int
	AskLevels int
}

type Level struct {
	Price    decimal.Decimal
	Quantity int64
	Orders   int
}

func (b *Book) BestBid() (decimal.Decimal, bool) {
	if b == nil || len(b.Bids) == 0 {
		return decimal.Decimal{}, false
	}
	return b.Bids[0].Price, true
}

func (b *Book) BestAsk() (decimal.Decimal, bool) {
	if b == nil || len(b.Asks) == 0 {
		return decimal.Decimal{}, false
	}
	return b.Asks[0].Price, true
}

// MidPrice is unavailable when either side is empty.
func (b *Book) MidPrice() (decimal.Decimal, bool) {
	bid, ok := b.BestBid()
	if !ok {
		return decimal.Decimal{}, false
	}
	ask, ok := b.BestAsk()
	if !ok {
		return decimal.Decimal{}, false
	}
	return bid.Add(ask).Div(two), true
}

// Quantity returns the resting quantity across the captured levels.
func Quantity(levels []Level) int64 {
	var total int64
	for _, l := range levels {
		total += l.Quantity
	}
	return total
}
