package snapshot

import (
	"time"

	"github.com/harshim1/quantRush/domain/orderbook"
)

// Capture copies up to depth levels per side of book (depth <= 0 copies
// every level). It must run on the goroutine that owns the book.
func Capture(book *orderbook.OrderBook, seq uint64, depth int) *Book {
	s := &Book{
		Seq:       seq,
		Taken:     time.Now(),
		BidLevels: book.Levels(orderbook.Buy),
		AskLevels: book.Levels(orderbook.Sell),
	}
	s.Bids = captureSide(book, orderbook.Buy, depth, s.BidLevels)
	s.Asks = captureSide(book, orderbook.Sell, depth, s.AskLevels)
	return s
}

func captureSide(book *orderbook.OrderBook, side orderbook.Side, depth, levels int) []Level {
	n := levels
	if depth > 0 && depth < n {
		n = depth
	}
	out := make([]Level, 0, n)
	book.Walk(side, func(lvl *orderbook.PriceLevel) bool {
		if len(out) == n {
			return false
		}
		out = append(out, Level{
			Price:    lvl.Price,
			Quantity: lvl.TotalQty,
			Orders:   lvl.OrderCount,
		})
		return true
	})
	return out
}
