package orderbook

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harshim1/quantRush/infra/memory"
	"github.com/harshim1/quantRush/infra/sequence"
)

// ErrInvalidOrder is returned by Submit for a non-positive price or
// quantity or an unknown side. The book is left unchanged.
var ErrInvalidOrder = errors.New("invalid order")

var two = decimal.NewFromInt(2)

// OrderBook is a single-instrument limit order book. It is single-writer:
// callers sharing a book across goroutines must serialize every call.
type OrderBook struct {
	Bids *RBTree
	Asks *RBTree

	ids    *sequence.Sequencer
	orders map[OrderID]*Order
	pool   *memory.Pool[Order]
	now    func() time.Time
}

type Option func(*OrderBook)

// WithClock replaces time.Now as the source of submission timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *OrderBook) { b.now = now }
}

// WithFirstID sets the ID given to the first submitted order.
func WithFirstID(id OrderID) Option {
	return func(b *OrderBook) { b.ids = sequence.New(uint64(id)) }
}

// NewOrderBook creates an empty book whose first order gets ID 0.
func NewOrderBook(opts ...Option) *OrderBook {
	b := &OrderBook{
		Bids:   NewRBTree(BidPriority),
		Asks:   NewRBTree(AskPriority),
		ids:    sequence.New(0),
		orders: make(map[OrderID]*Order),
		pool: memory.NewPool(
			func() *Order { return &Order{} },
			func(o *Order) { *o = Order{} },
		),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Submit rests a new limit order at the tail of its price level. It never
// matches; call Match to execute crossing interest.
func (b *OrderBook) Submit(price decimal.Decimal, qty int64, side Side) (OrderID, error) {
	if !side.valid() {
		return 0, fmt.Errorf("%w: unknown side %d", ErrInvalidOrder, side)
	}
	if !price.IsPositive() {
		return 0, fmt.Errorf("%w: price %s must be positive", ErrInvalidOrder, price)
	}
	if qty <= 0 {
		return 0, fmt.Errorf("%w: quantity %d must be positive", ErrInvalidOrder, qty)
	}

	o := b.pool.Get()
	*o = Order{
		ID:          OrderID(b.ids.Next()),
		Side:        side,
		Price:       price,
		Qty:         qty,
		OrigQty:     qty,
		SubmittedAt: b.now(),
		Status:      Resting,
	}
	b.side(side).UpsertLevel(price).Enqueue(o)
	b.orders[o.ID] = o
	return o.ID, nil
}

// Match executes trades while the best bid is at or above the best ask.
// Trades are returned in execution order.
func (b *OrderBook) Match() []Trade {
	var trades []Trade
	for !b.Bids.Empty() && !b.Asks.Empty() {
		bid := b.Bids.Best()
		ask := b.Asks.Best()
		if bid.Price.LessThan(ask.Price) {
			break
		}

		buy := bid.Head()
		sell := ask.Head()
		qty := min(buy.Qty, sell.Qty)

		trades = append(trades, Trade{
			Quantity:    qty,
			Price:       sell.Price,
			BuyOrderID:  buy.ID,
			SellOrderID: sell.ID,
		})

		bid.fill(qty)
		ask.fill(qty)

		if buy.Qty == 0 {
			b.retire(b.Bids, bid)
		}
		if sell.Qty == 0 {
			b.retire(b.Asks, ask)
		}
	}
	return trades
}

// retire drops the filled head order of lvl and the level itself once empty.
func (b *OrderBook) retire(tree *RBTree, lvl *PriceLevel) {
	o := lvl.PopHead()
	delete(b.orders, o.ID)
	b.pool.Put(o)

	if lvl.Empty() {
		tree.DeleteLevel(lvl.Price)
	}
}

// ---- queries ----

// MidPrice returns the mean of the best bid and best ask. ok is false when
// either side has no resting orders.
func (b *OrderBook) MidPrice() (decimal.Decimal, bool) {
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

func (b *OrderBook) BestBid() (decimal.Decimal, bool) {
	return bestPrice(b.Bids)
}

func (b *OrderBook) BestAsk() (decimal.Decimal, bool) {
	return bestPrice(b.Asks)
}

// Spread returns best ask minus best bid; negative while the book is crossed.
func (b *OrderBook) Spread() (decimal.Decimal, bool) {
	bid, ok := b.BestBid()
	if !ok {
		return decimal.Decimal{}, false
	}
	ask, ok := b.BestAsk()
	if !ok {
		return decimal.Decimal{}, false
	}
	return ask.Sub(bid), true
}

// Crossed reports whether a call to Match would trade.
func (b *OrderBook) Crossed() bool {
	s, ok := b.Spread()
	return ok && !s.IsPositive()
}

// Order returns a copy of a resting order. Filled orders are gone.
func (b *OrderBook) Order(id OrderID) (Order, bool) {
	o, ok := b.orders[id]
	if !ok {
		return Order{}, false
	}
	cp := *o
	cp.next, cp.prev = nil, nil
	return cp, true
}

// Levels returns the number of price levels on a side.
func (b *OrderBook) Levels(side Side) int {
	return b.side(side).Size()
}

// Resting returns the number of orders in the book.
func (b *OrderBook) Resting() int {
	return len(b.orders)
}

// NextID returns the ID the next accepted order will get.
func (b *OrderBook) NextID() OrderID {
	return OrderID(b.ids.Peek())
}

// Walk visits the levels of a side from best to worst until fn returns false.
// fn must not modify the book.
func (b *OrderBook) Walk(side Side, fn func(*PriceLevel) bool) {
	b.side(side).ForEach(fn)
}

func (b *OrderBook) side(s Side) *RBTree {
	if s == Buy {
		return b.Bids
	}
	return b.Asks
}

func bestPrice(t *RBTree) (decimal.Decimal, bool) {
	lvl := t.Best()
	if lvl == nil {
		return decimal.Decimal{}, false
	}
	return lvl.Price, true
}
