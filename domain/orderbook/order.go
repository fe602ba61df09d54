package orderbook

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side int
type Status int

// OrderID identifies an order within one book. IDs are strictly increasing
// and never reused.
type OrderID uint64

const (
	Buy Side = iota
	Sell
)

const (
	Resting Status = iota
	PartiallyFilled
	Filled
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) valid() bool {
	return s == Buy || s == Sell
}

func (s Status) String() string {
	switch s {
	case Resting:
		return "resting"
	case PartiallyFilled:
		return "partially_filled"
	case Filled:
		return "filled"
	default:
		return "unknown"
	}
}

// Order is a limit order. ID, Side, Price and SubmittedAt never change once
// the order is in the book; Qty is the remaining quantity.
type Order struct {
	ID          OrderID
	Side        Side
	Price       decimal.Decimal
	Qty         int64
	OrigQty     int64
	SubmittedAt time.Time
	Status      Status

	next *Order
	prev *Order
}

// Filled returns the quantity traded so far.
func (o *Order) Filled() int64 {
	return o.OrigQty - o.Qty
}

// Next returns the order queued behind o at the same price level.
func (o *Order) Next() *Order {
	return o.next
}

func (o *Order) fill(qty int64) {
	o.Qty -= qty
	if o.Qty == 0 {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}
}

// Trade is one execution between the head buy and head sell orders.
// Price is always the sell order's price.
type Trade struct {
	Quantity    int64
	Price       decimal.Decimal
	BuyOrderID  OrderID
	SellOrderID OrderID
}
