package strategy

import (
	"context"
	"fmt"

	"github.com/luxfi/log"
	"github.com/shopspring/decimal"

	"github.com/harshim1/quantRush/domain/orderbook"
)

var two = decimal.NewFromInt(2)

// Submitter places resting orders. *service.Engine satisfies it.
type Submitter interface {
	Submit(ctx context.Context, price decimal.Decimal, qty int64, side orderbook.Side) (orderbook.OrderID, error)
}

// Params fixes the quote: bid = Reference - Spread/2, ask = Reference + Spread/2.
type Params struct {
	Reference decimal.Decimal
	Size      int64
	Spread    decimal.Decimal
}

// MarketMaker quotes a symmetric bid/ask pair around a reference price and
// keeps the position and cash resulting from fills on its own orders.
// It is not safe for concurrent use.
type MarketMaker struct {
	sub    Submitter
	params Params
	logger log.Logger

	open      map[orderbook.OrderID]*quote
	inventory int64
	cash      decimal.Decimal
}

type quote struct {
	side      orderbook.Side
	remaining int64
}

func NewMarketMaker(sub Submitter, params Params, logger log.Logger) *MarketMaker {
	if logger == nil {
		logger = log.Root()
	}
	return &MarketMaker{
		sub:    sub,
		params: params,
		logger: logger.New("module", "strategy"),
		open:   make(map[orderbook.OrderID]*quote),
	}
}

// Prices returns the bid and ask this strategy quotes.
func (m *MarketMaker) Prices() (bid, ask decimal.Decimal) {
	half := m.params.Spread.Div(two)
	return m.params.Reference.Sub(half), m.params.Reference.Add(half)
}

// Quote submits one bid and one ask, bid first.
func (m *MarketMaker) Quote(ctx context.Context) (bidID, askID orderbook.OrderID, err error) {
	bid, ask := m.Prices()

	bidID, err = m.place(ctx, bid, orderbook.Buy)
	if err != nil {
		return 0, 0, err
	}
	askID, err = m.place(ctx, ask, orderbook.Sell)
	if err != nil {
		return bidID, 0, err
	}

	m.logger.Debug("quoted", "bid", bid, "ask", ask, "size", m.params.Size, "bidID", bidID, "askID", askID)
	return bidID, askID, nil
}

func (m *MarketMaker) place(ctx context.Context, price decimal.Decimal, side orderbook.Side) (orderbook.OrderID, error) {
	id, err := m.sub.Submit(ctx, price, m.params.Size, side)
	if err != nil {
		return 0, fmt.Errorf("quote %s %d@%s: %w", side, m.params.Size, price, err)
	}
	m.open[id] = &quote{side: side, remaining: m.params.Size}
	return id, nil
}

// OnTrades applies fills on this strategy's own orders. Trades between
// other participants are ignored.
func (m *MarketMaker) OnTrades(trades []orderbook.Trade) {
	for _, tr := range trades {
		m.applyFill(tr.BuyOrderID, tr)
		m.applyFill(tr.SellOrderID, tr)
	}
}

func (m *MarketMaker) applyFill(id orderbook.OrderID, tr orderbook.Trade) {
	q, ok := m.open[id]
	if !ok {
		return
	}

	notional := tr.Price.Mul(decimal.NewFromInt(tr.Quantity))
	if q.side == orderbook.Buy {
		m.inventory += tr.Quantity
		m.cash = m.cash.Sub(notional)
	} else {
		m.inventory -= tr.Quantity
		m.cash = m.cash.Add(notional)
	}

	q.remaining -= tr.Quantity
	if q.remaining <= 0 {
		delete(m.open, id)
	}
	m.logger.Debug("quote filled", "id", id, "side", q.side, "qty", tr.Quantity, "price", tr.Price, "inventory", m.inventory)
}

// Inventory is the net position: buys minus sells.
func (m *MarketMaker) Inventory() int64 {
	return m.inventory
}

func (m *MarketMaker) Cash() decimal.Decimal {
	return m.cash
}

// PnL marks the position at mark: cash + inventory * mark.
func (m *MarketMaker) PnL(mark decimal.Decimal) decimal.Decimal {
	return m.cash.Add(mark.Mul(decimal.NewFromInt(m.inventory)))
}

// OpenOrders returns how many of this strategy's orders still rest.
func (m *MarketMaker) OpenOrders() int {
	return len(m.open)
}
