package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

type levelKey struct {
	side  Side
	price string
}

// model mirrors what the book should hold so every trade can be checked
// against price-time priority and quantity conservation.
type model struct {
	orig      map[OrderID]int64
	traded    map[OrderID]int64
	key       map[OrderID]levelKey
	queue     map[levelKey][]OrderID
	submitted []OrderID
}

func newModel() *model {
	return &model{
		orig:   map[OrderID]int64{},
		traded: map[OrderID]int64{},
		key:    map[OrderID]levelKey{},
		queue:  map[levelKey][]OrderID{},
	}
}

func (m *model) add(id OrderID, side Side, price decimal.Decimal, qty int64) {
	k := levelKey{side: side, price: price.String()}
	m.orig[id] = qty
	m.key[id] = k
	m.queue[k] = append(m.queue[k], id)
	m.submitted = append(m.submitted, id)
}

// fill records a fill and checks that every earlier order at the same
// level was already complete.
func (m *model) fill(t *rapid.T, id OrderID, qty int64) {
	for _, prev := range m.queue[m.key[id]] {
		if prev == id {
			break
		}
		if m.traded[prev] != m.orig[prev] {
			t.Fatalf("order %d filled before earlier order %d at %v", id, prev, m.key[id])
		}
	}
	m.traded[id] += qty
	if m.traded[id] > m.orig[id] {
		t.Fatalf("order %d overfilled: %d of %d", id, m.traded[id], m.orig[id])
	}
}

func TestPropertyPriceTimePriority(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := NewOrderBook()
		m := newModel()

		steps := rapid.IntRange(1, 120).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if rapid.IntRange(0, 3).Draw(t, "op") == 0 {
				runMatch(t, b, m)
				continue
			}
			side := Side(rapid.IntRange(0, 1).Draw(t, "side"))
			price := decimal.New(rapid.Int64Range(990, 1010).Draw(t, "tick"), -1)
			qty := rapid.Int64Range(1, 20).Draw(t, "qty")

			id, err := b.Submit(price, qty, side)
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			m.add(id, side, price, qty)
			checkMidDuality(t, b)
		}
		runMatch(t, b, m)

		for _, id := range m.submitted {
			rest := int64(0)
			if o, ok := b.Order(id); ok {
				rest = o.Qty
				if rest <= 0 {
					t.Fatalf("order %d resting with quantity %d", id, rest)
				}
			}
			if m.orig[id] != m.traded[id]+rest {
				t.Fatalf("order %d: orig %d != traded %d + resting %d", id, m.orig[id], m.traded[id], rest)
			}
		}
	})
}

func runMatch(t *rapid.T, b *OrderBook, m *model) {
	for _, tr := range b.Match() {
		if tr.Quantity <= 0 {
			t.Fatalf("non-positive trade quantity %d", tr.Quantity)
		}
		sellKey := m.key[tr.SellOrderID]
		if sellKey.side != Sell || m.key[tr.BuyOrderID].side != Buy {
			t.Fatalf("trade sides mismatched: %+v", tr)
		}
		if tr.Price.String() != sellKey.price {
			t.Fatalf("trade at %s, sell order rests at %s", tr.Price, sellKey.price)
		}
		m.fill(t, tr.BuyOrderID, tr.Quantity)
		m.fill(t, tr.SellOrderID, tr.Quantity)
	}

	if b.Crossed() {
		bid, _ := b.BestBid()
		ask, _ := b.BestAsk()
		t.Fatalf("book crossed after match: bid %s >= ask %s", bid, ask)
	}
	checkMidDuality(t, b)
	checkNoEmptyLevels(t, b)
}

func checkMidDuality(t *rapid.T, b *OrderBook) {
	_, ok := b.MidPrice()
	bothSides := b.Levels(Buy) > 0 && b.Levels(Sell) > 0
	if ok != bothSides {
		t.Fatalf("mid available=%v, bids=%d asks=%d", ok, b.Levels(Buy), b.Levels(Sell))
	}
}

func checkNoEmptyLevels(t *rapid.T, b *OrderBook) {
	for _, side := range []Side{Buy, Sell} {
		b.Walk(side, func(l *PriceLevel) bool {
			if l.Empty() || l.OrderCount == 0 || l.TotalQty <= 0 {
				t.Fatalf("%s level %s is empty", side, l.Price)
			}
			return true
		})
	}
}
