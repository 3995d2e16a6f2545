// Package matching is a four-level best bid/ask book that obeys the breaker gate.
package matching

import (
	"market_guard/internal/domain"
	"market_guard/pkg/quant"
)

// Levels per side.
const Levels = 4

// Result describes what the book did with one step.
type Result struct {
	Inserted bool       `json:"inserted"`
	Rejected bool       `json:"rejected"` // Order refused by the gate or crowded out
	Matched  bool       `json:"matched"`
	Price    quant.Tick `json:"price"` // Execution price when Matched
}

// Book keeps bids descending and asks ascending, best first.
type Book struct {
	bids  [Levels]quant.Tick
	asks  [Levels]quant.Tick
	nbids int
	nasks int
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{}
}

// Reset empties both sides.
func (b *Book) Reset() {
	*b = Book{}
}

func (b *Book) BidDepth() uint8 { return uint8(b.nbids) }
func (b *Book) AskDepth() uint8 { return uint8(b.nasks) }

// BestBid returns the top bid, if any.
func (b *Book) BestBid() (quant.Tick, bool) {
	return b.bids[0], b.nbids > 0
}

// BestAsk returns the top ask, if any.
func (b *Book) BestAsk() (quant.Tick, bool) {
	return b.asks[0], b.nasks > 0
}

// Step inserts a Buy/Sell order when the gate admits it, then attempts at most
// one cross. With a guard the bid must reach ask+guard.
func (b *Book) Step(ev domain.MarketEvent, g domain.Gate) Result {
	var r Result

	switch ev.Kind {
	case domain.EventBuy:
		if g.InsertAllowed {
			r.Inserted = insert(&b.bids, &b.nbids, ev.Value, func(a, c quant.Tick) bool { return a > c })
		}
		r.Rejected = !r.Inserted
	case domain.EventSell:
		if g.InsertAllowed {
			r.Inserted = insert(&b.asks, &b.nasks, ev.Value, func(a, c quant.Tick) bool { return a < c })
		}
		r.Rejected = !r.Inserted
	}

	if g.MatchAllowed && b.nbids > 0 && b.nasks > 0 &&
		int(b.bids[0]) >= int(b.asks[0])+int(g.Guard) {
		r.Matched = true
		r.Price = b.asks[0]
		popFront(&b.bids, &b.nbids)
		popFront(&b.asks, &b.nasks)
	}
	return r
}

// insert places v in a sorted side. A full side drops its worst level when v
// is better, otherwise v is refused.
func insert(side *[Levels]quant.Tick, n *int, v quant.Tick, better func(a, c quant.Tick) bool) bool {
	if *n == Levels {
		if !better(v, side[Levels-1]) {
			return false
		}
		*n--
	}
	i := *n
	for i > 0 && better(v, side[i-1]) {
		side[i] = side[i-1]
		i--
	}
	side[i] = v
	*n++
	return true
}

func popFront(side *[Levels]quant.Tick, n *int) {
	copy(side[:], side[1:*n])
	*n--
	side[*n] = 0
}
