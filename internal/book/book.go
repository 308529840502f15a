package book

import (
	"container/list"

	"github.com/tidwall/btree"
)

// levels is the ordered collection of price levels for one side of the
// book. Bids are ordered highest-tick-first, asks lowest-tick-first, so
// that Min() on either tree always yields the best price for that side,
// generalized from float prices to integer price ticks.
type levels = btree.BTreeG[*Level]

// handle is the order-id index's payload: enough to locate and unlink a
// resting order in O(1) without scanning its level.
type handle struct {
	side      Side
	priceTick PriceTick
	level     *Level
	el        *list.Element
}

// topOfBook caches the best (price, aggregate size) pair per side so that
// BestBid/BestAsk are true O(1) reads, independent of the btree's own
// lookup cost.
type topOfBook struct {
	priceTick PriceTick
	size      uint64
	valid     bool
}

// OrderBook is the matching engine over price ticks for a single symbol.
// Multi-symbol routing is explicitly out of scope (see spec non-goals);
// callers wanting several symbols hold one OrderBook per symbol.
type OrderBook struct {
	bids *levels
	asks *levels

	index map[uint64]*handle

	bestBid topOfBook
	bestAsk topOfBook

	validate bool // debug-mode invariant assertions (Config.ValidateOrders)
}

// New constructs an empty order book. validate enables an invariant check
// after every Add, intended for debug/test builds: a construction-time
// flag, not a mutable global. Cancel and CancelLevel are not checked.
func New(validate bool) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *Level) bool {
		return a.PriceTick > b.PriceTick // descending: best bid first
	})
	asks := btree.NewBTreeG(func(a, b *Level) bool {
		return a.PriceTick < b.PriceTick // ascending: best ask first
	})
	return &OrderBook{
		bids:     bids,
		asks:     asks,
		index:    make(map[uint64]*handle),
		validate: validate,
	}
}

func (b *OrderBook) levelsFor(side Side) *levels {
	if side == Bid {
		return b.bids
	}
	return b.asks
}

// Add submits a new order intent. MARKET orders walk the opposite side
// best-first until exhausted or liquidity runs out; any unfilled remainder
// is dropped (MARKETs never rest). LIMIT orders match what they can and
// rest the remainder at the tail of their price level.
//
// Returns the trades executed, the L3 events emitted (in submission order:
// Executes first, then a trailing Add if a limit remainder rests), and the
// resting order if one remains in the book afterward.
func (b *OrderBook) Add(o Order) (trades []Trade, events []Event, resting *Order, err error) {
	if o.Quantity == 0 || (o.Type == Limit && o.PriceTick == 0) {
		return nil, nil, nil, ErrInvalidOrder
	}

	switch o.Type {
	case Market:
		trades, events = b.matchMarket(o)
	case Limit:
		trades, events, resting = b.matchLimit(o)
	default:
		return nil, nil, nil, ErrInvalidOrder
	}

	b.refreshTop(Bid)
	b.refreshTop(Ask)

	if b.validate {
		if v := b.checkInvariants(); v != nil {
			return trades, events, resting, v
		}
	}
	return trades, events, resting, nil
}

// matchMarket sweeps the opposite side FIFO within each level until the
// incoming quantity is exhausted or the opposite side runs dry.
func (b *OrderBook) matchMarket(o Order) ([]Trade, []Event) {
	opp := b.levelsFor(o.Side.Opposite())
	var trades []Trade
	var events []Event

	remaining := o.Quantity
	for remaining > 0 {
		lvl, ok := opp.MinMut()
		if !ok {
			break
		}
		remaining, trades, events = b.consumeLevel(lvl, o, remaining, trades, events)
		if lvl.isEmpty() {
			opp.Delete(lvl)
		}
	}
	return trades, events
}

// matchLimit consumes crossing liquidity on the opposite side while
// marketable, then rests any remainder on the order's own side.
func (b *OrderBook) matchLimit(o Order) ([]Trade, []Event, *Order) {
	opp := b.levelsFor(o.Side.Opposite())
	var trades []Trade
	var events []Event

	remaining := o.Quantity
	for remaining > 0 {
		lvl, ok := opp.MinMut()
		if !ok {
			break
		}
		if !marketable(o.Side, o.PriceTick, lvl.PriceTick) {
			break
		}
		remaining, trades, events = b.consumeLevel(lvl, o, remaining, trades, events)
		if lvl.isEmpty() {
			opp.Delete(lvl)
		}
	}

	if remaining == 0 {
		return trades, events, nil
	}

	resting := o
	resting.Quantity = remaining
	own := b.levelsFor(o.Side)
	lvl, ok := own.GetMut(&Level{PriceTick: o.PriceTick})
	if !ok {
		lvl = newLevel(o.Side, o.PriceTick)
		own.Set(lvl)
	}
	el := lvl.pushBack(&resting)
	b.index[resting.ID] = &handle{side: o.Side, priceTick: o.PriceTick, level: lvl, el: el}

	events = append(events, Event{
		Kind:      EventAdd,
		ID:        resting.ID,
		Side:      resting.Side,
		PriceTick: resting.PriceTick,
		Quantity:  resting.Quantity,
		Timestamp: resting.Timestamp,
	})

	return trades, events, &resting
}

// marketable reports whether an incoming limit order at priceTick crosses
// the opposite side's best price oppBest.
func marketable(side Side, priceTick, oppBest PriceTick) bool {
	if side == Bid {
		return oppBest <= priceTick
	}
	return oppBest >= priceTick
}

// consumeLevel walks the FIFO queue of one opposite-side level, consuming
// up to `remaining` units of the incoming order against resting makers.
// Trade price is always the maker's resting price_tick.
func (b *OrderBook) consumeLevel(lvl *Level, taker Order, remaining uint64, trades []Trade, events []Event) (uint64, []Trade, []Event) {
	for remaining > 0 {
		maker := lvl.front()
		if maker == nil {
			break
		}
		qty := min(remaining, maker.Quantity)

		lvl.reduceHead(qty)
		if maker.Quantity == 0 {
			delete(b.index, maker.ID)
		}
		remaining -= qty

		trades = append(trades, Trade{
			MakerID:       maker.ID,
			TakerID:       taker.ID,
			AggressorSide: taker.Side,
			PriceTick:     lvl.PriceTick,
			Quantity:      qty,
			Timestamp:     taker.Timestamp,
		})
		events = append(events, Event{
			Kind:          EventExecute,
			ID:            maker.ID,
			Side:          maker.Side,
			PriceTick:     lvl.PriceTick,
			Quantity:      qty,
			AggressorSide: taker.Side,
			Timestamp:     taker.Timestamp,
		})
	}
	return remaining, trades, events
}

// Cancel removes a resting order by id. Returns the cancelled quantity, or
// 0 if the id is unknown: UnknownId is a no-op, not reported upstream.
func (b *OrderBook) Cancel(id uint64) uint64 {
	h, ok := b.index[id]
	if !ok {
		return 0
	}
	o := h.el.Value.(*Order)
	qty := o.Quantity

	h.level.unlink(h.el, qty)
	delete(b.index, id)

	if h.level.isEmpty() {
		b.levelsFor(h.side).Delete(h.level)
	}

	b.refreshTop(Bid)
	b.refreshTop(Ask)
	return qty
}

// CancelLevel cancels up to quantity units from the head of the given
// (side, price_tick) level — an operator-style bulk cancel.
func (b *OrderBook) CancelLevel(side Side, priceTick PriceTick, quantity uint64) uint64 {
	lvls := b.levelsFor(side)
	lvl, ok := lvls.GetMut(&Level{PriceTick: priceTick})
	if !ok {
		return 0
	}

	var cancelled uint64
	for cancelled < quantity {
		el := lvl.frontElement()
		if el == nil {
			break
		}
		o := el.Value.(*Order)
		remainingBudget := quantity - cancelled
		if o.Quantity <= remainingBudget {
			cancelled += o.Quantity
			delete(b.index, o.ID)
			lvl.unlink(el, o.Quantity)
		} else {
			lvl.reduceHead(remainingBudget)
			cancelled += remainingBudget
		}
	}

	if lvl.isEmpty() {
		lvls.Delete(lvl)
	}
	b.refreshTop(Bid)
	b.refreshTop(Ask)
	return cancelled
}

// BestBid returns the best resting bid price tick and its aggregate size.
// O(1): reads the top-of-book cache.
func (b *OrderBook) BestBid() (PriceTick, uint64, bool) {
	if !b.bestBid.valid {
		return 0, 0, false
	}
	return b.bestBid.priceTick, b.bestBid.size, true
}

// BestAsk returns the best resting ask price tick and its aggregate size.
func (b *OrderBook) BestAsk() (PriceTick, uint64, bool) {
	if !b.bestAsk.valid {
		return 0, 0, false
	}
	return b.bestAsk.priceTick, b.bestAsk.size, true
}

// DepthLevel is one (price, size) pair returned by Depth.
type DepthLevel struct {
	PriceTick PriceTick
	Size      uint64
}

// Depth returns up to n price levels of the given side, best-first.
func (b *OrderBook) Depth(side Side, n int) []DepthLevel {
	out := make([]DepthLevel, 0, n)
	b.levelsFor(side).Scan(func(lvl *Level) bool {
		out = append(out, DepthLevel{PriceTick: lvl.PriceTick, Size: lvl.AggregateSize})
		return len(out) < n
	})
	return out
}

// BookView is the immutable depth payload returned by Snapshot: up to
// `depth` price levels per side, best-first. The sampler (internal/sampler)
// stamps this with a capture timestamp and monotonically increasing
// sequence number before it is encoded onto the wire.
type BookView struct {
	Bids []DepthLevel
	Asks []DepthLevel
}

// Snapshot builds an immutable depth view of the book, capped at depth
// levels per side.
func (b *OrderBook) Snapshot(depth int) BookView {
	return BookView{
		Bids: b.Depth(Bid, depth),
		Asks: b.Depth(Ask, depth),
	}
}

func (b *OrderBook) refreshTop(side Side) {
	lvl, ok := b.levelsFor(side).Min()
	top := &b.bestBid
	if side == Ask {
		top = &b.bestAsk
	}
	if !ok {
		*top = topOfBook{}
		return
	}
	*top = topOfBook{priceTick: lvl.PriceTick, size: lvl.AggregateSize, valid: true}
}

// checkInvariants is the debug-mode consistency check: aggregate sizes
// match queued quantities, no empty levels remain, and the book is never
// crossed.
func (b *OrderBook) checkInvariants() error {
	checkSide := func(lvls *levels) bool {
		ok := true
		lvls.Scan(func(lvl *Level) bool {
			if lvl.isEmpty() {
				ok = false
				return false
			}
			var sum uint64
			for _, o := range lvl.Orders() {
				sum += o.Quantity
			}
			if sum != lvl.AggregateSize {
				ok = false
				return false
			}
			return true
		})
		return ok
	}

	if !checkSide(b.bids) || !checkSide(b.asks) {
		return ErrInvariantViolation
	}

	bidTick, _, bidOk := b.BestBid()
	askTick, _, askOk := b.BestAsk()
	if bidOk && askOk && bidTick >= askTick {
		return ErrInvariantViolation
	}
	return nil
}
