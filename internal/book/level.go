package book

import "container/list"

// Level is a FIFO queue of resting orders sharing a (side, price_tick).
// Orders are held in a doubly-linked list so that cancel-by-id can unlink a
// mid-queue order in O(1) given a handle, without scanning the level.
type Level struct {
	Side          Side
	PriceTick     PriceTick
	queue         *list.List // list.Element.Value is *Order
	AggregateSize uint64
	Count         int
}

func newLevel(side Side, priceTick PriceTick) *Level {
	return &Level{
		Side:      side,
		PriceTick: priceTick,
		queue:     list.New(),
	}
}

// pushBack appends a new resting order to the tail of the level and returns
// the list element handle used to unlink it later.
func (lvl *Level) pushBack(o *Order) *list.Element {
	el := lvl.queue.PushBack(o)
	lvl.AggregateSize += o.Quantity
	lvl.Count++
	return el
}

// front returns the order at the head of the queue, or nil if empty.
func (lvl *Level) front() *Order {
	el := lvl.queue.Front()
	if el == nil {
		return nil
	}
	return el.Value.(*Order)
}

// frontElement returns the head element itself, used by CancelLevel to
// unlink whole orders from the head of the queue.
func (lvl *Level) frontElement() *list.Element {
	return lvl.queue.Front()
}

// reduceHead shrinks the resting quantity of the head order by qty, keeping
// aggregate size in sync. Caller guarantees qty <= head.Quantity.
func (lvl *Level) reduceHead(qty uint64) {
	el := lvl.queue.Front()
	o := el.Value.(*Order)
	o.Quantity -= qty
	lvl.AggregateSize -= qty
	if o.Quantity == 0 {
		lvl.queue.Remove(el)
		lvl.Count--
	}
}

// unlink removes an arbitrary order (by list element handle) from the
// level, wherever it sits in the queue. O(1).
func (lvl *Level) unlink(el *list.Element, removedQty uint64) {
	lvl.queue.Remove(el)
	lvl.AggregateSize -= removedQty
	lvl.Count--
}

// isEmpty reports whether the level has no resting orders left.
func (lvl *Level) isEmpty() bool {
	return lvl.Count == 0
}

// Orders returns the resting orders best-first (i.e. queue order) as a
// plain slice snapshot, used by the debug-mode invariant check.
func (lvl *Level) Orders() []*Order {
	out := make([]*Order, 0, lvl.Count)
	for el := lvl.queue.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*Order))
	}
	return out
}
