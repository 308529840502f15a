package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Helpers -----------------------------------------------------------

func placeLimit(t *testing.T, b *OrderBook, id uint64, side Side, price PriceTick, qty uint64, ts int64) *Order {
	t.Helper()
	_, _, resting, err := b.Add(Order{
		ID:        id,
		Side:      side,
		Type:      Limit,
		PriceTick: price,
		Quantity:  qty,
		Timestamp: ts,
	})
	require.NoError(t, err)
	return resting
}

// --- Boundary scenarios -------------------------------------------------

func TestEmptyBook_MarketBuyProducesNothing(t *testing.T) {
	b := New(true)

	_, _, bidOk := b.BestBid()
	assert.False(t, bidOk)

	trades, events, resting, err := b.Add(Order{ID: 1, Side: Bid, Type: Market, Quantity: 10, Timestamp: 1})
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Empty(t, events)
	assert.Nil(t, resting)
}

func TestTwoLimitsSamePrice_FIFO(t *testing.T) {
	b := New(true)
	placeLimit(t, b, 1, Ask, 100, 5, 1)
	placeLimit(t, b, 2, Ask, 100, 5, 2)

	trades, _, _, err := b.Add(Order{ID: 3, Side: Bid, Type: Market, Quantity: 7, Timestamp: 3})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, uint64(1), trades[0].MakerID)
	assert.Equal(t, uint64(5), trades[0].Quantity)
	assert.Equal(t, uint64(2), trades[1].MakerID)
	assert.Equal(t, uint64(2), trades[1].Quantity)
}

func TestCrossingLimit_TradesAtMakerPrice(t *testing.T) {
	b := New(true)
	placeLimit(t, b, 1, Ask, 100, 10, 1)

	trades, _, resting, err := b.Add(Order{ID: 2, Side: Bid, Type: Limit, PriceTick: 101, Quantity: 15, Timestamp: 2})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, PriceTick(100), trades[0].PriceTick)
	assert.Equal(t, uint64(10), trades[0].Quantity)
	require.NotNil(t, resting)
	assert.Equal(t, uint64(5), resting.Quantity)

	bid, size, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, PriceTick(101), bid)
	assert.Equal(t, uint64(5), size)
}

func TestPriceImprovementWalk(t *testing.T) {
	b := New(true)
	placeLimit(t, b, 1, Ask, 100, 3, 1)
	placeLimit(t, b, 2, Ask, 101, 4, 2)
	placeLimit(t, b, 3, Ask, 102, 5, 3)

	trades, _, _, err := b.Add(Order{ID: 4, Side: Bid, Type: Market, Quantity: 10, Timestamp: 4})
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, PriceTick(100), trades[0].PriceTick)
	assert.Equal(t, uint64(3), trades[0].Quantity)
	assert.Equal(t, PriceTick(101), trades[1].PriceTick)
	assert.Equal(t, uint64(4), trades[1].Quantity)
	assert.Equal(t, PriceTick(102), trades[2].PriceTick)
	assert.Equal(t, uint64(3), trades[2].Quantity)

	ask, size, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, PriceTick(102), ask)
	assert.Equal(t, uint64(2), size)
}

func TestCancelMiddleOfQueue_PreservesOrder(t *testing.T) {
	b := New(true)
	placeLimit(t, b, 1, Bid, 99, 10, 1)
	placeLimit(t, b, 2, Bid, 99, 20, 2)
	placeLimit(t, b, 3, Bid, 99, 30, 3)

	cancelled := b.Cancel(2)
	assert.Equal(t, uint64(20), cancelled)

	_, size, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, uint64(40), size)

	// Sweeping a market sell should now hit order 1 then order 3, in that order.
	trades, _, _, err := b.Add(Order{ID: 4, Side: Ask, Type: Market, Quantity: 15, Timestamp: 4})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, uint64(1), trades[0].MakerID)
	assert.Equal(t, uint64(10), trades[0].Quantity)
	assert.Equal(t, uint64(3), trades[1].MakerID)
	assert.Equal(t, uint64(5), trades[1].Quantity)
}

func TestCancelUnknownID_IsNoOp(t *testing.T) {
	b := New(true)
	placeLimit(t, b, 1, Bid, 99, 10, 1)

	assert.Equal(t, uint64(0), b.Cancel(999))
	assert.Equal(t, uint64(10), b.Cancel(1))
	assert.Equal(t, uint64(0), b.Cancel(1), "re-cancelling is a no-op")
}

func TestAddCancel_RoundTrip_IndistinguishableFromBeforeAdd(t *testing.T) {
	b := New(true)
	placeLimit(t, b, 1, Bid, 99, 50, 1)

	_, beforeSize, ok := b.BestBid()
	require.True(t, ok)

	placeLimit(t, b, 2, Bid, 98, 10, 2)
	b.Cancel(2)

	_, afterSize, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, beforeSize, afterSize)
	assert.Len(t, b.Depth(Bid, 10), 1)
}

func TestInvalidOrder_ZeroQuantity(t *testing.T) {
	b := New(true)
	_, _, _, err := b.Add(Order{ID: 1, Side: Bid, Type: Limit, PriceTick: 100, Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestDepth_BestFirstOrdering(t *testing.T) {
	b := New(true)
	placeLimit(t, b, 1, Bid, 99, 10, 1)
	placeLimit(t, b, 2, Bid, 101, 10, 2)
	placeLimit(t, b, 3, Bid, 100, 10, 3)

	depth := b.Depth(Bid, 10)
	require.Len(t, depth, 3)
	assert.Equal(t, PriceTick(101), depth[0].PriceTick)
	assert.Equal(t, PriceTick(100), depth[1].PriceTick)
	assert.Equal(t, PriceTick(99), depth[2].PriceTick)
}

func TestCancelLevel_BulkCancelFromHead(t *testing.T) {
	b := New(true)
	placeLimit(t, b, 1, Ask, 100, 10, 1)
	placeLimit(t, b, 2, Ask, 100, 10, 2)
	placeLimit(t, b, 3, Ask, 100, 10, 3)

	cancelled := b.CancelLevel(Ask, 100, 15)
	assert.Equal(t, uint64(15), cancelled)

	_, size, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, uint64(15), size)
}
