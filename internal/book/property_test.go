package book

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProperty_RandomSequencePreservesInvariants drives a sizeable random
// sequence of add/cancel operations through a validated book and asserts
// invariants hold after every single operation, not just at the end.
func TestProperty_RandomSequencePreservesInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	b := New(true)

	var liveIDs []uint64
	var nextID uint64 = 1

	for i := 0; i < 2000; i++ {
		if len(liveIDs) > 0 && rng.Intn(3) == 0 {
			idx := rng.Intn(len(liveIDs))
			id := liveIDs[idx]
			liveIDs = append(liveIDs[:idx], liveIDs[idx+1:]...)
			b.Cancel(id)
		} else {
			side := Bid
			if rng.Intn(2) == 0 {
				side = Ask
			}
			id := nextID
			nextID++
			price := PriceTick(95 + rng.Intn(10))
			qty := uint64(1 + rng.Intn(20))

			_, _, resting, err := b.Add(Order{
				ID:        id,
				Side:      side,
				Type:      Limit,
				PriceTick: price,
				Quantity:  qty,
				Timestamp: int64(i),
			})
			require.NoError(t, err)
			if resting != nil {
				liveIDs = append(liveIDs, id)
			}
		}

		require.NoError(t, b.checkInvariants(), "invariants violated at step %d", i)
	}
}

// TestProperty_CancelReducesVolumeExactly covers the law that a cancel of
// a known id reduces total resting volume by exactly the cancelled
// quantity, and re-cancelling is a no-op.
func TestProperty_CancelReducesVolumeExactly(t *testing.T) {
	b := New(true)
	placeLimit(t, b, 1, Bid, 100, 30, 1)
	placeLimit(t, b, 2, Bid, 100, 20, 2)

	_, before, _ := b.BestBid()
	cancelled := b.Cancel(1)
	_, after, _ := b.BestBid()

	assert.Equal(t, cancelled, before-after)
	assert.Equal(t, uint64(0), b.Cancel(1))
}

// TestProperty_ExecutedQuantitySumsToAtMostOriginal covers the law that
// executed quantity for one incoming order never exceeds its original
// size.
func TestProperty_ExecutedQuantitySumsToAtMostOriginal(t *testing.T) {
	b := New(true)
	placeLimit(t, b, 1, Ask, 100, 5, 1)
	placeLimit(t, b, 2, Ask, 101, 5, 2)

	original := uint64(7)
	trades, _, _, err := b.Add(Order{ID: 3, Side: Bid, Type: Market, Quantity: original, Timestamp: 3})
	require.NoError(t, err)

	var sum uint64
	for _, tr := range trades {
		sum += tr.Quantity
	}
	assert.LessOrEqual(t, sum, original)
	assert.Equal(t, original, sum, "fully fillable order should fill exactly its quantity")
}

// TestProperty_MarketOrderNeverRests covers that MARKET orders never
// rest; unfilled remainder is dropped silently.
func TestProperty_MarketOrderNeverRests(t *testing.T) {
	b := New(true)
	placeLimit(t, b, 1, Ask, 100, 5, 1)

	trades, _, resting, err := b.Add(Order{ID: 2, Side: Bid, Type: Market, Quantity: 50, Timestamp: 2})
	require.NoError(t, err)
	assert.Nil(t, resting)
	assert.Len(t, trades, 1)

	_, _, ok := b.BestBid()
	assert.False(t, ok, "market order must never leave a resting remainder")
}
