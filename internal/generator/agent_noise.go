package generator

import (
	"math/rand"

	"lobsim/internal/book"
)

// Noise submits uniformly random limit orders near the touch, standing in
// for the mass of uncorrelated retail flow that has no directional view.
// It never cancels; stale resting orders are cleared by the generator's
// own noise-cancel flow, not by the agent itself.
type Noise struct {
	priceConv

	minSize, maxSize     uint64
	minOffset, maxOffset book.PriceTick
	activityProb         float64
}

func NewNoise(tickSize float64, minSize, maxSize uint64, maxOffset book.PriceTick, activityProb float64) *Noise {
	return &Noise{
		priceConv:    priceConv{tickSize: tickSize},
		minSize:      minSize,
		maxSize:      maxSize,
		minOffset:    1,
		maxOffset:    maxOffset,
		activityProb: activityProb,
	}
}

func (a *Noise) Propose(sig Signal, rng *rand.Rand, nextID func() uint64) []Intent {
	if rng.Float64() > a.activityProb {
		return nil
	}

	side := book.Bid
	if rng.Float64() < 0.5 {
		side = book.Ask
	}

	span := a.maxOffset - a.minOffset
	offset := a.minOffset
	if span > 0 {
		offset += book.PriceTick(rng.Int63n(int64(span) + 1))
	}

	base := a.toTick(sig.Mid)
	price := base - offset
	if side == book.Ask {
		price = base + offset
	}
	if price < 1 {
		price = 1
	}

	sizeSpan := a.maxSize - a.minSize
	size := a.minSize
	if sizeSpan > 0 {
		size += uint64(rng.Int63n(int64(sizeSpan) + 1))
	}

	return []Intent{{
		Kind: IntentAdd,
		Order: book.Order{
			ID:        nextID(),
			Side:      side,
			Type:      book.Limit,
			PriceTick: price,
			Quantity:  size,
			Timestamp: sig.T,
		},
	}}
}
