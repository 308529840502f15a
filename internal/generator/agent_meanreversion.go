package generator

import (
	"math/rand"

	"lobsim/internal/book"
)

// MeanReversion leans against recent moves: when the last return ran up,
// it places a sell offsetTick ticks above the latent mid; when it ran
// down, a buy offsetTick ticks below. The price is set from the mid, not
// from the book, so the order rests passively unless the opposite touch
// has moved past it, in which case it trades.
type MeanReversion struct {
	priceConv

	threshold  float64
	size       uint64
	offsetTick book.PriceTick
}

func NewMeanReversion(tickSize, threshold float64, size uint64) *MeanReversion {
	return &MeanReversion{
		priceConv:  priceConv{tickSize: tickSize},
		threshold:  threshold,
		size:       size,
		offsetTick: 2,
	}
}

func (a *MeanReversion) Propose(sig Signal, rng *rand.Rand, nextID func() uint64) []Intent {
	switch {
	case sig.LastReturn > a.threshold:
		return a.rest(book.Ask, sig.Mid, sig.T, nextID)
	case sig.LastReturn < -a.threshold:
		return a.rest(book.Bid, sig.Mid, sig.T, nextID)
	default:
		return nil
	}
}

func (a *MeanReversion) rest(side book.Side, mid float64, t int64, nextID func() uint64) []Intent {
	price := a.toTick(mid) + a.offsetTick
	if side == book.Bid {
		price = a.toTick(mid) - a.offsetTick
	}
	return []Intent{{
		Kind: IntentAdd,
		Order: book.Order{
			ID:        nextID(),
			Side:      side,
			Type:      book.Limit,
			PriceTick: price,
			Quantity:  a.size,
			Timestamp: t,
		},
	}}
}
