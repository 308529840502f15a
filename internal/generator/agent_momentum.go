package generator

import (
	"math/rand"

	"lobsim/internal/book"
)

// Momentum chases recent price direction: once the last tick's fractional
// return exceeds its threshold in magnitude, it fires an aggressive limit
// order on the same side, priced aggressTick ticks beyond the latent mid,
// trading with the trend. It crosses only when the opposite touch lies
// within that distance of the mid.
type Momentum struct {
	priceConv

	threshold   float64
	size        uint64
	aggressTick book.PriceTick // ticks beyond the latent mid, on the aggressive side
}

func NewMomentum(tickSize, threshold float64, size uint64) *Momentum {
	return &Momentum{
		priceConv:   priceConv{tickSize: tickSize},
		threshold:   threshold,
		size:        size,
		aggressTick: 5,
	}
}

func (a *Momentum) Propose(sig Signal, rng *rand.Rand, nextID func() uint64) []Intent {
	switch {
	case sig.LastReturn > a.threshold:
		return a.fire(book.Bid, sig.Mid, sig.T, nextID)
	case sig.LastReturn < -a.threshold:
		return a.fire(book.Ask, sig.Mid, sig.T, nextID)
	default:
		return nil
	}
}

func (a *Momentum) fire(side book.Side, mid float64, t int64, nextID func() uint64) []Intent {
	price := a.toTick(mid) + a.aggressTick
	if side == book.Ask {
		price = a.toTick(mid) - a.aggressTick
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
