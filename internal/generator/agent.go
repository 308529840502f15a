package generator

import (
	"math/rand"

	"lobsim/internal/book"
)

// Signal bundles the public, per-tick market state agents are allowed to
// observe: the live book (top-of-book and depth), the generator's current
// latent mid, and its most recent fractional return (used by the
// Momentum and MeanReversion strategies). Agents never see regime state
// directly — only its effect on price action.
type Signal struct {
	View       BookView
	Mid        float64
	LastReturn float64
	T          int64
}

// Agent is the flat capability abstraction each strategy implements:
// expose Propose and nothing else. There is no inheritance hierarchy;
// dispatch across the population is a plain slice iteration in
// Generator.Step.
type Agent interface {
	Propose(sig Signal, rng *rand.Rand, nextID func() uint64) []Intent
}

// tickSize is threaded into agents that need to convert a real price
// offset into ticks. Agents hold it as private state set at construction.
type priceConv struct {
	tickSize float64
}

func (c priceConv) toTick(price float64) book.PriceTick {
	return book.FromPrice(price, c.tickSize)
}
