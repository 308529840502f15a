// Package generator implements the regime-switching synthetic market
// generator: a latent mid-price process, a CALM/NORMAL/STRESS regime state
// machine, an intraday activity curve, and a population of agent
// strategies, all driven by a private RNG and applied to an order book as
// a sequence of L3 intents.
package generator

import "lobsim/internal/book"

// Regime is one of the three named market states. Each carries its own
// parameter bundle (see RegimeParams).
type Regime int

const (
	Calm Regime = iota
	Normal
	Stress
)

func (r Regime) String() string {
	switch r {
	case Calm:
		return "CALM"
	case Stress:
		return "STRESS"
	default:
		return "NORMAL"
	}
}

// RegimeParams is the parameter vector a regime scales the generator's
// base behavior by: volatility, arrival rate, cancel ratio, and jump
// probability multipliers.
type RegimeParams struct {
	VolatilityMult float64
	ArrivalMult    float64
	CancelMult     float64
	JumpProb       float64
}

// defaultRegimeParams returns the suggested, non-normative parameter
// bundle for each regime.
func defaultRegimeParams() map[Regime]RegimeParams {
	return map[Regime]RegimeParams{
		Calm:   {VolatilityMult: 0.6, ArrivalMult: 0.7, CancelMult: 0.8, JumpProb: 0.0005},
		Normal: {VolatilityMult: 1.0, ArrivalMult: 1.0, CancelMult: 1.0, JumpProb: 0.002},
		Stress: {VolatilityMult: 2.8, ArrivalMult: 2.2, CancelMult: 1.6, JumpProb: 0.02},
	}
}

// IntentKind tags whether an Intent is a new order or a cancel request.
type IntentKind int

const (
	IntentAdd IntentKind = iota
	IntentCancel
)

// Intent is one order-book action an agent or the noise flow wants
// applied. Agents return intents only — they never mutate the book
// directly.
type Intent struct {
	Kind     IntentKind
	Order    book.Order // valid when Kind == IntentAdd
	CancelID uint64     // valid when Kind == IntentCancel
}

// BookView is the read-only window into the live book an agent is allowed
// to observe: top-of-book plus whatever depth it asks for.
type BookView interface {
	BestBid() (book.PriceTick, uint64, bool)
	BestAsk() (book.PriceTick, uint64, bool)
	Depth(side book.Side, n int) []book.DepthLevel
}

var _ BookView = (*book.OrderBook)(nil)
