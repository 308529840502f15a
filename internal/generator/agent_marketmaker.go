package generator

import (
	"math/rand"

	"lobsim/internal/book"
)

// MarketMaker quotes a symmetric two-sided market around the latent mid at
// a fixed half-spread of baseSpread × mid (the width does not vary with
// volatility), skewing away from its own inventory to avoid accumulating
// a runaway position. It cancels its resting quotes
// and re-quotes whenever the mid has drifted past a threshold since its
// last quote, or whenever it has no live quote at all.
type MarketMaker struct {
	priceConv

	inventory     int64
	maxInventory  int64
	baseSpread    float64
	sizePerQuote  uint64
	requoteThresh float64

	lastQuoteMid float64
	liveBidID    uint64
	liveAskID    uint64
}

// NewMarketMaker constructs a maker with the given inventory limit, base
// half-spread (as a fraction of mid), and quote size.
func NewMarketMaker(tickSize float64, maxInventory int64, baseSpread float64, sizePerQuote uint64) *MarketMaker {
	return &MarketMaker{
		priceConv:     priceConv{tickSize: tickSize},
		maxInventory:  maxInventory,
		baseSpread:    baseSpread,
		sizePerQuote:  sizePerQuote,
		requoteThresh: 0.003,
	}
}

func (m *MarketMaker) Propose(sig Signal, rng *rand.Rand, nextID func() uint64) []Intent {
	mid, t := sig.Mid, sig.T
	drift := 0.0
	if m.lastQuoteMid > 0 {
		drift = (mid - m.lastQuoteMid) / m.lastQuoteMid
		if drift < 0 {
			drift = -drift
		}
	}

	var intents []Intent
	needsRequote := m.liveBidID == 0 || m.liveAskID == 0 || drift > m.requoteThresh
	if !needsRequote {
		return nil
	}

	if m.liveBidID != 0 {
		intents = append(intents, Intent{Kind: IntentCancel, CancelID: m.liveBidID})
		m.liveBidID = 0
	}
	if m.liveAskID != 0 {
		intents = append(intents, Intent{Kind: IntentCancel, CancelID: m.liveAskID})
		m.liveAskID = 0
	}

	// Skew the quote away from inventory: a long position quotes a lower
	// mid (eager to sell), a short position a higher one (eager to buy).
	invSkew := -float64(m.inventory) / float64(max64(m.maxInventory, 1)) * m.baseSpread * mid
	halfSpread := m.baseSpread * mid

	if m.inventory < m.maxInventory {
		bidID := nextID()
		intents = append(intents, Intent{Kind: IntentAdd, Order: book.Order{
			ID:        bidID,
			Side:      book.Bid,
			Type:      book.Limit,
			PriceTick: m.toTick(mid - halfSpread + invSkew),
			Quantity:  m.sizePerQuote,
			Timestamp: t,
		}})
		m.liveBidID = bidID
	}
	if m.inventory > -m.maxInventory {
		askID := nextID()
		intents = append(intents, Intent{Kind: IntentAdd, Order: book.Order{
			ID:        askID,
			Side:      book.Ask,
			Type:      book.Limit,
			PriceTick: m.toTick(mid + halfSpread + invSkew),
			Quantity:  m.sizePerQuote,
			Timestamp: t,
		}})
		m.liveAskID = askID
	}

	m.lastQuoteMid = mid
	return intents
}

// OnFill updates inventory when one of this maker's resting orders trades.
// Propose does not call it, since fills are only known after the book
// processes intents, and neither Generator nor Simulation calls it either:
// inventory, and with it the skew and the inventory limit, only changes
// when a caller reports fills through OnFill.
func (m *MarketMaker) OnFill(side book.Side, qty uint64) {
	if side == book.Bid {
		m.inventory += int64(qty)
	} else {
		m.inventory -= int64(qty)
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
