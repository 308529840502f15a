package generator

import (
	"errors"
	"math/rand"

	"lobsim/internal/book"
	"lobsim/internal/config"
)

// Generator is the explicit, inspectable state object driving the
// simulation: a private RNG, the regime/intraday/mid sub-processes, and a
// fixed agent population, all stepped in lockstep against a live order
// book. There is no hidden global state — two Generators constructed with
// the same seed and config produce bit-identical event sequences given
// the same agent population.
type Generator struct {
	rng *rand.Rand

	regime   *regimeMachine
	intraday *intradayCurve
	mid      *midProcess

	agents []Agent

	book     *book.OrderBook
	tickSize float64

	ordersPerTick float64
	cancelRatio   float64
	tickIntervalS float64

	tSec        float64
	nextOrderID uint64

	liveOrders []uint64 // ids of resting orders this Generator placed, for the noise-cancel flow
}

// New constructs a Generator over the given book with the given fixed
// agent population. initialMid seeds the latent mid-price process.
func New(cfg config.Config, bk *book.OrderBook, agents []Agent, initialMid float64) *Generator {
	seed := cfg.Generator.Seed
	if seed == 0 {
		seed = 1
	}
	return &Generator{
		rng:           rand.New(rand.NewSource(int64(seed))),
		regime:        newRegimeMachine(cfg.Generator.RegimeMatrix),
		intraday:      newIntradayCurve(cfg.Generator.SessionLengthSec),
		mid:           newMidProcess(initialMid),
		agents:        agents,
		book:          bk,
		tickSize:      cfg.Book.TickSize,
		ordersPerTick: float64(cfg.Generator.OrdersPerTick),
		cancelRatio:   cfg.Generator.CancelRatio,
		tickIntervalS: cfg.Generator.TickInterval.Seconds(),
		nextOrderID:   1,
	}
}

// Tick is the outcome of one Step call: the regime/mid state after the
// step and the L3 events it produced, in submission order.
type Tick struct {
	Regime Regime
	Mid    float64
	Events []book.Event
	Trades []book.Trade
}

// Step advances the generator by one tick: it evolves the regime and
// mid-price processes, polls every agent for intents, mixes in a noise
// cancel/add flow scaled by the tick's arrival budget, and applies
// everything to the book in a single deterministic order.
func (g *Generator) Step() Tick {
	g.tSec += g.tickIntervalS
	t := int64(g.tSec * 1e9)

	regime := g.regime.step(g.rng)
	params := g.regime.currentParams()
	mid := g.mid.step(g.tickIntervalS, params, g.rng)

	activity := g.intraday.multiplier(g.tSec)
	budget := g.ordersPerTick * params.ArrivalMult * activity

	sig := Signal{
		View:       g.book,
		Mid:        mid,
		LastReturn: g.mid.lastReturn(),
		T:          t,
	}

	var events []book.Event
	var trades []book.Trade

	for _, a := range g.agents {
		for _, intent := range a.Propose(sig, g.rng, g.nextID) {
			ev, tr := g.apply(intent, t)
			events = append(events, ev...)
			trades = append(trades, tr...)
		}
	}

	noiseEvents, noiseTrades := g.noiseFlow(budget, params, mid, t)
	events = append(events, noiseEvents...)
	trades = append(trades, noiseTrades...)

	return Tick{Regime: regime, Mid: mid, Events: events, Trades: trades}
}

// noiseFlow mixes the remainder of the tick's arrival budget into cancels
// and adds once the agent population has had its say. cancel_count is
// Poisson-distributed around budget * cancel_ratio * the regime's cancel
// multiplier; the rest of the budget becomes LIMIT adds with an
// exponentially-distributed near-touch price offset and a lognormal size.
func (g *Generator) noiseFlow(budget float64, params RegimeParams, mid float64, t int64) ([]book.Event, []book.Trade) {
	cancelMean := budget * g.cancelRatio * params.CancelMult
	cancelCount := poissonDraw(g.rng, cancelMean)

	addCount := int(budget) - cancelCount
	if addCount < 0 {
		addCount = 0
	}

	var events []book.Event
	var trades []book.Trade

	for i := 0; i < cancelCount; i++ {
		id, ok := g.pickLiveOrder()
		if !ok {
			break
		}
		ev, _ := g.apply(Intent{Kind: IntentCancel, CancelID: id}, t)
		events = append(events, ev...)
	}

	for i := 0; i < addCount; i++ {
		ev, tr := g.apply(g.noiseAddIntent(mid, t), t)
		events = append(events, ev...)
		trades = append(trades, tr...)
	}

	return events, trades
}

// noiseAddIntent draws one noise LIMIT add: side is a coin flip, the
// price offset from mid is exponential (biasing heavily toward the
// touch), and the size is lognormal.
func (g *Generator) noiseAddIntent(mid float64, t int64) Intent {
	side := book.Bid
	if g.rng.Float64() < 0.5 {
		side = book.Ask
	}

	offsetTicks := book.PriceTick(exponentialDraw(g.rng, 1.0/noiseOffsetMeanTicks))
	if offsetTicks < 1 {
		offsetTicks = 1
	}

	base := book.FromPrice(mid, g.tickSize)
	price := base - offsetTicks
	if side == book.Ask {
		price = base + offsetTicks
	}
	if price < 1 {
		price = 1
	}

	size := uint64(lognormalDraw(g.rng, noiseSizeMu, noiseSizeSigma))
	if size == 0 {
		size = 1
	}

	return Intent{
		Kind: IntentAdd,
		Order: book.Order{
			ID:        g.nextID(),
			Side:      side,
			Type:      book.Limit,
			PriceTick: price,
			Quantity:  size,
			Timestamp: t,
		},
	}
}

const (
	noiseOffsetMeanTicks = 4.0 // mean exponential price offset from mid, in ticks
	noiseSizeMu          = 2.3 // lognormal location parameter (median size ~10)
	noiseSizeSigma       = 0.6 // lognormal scale parameter
)

func (g *Generator) nextID() uint64 {
	id := g.nextOrderID
	g.nextOrderID++
	return id
}

// apply submits one intent to the book and tracks any order it rests, so
// the noise-cancel flow has a pool of live ids to draw from.
func (g *Generator) apply(intent Intent, t int64) ([]book.Event, []book.Trade) {
	switch intent.Kind {
	case IntentAdd:
		trades, events, resting, err := g.book.Add(intent.Order)
		if err != nil {
			if errors.Is(err, book.ErrInvariantViolation) {
				panic(err) // validated mode: a broken book invariant is fatal
			}
			return nil, nil
		}
		if resting != nil {
			g.liveOrders = append(g.liveOrders, resting.ID)
		}
		return events, trades
	case IntentCancel:
		qty := g.book.Cancel(intent.CancelID)
		g.forgetLiveOrder(intent.CancelID)
		if qty == 0 {
			return nil, nil
		}
		return []book.Event{{
			Kind:      book.EventCancel,
			ID:        intent.CancelID,
			Quantity:  qty,
			Timestamp: t,
		}}, nil
	default:
		return nil, nil
	}
}

// pickLiveOrder draws a uniformly random still-tracked order id and
// removes it from the pool. Ids of orders that have since been fully
// filled are not pruned; picking one leads to a cancel of 0 that emits no
// event.
func (g *Generator) pickLiveOrder() (uint64, bool) {
	for len(g.liveOrders) > 0 {
		i := g.rng.Intn(len(g.liveOrders))
		id := g.liveOrders[i]
		g.liveOrders[i] = g.liveOrders[len(g.liveOrders)-1]
		g.liveOrders = g.liveOrders[:len(g.liveOrders)-1]
		return id, true
	}
	return 0, false
}

func (g *Generator) forgetLiveOrder(id uint64) {
	for i, v := range g.liveOrders {
		if v == id {
			g.liveOrders[i] = g.liveOrders[len(g.liveOrders)-1]
			g.liveOrders = g.liveOrders[:len(g.liveOrders)-1]
			return
		}
	}
}
