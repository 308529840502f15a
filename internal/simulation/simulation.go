// Package simulation wires the order book, the regime-switching
// generator, the snapshot sampler, and the websocket broadcaster together
// into a single-writer/many-reader pipeline: exactly one goroutine drives
// the book forward; every other goroutine only ever reads a coalescing
// snapshot of it.
package simulation

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"lobsim/internal/book"
	"lobsim/internal/broadcaster"
	"lobsim/internal/config"
	"lobsim/internal/generator"
	"lobsim/internal/sampler"
)

// Simulation owns the book, the generator driving it, and (optionally) a
// sampler/broadcaster pair for live snapshot fan-out.
type Simulation struct {
	cfg     config.Config
	book    *book.OrderBook
	gen     *generator.Generator
	sampler *sampler.Sampler
}

// New constructs a Simulation with a default agent population: two market
// makers at different risk limits, a momentum trader, a mean-reversion
// trader, and a pool of noise traders.
func New(cfg config.Config, initialMid float64) *Simulation {
	bk := book.New(cfg.Book.ValidateOrders)
	agents := defaultAgents(cfg)
	gen := generator.New(cfg, bk, agents, initialMid)
	smp := sampler.New(bk, int(cfg.Sampler.Depth))

	return &Simulation{cfg: cfg, book: bk, gen: gen, sampler: smp}
}

// defaultAgents builds the fixed population a Simulation polls every tick.
func defaultAgents(cfg config.Config) []generator.Agent {
	ts := cfg.Book.TickSize
	return []generator.Agent{
		generator.NewMarketMaker(ts, 500, 0.0015, 20),
		generator.NewMarketMaker(ts, 300, 0.003, 10),
		generator.NewMomentum(ts, 0.004, 15),
		generator.NewMeanReversion(ts, 0.004, 15),
		generator.NewNoise(ts, 1, 50, 80, 0.6),
		generator.NewNoise(ts, 1, 10, 20, 0.9),
	}
}

// Step advances the simulation by exactly one generator tick. The
// sampler's write guard is held for the duration of the step so a
// concurrent Sample call never observes the book mid-mutation.
func (s *Simulation) Step() generator.Tick {
	s.sampler.Lock()
	defer s.sampler.Unlock()
	return s.gen.Step()
}

// Book exposes the live book for read-only inspection (e.g. CLI summaries).
// Callers must not mutate it directly; only Step drives the book forward.
func (s *Simulation) Book() *book.OrderBook { return s.book }

// Sampler exposes the coalescing snapshot sampler.
func (s *Simulation) Sampler() *sampler.Sampler { return s.sampler }

// RunHeadless steps the simulation n times at the configured tick
// interval, logging a summary every logEvery ticks. It never starts a
// broadcaster. The `stream`/`profile` CLI subcommands do not use it; they
// call Step in their own loops.
func (s *Simulation) RunHeadless(ctx context.Context, steps int, logEvery int) error {
	interval := s.cfg.Generator.TickInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		tick := s.Step()
		if logEvery > 0 && i%logEvery == 0 {
			bidTick, bidSize, bidOk := s.book.BestBid()
			askTick, askSize, askOk := s.book.BestAsk()
			log.Info().
				Int("step", i).
				Str("regime", tick.Regime.String()).
				Float64("mid", tick.Mid).
				Int("events", len(tick.Events)).
				Int("trades", len(tick.Trades)).
				Bool("bid_ok", bidOk).
				Bool("ask_ok", askOk).
				Int64("bid_tick", int64(bidTick)).
				Uint64("bid_size", bidSize).
				Int64("ask_tick", int64(askTick)).
				Uint64("ask_size", askSize).
				Msg("tick")
		}
	}
	return nil
}

// RunWithBroadcast steps the simulation forever (until ctx is cancelled),
// publishing a coalescing snapshot to the broadcaster hub on every sampler
// tick. This is the `ws` CLI path.
func (s *Simulation) RunWithBroadcast(ctx context.Context, bc *broadcaster.Server, hubPublish func(sampler.Snapshot)) error {
	interval := s.cfg.Generator.TickInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sampleTicker := sampler.NewTicker(s.cfg.Broadcast.TargetHz)
	stop := make(chan struct{})
	go sampleTicker.Run(s.sampler, stop, hubPublish)
	defer close(stop)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Step()
		}
	}
}
