package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lobsim/internal/book"
	"lobsim/internal/config"
)

func newTestPopulation(tickSize float64) []Agent {
	return []Agent{
		NewMarketMaker(tickSize, 1000, 0.001, 10),
		NewMomentum(tickSize, 0.001, 5),
		NewMeanReversion(tickSize, 0.001, 5),
		NewNoise(tickSize, 1, 20, 50, 0.5),
	}
}

func runTicks(cfg config.Config, n int) []Tick {
	bk := book.New(true)
	g := New(cfg, bk, newTestPopulation(cfg.Book.TickSize), 100.0)
	ticks := make([]Tick, 0, n)
	for i := 0; i < n; i++ {
		ticks = append(ticks, g.Step())
	}
	return ticks
}

func TestDeterminism_SameSeedSameEvents(t *testing.T) {
	cfg := config.Default()
	cfg.Generator.Seed = 42

	a := runTicks(cfg, 200)
	b := runTicks(cfg, 200)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Regime, b[i].Regime, "tick %d regime", i)
		assert.InDelta(t, a[i].Mid, b[i].Mid, 1e-12, "tick %d mid", i)
		assert.Equal(t, a[i].Events, b[i].Events, "tick %d events", i)
		assert.Equal(t, a[i].Trades, b[i].Trades, "tick %d trades", i)
	}
}

func TestDeterminism_DifferentSeedDiverges(t *testing.T) {
	cfgA := config.Default()
	cfgA.Generator.Seed = 1
	cfgB := config.Default()
	cfgB.Generator.Seed = 2

	a := runTicks(cfgA, 200)
	b := runTicks(cfgB, 200)

	diverged := false
	for i := range a {
		if a[i].Mid != b[i].Mid {
			diverged = true
			break
		}
	}
	assert.True(t, diverged, "expected two different seeds to diverge within 200 ticks")
}

func TestStep_NeverCrossesBook(t *testing.T) {
	cfg := config.Default()
	cfg.Generator.Seed = 7
	cfg.Book.ValidateOrders = true

	bk := book.New(true)
	g := New(cfg, bk, newTestPopulation(cfg.Book.TickSize), 100.0)
	for i := 0; i < 500; i++ {
		g.Step()
		bidTick, _, bidOk := bk.BestBid()
		askTick, _, askOk := bk.BestAsk()
		if bidOk && askOk {
			assert.Less(t, int64(bidTick), int64(askTick), "tick %d: book crossed", i)
		}
	}
}
