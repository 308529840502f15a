package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lobsim/internal/config"
)

func TestRunHeadless_AdvancesAndStops(t *testing.T) {
	cfg := config.Default()
	cfg.Generator.Seed = 99
	cfg.Generator.TickInterval = time.Millisecond

	sim := New(cfg, 100.0)
	err := sim.RunHeadless(context.Background(), 50, 10)
	require.NoError(t, err)

	_, _, bidOk := sim.Book().BestBid()
	_, _, askOk := sim.Book().BestAsk()
	assert.True(t, bidOk || askOk, "expected at least one resting order after 50 ticks")
}

func TestRunHeadless_RespectsContextCancellation(t *testing.T) {
	cfg := config.Default()
	cfg.Generator.TickInterval = time.Millisecond

	sim := New(cfg, 100.0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sim.RunHeadless(ctx, 1000, 0)
	assert.Error(t, err)
}
