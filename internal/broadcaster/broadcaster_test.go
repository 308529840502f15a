package broadcaster

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tomb "gopkg.in/tomb.v2"

	"lobsim/internal/book"
	"lobsim/internal/config"
	"lobsim/internal/sampler"
)

func startTestServer(t *testing.T, maxSubs int) (*Server, *httptest.Server, func()) {
	t.Helper()
	bk := book.New(false)
	smp := sampler.New(bk, 10)

	cfg := config.Default().Broadcast
	cfg.MaxSubscribers = uint16(maxSubs)
	srv := NewServer(cfg, 0.01, smp)

	ts := httptest.NewServer(srv.httpServer.Handler)

	ctx, cancel := context.WithCancel(context.Background())
	tb, tombCtx := tomb.WithContext(ctx)
	_ = tombCtx
	tb.Go(func() error {
		srv.pool.Setup(tb, srv.handleSubscriber)
		return nil
	})

	cleanup := func() {
		cancel()
		ts.Close()
		_ = tb.Wait()
	}
	return srv, ts, cleanup
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestHub_TwoSubscribersBothGetLatestSnapshot(t *testing.T) {
	srv, ts, cleanup := startTestServer(t, 4)
	defer cleanup()

	c1, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer c1.Close()
	c2, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer c2.Close()

	time.Sleep(20 * time.Millisecond) // let both register
	require.Equal(t, 2, srv.hub.Count())

	srv.hub.Publish(sampler.Snapshot{Ts: 1, Seq: 1, Bids: []book.DepthLevel{{PriceTick: 100, Size: 1}}})

	for _, c := range []*websocket.Conn{c1, c2} {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(time.Second)))
		_, payload, err := c.ReadMessage()
		require.NoError(t, err)
		_, seq, _, _, err := Decode(payload)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), seq)
	}
}

func TestHub_RejectsBeyondMaxSubscribers(t *testing.T) {
	_, ts, cleanup := startTestServer(t, 1)
	defer cleanup()

	c1, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer c1.Close()
	time.Sleep(20 * time.Millisecond)

	c2, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err == nil {
		defer c2.Close()
		_, _, readErr := c2.ReadMessage()
		assert.Error(t, readErr, "second subscriber should be closed once the pool is full")
	}
}

// TestHub_SlowSubscriberSeesGappedMonotonicSubsequence covers the "latest
// wins" mailbox under two subscribers with different read cadences: a
// fast reader that drains after every publish and a slow reader that
// only checks in occasionally. Neither should ever observe a seq go
// backwards or repeat; the slow reader's observed seqs form a strictly
// increasing subsequence of the fast reader's, with gaps where it missed
// intermediate publishes entirely.
func TestHub_SlowSubscriberSeesGappedMonotonicSubsequence(t *testing.T) {
	h := NewHub(2)

	fast, err := h.register()
	require.NoError(t, err)
	slow, err := h.register()
	require.NoError(t, err)

	var fastSeen []uint64
	var slowSeen []uint64

	for i := uint64(1); i <= 6; i++ {
		h.Publish(sampler.Snapshot{Seq: i})

		// The fast reader checks in after every single publish.
		fastSeen = append(fastSeen, fast.mailbox.Load().Seq)

		// The slow reader only checks in every third publish, so it
		// necessarily misses the ones in between.
		if i%3 == 0 {
			slowSeen = append(slowSeen, slow.mailbox.Load().Seq)
		}
	}

	require.Len(t, fastSeen, 6)
	for i := range fastSeen {
		assert.Equal(t, uint64(i+1), fastSeen[i], "fast subscriber should see every seq in order")
	}

	require.Equal(t, []uint64{3, 6}, slowSeen, "slow subscriber should see a gapped but strictly increasing subsequence")
	for i := 1; i < len(slowSeen); i++ {
		assert.Greater(t, slowSeen[i], slowSeen[i-1], "slow subscriber's seqs must never repeat or go backwards")
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	snap := sampler.Snapshot{
		Ts:  123,
		Seq: 7,
		Bids: []book.DepthLevel{
			{PriceTick: 10000, Size: 5},
		},
		Asks: []book.DepthLevel{
			{PriceTick: 10010, Size: 3},
		},
	}

	payload, err := Encode(snap, 0.01)
	require.NoError(t, err)

	ts, seq, bids, asks, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(123), ts)
	assert.Equal(t, uint64(7), seq)
	require.Len(t, bids, 1)
	assert.InDelta(t, 100.0, bids[0][0], 1e-9)
	assert.Equal(t, 5.0, bids[0][1])
	require.Len(t, asks, 1)
	assert.InDelta(t, 100.1, asks[0][0], 1e-9)
}
