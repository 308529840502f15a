// Package sampler takes coalescing point-in-time snapshots of a live order
// book: every call to Sample reads whatever the book currently looks like,
// never a queued or stale view, and stamps the result with a monotonically
// increasing sequence number.
package sampler

import (
	"sync"
	"sync/atomic"
	"time"

	"lobsim/internal/book"
)

// Snapshot is one depth-bounded view of the book at a point in time.
type Snapshot struct {
	Ts   uint64 // capture time as Unix nanoseconds (wall clock, not a monotonic reading)
	Seq  uint64
	Bids []book.DepthLevel
	Asks []book.DepthLevel
}

// Book is the minimal read interface a Sampler needs from the matching
// engine. *book.OrderBook satisfies it.
type Book interface {
	Snapshot(depth int) book.BookView
}

var _ Book = (*book.OrderBook)(nil)

// Sampler guards access to a live book with a RWMutex so readers never
// block the single writer (the generator) for longer than one Snapshot
// call, and never observe a book mid-mutation.
type Sampler struct {
	mu    sync.RWMutex
	book  Book
	depth int
	seq   atomic.Uint64
}

func New(bk Book, depth int) *Sampler {
	return &Sampler{book: bk, depth: depth}
}

// Sample takes an immediate, coalescing read of the book: it always
// reflects the current state, never a buffered or delayed one.
func (s *Sampler) Sample(now time.Time) Snapshot {
	s.mu.RLock()
	view := s.book.Snapshot(s.depth)
	s.mu.RUnlock()

	return Snapshot{
		Ts:   uint64(now.UnixNano()),
		Seq:  s.seq.Add(1),
		Bids: view.Bids,
		Asks: view.Asks,
	}
}

// Lock exposes the writer-side half of the guard: the single writer
// (the generator's tick loop) must hold this for the duration of each
// Step so Sample never interleaves with an in-progress mutation.
func (s *Sampler) Lock()   { s.mu.Lock() }
func (s *Sampler) Unlock() { s.mu.Unlock() }

// Ticker drives repeated sampling at a fixed target rate, coalescing:
// if the consumer is still processing the previous tick when the next
// fires, the ticker drops it rather than queuing.
type Ticker struct {
	interval time.Duration
}

func NewTicker(hz uint16) *Ticker {
	if hz == 0 {
		hz = 1
	}
	return &Ticker{interval: time.Second / time.Duration(hz)}
}

// Run calls fn with a fresh Sample on every tick until stop is closed.
// If fn is still running when the next tick fires, that tick is skipped.
func (t *Ticker) Run(s *Sampler, stop <-chan struct{}, fn func(Snapshot)) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	var busy atomic.Bool
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if !busy.CompareAndSwap(false, true) {
				continue // previous fn still running: drop this tick
			}
			go func() {
				defer busy.Store(false)
				fn(s.Sample(now))
			}()
		}
	}
}
