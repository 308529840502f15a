package broadcaster

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lobsim/internal/sampler"
)

// subscriber holds one connected client's single-slot mailbox: Publish
// always overwrites whatever is there, so a subscriber that falls behind
// simply skips every snapshot it didn't get to before the next arrived:
// "latest wins".
type subscriber struct {
	id      uuid.UUID
	mailbox atomic.Pointer[sampler.Snapshot]
	wake    chan struct{}
}

func newSubscriber() *subscriber {
	return &subscriber{id: uuid.New(), wake: make(chan struct{}, 1)}
}

func (s *subscriber) deposit(snap sampler.Snapshot) {
	s.mailbox.Store(&snap)
	select {
	case s.wake <- struct{}{}:
	default: // already signaled, the drain loop hasn't caught up yet
	}
}

// Hub tracks connected subscribers and fans each published snapshot out
// to all of them. Admission is capped at maxSubscribers.
type Hub struct {
	mu             sync.RWMutex
	subs           map[uuid.UUID]*subscriber
	maxSubscribers int
}

func NewHub(maxSubscribers int) *Hub {
	return &Hub{subs: make(map[uuid.UUID]*subscriber), maxSubscribers: maxSubscribers}
}

// ErrHubFull is returned by register once maxSubscribers are already
// connected.
var ErrHubFull = errFull{}

type errFull struct{}

func (errFull) Error() string { return "broadcaster: subscriber cap reached" }

func (h *Hub) register() (*subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs) >= h.maxSubscribers {
		return nil, ErrHubFull
	}
	sub := newSubscriber()
	h.subs[sub.id] = sub
	log.Info().Str("subscriber", sub.id.String()).Int("total", len(h.subs)).Msg("subscriber connected")
	return sub, nil
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, sub.id)
	log.Info().Str("subscriber", sub.id.String()).Int("total", len(h.subs)).Msg("subscriber disconnected")
}

// Publish deposits snap into every connected subscriber's mailbox.
func (h *Hub) Publish(snap sampler.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		sub.deposit(snap)
	}
}

// Count returns the number of currently connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
