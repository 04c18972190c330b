package issuers

import (
	"sync"

	"github.com/kmkrofficial/signature/internal/core"
)

// Hub fans out principal changes per session to subscribers.
// Each subscriber only ever sees the latest state; intermediate states are dropped
// if it falls behind.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan core.AuthState]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan core.AuthState]struct{})}
}

// Subscribe returns a channel receiving state changes for sessionID and a function that
// ends the subscription. The channel is closed when the subscription ends.
func (h *Hub) Subscribe(sessionID string) (<-chan core.AuthState, func()) {
	ch := make(chan core.AuthState, 1)

	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[chan core.AuthState]struct{})
		h.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[sessionID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, sessionID)
				}
			}
			close(ch)
		})
	}
}

// Publish delivers state to all current subscribers of its session without blocking.
func (h *Hub) Publish(state core.AuthState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[state.SessionID] {
		select {
		case ch <- state:
		default:
			// replace the stale pending state
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}

// Subscribers returns the number of active subscriptions for sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}
