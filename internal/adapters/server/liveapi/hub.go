// Package liveapi pushes list snapshots to websocket subscribers after every change.
package liveapi

import (
	"context"
	"strings"
	"sync"

	"github.com/hylla/insync/internal/domain"
)

// Hub fans list changes out to per-list subscribers. Signals are coalesced: a subscriber that is
// behind gets one pending signal and reloads the latest snapshot.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{subs: map[string]map[chan struct{}]struct{}{}}
}

// Subscribe registers interest in one list. cancel must be called exactly once.
func (h *Hub) Subscribe(listID string) (ch <-chan struct{}, cancel func()) {
	listID = strings.TrimSpace(listID)
	c := make(chan struct{}, 1)
	h.mu.Lock()
	set := h.subs[listID]
	if set == nil {
		set = map[chan struct{}]struct{}{}
		h.subs[listID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return c, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[listID], c)
			if len(h.subs[listID]) == 0 {
				delete(h.subs, listID)
			}
			h.mu.Unlock()
			close(c)
		})
	}
}

// Publish signals every subscriber of the changed list without blocking.
func (h *Hub) Publish(_ context.Context, change domain.ListChange) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subs[strings.TrimSpace(change.ListID)] {
		select {
		case c <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the subscriber count of one list.
func (h *Hub) Subscribers(listID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[strings.TrimSpace(listID)])
}
