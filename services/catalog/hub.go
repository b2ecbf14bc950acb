// Package catalogsvc implements core.Catalog: caching of the published lists and fan-out of their change events.
package catalogsvc

import (
	"context"
	"sync"

	"github.com/genzugar/backend/core"
)

const subscriberBuffer = 16

// hub fans events out to the local subscribers. Slow subscribers miss events rather than block publishers.
type hub struct {
	mu   sync.Mutex
	subs map[chan core.CatalogEvent]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan core.CatalogEvent]struct{})}
}

func (h *hub) subscribe(ctx context.Context) <-chan core.CatalogEvent {
	ch := make(chan core.CatalogEvent, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

func (h *hub) broadcast(evt core.CatalogEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
