// Package realtime carries "something changed" notifications between the
// writers (checkout, admin, kitchen) and the live views. A change never
// carries the changed data: listeners re-fetch.
package realtime

import (
	"context"
	"sync"
	"time"
)

const (
	CollectionOrders   = "orders"
	CollectionProducts = "products"
)

const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

type Change struct {
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	At         time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Subscriber delivers changes for one collection to fn until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, collection string, fn func(Change)) error
}

// Hub is the in-process channel used by the memory backend.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan Change
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan Change)}
}

// Publish never blocks; a subscriber that is behind misses the change but
// still has one queued, which is enough to trigger its re-fetch.
func (h *Hub) Publish(_ context.Context, change Change) error {
	if change.At.IsZero() {
		change.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[change.Collection] {
		select {
		case ch <- change:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, collection string, fn func(Change)) error {
	ch := make(chan Change, 16)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[int]chan Change)
	}
	h.subs[collection][id] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subs[collection], id)
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-ch:
			fn(change)
		}
	}
}

// Subscribers reports how many listeners a collection has.
func (h *Hub) Subscribers(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[collection])
}

// Nop discards every change.
type Nop struct{}

func (Nop) Publish(context.Context, Change) error { return nil }
