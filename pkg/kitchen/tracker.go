package kitchen

import (
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Tracker tells which orders a display has not seen yet. The first
// observation only primes it, so opening the display does not alert for the
// whole existing queue.
type Tracker struct {
	mu     sync.Mutex
	primed bool
	seen   map[bson.ObjectID]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{seen: make(map[bson.ObjectID]struct{})}
}

// Observe records ids and returns the ones never observed before.
func (t *Tracker) Observe(ids []bson.ObjectID) []bson.ObjectID {
	t.mu.Lock()
	defer t.mu.Unlock()

	fresh := []bson.ObjectID{}
	for _, id := range ids {
		if _, ok := t.seen[id]; ok {
			continue
		}
		t.seen[id] = struct{}{}
		if t.primed {
			fresh = append(fresh, id)
		}
	}
	t.primed = true
	return fresh
}
