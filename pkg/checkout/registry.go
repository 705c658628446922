package checkout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/cart"
	"ejc.kiosk/go-api/pkg/global"
	"ejc.kiosk/go-api/pkg/models"
)

// Locker guards a session across API instances.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

const defaultLockTTL = 30 * time.Second

type registryEntry struct {
	orchestrator *Orchestrator
	lastUsed     time.Time
}

// Registry holds one Orchestrator per kiosk session.
type Registry struct {
	deps    Deps
	locker  Locker
	lockTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

// NewRegistry builds a registry. locker may be nil when a single instance
// serves every session.
func NewRegistry(deps Deps, locker Locker) *Registry {
	deps.Logger = global.OrNop(deps.Logger)
	return &Registry{
		deps:     deps,
		locker:   locker,
		lockTTL:  defaultLockTTL,
		now:      time.Now,
		sessions: make(map[string]*registryEntry),
	}
}

// For returns the session's orchestrator, creating it on first use.
func (r *Registry) For(sessionID string) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		entry = &registryEntry{orchestrator: New(r.deps)}
		r.sessions[sessionID] = entry
	}
	entry.lastUsed = r.now()
	return entry.orchestrator
}

func (r *Registry) Submit(ctx context.Context, sessionID, customerName string, c *cart.Cart, idempotencyKey string) (*models.Order, error) {
	if r.locker != nil {
		release, ok, err := r.locker.TryLock(ctx, "checkout:"+sessionID, r.lockTTL)
		if err != nil {
			return nil, failure(KindBackendUnavailable, err)
		}
		if !ok {
			return nil, failure(KindInProgress, nil)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				r.deps.Logger.Warn("failed to release checkout lock", zap.String("session", sessionID), zap.Error(err))
			}
		}()
	}
	return r.For(sessionID).Submit(ctx, customerName, c, idempotencyKey)
}

// Sweep forgets orchestrators idle for longer than maxIdle and returns how
// many were dropped. Running orchestrators are kept.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	dropped := 0
	for id, entry := range r.sessions {
		if entry.lastUsed.Before(cutoff) && !entry.orchestrator.Running() {
			delete(r.sessions, id)
			dropped++
		}
	}
	return dropped
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
