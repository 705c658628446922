package memory

import (
	"context"
	"sync"
	"time"

	"ejc.kiosk/go-api/pkg/cart"
)

type cartEntry struct {
	lines     []cart.Line
	expiresAt time.Time
}

// CartSessions is an in-process cart.SessionStore with per-session expiry.
type CartSessions struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	carts map[string]cartEntry
}

var _ cart.SessionStore = (*CartSessions)(nil)

func NewCartSessions(ttl time.Duration) *CartSessions {
	return &CartSessions{ttl: ttl, now: time.Now, carts: make(map[string]cartEntry)}
}

func (s *CartSessions) Load(_ context.Context, sessionID string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.carts[sessionID]
	if !ok || (s.ttl > 0 && s.now().After(entry.expiresAt)) {
		delete(s.carts, sessionID)
		return cart.New(), nil
	}
	return cart.FromLines(entry.lines), nil
}

func (s *CartSessions) Save(_ context.Context, sessionID string, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.IsEmpty() {
		delete(s.carts, sessionID)
		return nil
	}
	s.carts[sessionID] = cartEntry{lines: c.Lines(), expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *CartSessions) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
	return nil
}

// Revocations is an in-process token denylist.
type Revocations struct {
	mu      sync.Mutex
	now     func() time.Time
	revoked map[string]time.Time
}

func NewRevocations() *Revocations {
	return &Revocations{now: time.Now, revoked: make(map[string]time.Time)}
}

func (r *Revocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[tokenID] = until
	return nil
}

func (r *Revocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if r.now().After(until) {
		delete(r.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

// Locker is the single-process counterpart of the Redis locker.
type Locker struct {
	mu    sync.Mutex
	now   func() time.Time
	held  map[string]lockEntry
	count int
}

type lockEntry struct {
	token     int
	expiresAt time.Time
}

func NewLocker() *Locker {
	return &Locker{now: time.Now, held: make(map[string]lockEntry)}
}

func (l *Locker) TryLock(_ context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.held[name]; ok && l.now().Before(entry.expiresAt) {
		return nil, false, nil
	}
	l.count++
	token := l.count
	l.held[name] = lockEntry{token: token, expiresAt: l.now().Add(ttl)}

	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if entry, ok := l.held[name]; ok && entry.token == token {
			delete(l.held, name)
		}
		return nil
	}
	return release, true, nil
}
