// Package catalog serves the storefront product list.
package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/global"
	"ejc.kiosk/go-api/pkg/models"
	"ejc.kiosk/go-api/pkg/store"
)

type Cache interface {
	Get(ctx context.Context) ([]models.Product, bool, error)
	Set(ctx context.Context, products []models.Product) error
	Invalidate(ctx context.Context) error
}

type Service struct {
	products store.Products
	cache    Cache
	logger   *zap.Logger
}

// NewService builds the catalog. cache may be nil.
func NewService(products store.Products, cache Cache, logger *zap.Logger) *Service {
	return &Service{products: products, cache: cache, logger: global.OrNop(logger)}
}

// ListPurchasable returns available products with stock, by name. hit reports
// whether the list came from the cache. Cache errors fall through to the
// store.
func (s *Service) ListPurchasable(ctx context.Context) ([]models.Product, bool, error) {
	if s.cache != nil {
		products, hit, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		} else if hit {
			return products, true, nil
		}
	}

	products, err := s.products.ListPurchasable(ctx)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, products); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return products, false, nil
}

// Invalidate drops the cached list. Failures are logged only: the entry
// still expires on its own.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

// MemoryCache is an in-process Cache for the memory backend.
type MemoryCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	products  []models.Product
	expiresAt time.Time
	valid     bool
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now}
}

func (c *MemoryCache) Get(context.Context) ([]models.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || !c.now().Before(c.expiresAt) {
		return nil, false, nil
	}
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, products []models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = make([]models.Product, len(products))
	copy(c.products, products)
	c.expiresAt = c.now().Add(c.ttl)
	c.valid = true
	return nil
}

func (c *MemoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.products = nil
	return nil
}
