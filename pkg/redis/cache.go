package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisclient "github.com/redis/go-redis/v9"

	"ejc.kiosk/go-api/pkg/models"
)

// CatalogCache holds the purchasable product list as a single JSON value.
type CatalogCache struct {
	client *redisclient.Client
	ttl    time.Duration
}

func NewCatalogCache(client *redisclient.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl}
}

func (c *CatalogCache) Get(ctx context.Context) ([]models.Product, bool, error) {
	data, err := c.client.Get(ctx, catalogKey).Bytes()
	if errors.Is(err, redisclient.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	products := []models.Product{}
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	return products, true, nil
}

func (c *CatalogCache) Set(ctx context.Context, products []models.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	return c.client.Set(ctx, catalogKey, data, c.ttl).Err()
}

func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, catalogKey).Err()
}
