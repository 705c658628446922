package redis

import (
	"context"
	"fmt"

	redisclient "github.com/redis/go-redis/v9"

	"ejc.kiosk/go-api/pkg/global"
)

const (
	cartKeyPrefix    = "cart:"
	catalogKey       = "catalog:purchasable"
	changesPrefix    = "changes:"
	revokedKeyPrefix = "revoked:"
	lockKeyPrefix    = "lock:"
)

func NewClient(cfg *global.Config) *redisclient.Client {
	return redisclient.NewClient(&redisclient.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Protocol: 2,
	})
}

// Connect builds a client and verifies the server answers.
func Connect(ctx context.Context, cfg *global.Config) (*redisclient.Client, error) {
	client := NewClient(cfg)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", cfg.RedisAddress, err)
	}
	return client, nil
}
