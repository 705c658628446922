package redis

import (
	"context"
	"time"

	redisclient "github.com/redis/go-redis/v9"
)

// Revocations is the signed-out token denylist. Entries expire with the
// token they revoke.
type Revocations struct {
	client *redisclient.Client
}

func NewRevocations(client *redisclient.Client) *Revocations {
	return &Revocations{client: client}
}

func (r *Revocations) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

func (r *Revocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
