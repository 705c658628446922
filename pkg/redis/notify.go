package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/global"
	"ejc.kiosk/go-api/pkg/realtime"
)

// Notifier is the Redis pub/sub change channel. Each collection has its own
// channel, changes:<collection>.
type Notifier struct {
	client *redisclient.Client
	logger *zap.Logger
}

var (
	_ realtime.Publisher  = (*Notifier)(nil)
	_ realtime.Subscriber = (*Notifier)(nil)
)

func NewNotifier(client *redisclient.Client, logger *zap.Logger) *Notifier {
	return &Notifier{client: client, logger: global.OrNop(logger)}
}

func changesChannel(collection string) string {
	return changesPrefix + collection
}

func (n *Notifier) Publish(ctx context.Context, change realtime.Change) error {
	if change.At.IsZero() {
		change.At = time.Now()
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	return n.client.Publish(ctx, changesChannel(change.Collection), payload).Err()
}

func (n *Notifier) Subscribe(ctx context.Context, collection string, fn func(realtime.Change)) error {
	pubsub := n.client.Subscribe(ctx, changesChannel(collection))
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before delivering anything.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", collection, err)
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var change realtime.Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				n.logger.Warn("discarding malformed change",
					zap.String("channel", msg.Channel),
					zap.Error(err))
				continue
			}
			fn(change)
		}
	}
}
