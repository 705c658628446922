package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/global"
)

type IndexConfig struct {
	CollectionName string
	IndexModel     mongo.IndexModel
}

var requiredIndexes = []IndexConfig{
	// Products Collection Indexes
	// Storefront catalog: available products with stock, by name
	{
		CollectionName: productsCollection,
		IndexModel: mongo.IndexModel{
			Keys: bson.D{
				{Key: "available", Value: 1},
				{Key: "stock", Value: 1},
				{Key: "name", Value: 1},
			},
			Options: options.Index().SetName("idx_catalog"),
		},
	},
	{
		CollectionName: productsCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("idx_product_name").SetCollation(nameCollation),
		},
	},

	// Orders Collection Indexes
	// Kitchen queue (oldest first) and history (newest first)
	{
		CollectionName: ordersCollection,
		IndexModel: mongo.IndexModel{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_status_created"),
		},
	},
	// Checkout retries carry the same key; only string keys are indexed
	{
		CollectionName: ordersCollection,
		IndexModel: mongo.IndexModel{
			Keys: bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("idx_idempotency_key_unique").
				SetPartialFilterExpression(bson.D{
					{Key: "idempotency_key", Value: bson.D{{Key: "$type", Value: "string"}}},
				}),
		},
	},

	// Order Lines Collection Indexes
	{
		CollectionName: orderLinesCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "order_id", Value: 1}},
			Options: options.Index().SetName("idx_order_lines_order"),
		},
	},
	{
		CollectionName: orderLinesCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "product_id", Value: 1}},
			Options: options.Index().SetName("idx_order_lines_product"),
		},
	},

	// Users Collection Indexes
	{
		CollectionName: usersCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_user_email_unique"),
		},
	},

	// Inventory Logs Collection Indexes
	{
		CollectionName: inventoryLogsCollection,
		IndexModel: mongo.IndexModel{
			Keys: bson.D{
				{Key: "product_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_product_history"),
		},
	},
}

// RequiredIndexes lists the indexes EnsureIndexes creates.
func RequiredIndexes() []IndexConfig {
	out := make([]IndexConfig, len(requiredIndexes))
	copy(out, requiredIndexes)
	return out
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	s.logger.Info("starting index creation", zap.Int("count", len(requiredIndexes)))

	for _, idxConfig := range requiredIndexes {
		collection := s.GetCollection(idxConfig.CollectionName)
		opCtx, cancel := global.GetDefaultTimerFrom(ctx)

		indexName, err := collection.Indexes().CreateOne(opCtx, idxConfig.IndexModel)
		cancel()
		if err != nil {
			s.logger.Error("failed to create index",
				zap.String("collection", idxConfig.CollectionName),
				zap.Error(err))
			return err
		}

		s.logger.Info("created index",
			zap.String("index", indexName),
			zap.String("collection", idxConfig.CollectionName))
	}

	s.logger.Info("all indexes created")
	return nil
}
