package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/global"
	"ejc.kiosk/go-api/pkg/store"
)

const (
	productsCollection      = "products"
	ordersCollection        = "orders"
	orderLinesCollection    = "order_lines"
	usersCollection         = "users"
	inventoryLogsCollection = "inventory_logs"
)

// Store is the MongoDB implementation of store.Store.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
	logger       *zap.Logger
}

var _ store.Store = (*Store)(nil)

type Options struct {
	URI          string
	Database     string
	Transactions bool
	Logger       *zap.Logger
}

// Connect opens a client, pings the server and returns a ready Store.
// Transactions require a replica set; with Transactions disabled every write
// runs on its own and oversell is still prevented by conditional updates.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)

	clientOptions := options.Client().
		ApplyURI(opts.URI).
		SetServerAPIOptions(serverAPI).
		SetRegistry(Registry())
	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create MongoDB client: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger := global.OrNop(opts.Logger)
	logger.Info("connected to MongoDB",
		zap.String("database", opts.Database),
		zap.Bool("transactions", opts.Transactions))

	return &Store{
		client:       client,
		db:           client.Database(opts.Database),
		transactions: opts.Transactions,
		logger:       logger,
	}, nil
}

func (s *Store) GetDatabase() *mongo.Database {
	return s.db
}

func (s *Store) GetCollection(collectionName string) *mongo.Collection {
	return s.db.Collection(collectionName)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// WithinTransaction runs fn inside a MongoDB transaction. Collection calls
// made with the ctx handed to fn are bound to the session.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(txCtx context.Context) (interface{}, error) {
		return nil, fn(txCtx)
	})
	return err
}
