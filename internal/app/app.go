// Package app assembles the kiosk services for the configured backend.
package app

import (
	"context"
	"fmt"

	redisclient "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/ai"
	"ejc.kiosk/go-api/pkg/auth"
	"ejc.kiosk/go-api/pkg/cart"
	"ejc.kiosk/go-api/pkg/catalog"
	"ejc.kiosk/go-api/pkg/checkout"
	"ejc.kiosk/go-api/pkg/global"
	"ejc.kiosk/go-api/pkg/inventory"
	"ejc.kiosk/go-api/pkg/kitchen"
	"ejc.kiosk/go-api/pkg/memory"
	"ejc.kiosk/go-api/pkg/mongo"
	"ejc.kiosk/go-api/pkg/realtime"
	"ejc.kiosk/go-api/pkg/redis"
	"ejc.kiosk/go-api/pkg/report"
	"ejc.kiosk/go-api/pkg/store"
)

// Changes is the change channel: every write publishes, every live view
// subscribes.
type Changes interface {
	realtime.Publisher
	realtime.Subscriber
}

// Services is everything the HTTP layer and the CLI commands need.
type Services struct {
	Config    *global.Config
	Logger    *zap.Logger
	Store     store.Store
	Carts     cart.SessionStore
	Changes   Changes
	Catalog   *catalog.Service
	Checkout  *checkout.Registry
	Inventory *inventory.Service
	Kitchen   *kitchen.Service
	Reports   *report.Service
	Auth      *auth.Service
	AI        *ai.Client

	closers []func(context.Context) error
}

// backend is the driver specific half of the assembly.
type backend struct {
	store   store.Store
	carts   cart.SessionStore
	cache   catalog.Cache
	changes Changes
	revoker auth.Revoker
	locker  checkout.Locker
	closers []func(context.Context) error
}

// Build connects the configured backend and wires the services on top of it.
func Build(ctx context.Context, cfg *global.Config, logger *zap.Logger) (*Services, error) {
	logger = global.OrNop(logger)

	var (
		b   *backend
		err error
	)
	switch cfg.StoreDriver {
	case global.StoreDriverMemory:
		b = memoryBackend(cfg)
	case global.StoreDriverMongo:
		b, err = mongoBackend(ctx, cfg, logger)
	default:
		err = fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("backend ready", zap.String("driver", cfg.StoreDriver))
	return assemble(cfg, logger, b), nil
}

// NewMemory wires the services on the in-process backend. It never fails
// and is what the HTTP tests run against.
func NewMemory(cfg *global.Config, logger *zap.Logger) *Services {
	return assemble(cfg, global.OrNop(logger), memoryBackend(cfg))
}

func memoryBackend(cfg *global.Config) *backend {
	hub := realtime.NewHub()
	return &backend{
		store:   memory.NewStore(),
		carts:   memory.NewCartSessions(cfg.CartTTL),
		cache:   catalog.NewMemoryCache(cfg.CatalogCacheTTL),
		changes: hub,
		revoker: memory.NewRevocations(),
		locker:  memory.NewLocker(),
	}
}

func mongoBackend(ctx context.Context, cfg *global.Config, logger *zap.Logger) (*backend, error) {
	db, err := mongo.Connect(ctx, mongo.Options{
		URI:          cfg.MongoURI,
		Database:     cfg.DatabaseName,
		Transactions: cfg.MongoTransactions,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		_ = db.Close(ctx)
		return nil, err
	}

	rdb, err := redis.Connect(ctx, cfg)
	if err != nil {
		_ = db.Close(ctx)
		return nil, err
	}

	return &backend{
		store:   db,
		carts:   redis.NewCartStore(rdb, cfg.CartTTL),
		cache:   redis.NewCatalogCache(rdb, cfg.CatalogCacheTTL),
		changes: redis.NewNotifier(rdb, logger),
		revoker: redis.NewRevocations(rdb),
		locker:  redis.NewLocker(rdb),
		closers: []func(context.Context) error{
			closeRedis(rdb),
			db.Close,
		},
	}, nil
}

func closeRedis(rdb *redisclient.Client) func(context.Context) error {
	return func(context.Context) error { return rdb.Close() }
}

func assemble(cfg *global.Config, logger *zap.Logger, b *backend) *Services {
	catalogSvc := catalog.NewService(b.store, b.cache, logger.Named("catalog"))

	return &Services{
		Config:  cfg,
		Logger:  logger,
		Store:   b.store,
		Carts:   b.carts,
		Changes: b.changes,
		Catalog: catalogSvc,
		Checkout: checkout.NewRegistry(checkout.Deps{
			Store:     b.store,
			Catalog:   catalogSvc,
			Publisher: b.changes,
			Logger:    logger.Named("checkout"),
		}, b.locker),
		Inventory: inventory.NewService(b.store, catalogSvc, b.changes, logger.Named("inventory")),
		Kitchen:   kitchen.NewService(b.store, b.changes, logger.Named("kitchen")),
		Reports:   report.NewService(b.store, cfg.Location(), logger.Named("report")),
		Auth: auth.NewService(b.store, b.revoker, auth.Options{
			Secret:     cfg.JWTSecret,
			InviteCode: cfg.InviteCode,
			TokenTTL:   cfg.TokenTTL,
		}, logger.Named("auth")),
		AI: ai.NewClient(ai.Config{
			Endpoint:   cfg.AIEndpoint,
			APIKey:     cfg.AIKey,
			Deployment: cfg.AIDeployment,
		}, logger.Named("ai")),
		closers: b.closers,
	}
}

// Close releases backend connections in reverse order of creation.
func (s *Services) Close(ctx context.Context) error {
	var firstErr error
	for _, closeFn := range s.closers {
		if err := closeFn(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
