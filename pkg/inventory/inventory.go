// Package inventory implements the admin product controls: registering
// products, toggling availability and applying signed stock deltas.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/global"
	"ejc.kiosk/go-api/pkg/models"
	"ejc.kiosk/go-api/pkg/realtime"
	"ejc.kiosk/go-api/pkg/store"
)

var (
	ErrNegativeStockRejected = errors.New("stock cannot go below zero")
	ErrInvalid               = errors.New("invalid request")
)

// NegativeStockError is returned when a delta would drive stock below zero.
// Stock is the unchanged current stock.
type NegativeStockError struct {
	Product string
	Stock   int
	Delta   int
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("cannot apply %d to %s: only %d in stock", e.Delta, e.Product, e.Stock)
}

func (e *NegativeStockError) Is(target error) bool {
	return target == ErrNegativeStockRejected
}

type InvalidError struct {
	Field   string
	Message string
}

func (e *InvalidError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *InvalidError) Is(target error) bool {
	return target == ErrInvalid
}

type Storage interface {
	store.Products
	store.InventoryLogs
	store.Transactor
}

type CatalogInvalidator interface {
	Invalidate(ctx context.Context)
}

type Service struct {
	store     Storage
	catalog   CatalogInvalidator
	publisher realtime.Publisher
	logger    *zap.Logger
}

func NewService(s Storage, catalog CatalogInvalidator, publisher realtime.Publisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = realtime.Nop{}
	}
	return &Service{store: s, catalog: catalog, publisher: publisher, logger: global.OrNop(logger)}
}

func (s *Service) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req models.CreateProductRequest, performedBy string) (*models.Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &InvalidError{Field: "name", Message: "name is required"}
	}
	if req.Price.IsNegative() {
		return nil, &InvalidError{Field: "price", Message: "price cannot be negative"}
	}
	if req.Stock < 0 {
		return nil, &InvalidError{Field: "stock", Message: "stock cannot be negative"}
	}

	product := req.ToProduct()
	err := s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.CreateProduct(ctx, product); err != nil {
			return err
		}
		entry := &models.InventoryLog{
			ProductID:     product.ID,
			ProductName:   product.Name,
			ChangeType:    models.ChangeTypeInitial,
			QuantityAfter: product.Stock,
			Available:     product.Available,
			PerformedBy:   performedBy,
		}
		entry.CalculateQuantityChanged()
		return s.store.AppendInventoryLog(ctx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("product created",
		zap.String("product_id", product.ID.Hex()),
		zap.String("name", product.Name),
		zap.Int("stock", product.Stock),
		zap.String("by", performedBy))
	s.changed(ctx, realtime.OpInsert)
	return product, nil
}

func (s *Service) ToggleAvailability(ctx context.Context, id bson.ObjectID, performedBy string) (*models.Product, error) {
	var updated *models.Product
	err := s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.store.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		updated, err = s.store.SetAvailability(ctx, id, !current.Available)
		if err != nil {
			return err
		}
		return s.store.AppendInventoryLog(ctx, &models.InventoryLog{
			ProductID:      id,
			ProductName:    updated.Name,
			ChangeType:     models.ChangeTypeAvailability,
			QuantityBefore: updated.Stock,
			QuantityAfter:  updated.Stock,
			Available:      updated.Available,
			PerformedBy:    performedBy,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("product availability changed",
		zap.String("product_id", id.Hex()),
		zap.Bool("available", updated.Available),
		zap.String("by", performedBy))
	s.changed(ctx, realtime.OpUpdate)
	return updated, nil
}

// AdjustStock applies a signed delta. A delta that would leave negative stock
// fails with *NegativeStockError and changes nothing.
func (s *Service) AdjustStock(ctx context.Context, id bson.ObjectID, delta int, performedBy string) (*models.Product, error) {
	if delta == 0 {
		return nil, &InvalidError{Field: "delta", Message: "delta must not be zero"}
	}

	var change *store.StockChange
	err := s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		change, err = s.store.AdjustStock(ctx, id, delta)
		if err != nil {
			return err
		}
		entry := &models.InventoryLog{
			ProductID:      id,
			ProductName:    change.Product.Name,
			ChangeType:     models.ChangeTypeAdjustment,
			QuantityBefore: change.Before,
			QuantityAfter:  change.After,
			Available:      change.Product.Available,
			PerformedBy:    performedBy,
		}
		entry.CalculateQuantityChanged()
		return s.store.AppendInventoryLog(ctx, entry)
	})

	var stockErr *store.InsufficientStockError
	if errors.As(err, &stockErr) {
		name := id.Hex()
		if p, getErr := s.store.GetProduct(ctx, id); getErr == nil {
			name = p.Name
		}
		return nil, &NegativeStockError{Product: name, Stock: stockErr.Available, Delta: delta}
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock adjusted",
		zap.String("product_id", id.Hex()),
		zap.Int("before", change.Before),
		zap.Int("after", change.After),
		zap.String("by", performedBy))
	s.changed(ctx, realtime.OpUpdate)
	return change.Product, nil
}

func (s *Service) changed(ctx context.Context, op string) {
	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}
	if err := s.publisher.Publish(ctx, realtime.Change{Collection: realtime.CollectionProducts, Op: op}); err != nil {
		s.logger.Warn("failed to publish product change", zap.Error(err))
	}
}
