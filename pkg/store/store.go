// Package store declares the storage contract shared by the MongoDB and
// in-memory backends.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"ejc.kiosk/go-api/pkg/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicate         = errors.New("duplicate record")
)

// InsufficientStockError is returned when a conditional stock update would
// drive stock below zero. Available is the stock observed at that moment.
type InsufficientStockError struct {
	ProductID bson.ObjectID
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available", e.ProductID.Hex(), e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// StockChange describes a successful conditional stock update.
type StockChange struct {
	Product *models.Product
	Before  int
	After   int
}

// Products covers catalog reads and admin writes.
type Products interface {
	// ListPurchasable returns available products with stock > 0 by name.
	ListPurchasable(ctx context.Context) ([]models.Product, error)
	// ListProducts returns every product by name.
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id bson.ObjectID) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	SetAvailability(ctx context.Context, id bson.ObjectID, available bool) (*models.Product, error)
	// AdjustStock applies delta atomically, only when stock+delta >= 0.
	// It returns *InsufficientStockError otherwise and leaves stock unchanged.
	AdjustStock(ctx context.Context, id bson.ObjectID, delta int) (*StockChange, error)
}

// Orders covers order writes and the composed order/line/product view.
type Orders interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderLines(ctx context.Context, lines []models.OrderLine) error
	FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	ListOrderDetails(ctx context.Context, status models.OrderStatus, ascending bool) ([]models.OrderDetail, error)
	GetOrderDetail(ctx context.Context, id bson.ObjectID) (*models.OrderDetail, error)
	UpdateOrderStatus(ctx context.Context, id bson.ObjectID, status models.OrderStatus) error
	RenameOrder(ctx context.Context, id bson.ObjectID, customerName string) error
	// DeleteOrder removes the order together with its lines.
	DeleteOrder(ctx context.Context, id bson.ObjectID) error
	// BestSellers ranks products by total quantity ordered. Lines whose
	// product no longer exists are skipped.
	BestSellers(ctx context.Context, limit int) ([]models.BestSeller, error)
}

type InventoryLogs interface {
	AppendInventoryLog(ctx context.Context, entry *models.InventoryLog) error
}

type Users interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
}

// Transactor runs fn atomically. Store calls made with the ctx passed to fn
// join the transaction; any error returned by fn rolls everything back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store is the full backend used by the service.
type Store interface {
	Products
	Orders
	InventoryLogs
	Users
	Transactor
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
