package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Product represents an item sold at the kiosk
type Product struct {
	ID        bson.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name      string          `json:"name" bson:"name"`
	Price     decimal.Decimal `json:"price" bson:"price"`
	Stock     int             `json:"stock" bson:"stock"`
	Available bool            `json:"available" bson:"available"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" bson:"updated_at"`
}

// CreateProductRequest is the admin payload for registering a product
type CreateProductRequest struct {
	Name  string          `json:"name" binding:"required"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock" binding:"min=0"`
}

// AdjustStockRequest carries a signed stock delta (10 adds, -5 removes)
type AdjustStockRequest struct {
	Delta int `json:"delta"`
}

func (req *CreateProductRequest) ToProduct() *Product {
	now := time.Now()
	return &Product{
		ID:        bson.NewObjectID(),
		Name:      strings.TrimSpace(req.Name),
		Price:     req.Price,
		Stock:     req.Stock,
		Available: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsPurchasable reports whether the product may be offered in the catalog
func (p *Product) IsPurchasable() bool {
	return p.Available && p.Stock > 0
}

func (p *Product) SetTimestamps() {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// BestSeller is one row of the best-selling products ranking
type BestSeller struct {
	ProductID   bson.ObjectID `json:"product_id" bson:"_id"`
	ProductName string        `json:"product_name" bson:"product_name"`
	TotalSold   int           `json:"total_sold" bson:"total_sold"`
}
