package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusDelivered OrderStatus = "delivered"
)

func (s OrderStatus) IsValid() bool {
	return s == OrderStatusPending || s == OrderStatusDelivered
}

// Order represents a committed customer purchase
type Order struct {
	ID             bson.ObjectID `json:"id" bson:"_id,omitempty"`
	CustomerName   string        `json:"customer_name" bson:"customer_name"`
	Status         OrderStatus   `json:"status" bson:"status"`
	IdempotencyKey string        `json:"idempotency_key,omitempty" bson:"idempotency_key,omitempty"`
	CreatedAt      time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" bson:"updated_at"`
}

// OrderLine is one product/quantity pair of an order
type OrderLine struct {
	ID        bson.ObjectID `json:"id" bson:"_id,omitempty"`
	OrderID   bson.ObjectID `json:"order_id" bson:"order_id"`
	ProductID bson.ObjectID `json:"product_id" bson:"product_id"`
	Quantity  int           `json:"quantity" bson:"quantity"`
}

// OrderDetail composes an order with its lines and their products.
type OrderDetail struct {
	Order `bson:",inline"`
	Lines []OrderLineDetail `json:"lines" bson:"lines"`
}

// OrderLineDetail is an order line joined with its product. Product is nil
// when the product no longer exists.
type OrderLineDetail struct {
	OrderLine `bson:",inline"`
	Product   *Product `json:"product,omitempty" bson:"product,omitempty"`
}

// UpdateOrderRequest renames the customer of an order
type UpdateOrderRequest struct {
	CustomerName string `json:"customer_name" binding:"required"`
}

func NewOrder(customerName, idempotencyKey string) *Order {
	now := time.Now()
	return &Order{
		ID:             bson.NewObjectID(),
		CustomerName:   customerName,
		Status:         OrderStatusPending,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// UpdateStatus updates the order status and its modification time
func (o *Order) UpdateStatus(newStatus OrderStatus) {
	o.Status = newStatus
	o.UpdatedAt = time.Now()
}

// Subtotal is quantity times the current product price, or false when the
// product has been removed.
func (l *OrderLineDetail) Subtotal() (decimal.Decimal, bool) {
	if l.Product == nil {
		return decimal.Zero, false
	}
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity))), true
}

// GetItemCount returns the total number of units in the order
func (o *OrderDetail) GetItemCount() int {
	var count int
	for _, line := range o.Lines {
		count += line.Quantity
	}
	return count
}

// GetTotal sums the subtotals of lines whose product still exists
func (o *OrderDetail) GetTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Lines {
		if sub, ok := o.Lines[i].Subtotal(); ok {
			total = total.Add(sub)
		}
	}
	return total
}
