package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	ChangeTypeInitial      = "initial"
	ChangeTypeAdjustment   = "adjustment"
	ChangeTypeAvailability = "availability"
)

// InventoryLog represents a record of stock or availability changes for audit trail
type InventoryLog struct {
	ID              bson.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID       bson.ObjectID `bson:"product_id" json:"product_id"`
	ProductName     string        `bson:"product_name" json:"product_name"`
	ChangeType      string        `bson:"change_type" json:"change_type"`
	QuantityBefore  int           `bson:"quantity_before" json:"quantity_before"`
	QuantityAfter   int           `bson:"quantity_after" json:"quantity_after"`
	QuantityChanged int           `bson:"quantity_changed" json:"quantity_changed"` // Can be positive or negative
	Available       bool          `bson:"available" json:"available"`
	PerformedBy     string        `bson:"performed_by" json:"performed_by"` // User email or system name
	CreatedAt       time.Time     `bson:"created_at" json:"created_at"`
}

// SetTimestamp sets the creation timestamp
func (il *InventoryLog) SetTimestamp() {
	if il.CreatedAt.IsZero() {
		il.CreatedAt = time.Now()
	}
}

// CalculateQuantityChanged calculates the difference between before and after
func (il *InventoryLog) CalculateQuantityChanged() {
	il.QuantityChanged = il.QuantityAfter - il.QuantityBefore
}

// GetChangeDescription returns a human-readable description of the change
func (il *InventoryLog) GetChangeDescription() string {
	switch {
	case il.ChangeType == ChangeTypeAvailability && il.Available:
		return "made available"
	case il.ChangeType == ChangeTypeAvailability:
		return "made unavailable"
	case il.QuantityChanged > 0:
		return fmt.Sprintf("increased by %d units", il.QuantityChanged)
	case il.QuantityChanged < 0:
		return fmt.Sprintf("decreased by %d units", -il.QuantityChanged)
	default:
		return "unchanged"
	}
}
