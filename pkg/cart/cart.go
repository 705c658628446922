// Package cart holds the in-progress order of one kiosk session.
//
// A Cart is a plain in-memory value: it never talks to storage and it never
// checks stock. Stock is validated once, at checkout.
package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Line is one product entry of the cart. Name and UnitPrice are captured
// when the product is first added and are not refreshed afterwards.
type Line struct {
	ProductID bson.ObjectID   `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns UnitPrice * Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered list of lines with at most one line per product and
// every quantity >= 1. The zero value is an empty cart ready to use.
type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// FromLines rebuilds a cart from a snapshot. Lines for the same product are
// merged and lines with a non-positive quantity are dropped.
func FromLines(lines []Line) *Cart {
	c := New()
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		if i := c.indexOf(l.ProductID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.lines = append(c.lines, l)
	}
	return c
}

// AddItem increments the line for productID, or appends a new line with
// quantity 1.
func (c *Cart) AddItem(productID bson.ObjectID, name string, unitPrice decimal.Decimal) {
	if i := c.indexOf(productID); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, Line{
		ProductID: productID,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  1,
	})
}

// Increment adds one unit to an existing line. It reports false when the
// product is not in the cart.
func (c *Cart) Increment(productID bson.ObjectID) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.lines[i].Quantity++
	return true
}

// Decrement removes one unit, dropping the line when it reaches zero.
func (c *Cart) Decrement(productID bson.ObjectID) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.lines[i].Quantity--
	if c.lines[i].Quantity <= 0 {
		c.removeAt(i)
	}
	return true
}

// Remove deletes the line for productID regardless of its quantity.
func (c *Cart) Remove(productID bson.ObjectID) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Total is the sum of every line subtotal; zero for an empty cart.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Line returns the line for productID, if present.
func (c *Cart) Line(productID bson.ObjectID) (Line, bool) {
	if i := c.indexOf(productID); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

func (c *Cart) ProductIDs() []bson.ObjectID {
	ids := make([]bson.ObjectID, len(c.lines))
	for i, l := range c.lines {
		ids[i] = l.ProductID
	}
	return ids
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// ItemCount is the total number of units across all lines.
func (c *Cart) ItemCount() int {
	var n int
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// View is the JSON shape of a cart returned to clients.
type View struct {
	Lines     []Line          `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

func (c *Cart) View() View {
	return View{Lines: c.Lines(), Total: c.Total(), ItemCount: c.ItemCount()}
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Lines())
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*c = *FromLines(lines)
	return nil
}

func (c *Cart) indexOf(productID bson.ObjectID) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}
