// Package memory is an in-process backend used by the development server and
// by tests. All state lives in maps guarded by one mutex; transactions take
// the mutex for their whole duration and roll back from a snapshot.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"ejc.kiosk/go-api/pkg/models"
	"ejc.kiosk/go-api/pkg/store"
)

type txKey struct{}

type state struct {
	products map[bson.ObjectID]models.Product
	orders   map[bson.ObjectID]models.Order
	lines    []models.OrderLine
	logs     []models.InventoryLog
	users    map[bson.ObjectID]models.User
}

type Store struct {
	mu sync.Mutex
	st state
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{st: state{
		products: make(map[bson.ObjectID]models.Product),
		orders:   make(map[bson.ObjectID]models.Order),
		users:    make(map[bson.ObjectID]models.User),
	}}
}

// lock acquires the store mutex unless ctx already belongs to a transaction
// on this store.
func (s *Store) lock(ctx context.Context) func() {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == s {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close(context.Context) error {
	return nil
}

// Products

func (s *Store) ListPurchasable(ctx context.Context) ([]models.Product, error) {
	defer s.lock(ctx)()
	out := []models.Product{}
	for _, p := range s.st.products {
		if p.IsPurchasable() {
			out = append(out, p)
		}
	}
	sortByName(out)
	return out, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	defer s.lock(ctx)()
	out := make([]models.Product, 0, len(s.st.products))
	for _, p := range s.st.products {
		out = append(out, p)
	}
	sortByName(out)
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	defer s.lock(ctx)()
	p, ok := s.st.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Product, error) {
	defer s.lock(ctx)()
	seen := make(map[bson.ObjectID]bool, len(ids))
	var out []models.Product
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := s.st.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	defer s.lock(ctx)()
	if product.ID.IsZero() {
		product.ID = bson.NewObjectID()
	}
	if _, exists := s.st.products[product.ID]; exists {
		return store.ErrDuplicate
	}
	product.SetTimestamps()
	s.st.products[product.ID] = *product
	return nil
}

func (s *Store) SetAvailability(ctx context.Context, id bson.ObjectID, available bool) (*models.Product, error) {
	defer s.lock(ctx)()
	p, ok := s.st.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Available = available
	p.UpdatedAt = time.Now()
	s.st.products[id] = p
	return &p, nil
}

func (s *Store) AdjustStock(ctx context.Context, id bson.ObjectID, delta int) (*store.StockChange, error) {
	defer s.lock(ctx)()
	p, ok := s.st.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return nil, &store.InsufficientStockError{ProductID: id, Available: p.Stock}
	}
	before := p.Stock
	p.Stock += delta
	p.UpdatedAt = time.Now()
	s.st.products[id] = p
	return &store.StockChange{Product: &p, Before: before, After: p.Stock}, nil
}

// Orders

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	defer s.lock(ctx)()
	if order.ID.IsZero() {
		order.ID = bson.NewObjectID()
	}
	if _, exists := s.st.orders[order.ID]; exists {
		return store.ErrDuplicate
	}
	if order.IdempotencyKey != "" {
		for _, o := range s.st.orders {
			if o.IdempotencyKey == order.IdempotencyKey {
				return store.ErrDuplicate
			}
		}
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
		order.UpdatedAt = order.CreatedAt
	}
	s.st.orders[order.ID] = *order
	return nil
}

func (s *Store) CreateOrderLines(ctx context.Context, lines []models.OrderLine) error {
	defer s.lock(ctx)()
	for i := range lines {
		if _, ok := s.st.orders[lines[i].OrderID]; !ok {
			return store.ErrNotFound
		}
		if lines[i].ID.IsZero() {
			lines[i].ID = bson.NewObjectID()
		}
	}
	s.st.lines = append(s.st.lines, lines...)
	return nil
}

func (s *Store) FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	defer s.lock(ctx)()
	for _, o := range s.st.orders {
		if key != "" && o.IdempotencyKey == key {
			return &o, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetOrderDetail(ctx context.Context, id bson.ObjectID) (*models.OrderDetail, error) {
	defer s.lock(ctx)()
	o, ok := s.st.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	detail := s.detail(o)
	return &detail, nil
}

func (s *Store) ListOrderDetails(ctx context.Context, status models.OrderStatus, ascending bool) ([]models.OrderDetail, error) {
	defer s.lock(ctx)()
	out := []models.OrderDetail{}
	for _, o := range s.st.orders {
		if o.Status != status {
			continue
		}
		out = append(out, s.detail(o))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if ascending {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if ascending {
			return a.ID.Hex() < b.ID.Hex()
		}
		return a.ID.Hex() > b.ID.Hex()
	})
	return out, nil
}

func (s *Store) detail(o models.Order) models.OrderDetail {
	detail := models.OrderDetail{Order: o, Lines: []models.OrderLineDetail{}}
	for _, l := range s.st.lines {
		if l.OrderID != o.ID {
			continue
		}
		line := models.OrderLineDetail{OrderLine: l}
		if p, ok := s.st.products[l.ProductID]; ok {
			line.Product = &p
		}
		detail.Lines = append(detail.Lines, line)
	}
	return detail
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id bson.ObjectID, status models.OrderStatus) error {
	defer s.lock(ctx)()
	o, ok := s.st.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	o.UpdateStatus(status)
	s.st.orders[id] = o
	return nil
}

func (s *Store) RenameOrder(ctx context.Context, id bson.ObjectID, customerName string) error {
	defer s.lock(ctx)()
	o, ok := s.st.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	o.CustomerName = customerName
	o.UpdatedAt = time.Now()
	s.st.orders[id] = o
	return nil
}

func (s *Store) DeleteOrder(ctx context.Context, id bson.ObjectID) error {
	defer s.lock(ctx)()
	if _, ok := s.st.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.st.orders, id)
	kept := s.st.lines[:0]
	for _, l := range s.st.lines {
		if l.OrderID != id {
			kept = append(kept, l)
		}
	}
	s.st.lines = kept
	return nil
}

func (s *Store) BestSellers(ctx context.Context, limit int) ([]models.BestSeller, error) {
	defer s.lock(ctx)()
	totals := make(map[bson.ObjectID]int)
	for _, l := range s.st.lines {
		totals[l.ProductID] += l.Quantity
	}
	out := []models.BestSeller{}
	for id, total := range totals {
		p, ok := s.st.products[id]
		if !ok {
			continue
		}
		out = append(out, models.BestSeller{ProductID: id, ProductName: p.Name, TotalSold: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSold != out[j].TotalSold {
			return out[i].TotalSold > out[j].TotalSold
		}
		return out[i].ProductName < out[j].ProductName
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Inventory logs and users

func (s *Store) AppendInventoryLog(ctx context.Context, entry *models.InventoryLog) error {
	defer s.lock(ctx)()
	if entry.ID.IsZero() {
		entry.ID = bson.NewObjectID()
	}
	entry.SetTimestamp()
	s.st.logs = append(s.st.logs, *entry)
	return nil
}

// InventoryLogs returns a copy of the audit trail, oldest first.
func (s *Store) InventoryLogs() []models.InventoryLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.InventoryLog, len(s.st.logs))
	copy(out, s.st.logs)
	return out
}

// OrderCount returns the number of stored orders.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

// OrderLineCount returns the number of stored order lines.
func (s *Store) OrderLineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.lines)
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	defer s.lock(ctx)()
	email := models.NormalizeEmail(user.Email)
	for _, u := range s.st.users {
		if u.Email == email {
			return store.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	user.Email = email
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	s.st.users[user.ID] = *user
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.lock(ctx)()
	email = models.NormalizeEmail(email)
	for _, u := range s.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	defer s.lock(ctx)()
	u, ok := s.st.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (st state) clone() state {
	out := state{
		products: make(map[bson.ObjectID]models.Product, len(st.products)),
		orders:   make(map[bson.ObjectID]models.Order, len(st.orders)),
		lines:    append([]models.OrderLine(nil), st.lines...),
		logs:     append([]models.InventoryLog(nil), st.logs...),
		users:    make(map[bson.ObjectID]models.User, len(st.users)),
	}
	for k, v := range st.products {
		out.products[k] = v
	}
	for k, v := range st.orders {
		out.orders[k] = v
	}
	for k, v := range st.users {
		out.users[k] = v
	}
	return out
}

func sortByName(products []models.Product) {
	sort.Slice(products, func(i, j int) bool {
		a, b := strings.ToLower(products[i].Name), strings.ToLower(products[j].Name)
		if a != b {
			return a < b
		}
		return products[i].ID.Hex() < products[j].ID.Hex()
	})
}
