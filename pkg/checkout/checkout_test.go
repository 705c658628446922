package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"ejc.kiosk/go-api/pkg/cart"
	"ejc.kiosk/go-api/pkg/memory"
	"ejc.kiosk/go-api/pkg/models"
	"ejc.kiosk/go-api/pkg/realtime"
	"ejc.kiosk/go-api/pkg/store"
)

var errBoom = errors.New("boom")

// faultyStore wraps the memory backend with failure injection and call counts.
type faultyStore struct {
	*memory.Store

	mu          sync.Mutex
	calls       int
	fetchErr    error
	createErr   error
	linesErr    error
	adjustErr   error
	afterFetch  func()
	blockFetch  chan struct{}
	fetchSignal chan struct{}
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: memory.NewStore()}
}

func (f *faultyStore) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *faultyStore) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *faultyStore) GetProductsByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Product, error) {
	f.count()
	if f.fetchSignal != nil {
		close(f.fetchSignal)
	}
	if f.blockFetch != nil {
		<-f.blockFetch
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	products, err := f.Store.GetProductsByIDs(ctx, ids)
	if f.afterFetch != nil {
		f.afterFetch()
	}
	return products, err
}

func (f *faultyStore) CreateOrder(ctx context.Context, order *models.Order) error {
	f.count()
	if f.createErr != nil {
		return f.createErr
	}
	return f.Store.CreateOrder(ctx, order)
}

func (f *faultyStore) CreateOrderLines(ctx context.Context, lines []models.OrderLine) error {
	f.count()
	if f.linesErr != nil {
		return f.linesErr
	}
	return f.Store.CreateOrderLines(ctx, lines)
}

func (f *faultyStore) AdjustStock(ctx context.Context, id bson.ObjectID, delta int) (*store.StockChange, error) {
	f.count()
	if f.adjustErr != nil {
		return nil, f.adjustErr
	}
	return f.Store.AdjustStock(ctx, id, delta)
}

func (f *faultyStore) FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	f.count()
	return f.Store.FindOrderByIdempotencyKey(ctx, key)
}

type countingInvalidator struct {
	mu sync.Mutex
	n  int
}

func (c *countingInvalidator) Invalidate(context.Context) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []realtime.Change
}

func (p *recordingPublisher) Publish(_ context.Context, change realtime.Change) error {
	p.mu.Lock()
	p.changes = append(p.changes, change)
	p.mu.Unlock()
	return nil
}

func addProduct(t *testing.T, s *faultyStore, name string, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock, Available: true}
	require.NoError(t, s.Store.CreateProduct(context.Background(), p))
	return p
}

func stockOf(t *testing.T, s *faultyStore, id bson.ObjectID) int {
	t.Helper()
	p, err := s.Store.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

// cartOf builds a cart with qty units of each product, in order.
func cartOf(products []*models.Product, qty ...int) *cart.Cart {
	c := cart.New()
	for i, p := range products {
		for n := 0; n < qty[i]; n++ {
			c.AddItem(p.ID, p.Name, p.Price)
		}
	}
	return c
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, kind, cerr.Kind, "error: %v", err)
	return cerr
}

func TestSubmitRejectsInvalidInputWithoutBackendCalls(t *testing.T) {
	s := newFaultyStore()
	a := addProduct(t, s, "A", "5.00", 5)
	o := New(Deps{Store: s})

	_, err := o.Submit(context.Background(), "   ", cartOf([]*models.Product{a}, 1), "")
	cerr := requireKind(t, err, KindInvalidInput)
	assert.Equal(t, fieldCustomerName, cerr.Field)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = o.Submit(context.Background(), "Ana", cart.New(), "")
	cerr = requireKind(t, err, KindInvalidInput)
	assert.Equal(t, fieldCart, cerr.Field)

	_, err = o.Submit(context.Background(), "Ana", nil, "")
	requireKind(t, err, KindInvalidInput)

	assert.Equal(t, 0, s.Calls())
	assert.Equal(t, Idle, o.State())
}

func TestSubmitFailsOnFirstShortLine(t *testing.T) {
	s := newFaultyStore()
	a := addProduct(t, s, "A", "5.00", 5)
	b := addProduct(t, s, "B", "3.00", 0)
	c := cartOf([]*models.Product{a, b}, 2, 1)
	require.True(t, c.Total().Equal(decimal.RequireFromString("13.00")))

	o := New(Deps{Store: s})
	_, err := o.Submit(context.Background(), "Ana", c, "")

	cerr := requireKind(t, err, KindInsufficientStock)
	assert.Equal(t, "B", cerr.Product)
	assert.Equal(t, 0, cerr.Available)
	assert.Equal(t, 0, s.OrderCount())
	assert.Equal(t, 5, stockOf(t, s, a.ID))
	assert.Equal(t, 2, c.Len(), "cart is kept on failure")
	assert.Equal(t, Failed, o.State())
	assert.Equal(t, cerr, o.LastError())
}

func TestSubmitSucceeds(t *testing.T) {
	s := newFaultyStore()
	a := addProduct(t, s, "A", "5.00", 5)
	b := addProduct(t, s, "B", "3.00", 2)
	c := cartOf([]*models.Product{a, b}, 2, 1)

	invalidator := &countingInvalidator{}
	publisher := &recordingPublisher{}
	o := New(Deps{Store: s, Catalog: invalidator, Publisher: publisher})

	order, err := o.Submit(context.Background(), "  Ana  ", c, "")
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, "Ana", order.CustomerName)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 1, s.OrderCount())
	assert.Equal(t, 2, s.OrderLineCount())
	assert.Equal(t, 3, stockOf(t, s, a.ID))
	assert.Equal(t, 1, stockOf(t, s, b.ID))
	assert.True(t, c.IsEmpty())
	assert.Equal(t, Succeeded, o.State())
	assert.Nil(t, o.LastError())

	assert.Equal(t, 1, invalidator.n)
	require.Len(t, publisher.changes, 2)
	assert.Equal(t, realtime.CollectionOrders, publisher.changes[0].Collection)
	assert.Equal(t, realtime.CollectionProducts, publisher.changes[1].Collection)

	pending, err := s.ListOrderDetails(context.Background(), models.OrderStatusPending, true)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 3, pending[0].GetItemCount())
}

func TestSubmitTransitions(t *testing.T) {
	s := newFaultyStore()
	a := addProduct(t, s, "A", "1.00", 1)
	o := New(Deps{Store: s})

	var seen []State
	o.onTransition = func(_, to State) { seen = append(seen, to) }

	_, err := o.Submit(context.Background(), "Ana", cartOf([]*models.Product{a}, 1), "")
	require.NoError(t, err)
	assert.Equal(t, []State{ValidatingInput, CheckingStock, CreatingOrder, WritingOrderLines, DecrementingStock, Succeeded}, seen)
}

func TestSubmitReportsMissingProductByLineName(t *testing.T) {
	s := newFaultyStore()
	a := addProduct(t, s, "A", "1.00", 3)
	c := cartOf([]*models.Product{a}, 1)
	c.AddItem(bson.NewObjectID(), "Removed", decimal.NewFromInt(2))

	_, err := New(Deps{Store: s}).Submit(context.Background(), "Ana", c, "")
	cerr := requireKind(t, err, KindInsufficientStock)
	assert.Equal(t, "Removed", cerr.Product)
	assert.Equal(t, 0, cerr.Available)
}

func TestSubmitBackendFailures(t *testing.T) {
	cases := []struct {
		name   string
		inject func(*faultyStore)
		kind   Kind
	}{
		{"fetch", func(s *faultyStore) { s.fetchErr = errBoom }, KindBackendUnavailable},
		{"create order", func(s *faultyStore) { s.createErr = errBoom }, KindOrderCreateFailed},
		{"order lines", func(s *faultyStore) { s.linesErr = errBoom }, KindOrderLinesFailed},
		{"stock update", func(s *faultyStore) { s.adjustErr = errBoom }, KindStockUpdateFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newFaultyStore()
			a := addProduct(t, s, "A", "5.00", 5)
			b := addProduct(t, s, "B", "3.00", 2)
			tc.inject(s)
			o := New(Deps{Store: s})

			_, err := o.Submit(context.Background(), "Ana", cartOf([]*models.Product{a, b}, 2, 1), "")
			requireKind(t, err, tc.kind)
			assert.ErrorIs(t, err, errBoom)

			assert.Equal(t, 0, s.OrderCount(), "no orphan order")
			assert.Equal(t, 0, s.OrderLineCount())
			assert.Equal(t, 5, stockOf(t, s, a.ID))
			assert.Equal(t, 2, stockOf(t, s, b.ID))
			assert.Equal(t, Failed, o.State())
		})
	}
}

func TestSubmitLosesRaceAfterCheck(t *testing.T) {
	s := newFaultyStore()
	a := addProduct(t, s, "A", "5.00", 2)
	b := addProduct(t, s, "B", "3.00", 1)

	// Another kiosk takes the last B between the check and the write.
	s.afterFetch = func() {
		_, err := s.Store.AdjustStock(context.Background(), b.ID, -1)
		require.NoError(t, err)
	}

	_, err := New(Deps{Store: s}).Submit(context.Background(), "Ana", cartOf([]*models.Product{a, b}, 1, 1), "")
	cerr := requireKind(t, err, KindInsufficientStock)
	assert.Equal(t, "B", cerr.Product)
	assert.Equal(t, 0, cerr.Available)

	assert.Equal(t, 0, s.OrderCount())
	assert.Equal(t, 2, stockOf(t, s, a.ID), "decrement of A rolled back")
}

func TestSubmitIsIdempotent(t *testing.T) {
	s := newFaultyStore()
	a := addProduct(t, s, "A", "5.00", 5)
	o := New(Deps{Store: s})

	first, err := o.Submit(context.Background(), "Ana", cartOf([]*models.Product{a}, 2), "key-1")
	require.NoError(t, err)

	retry := cartOf([]*models.Product{a}, 2)
	second, err := o.Submit(context.Background(), "Ana", retry, "key-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, s.OrderCount())
	assert.Equal(t, 3, stockOf(t, s, a.ID))
	assert.True(t, retry.IsEmpty())
}

func TestSubmitReplaysWithEmptiedCart(t *testing.T) {
	s := newFaultyStore()
	a := addProduct(t, s, "A", "5.00", 5)
	o := New(Deps{Store: s})

	c := cartOf([]*models.Product{a}, 2)
	first, err := o.Submit(context.Background(), "Ana", c, "key-1")
	require.NoError(t, err)
	require.True(t, c.IsEmpty())

	second, err := o.Submit(context.Background(), "Ana", c, "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, Succeeded, o.State())
	assert.Nil(t, o.LastError())
	assert.Equal(t, 1, s.OrderCount())
	assert.Equal(t, 3, stockOf(t, s, a.ID))

	_, err = o.Submit(context.Background(), "Ana", c, "key-2")
	cerr := requireKind(t, err, KindInvalidInput)
	assert.Equal(t, fieldCart, cerr.Field, "unknown key with an empty cart is still rejected")
}

func TestSubmitIsNotReentrant(t *testing.T) {
	s := newFaultyStore()
	a := addProduct(t, s, "A", "5.00", 5)
	s.blockFetch = make(chan struct{})
	s.fetchSignal = make(chan struct{})
	o := New(Deps{Store: s})

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), "Ana", cartOf([]*models.Product{a}, 1), "")
		done <- err
	}()
	<-s.fetchSignal
	assert.Equal(t, CheckingStock, o.State())

	_, err := o.Submit(context.Background(), "Bia", cartOf([]*models.Product{a}, 1), "")
	requireKind(t, err, KindInProgress)
	assert.ErrorIs(t, err, ErrInProgress)
	assert.Equal(t, CheckingStock, o.State(), "rejected submit leaves state alone")

	close(s.blockFetch)
	require.NoError(t, <-done)
	assert.Equal(t, 1, s.OrderCount())
	assert.Equal(t, 4, stockOf(t, s, a.ID))
}

func TestConcurrentSessionsNeverOversell(t *testing.T) {
	s := newFaultyStore()
	last := addProduct(t, s, "Último pastel", "6.00", 1)
	registry := NewRegistry(Deps{Store: s}, nil)

	const sessions = 20
	var wg sync.WaitGroup
	results := make(chan error, sessions)
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := registry.Submit(context.Background(), sessionName(i), "Cliente", cartOf([]*models.Product{last}, 1), "")
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		requireKind(t, err, KindInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, stockOf(t, s, last.ID))
	assert.Equal(t, 1, s.OrderCount())
	assert.Equal(t, sessions, registry.Len())
}

func sessionName(i int) string {
	return "session-" + string(rune('a'+i))
}

func TestRegistryHonoursLocker(t *testing.T) {
	s := newFaultyStore()
	a := addProduct(t, s, "A", "5.00", 5)
	locker := memory.NewLocker()
	registry := NewRegistry(Deps{Store: s}, locker)
	ctx := context.Background()

	release, ok, err := locker.TryLock(ctx, "checkout:s1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = registry.Submit(ctx, "s1", "Ana", cartOf([]*models.Product{a}, 1), "")
	requireKind(t, err, KindInProgress)

	require.NoError(t, release(ctx))
	_, err = registry.Submit(ctx, "s1", "Ana", cartOf([]*models.Product{a}, 1), "")
	require.NoError(t, err)

	_, ok, err = locker.TryLock(ctx, "checkout:s1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock released after submit")
}

func TestRegistrySweep(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	registry := NewRegistry(Deps{Store: newFaultyStore()}, nil)
	registry.now = func() time.Time { return now }

	first := registry.For("s1")
	assert.Same(t, first, registry.For("s1"))
	registry.For("s2")

	now = now.Add(time.Hour)
	registry.For("s2")

	assert.Equal(t, 1, registry.Sweep(30*time.Minute))
	assert.Equal(t, 1, registry.Len())
	assert.NotSame(t, first, registry.For("s1"))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "insufficient stock for B: 0 available", insufficientStock("B", 0).Error())
	assert.Equal(t, "customer name is required", invalidInput(fieldCustomerName).Error())
	assert.Equal(t, "cart is empty", invalidInput(fieldCart).Error())
	assert.Equal(t, "failed to write order lines: boom", failure(KindOrderLinesFailed, errBoom).Error())
	assert.False(t, errors.Is(insufficientStock("B", 0), ErrInvalidInput))
	assert.Equal(t, "decrementing_stock", DecrementingStock.String())
	assert.True(t, Failed.Terminal())
	assert.False(t, CreatingOrder.Terminal())
}
