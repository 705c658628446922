// Package checkout turns a session cart into a committed order.
//
// A submit walks Idle → ValidatingInput → CheckingStock → CreatingOrder →
// WritingOrderLines → DecrementingStock → Succeeded, or ends in Failed.
// The order header, its lines and the stock decrements are written in one
// storage transaction, and each decrement is conditional on stock >= qty,
// so a submit either commits completely or leaves no trace.
package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/cart"
	"ejc.kiosk/go-api/pkg/global"
	"ejc.kiosk/go-api/pkg/models"
	"ejc.kiosk/go-api/pkg/realtime"
	"ejc.kiosk/go-api/pkg/store"
)

const tracerName = "ejc.kiosk/go-api/pkg/checkout"

type State int

const (
	Idle State = iota
	ValidatingInput
	CheckingStock
	CreatingOrder
	WritingOrderLines
	DecrementingStock
	Succeeded
	Failed
)

var stateNames = [...]string{
	Idle:              "idle",
	ValidatingInput:   "validating_input",
	CheckingStock:     "checking_stock",
	CreatingOrder:     "creating_order",
	WritingOrderLines: "writing_order_lines",
	DecrementingStock: "decrementing_stock",
	Succeeded:         "succeeded",
	Failed:            "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether a new submit may start from s.
func (s State) Terminal() bool {
	return s == Idle || s == Succeeded || s == Failed
}

// Storage is what a checkout needs from the backend.
type Storage interface {
	store.Transactor
	GetProductsByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Product, error)
	AdjustStock(ctx context.Context, id bson.ObjectID, delta int) (*store.StockChange, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderLines(ctx context.Context, lines []models.OrderLine) error
	FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
}

// CatalogInvalidator is told when stock changed.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context)
}

type Deps struct {
	Store     Storage
	Catalog   CatalogInvalidator
	Publisher realtime.Publisher
	Logger    *zap.Logger
	Tracer    trace.Tracer
}

// Orchestrator runs one session's checkouts. It is not re-entrant: a Submit
// while another is running fails with KindInProgress.
type Orchestrator struct {
	deps   Deps
	logger *zap.Logger
	tracer trace.Tracer

	mu      sync.Mutex
	running bool
	state   State
	lastErr *Error

	// observed for every transition, used by tests
	onTransition func(from, to State)
}

func New(deps Deps) *Orchestrator {
	if deps.Publisher == nil {
		deps.Publisher = realtime.Nop{}
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Orchestrator{deps: deps, logger: global.OrNop(deps.Logger), tracer: tracer}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastError is the failure of the most recent submit, nil after a success.
func (o *Orchestrator) LastError() *Error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Submit places an order for the cart under customerName. On success the
// cart is cleared in place. A non-empty idempotencyKey makes the submit safe
// to repeat: an order already committed with that key is returned as is.
func (o *Orchestrator) Submit(ctx context.Context, customerName string, c *cart.Cart, idempotencyKey string) (*models.Order, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, failure(KindInProgress, nil)
	}
	o.running = true
	o.lastErr = nil
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	ctx, span := o.tracer.Start(ctx, "checkout.Submit", trace.WithAttributes(
		attribute.Int("cart.lines", lineCount(c)),
		attribute.Bool("checkout.idempotent", idempotencyKey != ""),
	))
	defer span.End()

	order, cerr := o.run(ctx, span, strings.TrimSpace(customerName), c, idempotencyKey)
	if cerr != nil {
		span.SetStatus(codes.Error, cerr.Error())
		span.SetAttributes(attribute.String("checkout.failure", string(cerr.Kind)))
		o.logger.Info("checkout failed",
			zap.String("kind", string(cerr.Kind)),
			zap.String("product", cerr.Product),
			zap.Int("available", cerr.Available),
			zap.Error(cerr.Err))

		o.mu.Lock()
		o.lastErr = cerr
		o.mu.Unlock()
		return nil, cerr
	}

	span.SetAttributes(attribute.String("order.id", order.ID.Hex()))
	return order, nil
}

func (o *Orchestrator) run(ctx context.Context, span trace.Span, name string, c *cart.Cart, key string) (*models.Order, *Error) {
	o.transition(span, ValidatingInput)
	if name == "" {
		o.transition(span, Idle)
		return nil, invalidInput(fieldCustomerName)
	}

	// a retry after a committed order may arrive with the cart already emptied
	if key != "" {
		existing, err := o.deps.Store.FindOrderByIdempotencyKey(ctx, key)
		switch {
		case err == nil:
			o.logger.Info("checkout replayed", zap.String("order_id", existing.ID.Hex()))
			if c != nil {
				c.Clear()
			}
			o.transition(span, Succeeded)
			return existing, nil
		case !errors.Is(err, store.ErrNotFound):
			return nil, o.fail(span, failure(KindBackendUnavailable, err))
		}
	}

	if c == nil || c.IsEmpty() {
		o.transition(span, Idle)
		return nil, invalidInput(fieldCart)
	}

	o.transition(span, CheckingStock)
	lines := c.Lines()
	products, err := o.deps.Store.GetProductsByIDs(ctx, c.ProductIDs())
	if err != nil {
		return nil, o.fail(span, failure(KindBackendUnavailable, err))
	}
	if cerr := checkStock(lines, products); cerr != nil {
		return nil, o.fail(span, cerr)
	}

	names := make(map[bson.ObjectID]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	var order *models.Order
	err = o.deps.Store.WithinTransaction(ctx, func(ctx context.Context) error {
		o.transition(span, CreatingOrder)
		order = models.NewOrder(name, key)
		if err := o.deps.Store.CreateOrder(ctx, order); err != nil {
			if errors.Is(err, store.ErrDuplicate) && key != "" {
				return errReplay
			}
			return failure(KindOrderCreateFailed, err)
		}

		o.transition(span, WritingOrderLines)
		orderLines := make([]models.OrderLine, len(lines))
		for i, l := range lines {
			orderLines[i] = models.OrderLine{OrderID: order.ID, ProductID: l.ProductID, Quantity: l.Quantity}
		}
		if err := o.deps.Store.CreateOrderLines(ctx, orderLines); err != nil {
			return failure(KindOrderLinesFailed, err)
		}

		o.transition(span, DecrementingStock)
		for _, l := range lines {
			if _, err := o.deps.Store.AdjustStock(ctx, l.ProductID, -l.Quantity); err != nil {
				return decrementError(l, names[l.ProductID], err)
			}
		}
		return nil
	})

	if errors.Is(err, errReplay) {
		existing, findErr := o.deps.Store.FindOrderByIdempotencyKey(ctx, key)
		if findErr != nil {
			return nil, o.fail(span, failure(KindBackendUnavailable, findErr))
		}
		order, err = existing, nil
	}
	if err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			return nil, o.fail(span, cerr)
		}
		// the transaction itself could not start or commit
		return nil, o.fail(span, failure(KindBackendUnavailable, err))
	}

	c.Clear()
	o.transition(span, Succeeded)
	o.afterCommit(ctx, order)
	return order, nil
}

var errReplay = errors.New("idempotency key already committed")

// checkStock is an advisory pass over the cart in line order; the
// conditional decrement is what actually guards stock.
func checkStock(lines []cart.Line, products []models.Product) *Error {
	byID := make(map[bson.ObjectID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return insufficientStock(l.Name, 0)
		}
		if p.Stock < l.Quantity {
			return insufficientStock(p.Name, p.Stock)
		}
	}
	return nil
}

func decrementError(l cart.Line, productName string, err error) *Error {
	if productName == "" {
		productName = l.Name
	}
	var stockErr *store.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return insufficientStock(productName, stockErr.Available)
	case errors.Is(err, store.ErrNotFound):
		return insufficientStock(productName, 0)
	default:
		return failure(KindStockUpdateFailed, err)
	}
}

func (o *Orchestrator) afterCommit(ctx context.Context, order *models.Order) {
	o.logger.Info("checkout succeeded",
		zap.String("order_id", order.ID.Hex()),
		zap.String("customer_name", order.CustomerName))

	if o.deps.Catalog != nil {
		o.deps.Catalog.Invalidate(ctx)
	}
	for _, change := range []realtime.Change{
		{Collection: realtime.CollectionOrders, Op: realtime.OpInsert},
		{Collection: realtime.CollectionProducts, Op: realtime.OpUpdate},
	} {
		if err := o.deps.Publisher.Publish(ctx, change); err != nil {
			o.logger.Warn("failed to publish change",
				zap.String("collection", change.Collection),
				zap.Error(err))
		}
	}
}

func (o *Orchestrator) fail(span trace.Span, cerr *Error) *Error {
	o.transition(span, Failed)
	return cerr
}

func (o *Orchestrator) transition(span trace.Span, to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	hook := o.onTransition
	o.mu.Unlock()

	span.AddEvent("state", trace.WithAttributes(attribute.String("checkout.state", to.String())))
	if hook != nil {
		hook(from, to)
	}
}

func lineCount(c *cart.Cart) int {
	if c == nil {
		return 0
	}
	return c.Len()
}
