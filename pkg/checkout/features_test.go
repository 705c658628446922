package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"ejc.kiosk/go-api/pkg/cart"
	"ejc.kiosk/go-api/pkg/models"
)

type checkoutFeature struct {
	store    *faultyStore
	products map[string]*models.Product
	cart     *cart.Cart
	order    *models.Order
	err      error
	baseline int
}

func (f *checkoutFeature) reset() {
	f.store = newFaultyStore()
	f.products = map[string]*models.Product{}
	f.cart = cart.New()
	f.order = nil
	f.err = nil
	f.baseline = 0
}

func (f *checkoutFeature) theCatalogHasProducts(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue // header
		}
		price, err := decimal.NewFromString(row.Cells[1].Value)
		if err != nil {
			return err
		}
		stock, err := strconv.Atoi(row.Cells[2].Value)
		if err != nil {
			return err
		}
		p := &models.Product{Name: row.Cells[0].Value, Price: price, Stock: stock, Available: true}
		if err := f.store.Store.CreateProduct(context.Background(), p); err != nil {
			return err
		}
		f.products[p.Name] = p
	}
	return nil
}

func (f *checkoutFeature) product(name string) (*models.Product, error) {
	p, ok := f.products[name]
	if !ok {
		return nil, fmt.Errorf("unknown product %q", name)
	}
	return p, nil
}

func (f *checkoutFeature) theStockOfIsSetTo(name string, stock int) error {
	p, err := f.product(name)
	if err != nil {
		return err
	}
	current, err := f.store.Store.GetProduct(context.Background(), p.ID)
	if err != nil {
		return err
	}
	_, err = f.store.Store.AdjustStock(context.Background(), p.ID, stock-current.Stock)
	return err
}

func (f *checkoutFeature) theCartHolds(qty int, name string) error {
	p, err := f.product(name)
	if err != nil {
		return err
	}
	for i := 0; i < qty; i++ {
		f.cart.AddItem(p.ID, p.Name, p.Price)
	}
	return nil
}

func (f *checkoutFeature) orderLineWritesFail() error {
	f.store.linesErr = errors.New("order_lines unavailable")
	return nil
}

func (f *checkoutFeature) checksOutWithKey(name, key string) error {
	f.baseline = f.store.Calls()
	f.order, f.err = New(Deps{Store: f.store}).Submit(context.Background(), name, f.cart, key)
	return nil
}

func (f *checkoutFeature) checksOut(name string) error {
	return f.checksOutWithKey(name, "")
}

func (f *checkoutFeature) theCheckoutSucceeds() error {
	if f.err != nil {
		return fmt.Errorf("expected success, got %v", f.err)
	}
	if f.order == nil {
		return errors.New("expected an order")
	}
	return nil
}

func (f *checkoutFeature) theCheckoutFailsWith(kind string) error {
	var cerr *Error
	if !errors.As(f.err, &cerr) {
		return fmt.Errorf("expected checkout error, got %v", f.err)
	}
	if string(cerr.Kind) != kind {
		return fmt.Errorf("expected %s, got %s", kind, cerr.Kind)
	}
	return nil
}

func (f *checkoutFeature) theCheckoutFailsWithInsufficientStock(name string, available int) error {
	if err := f.theCheckoutFailsWith(string(KindInsufficientStock)); err != nil {
		return err
	}
	cerr := f.err.(*Error)
	if cerr.Product != name || cerr.Available != available {
		return fmt.Errorf("expected %s/%d, got %s/%d", name, available, cerr.Product, cerr.Available)
	}
	return nil
}

func (f *checkoutFeature) noBackendCallWasMade() error {
	if calls := f.store.Calls() - f.baseline; calls != 0 {
		return fmt.Errorf("expected no backend call, got %d", calls)
	}
	return nil
}

func (f *checkoutFeature) theCartTotalIs(total string) error {
	want, err := decimal.NewFromString(total)
	if err != nil {
		return err
	}
	if !f.cart.Total().Equal(want) {
		return fmt.Errorf("expected total %s, got %s", want, f.cart.Total())
	}
	return nil
}

func (f *checkoutFeature) thereAreOrders(n int) error {
	if got := f.store.OrderCount(); got != n {
		return fmt.Errorf("expected %d orders, got %d", n, got)
	}
	return nil
}

func (f *checkoutFeature) thereAreOrdersWithLines(n, lines int) error {
	if err := f.thereAreOrders(n); err != nil {
		return err
	}
	if got := f.store.OrderLineCount(); got != lines {
		return fmt.Errorf("expected %d order lines, got %d", lines, got)
	}
	return nil
}

func (f *checkoutFeature) theStockOfIs(name string, stock int) error {
	p, err := f.product(name)
	if err != nil {
		return err
	}
	current, err := f.store.Store.GetProduct(context.Background(), p.ID)
	if err != nil {
		return err
	}
	if current.Stock != stock {
		return fmt.Errorf("expected stock of %s to be %d, got %d", name, stock, current.Stock)
	}
	return nil
}

func (f *checkoutFeature) theCartIsEmpty() error {
	if !f.cart.IsEmpty() {
		return fmt.Errorf("expected empty cart, got %d lines", f.cart.Len())
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	f := &checkoutFeature{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		f.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the catalog has products:$`, f.theCatalogHasProducts)
	ctx.Step(`^the stock of "([^"]*)" is set to (\d+)$`, f.theStockOfIsSetTo)
	ctx.Step(`^the cart holds (\d+) of "([^"]*)"$`, f.theCartHolds)
	ctx.Step(`^order line writes fail$`, f.orderLineWritesFail)

	// When steps
	ctx.Step(`^"([^"]*)" checks out$`, f.checksOut)
	ctx.Step(`^"([^"]*)" checks out with key "([^"]*)"$`, f.checksOutWithKey)

	// Then steps
	ctx.Step(`^the checkout succeeds$`, f.theCheckoutSucceeds)
	ctx.Step(`^the checkout fails with "([^"]*)"$`, f.theCheckoutFailsWith)
	ctx.Step(`^the checkout fails with insufficient stock for "([^"]*)" with (\d+) available$`, f.theCheckoutFailsWithInsufficientStock)
	ctx.Step(`^no backend call was made$`, f.noBackendCallWasMade)
	ctx.Step(`^the cart total is ([\d.]+)$`, f.theCartTotalIs)
	ctx.Step(`^there are (\d+) orders$`, f.thereAreOrders)
	ctx.Step(`^the stock of "([^"]*)" is (\d+)$`, f.theStockOfIs)
	ctx.Step(`^there are (\d+) orders with (\d+) lines$`, f.thereAreOrdersWithLines)
	ctx.Step(`^the cart is empty$`, f.theCartIsEmpty)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
