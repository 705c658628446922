package report

import (
	"bytes"
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"ejc.kiosk/go-api/pkg/memory"
	"ejc.kiosk/go-api/pkg/models"
)

type fixture struct {
	store  *memory.Store
	pastel *models.Product
	cafe   *models.Product
}

func (f *fixture) order(t *testing.T, name string, status models.OrderStatus, at time.Time, lines ...models.OrderLine) {
	t.Helper()
	ctx := context.Background()
	order := models.NewOrder(name, "")
	order.Status = status
	order.CreatedAt, order.UpdatedAt = at, at
	require.NoError(t, f.store.CreateOrder(ctx, order))
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	require.NoError(t, f.store.CreateOrderLines(ctx, lines))
}

func line(productID bson.ObjectID, qty int) models.OrderLine {
	return models.OrderLine{ProductID: productID, Quantity: qty}
}

func newFixture(t *testing.T) (*fixture, *Service) {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: memory.NewStore()}
	f.pastel = &models.Product{Name: "Pastel", Price: decimal.RequireFromString("6.00"), Stock: 20, Available: true}
	f.cafe = &models.Product{Name: "Café", Price: decimal.RequireFromString("3.50"), Stock: 20, Available: true}
	require.NoError(t, f.store.CreateProduct(ctx, f.pastel))
	require.NoError(t, f.store.CreateProduct(ctx, f.cafe))
	removed := bson.NewObjectID()

	delivered := models.OrderStatusDelivered
	f.order(t, "Ana", delivered, time.Date(2025, 3, 1, 21, 15, 30, 0, time.UTC), line(f.pastel.ID, 2), line(f.cafe.ID, 1))
	f.order(t, "Eva", delivered, time.Date(2025, 3, 1, 21, 50, 0, 0, time.UTC), line(f.pastel.ID, 1))
	f.order(t, `Bia "Bê"`, delivered, time.Date(2025, 3, 1, 22, 5, 0, 0, time.UTC), line(f.pastel.ID, 1), line(removed, 3))
	f.order(t, "Caio", delivered, time.Date(2025, 3, 2, 2, 40, 0, 0, time.UTC), line(f.cafe.ID, 2))
	f.order(t, "Duda", models.OrderStatusPending, time.Date(2025, 3, 2, 3, 0, 0, 0, time.UTC), line(f.pastel.ID, 5))

	loc, err := time.LoadLocation("America/Fortaleza")
	require.NoError(t, err)
	svc := NewService(f.store, loc, nil)
	svc.now = func() time.Time { return time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC) }
	return f, svc
}

func TestSummary(t *testing.T) {
	f, svc := newFixture(t)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.Revenue.Equal(decimal.RequireFromString("34.50")), "revenue %s", summary.Revenue)
	assert.Equal(t, "R$ 34,50", summary.RevenueLabel)
	assert.Equal(t, 4, summary.DeliveredOrders)
	assert.Equal(t, 7, summary.ItemsSold)
	assert.Equal(t, 1, summary.SkippedLines)

	require.Len(t, summary.BestSellers, 2)
	assert.Equal(t, models.BestSeller{ProductID: f.pastel.ID, ProductName: "Pastel", TotalSold: 9}, summary.BestSellers[0])
	assert.Equal(t, models.BestSeller{ProductID: f.cafe.ID, ProductName: "Café", TotalSold: 3}, summary.BestSellers[1])

	assert.Equal(t, []HourCount{
		{Hour: 18, Label: "18:00 - 19:00", Orders: 2},
		{Hour: 19, Label: "19:00 - 20:00", Orders: 1},
		{Hour: 23, Label: "23:00 - 24:00", Orders: 1},
	}, summary.PeakHours)
}

func TestSummaryWithoutOrders(t *testing.T) {
	svc := NewService(memory.NewStore(), nil, nil)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Revenue.IsZero())
	assert.Equal(t, "R$ 0,00", summary.RevenueLabel)
	assert.Empty(t, summary.BestSellers)
	assert.Empty(t, summary.PeakHours)
}

func TestWriteCSV(t *testing.T) {
	_, svc := newFixture(t)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(context.Background(), &buf))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "delivered_orders", buf.Bytes())
}

func TestExportFilename(t *testing.T) {
	_, svc := newFixture(t)
	assert.Equal(t, "relatorio_pedidos_ejc_2025-03-02.csv", svc.ExportFilename())
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0,00", FormatAmount(decimal.Zero))
	assert.Equal(t, "1234,50", FormatAmount(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "3,33", FormatAmount(decimal.RequireFromString("3.333")))
}

func TestQuoteNeutralizesFormulas(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ana", `"Ana"`},
		{`=HYPERLINK("x")`, `"'=HYPERLINK(""x"")"`},
		{"+55 11", `"'+55 11"`},
		{"-1", `"'-1"`},
		{"@SUM(A1)", `"'@SUM(A1)"`},
		{"Ana-Maria", `"Ana-Maria"`},
		{"", `""`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, quote(tt.in), tt.in)
	}
}
