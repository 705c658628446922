package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ejc.kiosk/go-api/pkg/memory"
	"ejc.kiosk/go-api/pkg/models"
)

type brokenCache struct{}

func (brokenCache) Get(context.Context) ([]models.Product, bool, error) {
	return nil, false, errors.New("cache down")
}
func (brokenCache) Set(context.Context, []models.Product) error { return errors.New("cache down") }
func (brokenCache) Invalidate(context.Context) error          { return errors.New("cache down") }

func seed(t *testing.T, s *memory.Store, name string, stock int, available bool) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.NewFromInt(2), Stock: stock, Available: available}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func TestListPurchasableUsesCache(t *testing.T) {
	s := memory.NewStore()
	seed(t, s, "Pastel", 3, true)
	seed(t, s, "Bolo", 0, true)
	seed(t, s, "Café", 5, false)

	svc := NewService(s, NewMemoryCache(time.Minute), nil)
	ctx := context.Background()

	products, hit, err := svc.ListPurchasable(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, products, 1)
	assert.Equal(t, "Pastel", products[0].Name)

	_, hit, err = svc.ListPurchasable(ctx)
	require.NoError(t, err)
	assert.True(t, hit)

	seed(t, s, "Açaí", 2, true)
	svc.Invalidate(ctx)

	products, hit, err = svc.ListPurchasable(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, products, 2)
	assert.Equal(t, "Açaí", products[0].Name)
}

func TestListPurchasableSurvivesCacheFailure(t *testing.T) {
	s := memory.NewStore()
	seed(t, s, "Pastel", 3, true)

	svc := NewService(s, brokenCache{}, nil)
	products, hit, err := svc.ListPurchasable(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, products, 1)

	svc.Invalidate(context.Background())
}

func TestListPurchasableWithoutCache(t *testing.T) {
	s := memory.NewStore()
	svc := NewService(s, nil, nil)

	products, hit, err := svc.ListPurchasable(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestMemoryCacheExpires(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(30 * time.Second)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, []models.Product{{Name: "Pastel"}}))
	_, hit, _ := cache.Get(ctx)
	assert.True(t, hit)

	now = now.Add(31 * time.Second)
	_, hit, _ = cache.Get(ctx)
	assert.False(t, hit)
}
