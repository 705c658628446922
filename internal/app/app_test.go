package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ejc.kiosk/go-api/pkg/global"
	"ejc.kiosk/go-api/pkg/models"
)

func memoryConfig() *global.Config {
	cfg := global.LoadConfig()
	cfg.StoreDriver = global.StoreDriverMemory
	return cfg
}

func TestBuildMemoryBackend(t *testing.T) {
	ctx := context.Background()
	svc, err := Build(ctx, memoryConfig(), nil)
	require.NoError(t, err)
	defer svc.Close(ctx)

	require.NoError(t, svc.Store.Ping(ctx))
	assert.False(t, svc.AI.IsEnabled())

	p, err := svc.Inventory.CreateProduct(ctx, models.CreateProductRequest{Name: "Pastel", Stock: 2}, "seed")
	require.NoError(t, err)

	products, hit, err := svc.Catalog.ListPurchasable(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, products, 1)
	assert.Equal(t, p.ID, products[0].ID)
}

func TestBuildRejectsUnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreDriver = "sqlite"
	_, err := Build(context.Background(), cfg, nil)
	assert.Error(t, err)
}
