package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nutriscan/nutriscan-be/db/sqldb"
	"github.com/nutriscan/nutriscan-be/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDB(t *testing.T) *sqldb.SQLDB {
	t.Helper()
	sdb, err := sqldb.OpenSQLite(filepath.Join(t.TempDir(), "seed.sqlite"))
	require.NoError(t, err)
	require.NoError(t, sdb.Migrate(zap.NewNop()))
	t.Cleanup(func() { _ = sdb.Close() })
	return sdb
}

func TestReadProducts(t *testing.T) {
	products, err := readProducts("testdata/products.yaml")
	require.NoError(t, err)
	require.Len(t, products, 3)

	pancakes := products[0]
	assert.Equal(t, "4006381333931", pancakes.Barcode)
	assert.Equal(t, []string{"Milk", "Gluten"}, pancakes.Allergens)
	require.Len(t, pancakes.Alternatives, 2)
	assert.Equal(t, "Nature's Best", pancakes.Alternatives[0].Brand)
	assert.Equal(t, model.SeverityInfo, pancakes.HealthAlerts[0].Severity)

	require.NotNil(t, products[1].NutritionBreakdown)
	assert.Equal(t, 70.0, products[1].NutritionBreakdown.Carbohydrates)
}

func TestSeedProductsIsRepeatable(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)

	products, err := readProducts("testdata/products.yaml")
	require.NoError(t, err)
	added, err := seedProducts(ctx, sdb, products, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	pancakes, err := sdb.GetProductByBarcode(ctx, "4006381333931")
	require.NoError(t, err)
	require.NotNil(t, pancakes)
	assert.Equal(t, model.ProductStatusApproved, pancakes.Status)
	assert.Equal(t, model.ProductSourceCatalog, pancakes.Source)
	titles := []string{}
	for _, alert := range pancakes.HealthAlerts {
		titles = append(titles, alert.Title)
	}
	assert.ElementsMatch(t, []string{"Contains Gluten", "High Sugar Content"}, titles)

	products, err = readProducts("testdata/products.yaml")
	require.NoError(t, err)
	added, err = seedProducts(ctx, sdb, products, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestSetAdmin(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)
	require.NoError(t, sdb.CreateUser(ctx, &model.User{Id: "u1", Username: "ana", SelectedAllergies: []string{}}))

	require.NoError(t, setAdmin(ctx, sdb, "u1", true))
	user, err := sdb.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)

	assert.Error(t, setAdmin(ctx, sdb, "nobody", true))
}
