package controllers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProducts struct {
	db.ProductDatabase
	products []*model.Product
	err      error
	queries  []*db.ProductsQuery
}

func (sp *stubProducts) GetProducts(ctx context.Context, query *db.ProductsQuery) ([]*model.Product, error) {
	sp.queries = append(sp.queries, query)
	return sp.products, sp.err
}

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func product(id int64, name string, age time.Duration) *model.Product {
	return &model.Product{
		Id:        id,
		Name:      name,
		Status:    model.ProductStatusApproved,
		UpdatedAt: base.Add(-age),
	}
}

func names(products []*model.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

func newCatalog(t *testing.T, products ...*model.Product) (*ProductCatalog, *stubProducts) {
	stub := &stubProducts{products: products}
	catalog, err := NewProductCatalog(context.Background(), stub, zap.NewNop())
	require.NoError(t, err)
	return catalog, stub
}

func TestSearchRanksPrefixFirst(t *testing.T) {
	catalog, stub := newCatalog(t,
		product(1, "Whole Milk", 0),
		product(2, "milk chocolate", 0),
		product(3, "Almond Milk", 0),
		product(4, "Oat Drink", 0),
	)
	assert.Equal(t, model.ProductStatusApproved, stub.queries[0].Status)

	assert.Equal(t, []string{"milk chocolate", "Almond Milk", "Whole Milk"}, names(catalog.Search("MILK", 10)))
	assert.Equal(t, []string{"milk chocolate", "Almond Milk"}, names(catalog.Search("milk", 2)))
	assert.Equal(t, []string{"Almond Milk", "milk chocolate", "Oat Drink", "Whole Milk"}, names(catalog.Search("", 10)))
	assert.Empty(t, catalog.Search("juice", 10))
}

func TestPutReplacesById(t *testing.T) {
	catalog, _ := newCatalog(t, product(1, "Cola", time.Hour))

	catalog.Put(product(2, "Apple Juice", 0))
	catalog.Put(product(1, "Cola Zero", 0))
	catalog.Put(&model.Product{Id: 3, Name: "Pending Bar", Status: model.ProductStatusPending})

	assert.Equal(t, 2, catalog.Size())
	assert.Equal(t, []string{"Apple Juice", "Cola Zero"}, names(catalog.Search("", 10)))
}

func TestRefreshKeepsNewerCache(t *testing.T) {
	catalog, stub := newCatalog(t, product(1, "Cola", time.Hour))
	catalog.Put(product(2, "Fresh Juice", 0))

	// a reload that predates the put is discarded
	stub.products = []*model.Product{product(1, "Cola", time.Hour)}
	require.NoError(t, catalog.Refresh(context.Background()))
	assert.Equal(t, 2, catalog.Size())

	stub.products = []*model.Product{product(1, "Cola", time.Hour), product(2, "Fresh Juice", 0), product(5, "Tea", -time.Minute)}
	require.NoError(t, catalog.Refresh(context.Background()))
	assert.Equal(t, 3, catalog.Size())
}

func TestRefreshError(t *testing.T) {
	_, err := NewProductCatalog(context.Background(), &stubProducts{err: errors.New("db down")}, zap.NewNop())
	assert.Error(t, err)

	catalog, stub := newCatalog(t, product(1, "Cola", 0))
	stub.err = errors.New("db down")
	catalog.AttemptRefresh(context.Background())
	assert.Equal(t, 1, catalog.Size())
}
