package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nutriscan/nutriscan-be/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const offResponse = `{
  "status": 1,
  "product": {
    "product_name": "Hazelnut Spread",
    "brands": "Spready, Spready Foods",
    "image_front_url": "https://images.example/spread.jpg",
    "ingredients_text": "Sugar, palm oil, hazelnuts 13%, skimmed milk powder",
    "allergens_tags": ["en:milk", "en:nuts", "en:soybeans", "en:milk", "en:celery"],
    "nutriments": {
      "energy-kcal_100g": 539,
      "proteins_100g": 6.3,
      "carbohydrates_100g": 57.5,
      "fat_100g": 30.9,
      "sugars_100g": 56.3,
      "sodium_100g": 0.041,
      "fiber_100g": 3.4
    }
  }
}`

func TestLookupParsesOpenFoodFacts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/product/3017620422003.json":
			_, _ = w.Write([]byte(offResponse))
		case "/api/v2/product/0000.json":
			_, _ = w.Write([]byte(`{"status": 0, "status_verbose": "product not found"}`))
		case "/api/v2/product/500.json":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	lookup := NewProductLookup(srv.URL+"/", time.Second)
	ctx := context.Background()

	product, err := lookup.Lookup(ctx, "3017620422003")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "Hazelnut Spread", product.Name)
	assert.Equal(t, "Spready", product.Brand)
	assert.Equal(t, "3017620422003", product.Barcode)
	assert.Equal(t, 539.0, product.Calories)
	assert.InDelta(t, 41.0, product.Sodium, 0.001)
	assert.Equal(t, []string{"Milk", "Tree nuts", "Soy", "Celery"}, product.Allergens)
	assert.Equal(t, []model.Nutrient{{Name: "Fiber", Value: 3.4, Unit: "g"}}, product.Nutrients)
	assert.Equal(t, model.ProductSourceLookup, product.Source)

	product, err = lookup.Lookup(ctx, "0000")
	require.NoError(t, err)
	assert.Nil(t, product)

	product, err = lookup.Lookup(ctx, "404")
	require.NoError(t, err)
	assert.Nil(t, product)

	_, err = lookup.Lookup(ctx, "500")
	assert.ErrorIs(t, err, ErrLookupUnavailable)
}
