package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nutriscan/nutriscan-be/app"
	appDb "github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Products []*model.Product `yaml:"products"`
}

func readProducts(path string) ([]*model.Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return file.Products, nil
}

// seedProducts adds the products whose barcode is not in the catalog yet, so the
// same file can be loaded repeatedly.
func seedProducts(ctx context.Context, products appDb.ProductDatabase, seed []*model.Product, log *zap.Logger) (int, error) {
	added := 0
	for _, product := range seed {
		if product.Name == "" || !app.ValidBarcode(product.Barcode) {
			log.Warn("skipping product without a name or valid barcode",
				zap.String("name", product.Name),
				zap.String("barcode", product.Barcode))
			continue
		}
		existing, err := products.GetProductByBarcode(ctx, product.Barcode)
		if err != nil {
			return added, err
		}
		if existing != nil && existing.Status == model.ProductStatusApproved {
			continue
		}
		product.Source = model.ProductSourceCatalog
		product.Status = model.ProductStatusApproved
		app.Enrich(product)
		if _, err := products.CreateProduct(ctx, product); err != nil {
			return added, fmt.Errorf("create %s: %w", product.Barcode, err)
		}
		added++
	}
	return added, nil
}

func setAdmin(ctx context.Context, users appDb.UserDatabase, userId string, isAdmin bool) error {
	if err := users.UpdateUser(ctx, userId, &appDb.UpdateUser{IsAdmin: &isAdmin}); err != nil {
		return fmt.Errorf("update %s: %w", userId, err)
	}
	return nil
}
