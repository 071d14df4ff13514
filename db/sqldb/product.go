package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	db2 "github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
	"github.com/upper/db/v4"
)

type ProductDB struct {
	sess db.Session
}

func getProductDB(sess db.Session) *ProductDB {
	return &ProductDB{sess}
}

type flattenedProduct struct {
	Id                     int64               `db:"id"`
	Barcode                sql.NullString      `db:"barcode"`
	Name                   string              `db:"name"`
	Brand                  string              `db:"brand"`
	ImageUrl               string              `db:"image_url"`
	Calories               float64             `db:"calories"`
	Protein                float64             `db:"protein"`
	Carbs                  float64             `db:"carbs"`
	Fat                    float64             `db:"fat"`
	Sugar                  float64             `db:"sugar"`
	Sodium                 float64             `db:"sodium"`
	Ingredients            string              `db:"ingredients"`
	AllergensJSON          string              `db:"allergens"`
	NutrientsJSON          string              `db:"nutrients"`
	HealthAlertsJSON       string              `db:"health_alerts"`
	AlternativesJSON       string              `db:"alternatives"`
	NutritionBreakdownJSON string              `db:"nutrition_breakdown"`
	AdditionalInfo         string              `db:"additional_info"`
	Source                 model.ProductSource `db:"source"`
	Status                 model.ProductStatus `db:"status"`
	ContributorId          string              `db:"contributor_id"`
	CreatedAt              time.Time           `db:"created_at"`
	UpdatedAt              time.Time           `db:"updated_at"`
}

func (pdb *ProductDB) CreateProduct(ctx context.Context, product *model.Product) (int64, error) {
	row, err := flattenProduct(product)
	if err != nil {
		return 0, err
	}
	createdAt := now()
	res, err := execTx(ctx, pdb.sess, func(tx db.Session) (sql.Result, error) {
		return tx.SQL().
			InsertInto("product").
			Columns("barcode", "name", "brand", "image_url", "calories", "protein", "carbs", "fat",
				"sugar", "sodium", "ingredients", "allergens", "nutrients", "health_alerts",
				"alternatives", "nutrition_breakdown", "additional_info", "source", "status",
				"contributor_id", "created_at", "updated_at").
			Values(row.Barcode, row.Name, row.Brand, row.ImageUrl, row.Calories, row.Protein, row.Carbs, row.Fat,
				row.Sugar, row.Sodium, row.Ingredients, row.AllergensJSON, row.NutrientsJSON, row.HealthAlertsJSON,
				row.AlternativesJSON, row.NutritionBreakdownJSON, row.AdditionalInfo, row.Source, row.Status,
				row.ContributorId, createdAt, createdAt).
			ExecContext(ctx)
	})
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (pdb *ProductDB) GetProductById(ctx context.Context, id int64) (*model.Product, error) {
	return pdb.getProduct(ctx, "id = ?", id)
}

// GetProductByBarcode prefers the approved product. A barcode can also carry one
// pending contribution, which is returned when nothing is approved yet.
func (pdb *ProductDB) GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	product, err := pdb.getProduct(ctx, "barcode = ? AND status = ?", barcode, model.ProductStatusApproved)
	if err != nil || product != nil {
		return product, err
	}
	return pdb.getProduct(ctx, "barcode = ?", barcode)
}

func (pdb *ProductDB) getProduct(ctx context.Context, where string, args ...interface{}) (*model.Product, error) {
	var product flattenedProduct
	if err := pdb.sess.SQL().
		Select("*").
		From("product").
		Where(append([]interface{}{where}, args...)...).
		OrderBy("id").
		IteratorContext(ctx).
		One(&product); err != nil {
		if err == db.ErrNoMoreRows {
			return nil, nil
		}
		return nil, err
	}
	return buildProductFromFlattened(&product)
}

func (pdb *ProductDB) GetProducts(ctx context.Context, query *db2.ProductsQuery) ([]*model.Product, error) {
	var where conditions
	if query != nil && query.Status != "" {
		where.add("status = ?", query.Status)
	}
	if query != nil && query.UpdatedSince != nil {
		where.add("updated_at > ?", query.UpdatedSince.UTC())
	}
	selector := pdb.sess.SQL().
		Select("*").
		From("product")
	if !where.empty() {
		selector = selector.Where(where.where()...)
	}

	var flattenedProducts []flattenedProduct
	if err := selector.
		OrderBy("name", "id").
		IteratorContext(ctx).
		All(&flattenedProducts); err != nil {
		return nil, err
	}
	products := make([]*model.Product, len(flattenedProducts))
	for i := range flattenedProducts {
		product, err := buildProductFromFlattened(&flattenedProducts[i])
		if err != nil {
			return nil, err
		}
		products[i] = product
	}
	return products, nil
}

// SetProductStatus fails with a duplicate key error when the barcode already has
// a product in the target status.
func (pdb *ProductDB) SetProductStatus(ctx context.Context, id int64, status model.ProductStatus) error {
	res, err := execTx(ctx, pdb.sess, func(tx db.Session) (sql.Result, error) {
		return tx.SQL().
			Update("product").
			Set("status = ?, updated_at = ?", status, now()).
			Where("id = ?", id).
			ExecContext(ctx)
	})
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func flattenProduct(product *model.Product) (*flattenedProduct, error) {
	row := &flattenedProduct{
		Name:           product.Name,
		Brand:          product.Brand,
		ImageUrl:       product.ImageUrl,
		Calories:       product.Calories,
		Protein:        product.Protein,
		Carbs:          product.Carbs,
		Fat:            product.Fat,
		Sugar:          product.Sugar,
		Sodium:         product.Sodium,
		Ingredients:    product.Ingredients,
		AdditionalInfo: product.AdditionalInfo,
		Source:         product.Source,
		Status:         product.Status,
		ContributorId:  product.ContributorId,
	}
	if product.Barcode != "" {
		row.Barcode = sql.NullString{String: product.Barcode, Valid: true}
	}

	var err error
	if row.AllergensJSON, err = marshalList(product.Allergens); err != nil {
		return nil, err
	}
	if row.NutrientsJSON, err = marshalList(product.Nutrients); err != nil {
		return nil, err
	}
	if row.HealthAlertsJSON, err = marshalList(product.HealthAlerts); err != nil {
		return nil, err
	}
	if row.AlternativesJSON, err = marshalList(product.Alternatives); err != nil {
		return nil, err
	}
	breakdown, err := json.Marshal(product.NutritionBreakdown)
	if err != nil {
		return nil, err
	}
	row.NutritionBreakdownJSON = string(breakdown)
	return row, nil
}

func buildProductFromFlattened(row *flattenedProduct) (*model.Product, error) {
	product := &model.Product{
		Id:             row.Id,
		Barcode:        row.Barcode.String,
		Name:           row.Name,
		Brand:          row.Brand,
		ImageUrl:       row.ImageUrl,
		Calories:       row.Calories,
		Protein:        row.Protein,
		Carbs:          row.Carbs,
		Fat:            row.Fat,
		Sugar:          row.Sugar,
		Sodium:         row.Sodium,
		Ingredients:    row.Ingredients,
		AdditionalInfo: row.AdditionalInfo,
		Source:         row.Source,
		Status:         row.Status,
		ContributorId:  row.ContributorId,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	var err error
	if product.Allergens, err = unmarshalList(row.AllergensJSON); err != nil {
		return nil, err
	}
	for _, field := range []struct {
		raw  string
		dest interface{}
	}{
		{row.NutrientsJSON, &product.Nutrients},
		{row.HealthAlertsJSON, &product.HealthAlerts},
		{row.AlternativesJSON, &product.Alternatives},
		{row.NutritionBreakdownJSON, &product.NutritionBreakdown},
	} {
		if field.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(field.raw), field.dest); err != nil {
			return nil, err
		}
	}
	if product.HealthAlerts == nil {
		product.HealthAlerts = []model.HealthAlert{}
	}
	if product.Alternatives == nil {
		product.Alternatives = []model.Alternative{}
	}
	return product, nil
}
