package app

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	appDb "github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
	"github.com/nutriscan/nutriscan-be/services"
	"github.com/nutriscan/nutriscan-be/util"
	"go.uber.org/zap"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 50
)

// per 100g, the "high" bands of the UK front of pack labels
const (
	highSugarGrams  = 22.5
	highFatGrams    = 17.5
	highSodiumMilli = 600
)

var barcodePattern = regexp.MustCompile(`^[0-9]{8,14}$`)

// ProductIndex is the in-memory catalog searched by name.
type ProductIndex interface {
	Search(term string, limit int) []*model.Product
	Put(product *model.Product)
}

// Lookup resolves barcodes missing from the catalog. It returns nil, nil when the
// barcode is unknown.
type Lookup interface {
	Lookup(ctx context.Context, barcode string) (*model.Product, error)
}

type Products struct {
	db       appDb.ProductDatabase
	index    ProductIndex
	lookup   Lookup
	blobs    services.BlobStore
	notifier *Notifier
	log      *zap.Logger
}

// NewProducts builds the product service. lookup and blobs may be nil.
func NewProducts(db appDb.ProductDatabase, index ProductIndex, lookup Lookup, blobs services.BlobStore, notifier *Notifier, log *zap.Logger) *Products {
	return &Products{
		db:       db,
		index:    index,
		lookup:   lookup,
		blobs:    blobs,
		notifier: notifier,
		log:      log,
	}
}

func ValidBarcode(barcode string) bool {
	return barcodePattern.MatchString(barcode)
}

// Scan resolves a scanned barcode: the catalog first, then the external lookup,
// whose result is cached in the catalog. Signed in users get the scan_complete and,
// when the product holds one of their allergens, allergy_alert notifications.
func (ps *Products) Scan(ctx context.Context, viewer *model.User, barcode string) (*model.ProductView, error) {
	barcode = strings.TrimSpace(barcode)
	if !ValidBarcode(barcode) {
		return nil, invalidInput("barcode must be 8 to 14 digits")
	}

	product, err := ps.db.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	// another user's pending contribution does not hide the product from the lookup
	if product == nil || !visibleTo(product, viewer) {
		if product, err = ps.lookupAndCache(ctx, barcode); err != nil {
			return nil, err
		}
	}
	if !visibleTo(product, viewer) {
		return nil, appDb.ErrNotFound
	}

	view := Personalize(product, viewer)
	if viewer != nil {
		targetId := strconv.FormatInt(product.Id, 10)
		ps.notifier.notifyQuietly(ctx, viewer.Id, &NewNotification{
			Type:     model.NotificationScanComplete,
			Title:    "Scan Complete: " + product.Name,
			Message:  fmt.Sprintf("We've analyzed your ingredients for %s. View detailed insights now!", product.Name),
			TargetId: targetId,
		})
		if len(view.MatchedAllergens) > 0 {
			ps.notifier.notifyQuietly(ctx, viewer.Id, &NewNotification{
				Type:     model.NotificationAllergyAlert,
				Title:    "Allergy Alert: " + product.Name,
				Message:  fmt.Sprintf("%s contains %s, which you marked as an allergy.", product.Name, strings.Join(view.MatchedAllergens, ", ")),
				TargetId: targetId,
			})
		}
	}
	return view, nil
}

func (ps *Products) lookupAndCache(ctx context.Context, barcode string) (*model.Product, error) {
	if ps.lookup == nil {
		return nil, appDb.ErrNotFound
	}
	found, err := ps.lookup.Lookup(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, appDb.ErrNotFound
	}
	found.Source = model.ProductSourceLookup
	found.Status = model.ProductStatusApproved
	Enrich(found)

	id, err := ps.db.CreateProduct(ctx, found)
	if err != nil {
		if appDb.IsDupKeyErr(err) {
			// a concurrent scan cached it first
			product, err := ps.db.GetProductByBarcode(ctx, barcode)
			if err != nil {
				return nil, err
			}
			if product == nil {
				return nil, appDb.ErrNotFound
			}
			return product, nil
		}
		return nil, err
	}
	product, err := ps.db.GetProductById(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("product %d missing after insert", id)
	}
	ps.index.Put(product)
	return product, nil
}

func visibleTo(product *model.Product, viewer *model.User) bool {
	if product.Status == model.ProductStatusApproved {
		return true
	}
	return viewer != nil && (viewer.IsAdmin || viewer.Id == product.ContributorId)
}

func (ps *Products) GetProduct(ctx context.Context, viewer *model.User, id int64) (*model.ProductView, error) {
	product, err := ps.db.GetProductById(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || !visibleTo(product, viewer) {
		return nil, appDb.ErrNotFound
	}
	return Personalize(product, viewer), nil
}

// Search matches approved products by name, ignoring case. An empty term lists the
// catalog alphabetically.
func (ps *Products) Search(term string, limit int) []*model.Product {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	return ps.index.Search(strings.TrimSpace(term), limit)
}

// Personalize returns the product with a critical alert for every allergen the
// viewer selected. The stored product is not modified.
func Personalize(product *model.Product, viewer *model.User) *model.ProductView {
	view := &model.ProductView{Product: product, MatchedAllergens: []string{}}
	if viewer == nil {
		return view
	}
	for _, allergen := range product.Allergens {
		if viewer.HasAllergy(allergen) {
			view.MatchedAllergens = append(view.MatchedAllergens, allergen)
		}
	}
	if len(view.MatchedAllergens) == 0 {
		return view
	}

	personal := *product
	personal.HealthAlerts = append([]model.HealthAlert{{
		Title:       "Contains Your Allergens",
		Description: fmt.Sprintf("This product contains %s, which you listed as an allergy.", strings.Join(view.MatchedAllergens, ", ")),
		Severity:    model.SeverityCritical,
	}}, product.HealthAlerts...)
	view.Product = &personal
	return view
}

// Enrich fills in the nutrition breakdown and adds nutrient alerts the product does
// not already carry.
func Enrich(product *model.Product) {
	if product.Allergens == nil {
		product.Allergens = []string{}
	}
	if product.Alternatives == nil {
		product.Alternatives = []model.Alternative{}
	}
	if product.NutritionBreakdown == nil {
		product.NutritionBreakdown = breakdown(product)
	}

	existing := map[string]bool{}
	for _, alert := range product.HealthAlerts {
		existing[strings.ToLower(alert.Title)] = true
	}
	for _, alert := range nutrientAlerts(product) {
		if !existing[strings.ToLower(alert.Title)] {
			product.HealthAlerts = append(product.HealthAlerts, alert)
		}
	}
	if product.HealthAlerts == nil {
		product.HealthAlerts = []model.HealthAlert{}
	}
}

func nutrientAlerts(product *model.Product) []model.HealthAlert {
	var alerts []model.HealthAlert
	if product.Sugar > highSugarGrams {
		alerts = append(alerts, model.HealthAlert{
			Title:       "High Sugar Content",
			Description: "This product contains a significant amount of sugar, which may contribute to health risks if consumed excessively.",
			Severity:    model.SeverityWarning,
		})
	}
	if product.Fat > highFatGrams {
		alerts = append(alerts, model.HealthAlert{
			Title:       "High Fat Content",
			Description: "This product is high in fat. Keep portions moderate.",
			Severity:    model.SeverityWarning,
		})
	}
	if product.Sodium > highSodiumMilli {
		alerts = append(alerts, model.HealthAlert{
			Title:       "High Sodium Content",
			Description: "This product is high in salt, which can raise blood pressure.",
			Severity:    model.SeverityWarning,
		})
	}
	return alerts
}

// breakdown splits the macros into whole percentages, with sugar carved out of
// the carbohydrates. It returns nil when there is nothing to split.
func breakdown(product *model.Product) *model.NutritionBreakdown {
	total := product.Carbs + product.Fat + product.Protein
	if total <= 0 {
		return nil
	}
	sugar := math.Min(product.Sugar, product.Carbs)
	percent := func(v float64) float64 {
		return math.Round(v / total * 100)
	}
	return &model.NutritionBreakdown{
		Carbohydrates: percent(product.Carbs - sugar),
		Fat:           percent(product.Fat),
		Protein:       percent(product.Protein),
		Sugar:         percent(sugar),
	}
}

type ContributeRequest struct {
	Barcode        string           `json:"barcode"`
	Name           string           `json:"productName"`
	Brand          string           `json:"brand"`
	Ingredients    string           `json:"ingredients"`
	Nutrients      []model.Nutrient `json:"nutritionalInfo"`
	AdditionalInfo string           `json:"additionalInfo"`
	// Image is a base64 data url.
	Image string `json:"image"`
}

// Contribute stores a user submitted product for review. A barcode holds at most
// one approved product and one pending contribution.
func (ps *Products) Contribute(ctx context.Context, contributor *model.User, req *ContributeRequest) (*model.Product, error) {
	name := util.CleanText(req.Name)
	brand := util.CleanText(req.Brand)
	if name == "" || brand == "" {
		return nil, invalidInput("product name and brand are required")
	}
	barcode := strings.TrimSpace(req.Barcode)
	if barcode != "" && !ValidBarcode(barcode) {
		return nil, invalidInput("barcode must be 8 to 14 digits")
	}
	if barcode != "" {
		existing, err := ps.db.GetProductByBarcode(ctx, barcode)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.Status == model.ProductStatusApproved {
			return nil, ErrBarcodeTaken
		}
	}

	product := &model.Product{
		Barcode:        barcode,
		Name:           name,
		Brand:          brand,
		Ingredients:    util.CleanText(req.Ingredients),
		AdditionalInfo: util.CleanText(req.AdditionalInfo),
		Allergens:      []string{},
		Nutrients:      []model.Nutrient{},
		Source:         model.ProductSourceContribution,
		Status:         model.ProductStatusPending,
		ContributorId:  contributor.Id,
	}
	for _, nutrient := range req.Nutrients {
		nutrient.Name = util.CleanText(nutrient.Name)
		nutrient.Unit = util.CleanText(nutrient.Unit)
		if nutrient.Name == "" {
			continue
		}
		product.Nutrients = append(product.Nutrients, nutrient)
		applyNutrient(product, nutrient)
	}
	Enrich(product)

	if req.Image != "" {
		imageUrl, err := services.UploadDataURL(ctx, ps.blobs, "products/"+contributor.Id, req.Image)
		if err != nil {
			return nil, err
		}
		product.ImageUrl = imageUrl
	}

	id, err := ps.db.CreateProduct(ctx, product)
	if err != nil {
		if appDb.IsDupKeyErr(err) {
			return nil, ErrBarcodeTaken
		}
		return nil, err
	}
	return ps.mustGet(ctx, id)
}

// applyNutrient copies the well known entries of the free form nutrient list onto
// the product's macro fields.
func applyNutrient(product *model.Product, nutrient model.Nutrient) {
	unit := strings.ToLower(nutrient.Unit)
	switch strings.ToLower(nutrient.Name) {
	case "energy", "calories":
		if unit == "kj" {
			product.Calories = math.Round(nutrient.Value / 4.184)
		} else {
			product.Calories = nutrient.Value
		}
	case "protein", "proteins":
		product.Protein = nutrient.Value
	case "carbohydrates", "carbs":
		product.Carbs = nutrient.Value
	case "fat":
		product.Fat = nutrient.Value
	case "sugar", "sugars":
		product.Sugar = nutrient.Value
	case "sodium":
		if unit == "g" {
			product.Sodium = nutrient.Value * 1000
		} else {
			product.Sodium = nutrient.Value
		}
	}
}

func (ps *Products) ListPending(ctx context.Context) ([]*model.Product, error) {
	products, err := ps.db.GetProducts(ctx, &appDb.ProductsQuery{Status: model.ProductStatusPending})
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []*model.Product{}
	}
	return products, nil
}

// Approve publishes a pending contribution to the catalog and thanks the contributor.
func (ps *Products) Approve(ctx context.Context, admin *model.User, id int64) (*model.Product, error) {
	if admin == nil || !admin.IsAdmin {
		return nil, ErrForbidden
	}
	if err := ps.db.SetProductStatus(ctx, id, model.ProductStatusApproved); err != nil {
		if appDb.IsDupKeyErr(err) {
			return nil, ErrBarcodeTaken
		}
		return nil, err
	}
	product, err := ps.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	ps.index.Put(product)

	if product.ContributorId != "" {
		ps.notifier.notifyQuietly(ctx, product.ContributorId, &NewNotification{
			Type:     model.NotificationContributionApproved,
			Title:    "Contribution Approved: " + product.Name,
			Message:  fmt.Sprintf("Your product contribution %q has been approved and added to the database. Thank you!", product.Name),
			TargetId: strconv.FormatInt(product.Id, 10),
		})
	}
	return product, nil
}

func (ps *Products) mustGet(ctx context.Context, id int64) (*model.Product, error) {
	product, err := ps.db.GetProductById(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, appDb.ErrNotFound
	}
	return product, nil
}
