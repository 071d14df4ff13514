package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/nutriscan/nutriscan-be/model"
	"github.com/tidwall/gjson"
)

var ErrLookupUnavailable = errors.New("product lookup unavailable")

// ProductLookup resolves barcodes against an Open Food Facts compatible API.
type ProductLookup struct {
	baseURL string
	client  *http.Client
}

func NewProductLookup(baseURL string, timeout time.Duration) *ProductLookup {
	return &ProductLookup{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Lookup returns nil, nil when the barcode is unknown upstream.
func (pl *ProductLookup) Lookup(ctx context.Context, barcode string) (*model.Product, error) {
	endpoint := fmt.Sprintf("%s/api/v2/product/%s.json", pl.baseURL, url.PathEscape(barcode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "NutriScan/1.0 (+https://nutriscan.app)")
	req.Header.Set("Accept", "application/json")

	res, err := pl.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrLookupUnavailable, res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupUnavailable, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed response", ErrLookupUnavailable)
	}
	return parseOpenFoodFacts(barcode, body), nil
}

func parseOpenFoodFacts(barcode string, body []byte) *model.Product {
	doc := gjson.ParseBytes(body)
	if doc.Get("status").Int() != 1 {
		return nil
	}
	p := doc.Get("product")
	name := strings.TrimSpace(p.Get("product_name").String())
	if name == "" {
		name = strings.TrimSpace(p.Get("generic_name").String())
	}
	if name == "" {
		return nil
	}

	brand, _, _ := strings.Cut(p.Get("brands").String(), ",")
	nutriments := p.Get("nutriments")
	product := &model.Product{
		Barcode:     barcode,
		Name:        name,
		Brand:       strings.TrimSpace(brand),
		ImageUrl:    p.Get("image_front_url").String(),
		Calories:    nutriments.Get("energy-kcal_100g").Float(),
		Protein:     nutriments.Get("proteins_100g").Float(),
		Carbs:       nutriments.Get("carbohydrates_100g").Float(),
		Fat:         nutriments.Get("fat_100g").Float(),
		Sugar:       nutriments.Get("sugars_100g").Float(),
		Sodium:      nutriments.Get("sodium_100g").Float() * 1000,
		Ingredients: strings.TrimSpace(p.Get("ingredients_text").String()),
		Allergens:   []string{},
		Source:      model.ProductSourceLookup,
		Status:      model.ProductStatusApproved,
	}
	if product.ImageUrl == "" {
		product.ImageUrl = p.Get("image_url").String()
	}

	seen := map[string]bool{}
	for _, tag := range p.Get("allergens_tags").Array() {
		allergen := allergenFromTag(tag.String())
		if allergen == "" || seen[allergen] {
			continue
		}
		seen[allergen] = true
		product.Allergens = append(product.Allergens, allergen)
	}

	for _, n := range []struct {
		key  string
		name string
		unit string
	}{
		{"fiber_100g", "Fiber", "g"},
		{"saturated-fat_100g", "Saturated fat", "g"},
		{"salt_100g", "Salt", "g"},
	} {
		if v := nutriments.Get(n.key); v.Exists() {
			product.Nutrients = append(product.Nutrients, model.Nutrient{Name: n.name, Value: v.Float(), Unit: n.unit})
		}
	}
	return product
}

var allergenTagAliases = map[string]string{
	"nuts":         "Tree nuts",
	"soybeans":     "Soy",
	"crustaceans":  "Shellfish",
	"molluscs":     "Shellfish",
	"sesame seeds": "Sesame",
	"peanut":       "Peanuts",
	"egg":          "Eggs",
}

// allergenFromTag turns a taxonomy tag such as "en:sesame-seeds" into an allergy option.
func allergenFromTag(tag string) string {
	if _, name, ok := strings.Cut(tag, ":"); ok {
		tag = name
	}
	name := strings.TrimSpace(strings.ReplaceAll(tag, "-", " "))
	if name == "" {
		return ""
	}
	if alias, ok := allergenTagAliases[strings.ToLower(name)]; ok {
		return alias
	}
	if option, ok := model.CanonicalAllergy(name); ok {
		return option
	}
	runes := []rune(strings.ToLower(name))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
