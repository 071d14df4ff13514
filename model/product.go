package model

import "time"

type ProductSource string

const (
	ProductSourceCatalog      ProductSource = "catalog"
	ProductSourceContribution ProductSource = "contribution"
	ProductSourceLookup       ProductSource = "lookup"
)

type ProductStatus string

const (
	ProductStatusApproved ProductStatus = "approved"
	ProductStatusPending  ProductStatus = "pending"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Nutrient struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
	Unit  string  `json:"unit" yaml:"unit"`
}

type HealthAlert struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Severity    Severity `json:"severity" yaml:"severity"`
}

type Alternative struct {
	Id             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	ImageUrl       string `json:"imageUrl" yaml:"imageUrl"`
	Description    string `json:"description" yaml:"description"`
	NutritionScore string `json:"nutritionScore" yaml:"nutritionScore"`
	Brand          string `json:"brand" yaml:"brand"`
}

// NutritionBreakdown holds percentages of the macro split.
type NutritionBreakdown struct {
	Carbohydrates float64 `json:"carbohydrates" yaml:"carbohydrates"`
	Fat           float64 `json:"fat" yaml:"fat"`
	Protein       float64 `json:"protein" yaml:"protein"`
	Sugar         float64 `json:"sugar" yaml:"sugar"`
}

// Product values are per 100g unless the nutrient list says otherwise.
type Product struct {
	Id                 int64               `json:"id" yaml:"-"`
	Barcode            string              `json:"barcode,omitempty" yaml:"barcode"`
	Name               string              `json:"name" yaml:"name"`
	Brand              string              `json:"brand,omitempty" yaml:"brand"`
	ImageUrl           string              `json:"imageUrl,omitempty" yaml:"imageUrl"`
	Calories           float64             `json:"calories" yaml:"calories"`
	Protein            float64             `json:"protein" yaml:"protein"`
	Carbs              float64             `json:"carbs" yaml:"carbs"`
	Fat                float64             `json:"fat" yaml:"fat"`
	Sugar              float64             `json:"sugar" yaml:"sugar"`
	Sodium             float64             `json:"sodium" yaml:"sodium"`
	Ingredients        string              `json:"ingredients,omitempty" yaml:"ingredients"`
	Allergens          []string            `json:"allergens" yaml:"allergens"`
	Nutrients          []Nutrient          `json:"nutritionalInfo,omitempty" yaml:"nutritionalInfo"`
	HealthAlerts       []HealthAlert       `json:"healthAlerts" yaml:"healthAlerts"`
	Alternatives       []Alternative       `json:"alternatives" yaml:"alternatives"`
	NutritionBreakdown *NutritionBreakdown `json:"nutritionBreakdown,omitempty" yaml:"nutritionBreakdown"`
	AdditionalInfo     string              `json:"additionalInfo,omitempty" yaml:"additionalInfo"`
	Source             ProductSource       `json:"source" yaml:"-"`
	Status             ProductStatus       `json:"status" yaml:"-"`
	ContributorId      string              `json:"contributorId,omitempty" yaml:"-"`
	CreatedAt          time.Time           `json:"createdAt" yaml:"-"`
	UpdatedAt          time.Time           `json:"updatedAt" yaml:"-"`
}

// ProductView is a product as seen by a specific user.
type ProductView struct {
	*Product
	MatchedAllergens []string `json:"matchedAllergens"`
}
