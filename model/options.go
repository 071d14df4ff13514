package model

import (
	"sort"
	"strings"
)

type AvatarOption struct {
	Id  string `json:"id"`
	Uri string `json:"uri"`
}

var AvatarOptions = []AvatarOption{
	{Id: "avatar_female", Uri: "https://res.cloudinary.com/dtpkncgkd/image/upload/v1748370441/eldd0xtzcgsaly846kby.png"},
	{Id: "avatar_male", Uri: "https://res.cloudinary.com/dtpkncgkd/image/upload/v1748370441/uoytqrgwnzhsuut5qkc8.png"},
}

func FindAvatarOption(id string) (AvatarOption, bool) {
	for _, option := range AvatarOptions {
		if option.Id == id {
			return option, true
		}
	}
	return AvatarOption{}, false
}

// AllergyOptions is sorted at init.
var AllergyOptions = []string{
	"Milk", "Eggs", "Peanuts", "Tree nuts", "Almonds", "Walnuts", "Cashews",
	"Pistachios", "Hazelnuts", "Brazil nuts", "Macadamia nuts", "Pecans", "Soy",
	"Wheat", "Fish", "Salmon", "Tuna", "Cod", "Shellfish", "Shrimp", "Crab",
	"Lobster", "Clams", "Mussels", "Oysters", "Scallops", "Sesame", "Mustard",
	"Corn", "Gelatin", "Rice", "Oats", "Barley", "Rye", "Buckwheat", "Lentils",
	"Chickpeas", "Peas", "Beans", "Garlic", "Onion", "Tomatoes", "Strawberries",
	"Kiwi", "Pineapple", "Banana", "Avocado", "Mango", "Apple", "Peach", "Melon",
	"Grapes", "Citrus fruits", "Orange", "Lemon", "Lime", "Grapefruit", "Spices",
	"Cinnamon", "Paprika", "Cumin", "Nutmeg", "Black pepper", "Red pepper", "Meat",
	"Beef", "Pork", "Chicken", "Turkey", "Lamb", "Horse meat", "Game meat",
	"Eggs from duck/goose/quail", "Coconut", "Cocoa", "Chocolate", "Coffee",
	"Yeast", "Vinegar", "Gluten",
}

var allergyIndex = map[string]string{}

func init() {
	sort.Strings(AllergyOptions)
	for _, option := range AllergyOptions {
		allergyIndex[strings.ToLower(option)] = option
	}
}

// CanonicalAllergy returns the option spelling for a case-insensitive match.
func CanonicalAllergy(name string) (string, bool) {
	option, ok := allergyIndex[strings.ToLower(strings.TrimSpace(name))]
	return option, ok
}

// FilterAllergyOptions is the substring filter used by the allergy picker.
func FilterAllergyOptions(term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	filtered := []string{}
	for _, option := range AllergyOptions {
		if strings.Contains(strings.ToLower(option), term) {
			filtered = append(filtered, option)
		}
	}
	return filtered
}
