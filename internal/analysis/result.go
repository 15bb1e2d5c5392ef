package analysis

import "github.com/angelmondragon/calorielens-backend/pkg/enums"

// FoodItem is one detected food.
type FoodItem struct {
	Name         string  `json:"name"`
	Portion      string  `json:"portion"`
	Calories     float64 `json:"calories"`
	ProteinGrams float64 `json:"protein_g"`
	CarbGrams    float64 `json:"carbs_g"`
	FatGrams     float64 `json:"fat_g"`
}

// Totals are reported by the provider and are not re-derived from Foods.
type Totals struct {
	Calories     float64 `json:"calories"`
	ProteinGrams float64 `json:"protein_g"`
	CarbGrams    float64 `json:"carbs_g"`
	FatGrams     float64 `json:"fat_g"`
}

// NutritionResult is one analysis outcome. Foods keep detection order.
type NutritionResult struct {
	Foods      []FoodItem       `json:"foods"`
	Totals     Totals           `json:"totals"`
	Confidence enums.Confidence `json:"confidence"`
	Notes      string           `json:"notes,omitempty"`
}
