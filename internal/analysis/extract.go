package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/angelmondragon/calorielens-backend/pkg/enums"
	"go.uber.org/multierr"
)

// extractJSONSpan returns the text from the first '{' to the last '}'.
// Two separate objects in one reply yield an invalid span, and braces inside
// string values can widen it; both surface as malformed results.
func extractJSONSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(text, '}')
	if end < start {
		return "", false
	}
	return text[start : end+1], true
}

type rawFood struct {
	Name     *string  `json:"name"`
	Portion  *string  `json:"portion"`
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein_g"`
	Carbs    *float64 `json:"carbs_g"`
	Fat      *float64 `json:"fat_g"`
}

type rawTotals struct {
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein_g"`
	Carbs    *float64 `json:"carbs_g"`
	Fat      *float64 `json:"fat_g"`
}

type rawResult struct {
	Foods      *[]rawFood `json:"foods"`
	Totals     *rawTotals `json:"totals"`
	Confidence *string    `json:"confidence"`
	Notes      *string    `json:"notes"`
}

// parseResult decodes span and checks every required field, reporting all
// problems at once.
func parseResult(span string) (*NutritionResult, error) {
	var raw rawResult
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	var errs error
	result := &NutritionResult{}

	if raw.Foods == nil {
		errs = multierr.Append(errs, fmt.Errorf("foods is required"))
	} else {
		result.Foods = make([]FoodItem, 0, len(*raw.Foods))
		for i, f := range *raw.Foods {
			item, err := f.toFoodItem(fmt.Sprintf("foods[%d]", i))
			errs = multierr.Append(errs, err)
			result.Foods = append(result.Foods, item)
		}
	}

	if raw.Totals == nil {
		errs = multierr.Append(errs, fmt.Errorf("totals is required"))
	} else {
		t := raw.Totals
		result.Totals = Totals{
			Calories:     requireAmount(&errs, "totals.calories", t.Calories),
			ProteinGrams: requireAmount(&errs, "totals.protein_g", t.Protein),
			CarbGrams:    requireAmount(&errs, "totals.carbs_g", t.Carbs),
			FatGrams:     requireAmount(&errs, "totals.fat_g", t.Fat),
		}
	}

	if raw.Confidence == nil {
		errs = multierr.Append(errs, fmt.Errorf("confidence is required"))
	} else if c, err := enums.ParseConfidence(*raw.Confidence); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		result.Confidence = c
	}

	if raw.Notes != nil {
		result.Notes = *raw.Notes
	}

	if errs != nil {
		return nil, errs
	}
	return result, nil
}

func (f rawFood) toFoodItem(path string) (FoodItem, error) {
	var errs error
	item := FoodItem{
		Calories:     requireAmount(&errs, path+".calories", f.Calories),
		ProteinGrams: requireAmount(&errs, path+".protein_g", f.Protein),
		CarbGrams:    requireAmount(&errs, path+".carbs_g", f.Carbs),
		FatGrams:     requireAmount(&errs, path+".fat_g", f.Fat),
	}
	if f.Name == nil {
		errs = multierr.Append(errs, fmt.Errorf("%s.name is required", path))
	} else {
		item.Name = *f.Name
	}
	if f.Portion != nil {
		item.Portion = *f.Portion
	}
	return item, errs
}

func requireAmount(errs *error, path string, v *float64) float64 {
	switch {
	case v == nil:
		*errs = multierr.Append(*errs, fmt.Errorf("%s is required", path))
		return 0
	case math.IsNaN(*v) || math.IsInf(*v, 0):
		*errs = multierr.Append(*errs, fmt.Errorf("%s must be finite", path))
		return 0
	case *v < 0:
		*errs = multierr.Append(*errs, fmt.Errorf("%s must be >= 0, got %v", path, *v))
		return 0
	}
	return *v
}
