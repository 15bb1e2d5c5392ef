package nutritionlogs

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/calorielens-backend/pkg/db/models"
)

// DailyTotals is the sum of a user's logs since local midnight, each field
// rounded to two decimals.
type DailyTotals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func addAmount(into *decimal.Decimal, v *float64) {
	if v == nil {
		return
	}
	*into = into.Add(decimal.NewFromFloat(*v))
}

// sumTotals adds every log's totals in exact decimal arithmetic. Missing
// keys count as zero.
func sumTotals(logs []models.NutritionLog) DailyTotals {
	var calories, protein, carbs, fat decimal.Decimal
	for _, l := range logs {
		addAmount(&calories, l.Totals.Calories)
		addAmount(&protein, l.Totals.ProteinG)
		addAmount(&carbs, l.Totals.CarbsG)
		addAmount(&fat, l.Totals.FatG)
	}
	return DailyTotals{
		Calories: round2(calories),
		Protein:  round2(protein),
		Carbs:    round2(carbs),
		Fat:      round2(fat),
	}
}

// round2 rounds half away from zero.
func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
