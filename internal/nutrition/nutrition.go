// Package nutrition computes per-serving nutrition from ingredient
// contributions.
package nutrition

import (
	"errors"
	"fmt"
	"math"

	"github.com/pageza/recipelens/backend/internal/types"
)

// Reference daily intake used for percentages.
const (
	DailyCalories      = 2000.0
	DailyProtein       = 50.0
	DailyFat           = 78.0
	DailyCarbohydrates = 275.0
	DailyFiber         = 28.0
)

// ErrUnknownIngredient is returned when an excluded id is not in the recipe.
var ErrUnknownIngredient = errors.New("unknown ingredient")

// Amounts are nutrient quantities: kcal for calories, grams otherwise.
type Amounts struct {
	Calories      float64
	Protein       float64
	Fat           float64
	Carbohydrates float64
	Fiber         float64
}

// Add returns a + b.
func (a Amounts) Add(b Amounts) Amounts {
	return Amounts{
		Calories:      a.Calories + b.Calories,
		Protein:       a.Protein + b.Protein,
		Fat:           a.Fat + b.Fat,
		Carbohydrates: a.Carbohydrates + b.Carbohydrates,
		Fiber:         a.Fiber + b.Fiber,
	}
}

// Scale multiplies every amount by f.
func (a Amounts) Scale(f float64) Amounts {
	return Amounts{
		Calories:      a.Calories * f,
		Protein:       a.Protein * f,
		Fat:           a.Fat * f,
		Carbohydrates: a.Carbohydrates * f,
		Fiber:         a.Fiber * f,
	}
}

// Line is one ingredient's contribution to the whole recipe.
type Line struct {
	IngredientID int64
	Amounts      Amounts
}

// PerServing sums every line not in excluded and divides by servings.
// Servings below one count as one.
func PerServing(lines []Line, servings int, excluded []int64) (types.Nutrition, error) {
	skip := make(map[int64]struct{}, len(excluded))
	known := make(map[int64]struct{}, len(lines))
	for _, l := range lines {
		known[l.IngredientID] = struct{}{}
	}
	for _, id := range excluded {
		if _, ok := known[id]; !ok {
			return types.Nutrition{}, fmt.Errorf("%w: %d", ErrUnknownIngredient, id)
		}
		skip[id] = struct{}{}
	}

	var total Amounts
	for _, l := range lines {
		if _, ok := skip[l.IngredientID]; ok {
			continue
		}
		total = total.Add(l.Amounts)
	}
	return Summarize(total, servings), nil
}

// Summarize converts whole-recipe totals into rounded per-serving values.
func Summarize(total Amounts, servings int) types.Nutrition {
	if servings < 1 {
		servings = 1
	}
	per := total.Scale(1 / float64(servings))

	return types.Nutrition{
		Calories:      round1(per.Calories),
		Protein:       round1(per.Protein),
		Fat:           round1(per.Fat),
		Carbohydrates: round1(per.Carbohydrates),
		Fiber:         round1(per.Fiber),
		PercentDailyValues: types.PercentDailyValues{
			Calories:      percent(per.Calories, DailyCalories),
			Protein:       percent(per.Protein, DailyProtein),
			Fat:           percent(per.Fat, DailyFat),
			Carbohydrates: percent(per.Carbohydrates, DailyCarbohydrates),
			Fiber:         percent(per.Fiber, DailyFiber),
		},
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func percent(v, daily float64) int {
	return int(math.Round(v / daily * 100))
}
