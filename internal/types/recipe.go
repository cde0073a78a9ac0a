package types

// Recipe is the wire representation of a recipe as served by the catalog
// and consumed by the explorer and recipectl.
type Recipe struct {
	ID             int64        `json:"id"`
	Title          string       `json:"title"`
	Image          string       `json:"image"`
	ReadyInMinutes int          `json:"readyInMinutes"`
	Servings       int          `json:"servings"`
	Ingredients    []Ingredient `json:"ingredients"`
	Instructions   []string     `json:"instructions"`
	Nutrition      Nutrition    `json:"nutrition"`
}

// Ingredient is a single recipe line. Amount and Unit are optional.
type Ingredient struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Amount *float64 `json:"amount,omitempty"`
	Unit   string   `json:"unit,omitempty"`
}

// Nutrition holds per-serving values and their share of the daily value.
type Nutrition struct {
	Calories           float64            `json:"calories"`
	Protein            float64            `json:"protein"`
	Fat                float64            `json:"fat"`
	Carbohydrates      float64            `json:"carbohydrates"`
	Fiber              float64            `json:"fiber"`
	PercentDailyValues PercentDailyValues `json:"percentDailyValues"`
}

// PercentDailyValues are whole percentages of the reference daily intake.
type PercentDailyValues struct {
	Calories      int `json:"calories"`
	Protein       int `json:"protein"`
	Fat           int `json:"fat"`
	Carbohydrates int `json:"carbohydrates"`
	Fiber         int `json:"fiber"`
}

// Clone returns a deep copy so a caller can keep an original around while
// the displayed copy is replaced.
func (r *Recipe) Clone() *Recipe {
	if r == nil {
		return nil
	}
	out := *r
	if r.Ingredients != nil {
		out.Ingredients = make([]Ingredient, len(r.Ingredients))
		for i, ing := range r.Ingredients {
			out.Ingredients[i] = ing
			if ing.Amount != nil {
				amount := *ing.Amount
				out.Ingredients[i].Amount = &amount
			}
		}
	}
	if r.Instructions != nil {
		out.Instructions = append([]string(nil), r.Instructions...)
	}
	return &out
}

// Ingredient returns the ingredient with the given id.
func (r *Recipe) Ingredient(id int64) (Ingredient, bool) {
	for _, ing := range r.Ingredients {
		if ing.ID == id {
			return ing, true
		}
	}
	return Ingredient{}, false
}
