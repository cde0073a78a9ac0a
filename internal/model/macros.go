package model

import "github.com/pageza/recipelens/backend/internal/nutrition"

// Macros represents an ingredient's nutrient contribution to the whole
// recipe.
type Macros struct {
	Calories      float64 `gorm:"not null;default:0"`
	Protein       float64 `gorm:"not null;default:0"`
	Fat           float64 `gorm:"not null;default:0"`
	Carbohydrates float64 `gorm:"not null;default:0"`
	Fiber         float64 `gorm:"not null;default:0"`
}

// Amounts converts m for the nutrition calculator.
func (m Macros) Amounts() nutrition.Amounts {
	return nutrition.Amounts{
		Calories:      m.Calories,
		Protein:       m.Protein,
		Fat:           m.Fat,
		Carbohydrates: m.Carbohydrates,
		Fiber:         m.Fiber,
	}
}
