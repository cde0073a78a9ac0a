package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/pageza/recipelens/backend/internal/nutrition"
	"github.com/pageza/recipelens/backend/internal/types"
)

// EmbeddingDimensions is the size of the recipe embedding column.
const EmbeddingDimensions = 64

// JSONBStringArray is a custom type for handling string arrays in JSONB
type JSONBStringArray []string

// Value implements the driver.Valuer interface
func (a JSONBStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface
func (a *JSONBStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONBStringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// Recipe is a catalog entry. Image holds either an object key in the
// image bucket or a full URL.
type Recipe struct {
	ID             int64            `gorm:"primaryKey;autoIncrement"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt   `gorm:"index"`
	Title          string           `gorm:"size:255;not null"`
	Image          string           `gorm:"size:512"`
	ReadyInMinutes int              `gorm:"not null;default:0"`
	Servings       int              `gorm:"not null;default:1"`
	Instructions   JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'"`
	Embedding      *pgvector.Vector `gorm:"type:vector(64)"`
	Ingredients    []Ingredient     `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

// Ingredient is one line of a recipe with its contribution to the whole
// recipe's nutrition.
type Ingredient struct {
	ID       int64    `gorm:"primaryKey;autoIncrement"`
	RecipeID int64    `gorm:"not null;index"`
	Position int      `gorm:"not null;default:0"`
	Name     string   `gorm:"size:255;not null"`
	Amount   *float64
	Unit     string   `gorm:"size:50"`
	Macros   Macros   `gorm:"embedded"`
}

// Lines returns the nutrition contributions of every ingredient.
func (r *Recipe) Lines() []nutrition.Line {
	lines := make([]nutrition.Line, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		lines[i] = nutrition.Line{IngredientID: ing.ID, Amounts: ing.Macros.Amounts()}
	}
	return lines
}

// ToType converts the record to its wire form with the given image URL and
// nutrition.
func (r *Recipe) ToType(imageURL string, n types.Nutrition) *types.Recipe {
	out := &types.Recipe{
		ID:             r.ID,
		Title:          r.Title,
		Image:          imageURL,
		ReadyInMinutes: r.ReadyInMinutes,
		Servings:       r.Servings,
		Ingredients:    make([]types.Ingredient, len(r.Ingredients)),
		Instructions:   append([]string{}, r.Instructions...),
		Nutrition:      n,
	}
	for i, ing := range r.Ingredients {
		out.Ingredients[i] = types.Ingredient{
			ID:     ing.ID,
			Name:   ing.Name,
			Amount: ing.Amount,
			Unit:   ing.Unit,
		}
	}
	return out
}
