package types

// SearchResponse is returned by GET /recipes/search.
type SearchResponse struct {
	Results      []Recipe `json:"results"`
	TotalResults int      `json:"totalResults"`
	Page         int      `json:"page,omitempty"`
	PageSize     int      `json:"pageSize,omitempty"`
	TotalPages   int      `json:"totalPages,omitempty"`
}

// ExcludeRequest is the body of POST /recipes/{id}/exclusions.
type ExcludeRequest struct {
	ExcludedIngredientIDs []int64 `json:"excludedIngredientIds"`
}

// CreateRecipeRequest represents the request body for creating a catalog recipe
type CreateRecipeRequest struct {
	Title          string                    `json:"title" binding:"required"`
	Image          string                    `json:"image"`
	ReadyInMinutes int                       `json:"readyInMinutes"`
	Servings       int                       `json:"servings"`
	Instructions   []string                  `json:"instructions"`
	Ingredients    []CreateIngredientRequest `json:"ingredients" binding:"required,min=1,dive"`
}

// CreateIngredientRequest carries an ingredient and its nutrient contribution
// to the whole recipe.
type CreateIngredientRequest struct {
	Name          string   `json:"name" binding:"required"`
	Amount        *float64 `json:"amount"`
	Unit          string   `json:"unit"`
	Calories      float64  `json:"calories"`
	Protein       float64  `json:"protein"`
	Fat           float64  `json:"fat"`
	Carbohydrates float64  `json:"carbohydrates"`
	Fiber         float64  `json:"fiber"`
}

// ToggleRequest is the body of POST /sessions/{sid}/toggle.
type ToggleRequest struct {
	IngredientID int64 `json:"ingredientId" binding:"required"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
