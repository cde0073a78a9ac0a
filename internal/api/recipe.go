package api

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipelens/backend/internal/search"
	"github.com/pageza/recipelens/backend/internal/types"
)

// MaxImageBytes bounds recipe image uploads
const MaxImageBytes = 5 << 20

// RecipeStore is the catalog backend behind RecipeHandler
type RecipeStore interface {
	Search(ctx context.Context, query string, page, pageSize int) (*types.SearchResponse, error)
	Get(ctx context.Context, id int64) (*types.Recipe, error)
	Exclude(ctx context.Context, id int64, excluded []int64) (*types.Recipe, error)
	Create(ctx context.Context, req *types.CreateRecipeRequest) (*types.Recipe, error)
	SetImage(ctx context.Context, id int64, data []byte, contentType string) (*types.Recipe, error)
	Delete(ctx context.Context, id int64) error
}

// RecipeHandler serves the catalog REST API
type RecipeHandler struct {
	recipes RecipeStore
	auth    gin.HandlerFunc
}

// NewRecipeHandler creates a RecipeHandler. auth guards the write routes.
func NewRecipeHandler(recipes RecipeStore, auth gin.HandlerFunc) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, auth: auth}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("/search", h.SearchRecipes)
		recipes.GET("/:id", h.GetRecipe)
		recipes.POST("/:id/exclusions", h.ExcludeIngredients)
	}

	admin := router.Group("/recipes", h.auth)
	{
		admin.POST("", h.CreateRecipe)
		admin.DELETE("/:id", h.DeleteRecipe)
		admin.PUT("/:id/image", h.UploadImage)
	}
}

// SearchRecipes handles GET /recipes/search?query=&page=&pageSize=
func (h *RecipeHandler) SearchRecipes(c *gin.Context) {
	page := search.ParsePage(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))

	resp, err := h.recipes.Search(c.Request.Context(), c.Query("query"), page, pageSize)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetRecipe handles GET /recipes/:id
func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// ExcludeIngredients handles POST /recipes/:id/exclusions
func (h *RecipeHandler) ExcludeIngredients(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req types.ExcludeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipe, err := h.recipes.Exclude(c.Request.Context(), id, req.ExcludedIngredientIDs)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// CreateRecipe handles POST /recipes
func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req types.CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipe, err := h.recipes.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

// DeleteRecipe handles DELETE /recipes/:id
func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.recipes.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadImage handles PUT /recipes/:id/image with the raw image as body
func (h *RecipeHandler) UploadImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxImageBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image body is empty"})
		return
	}

	recipe, err := h.recipes.SetImage(c.Request.Context(), id, data, c.ContentType())
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, recipe)
}
