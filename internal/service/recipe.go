package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/recipelens/backend/internal/model"
	"github.com/pageza/recipelens/backend/internal/nutrition"
	"github.com/pageza/recipelens/backend/internal/search"
	"github.com/pageza/recipelens/backend/internal/types"
)

// Page sizes accepted by Search
const (
	DefaultPageSize = 12
	MaxPageSize     = 50
)

var (
	// ErrNotFound is returned when a recipe does not exist
	ErrNotFound = errors.New("recipe not found")
	// ErrUnknownIngredient is returned when an exclusion names an ingredient
	// the recipe does not have
	ErrUnknownIngredient = nutrition.ErrUnknownIngredient
)

// DetailCache caches recipe details by id
type DetailCache interface {
	Get(ctx context.Context, id int64) (*types.Recipe, error)
	Set(ctx context.Context, recipe *types.Recipe) error
	Invalidate(ctx context.Context, id int64) error
}

// RecipeService handles catalog recipe operations
type RecipeService struct {
	db     *gorm.DB
	cache  DetailCache
	images *ImageService
	logger *zap.Logger
}

// NewRecipeService creates a new RecipeService instance. cache may be nil.
func NewRecipeService(db *gorm.DB, cache DetailCache, images *ImageService, logger *zap.Logger) *RecipeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if images == nil {
		images = NewImageService(nil, logger)
	}
	return &RecipeService{db: db, cache: cache, images: images, logger: logger}
}

func preloadIngredients(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

// Search returns one page of recipes matching query. Postgres orders
// keyword matches by embedding distance; other databases by id.
func (s *RecipeService) Search(ctx context.Context, query string, page, pageSize int) (*types.SearchResponse, error) {
	if err := search.ValidateQuery(query); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	base := s.db.WithContext(ctx).Model(&model.Recipe{}).
		Where("LOWER(title) LIKE ? OR EXISTS (SELECT 1 FROM ingredients WHERE ingredients.recipe_id = recipes.id AND LOWER(ingredients.name) LIKE ?)", like, like).
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}

	ordered := base.Preload("Ingredients", preloadIngredients)
	if s.db.Dialector.Name() == "postgres" {
		vec := GenerateEmbedding(query)
		ordered = ordered.Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "embedding <-> ?, id", Vars: []interface{}{vec}},
		})
	} else {
		ordered = ordered.Order("id ASC")
	}

	var records []model.Recipe
	if err := ordered.Offset((page - 1) * pageSize).Limit(pageSize).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to search recipes: %w", err)
	}

	results := make([]types.Recipe, 0, len(records))
	for i := range records {
		r, err := s.toType(ctx, &records[i], nil)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}

	return &types.SearchResponse{
		Results:      results,
		TotalResults: int(total),
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   search.TotalPages(int(total), pageSize),
	}, nil
}

// Get returns a recipe with its full nutrition
func (s *RecipeService) Get(ctx context.Context, id int64) (*types.Recipe, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("recipe cache read failed", zap.Int64("recipe_id", id), zap.Error(err))
		}
		if cached != nil {
			cached.Image = s.images.ResolveURL(ctx, cached.Image)
			return cached, nil
		}
	}

	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	recipe, err := s.toType(ctx, record, nil)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		stored := recipe.Clone()
		stored.Image = record.Image
		if err := s.cache.Set(ctx, stored); err != nil {
			s.logger.Warn("recipe cache write failed", zap.Int64("recipe_id", id), zap.Error(err))
		}
	}
	return recipe, nil
}

// Exclude returns the recipe without the given ingredients and with
// nutrition recalculated for the rest. The id list is the full set of
// exclusions; an empty list returns the unmodified recipe.
func (s *RecipeService) Exclude(ctx context.Context, id int64, excluded []int64) (*types.Recipe, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toType(ctx, record, excluded)
}

// Create stores a new recipe
func (s *RecipeService) Create(ctx context.Context, req *types.CreateRecipeRequest) (*types.Recipe, error) {
	servings := req.Servings
	if servings < 1 {
		servings = 1
	}

	record := &model.Recipe{
		Title:          strings.TrimSpace(req.Title),
		Image:          req.Image,
		ReadyInMinutes: req.ReadyInMinutes,
		Servings:       servings,
		Instructions:   model.JSONBStringArray(req.Instructions),
		Ingredients:    make([]model.Ingredient, len(req.Ingredients)),
	}
	for i, ing := range req.Ingredients {
		record.Ingredients[i] = model.Ingredient{
			Position: i,
			Name:     strings.TrimSpace(ing.Name),
			Amount:   ing.Amount,
			Unit:     ing.Unit,
			Macros: model.Macros{
				Calories:      ing.Calories,
				Protein:       ing.Protein,
				Fat:           ing.Fat,
				Carbohydrates: ing.Carbohydrates,
				Fiber:         ing.Fiber,
			},
		}
	}
	vec := GenerateEmbedding(recipeText(record))
	record.Embedding = &vec

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}
	s.logger.Info("created recipe", zap.Int64("recipe_id", record.ID), zap.String("title", record.Title))
	return s.toType(ctx, record, nil)
}

// SetImage uploads a new image for a recipe and stores its key
func (s *RecipeService) SetImage(ctx context.Context, id int64, data []byte, contentType string) (*types.Recipe, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := s.images.UploadRecipeImage(ctx, id, data, contentType)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(record).Update("image", key).Error; err != nil {
		return nil, fmt.Errorf("failed to update recipe image: %w", err)
	}
	record.Image = key
	s.invalidate(ctx, id)
	return s.toType(ctx, record, nil)
}

// Delete removes a recipe and its ingredients
func (s *RecipeService) Delete(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&model.Recipe{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("recipe_id = ?", id).Delete(&model.Ingredient{}).Error
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *RecipeService) load(ctx context.Context, id int64) (*model.Recipe, error) {
	var record model.Recipe
	err := s.db.WithContext(ctx).Preload("Ingredients", preloadIngredients).First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &record, nil
}

// toType converts a record, dropping excluded ingredients from the list and
// from the nutrition totals.
func (s *RecipeService) toType(ctx context.Context, record *model.Recipe, excluded []int64) (*types.Recipe, error) {
	n, err := nutrition.PerServing(record.Lines(), record.Servings, excluded)
	if err != nil {
		return nil, err
	}

	out := record.ToType(s.images.ResolveURL(ctx, record.Image), n)
	if len(excluded) > 0 {
		skip := make(map[int64]struct{}, len(excluded))
		for _, id := range excluded {
			skip[id] = struct{}{}
		}
		kept := out.Ingredients[:0]
		for _, ing := range out.Ingredients {
			if _, ok := skip[ing.ID]; !ok {
				kept = append(kept, ing)
			}
		}
		out.Ingredients = kept
	}
	return out, nil
}

func (s *RecipeService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("recipe cache invalidation failed", zap.Int64("recipe_id", id), zap.Error(err))
	}
}
