package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pageza/recipelens/backend/internal/types"
)

// RecipeCache is a read-through cache for recipe details. Cached recipes
// keep their stored image key; URLs are resolved on the way out.
type RecipeCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRecipeCache creates a RecipeCache
func NewRecipeCache(client *redis.Client, ttl time.Duration) *RecipeCache {
	return &RecipeCache{redis: client, ttl: ttl}
}

func detailKey(id int64) string {
	return fmt.Sprintf("recipe:detail:%d", id)
}

// Get returns the cached recipe, or nil on a miss
func (c *RecipeCache) Get(ctx context.Context, id int64) (*types.Recipe, error) {
	data, err := c.redis.Get(ctx, detailKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe from Redis: %w", err)
	}

	var recipe types.Recipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached recipe: %w", err)
	}
	return &recipe, nil
}

// Set stores recipe
func (c *RecipeCache) Set(ctx context.Context, recipe *types.Recipe) error {
	data, err := json.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe: %w", err)
	}
	if err := c.redis.Set(ctx, detailKey(recipe.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache recipe in Redis: %w", err)
	}
	return nil
}

// Invalidate drops a cached recipe
func (c *RecipeCache) Invalidate(ctx context.Context, id int64) error {
	if err := c.redis.Del(ctx, detailKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete cached recipe: %w", err)
	}
	return nil
}
