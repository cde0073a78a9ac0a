// Package recipeapi is the typed client for the catalog REST API.
package recipeapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pageza/recipelens/backend/internal/httpclient"
	"github.com/pageza/recipelens/backend/internal/search"
	"github.com/pageza/recipelens/backend/internal/types"
)

// DefaultPageSize is the number of results requested per page.
const DefaultPageSize = 12

// API is what the explorer and recipectl need from the catalog.
type API interface {
	SearchRecipes(ctx context.Context, query string, page, pageSize int) (*types.SearchResponse, error)
	GetRecipe(ctx context.Context, id int64) (*types.Recipe, error)
	ExcludeIngredients(ctx context.Context, recipeID int64, ingredientIDs []int64) (*types.Recipe, error)
}

// Client implements API over HTTP.
type Client struct {
	http *httpclient.Client
}

// New creates a Client using the given HTTP client.
func New(hc *httpclient.Client) *Client {
	return &Client{http: hc}
}

// SearchRecipes runs a search. A blank query fails with search.ErrEmptyQuery
// without touching the network.
func (c *Client) SearchRecipes(ctx context.Context, query string, page, pageSize int) (*types.SearchResponse, error) {
	if err := search.ValidateQuery(query); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))

	var out types.SearchResponse
	if err := c.http.GetJSON(ctx, "/recipes/search", params, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []types.Recipe{}
	}
	return &out, nil
}

// GetRecipe fetches a single recipe.
func (c *Client) GetRecipe(ctx context.Context, id int64) (*types.Recipe, error) {
	var out types.Recipe
	if err := c.http.GetJSON(ctx, fmt.Sprintf("/recipes/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExcludeIngredients asks the catalog to recalculate nutrition without the
// given ingredients. The full cumulative id list must be sent every time.
func (c *Client) ExcludeIngredients(ctx context.Context, recipeID int64, ingredientIDs []int64) (*types.Recipe, error) {
	if ingredientIDs == nil {
		ingredientIDs = []int64{}
	}
	body := types.ExcludeRequest{ExcludedIngredientIDs: ingredientIDs}

	var out types.Recipe
	if err := c.http.PostJSON(ctx, fmt.Sprintf("/recipes/%d/exclusions", recipeID), body, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}
