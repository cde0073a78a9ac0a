package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pageza/recipelens/backend/internal/exclusion"
	"github.com/pageza/recipelens/backend/internal/httpclient"
	"github.com/pageza/recipelens/backend/internal/search"
	"github.com/pageza/recipelens/backend/internal/service"
	"github.com/pageza/recipelens/backend/internal/types"
)

type fakeCatalog struct {
	total      int
	searchErr  error
	excludeErr error
}

func (f *fakeCatalog) SearchRecipes(_ context.Context, query string, page, pageSize int) (*types.SearchResponse, error) {
	if err := search.ValidateQuery(query); err != nil {
		return nil, err
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &types.SearchResponse{
		Results:      []types.Recipe{*soup()},
		TotalResults: f.total,
		Page:         page,
		PageSize:     pageSize,
	}, nil
}

func (f *fakeCatalog) GetRecipe(_ context.Context, id int64) (*types.Recipe, error) {
	if id != 7 {
		return nil, &httpclient.APIError{Status: http.StatusNotFound, Message: "Recipe not found"}
	}
	return soup(), nil
}

func (f *fakeCatalog) ExcludeIngredients(_ context.Context, _ int64, ids []int64) (*types.Recipe, error) {
	if f.excludeErr != nil {
		return nil, f.excludeErr
	}
	out := soup()
	out.Nutrition.Calories = 100 - 10*float64(len(ids))
	return out, nil
}

func soup() *types.Recipe {
	return &types.Recipe{
		ID:       7,
		Title:    "Tomato Soup",
		Servings: 2,
		Ingredients: []types.Ingredient{
			{ID: 1, Name: "Tomato"},
			{ID: 2, Name: "Garlic"},
			{ID: 3, Name: "Basil"},
		},
		Nutrition: types.Nutrition{Calories: 100},
	}
}

func setupExplorerTestRouter(t *testing.T, catalog *fakeCatalog) *gin.Engine {
	t.Helper()
	sessions := exclusion.NewManager(exclusion.NewMemoryStore(), catalog, zaptest.NewLogger(t))
	router := gin.New()
	NewExplorerHandler(catalog, sessions).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestExplorerSearchLinks(t *testing.T) {
	router := setupExplorerTestRouter(t, &fakeCatalog{total: 30})

	w := doJSON(t, router, http.MethodGet, "/api/v1/search?q=soup&page=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page SearchPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, "soup", page.Query)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, map[string]string{
		"self": "/api/v1/search?page=2&q=soup",
		"next": "/api/v1/search?page=3&q=soup",
		"prev": "/api/v1/search?q=soup",
	}, page.Links)
}

func TestExplorerSearchFirstAndLastPage(t *testing.T) {
	router := setupExplorerTestRouter(t, &fakeCatalog{total: 5})

	w := doJSON(t, router, http.MethodGet, "/api/v1/search?q=soup&page=abc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page SearchPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, map[string]string{"self": "/api/v1/search?q=soup"}, page.Links)
}

func TestExplorerSearchErrors(t *testing.T) {
	router := setupExplorerTestRouter(t, &fakeCatalog{})
	w := doJSON(t, router, http.MethodGet, "/api/v1/search?q=", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	router = setupExplorerTestRouter(t, &fakeCatalog{searchErr: &httpclient.NetworkError{Err: errors.New("connection refused")}})
	w = doJSON(t, router, http.MethodGet, "/api/v1/search?q=soup", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"`+httpclient.ConnectionMessage+`"}`, w.Body.String())

	router = setupExplorerTestRouter(t, &fakeCatalog{searchErr: &httpclient.APIError{Status: http.StatusServiceUnavailable, Message: "down for maintenance"}})
	w = doJSON(t, router, http.MethodGet, "/api/v1/search?q=soup", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"down for maintenance"}`, w.Body.String())
}

func TestExplorerGetRecipe(t *testing.T) {
	router := setupExplorerTestRouter(t, &fakeCatalog{})

	w := doJSON(t, router, http.MethodGet, "/api/v1/recipes/7", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/recipes/8", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Recipe not found"}`, w.Body.String())
}

func decodeSession(t *testing.T, body []byte) SessionResponse {
	t.Helper()
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotNil(t, resp.State)
	return resp
}

func TestExplorerSessionFlow(t *testing.T) {
	router := setupExplorerTestRouter(t, &fakeCatalog{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/7/session", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sid := decodeSession(t, w.Body.Bytes()).SessionID
	base := "/api/v1/sessions/" + sid

	w = doJSON(t, router, http.MethodPost, base+"/toggle", "", types.ToggleRequest{IngredientID: 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{2}, decodeSession(t, w.Body.Bytes()).State.Pending)

	w = doJSON(t, router, http.MethodPost, base+"/apply", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := decodeSession(t, w.Body.Bytes()).State
	assert.Equal(t, []int64{2}, state.Cumulative)
	assert.Empty(t, state.Pending)
	assert.Equal(t, 90.0, state.Recipe.Nutrition.Calories)

	w = doJSON(t, router, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{2}, decodeSession(t, w.Body.Bytes()).State.Cumulative)

	w = doJSON(t, router, http.MethodDelete, base+"/exclusions/2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	state = decodeSession(t, w.Body.Bytes()).State
	assert.Empty(t, state.Cumulative)
	assert.Equal(t, 100.0, state.Recipe.Nutrition.Calories)

	w = doJSON(t, router, http.MethodPost, base+"/reset", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodDelete, base, "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, base, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExplorerApplyWithoutSelection(t *testing.T) {
	router := setupExplorerTestRouter(t, &fakeCatalog{})
	w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/7/session", "", nil)
	sid := decodeSession(t, w.Body.Bytes()).SessionID

	w = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sid+"/apply", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error string          `json:"error"`
		State exclusion.State `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, exclusion.NoSelectionMessage, body.Error)
	assert.Equal(t, exclusion.NoSelectionMessage, body.State.Error)
}

func TestExplorerApplyUpstreamFailureKeepsRecipe(t *testing.T) {
	catalog := &fakeCatalog{excludeErr: &httpclient.APIError{Status: http.StatusInternalServerError, Message: "recalculation failed"}}
	router := setupExplorerTestRouter(t, catalog)
	w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/7/session", "", nil)
	sid := decodeSession(t, w.Body.Bytes()).SessionID

	doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sid+"/toggle", "", types.ToggleRequest{IngredientID: 1})
	w = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sid+"/apply", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body struct {
		Error string          `json:"error"`
		State exclusion.State `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "recalculation failed", body.Error)
	assert.Equal(t, 100.0, body.State.Recipe.Nutrition.Calories)
	assert.Equal(t, []int64{1}, body.State.Pending)
}

func TestExplorerToggleUnknownIngredient(t *testing.T) {
	router := setupExplorerTestRouter(t, &fakeCatalog{})
	w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/7/session", "", nil)
	sid := decodeSession(t, w.Body.Bytes()).SessionID

	w = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sid+"/toggle", "", types.ToggleRequest{IngredientID: 99})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sid+"/toggle", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"busy", exclusion.ErrBusy, http.StatusConflict},
		{"superseded", exclusion.ErrSuperseded, http.StatusConflict},
		{"no session", exclusion.ErrSessionNotFound, http.StatusNotFound},
		{"no recipe", service.ErrNotFound, http.StatusNotFound},
		{"unknown ingredient", service.ErrUnknownIngredient, http.StatusBadRequest},
		{"bad image", service.ErrUnsupportedImage, http.StatusUnsupportedMediaType},
		{"canceled", context.Canceled, statusClientClosedRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := classify(tc.err)
			assert.Equal(t, tc.status, status)
		})
	}
}
