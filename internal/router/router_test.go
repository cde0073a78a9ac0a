package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/pageza/recipelens/backend/internal/exclusion"
	"github.com/pageza/recipelens/backend/internal/service"
	"github.com/pageza/recipelens/backend/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCatalog struct{}

func (stubCatalog) SearchRecipes(context.Context, string, int, int) (*types.SearchResponse, error) {
	return &types.SearchResponse{Results: []types.Recipe{}}, nil
}

func (stubCatalog) GetRecipe(_ context.Context, id int64) (*types.Recipe, error) {
	return &types.Recipe{ID: id, Title: "Stub"}, nil
}

func (stubCatalog) ExcludeIngredients(_ context.Context, id int64, _ []int64) (*types.Recipe, error) {
	return &types.Recipe{ID: id, Title: "Stub"}, nil
}

func explorer(t *testing.T, checks map[string]HealthCheck) *gin.Engine {
	sessions := exclusion.NewManager(exclusion.NewMemoryStore(), stubCatalog{}, nil)
	return NewExplorerRouter(Options{
		Service:  "explorer",
		Logger:   zaptest.NewLogger(t),
		Registry: prometheus.NewRegistry(),
		Checks:   checks,
	}, stubCatalog{}, sessions)
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	r := explorer(t, map[string]HealthCheck{"redis": func(context.Context) error { return nil }})
	w := get(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"explorer","dependencies":{"redis":"ok"}}`, w.Body.String())

	r = explorer(t, map[string]HealthCheck{"redis": func(context.Context) error { return errors.New("refused") }})
	w = get(r, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
}

func TestExplorerRoutesAndMetrics(t *testing.T) {
	r := explorer(t, nil)

	w := get(r, "/api/v1/recipes/3")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = get(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `recipelens_http_requests_total{method="GET",route="/api/v1/recipes/:id",service="explorer",status="200"} 1`))
}

func TestCatalogRouterRequiresTokenForWrites(t *testing.T) {
	r := NewCatalogRouter(Options{
		Service:  "catalog",
		Logger:   zaptest.NewLogger(t),
		Registry: prometheus.NewRegistry(),
	}, nil, service.NewAuthService("secret"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/recipes/1", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
