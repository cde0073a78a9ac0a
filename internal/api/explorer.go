package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipelens/backend/internal/exclusion"
	"github.com/pageza/recipelens/backend/internal/recipeapi"
	"github.com/pageza/recipelens/backend/internal/search"
	"github.com/pageza/recipelens/backend/internal/types"
)

// SearchPage is the explorer's answer to a search. Links carry the URL
// state for the current, next and previous pages.
type SearchPage struct {
	Query        string            `json:"query"`
	Page         int               `json:"page"`
	TotalResults int               `json:"totalResults"`
	TotalPages   int               `json:"totalPages"`
	Results      []types.Recipe    `json:"results"`
	Links        map[string]string `json:"links"`
}

// SessionResponse pairs a session id with its state
type SessionResponse struct {
	SessionID string           `json:"sessionId"`
	State     *exclusion.State `json:"state"`
}

// ExplorerHandler serves the browsing API on top of the catalog client
type ExplorerHandler struct {
	catalog  recipeapi.API
	sessions *exclusion.Manager
}

// NewExplorerHandler creates an ExplorerHandler
func NewExplorerHandler(catalog recipeapi.API, sessions *exclusion.Manager) *ExplorerHandler {
	return &ExplorerHandler{catalog: catalog, sessions: sessions}
}

func (h *ExplorerHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/search", h.Search)
	router.GET("/recipes/:id", h.GetRecipe)
	router.POST("/recipes/:id/session", h.OpenSession)

	sessions := router.Group("/sessions/:sid")
	{
		sessions.GET("", h.GetSession)
		sessions.DELETE("", h.CloseSession)
		sessions.POST("/toggle", h.Toggle)
		sessions.POST("/apply", h.Apply)
		sessions.POST("/reset", h.Reset)
		sessions.DELETE("/exclusions/:ingredientId", h.RemoveExclusion)
	}
}

// Search handles GET /search?q=&page=
func (h *ExplorerHandler) Search(c *gin.Context) {
	state := search.FromValues(c.Request.URL.Query())

	resp, err := h.catalog.SearchRecipes(c.Request.Context(), state.Query, state.Page, recipeapi.DefaultPageSize)
	if err != nil {
		respondError(c, err, nil)
		return
	}

	totalPages := resp.TotalPages
	if totalPages == 0 {
		totalPages = search.TotalPages(resp.TotalResults, recipeapi.DefaultPageSize)
	}

	path := c.Request.URL.Path
	links := map[string]string{"self": path + "?" + state.Encode()}
	if state.Page < totalPages {
		links["next"] = path + "?" + state.WithPage(state.Page+1).Encode()
	}
	if state.Page > 1 {
		links["prev"] = path + "?" + state.WithPage(state.Page-1).Encode()
	}

	c.JSON(http.StatusOK, SearchPage{
		Query:        state.Query,
		Page:         state.Page,
		TotalResults: resp.TotalResults,
		TotalPages:   totalPages,
		Results:      resp.Results,
		Links:        links,
	})
}

// GetRecipe handles GET /recipes/:id
func (h *ExplorerHandler) GetRecipe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	recipe, err := h.catalog.GetRecipe(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// OpenSession handles POST /recipes/:id/session. It loads the recipe and
// starts an exclusion session with it as the original.
func (h *ExplorerHandler) OpenSession(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	recipe, err := h.catalog.GetRecipe(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, nil)
		return
	}

	sid, state, err := h.sessions.Open(c.Request.Context(), recipe)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, SessionResponse{SessionID: sid, State: state})
}

// GetSession handles GET /sessions/:sid
func (h *ExplorerHandler) GetSession(c *gin.Context) {
	sid := c.Param("sid")
	state, err := h.sessions.Get(c.Request.Context(), sid)
	h.respond(c, sid, state, err)
}

// CloseSession handles DELETE /sessions/:sid
func (h *ExplorerHandler) CloseSession(c *gin.Context) {
	if err := h.sessions.Close(c.Request.Context(), c.Param("sid")); err != nil {
		respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// Toggle handles POST /sessions/:sid/toggle
func (h *ExplorerHandler) Toggle(c *gin.Context) {
	var req types.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sid := c.Param("sid")
	state, err := h.sessions.Toggle(c.Request.Context(), sid, req.IngredientID)
	h.respond(c, sid, state, err)
}

// Apply handles POST /sessions/:sid/apply
func (h *ExplorerHandler) Apply(c *gin.Context) {
	sid := c.Param("sid")
	state, err := h.sessions.Apply(c.Request.Context(), sid)
	h.respond(c, sid, state, err)
}

// Reset handles POST /sessions/:sid/reset
func (h *ExplorerHandler) Reset(c *gin.Context) {
	sid := c.Param("sid")
	state, err := h.sessions.Reset(c.Request.Context(), sid)
	h.respond(c, sid, state, err)
}

// RemoveExclusion handles DELETE /sessions/:sid/exclusions/:ingredientId
func (h *ExplorerHandler) RemoveExclusion(c *gin.Context) {
	ingredientID, ok := parseID(c, "ingredientId")
	if !ok {
		return
	}

	sid := c.Param("sid")
	state, err := h.sessions.RemoveExclusion(c.Request.Context(), sid, ingredientID)
	h.respond(c, sid, state, err)
}

// respond writes the session state. Failed operations still carry the
// state so the client can show the message next to the unchanged recipe.
func (h *ExplorerHandler) respond(c *gin.Context, sid string, state *exclusion.State, err error) {
	if err != nil {
		var extra gin.H
		if state != nil {
			extra = gin.H{"sessionId": sid, "state": state}
		}
		respondError(c, err, extra)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{SessionID: sid, State: state})
}
