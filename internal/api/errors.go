package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipelens/backend/internal/exclusion"
	"github.com/pageza/recipelens/backend/internal/httpclient"
	"github.com/pageza/recipelens/backend/internal/search"
	"github.com/pageza/recipelens/backend/internal/service"
)

// statusClientClosedRequest is logged when the caller went away.
const statusClientClosedRequest = 499

// respondError maps err to a status and writes {"error": message}. extra
// fields are merged into the body.
func respondError(c *gin.Context, err error, extra gin.H) {
	status, message := classify(err)
	if status == statusClientClosedRequest {
		c.AbortWithStatus(status)
		return
	}

	body := gin.H{"error": message}
	for k, v := range extra {
		body[k] = v
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

func classify(err error) (int, string) {
	var apiErr *httpclient.APIError
	switch {
	case httpclient.IsCanceled(err):
		return statusClientClosedRequest, ""
	case errors.Is(err, search.ErrEmptyQuery):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, exclusion.ErrNoSelection):
		return http.StatusBadRequest, exclusion.NoSelectionMessage
	case errors.Is(err, exclusion.ErrUnknownIngredient),
		errors.Is(err, service.ErrUnknownIngredient),
		errors.Is(err, exclusion.ErrNotOpen):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, exclusion.ErrBusy), errors.Is(err, exclusion.ErrSuperseded):
		return http.StatusConflict, httpclient.DefaultMessage(http.StatusConflict)
	case errors.Is(err, exclusion.ErrSessionNotFound):
		return http.StatusNotFound, "Session not found"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Recipe not found"
	case errors.Is(err, service.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, service.ErrStorageDisabled):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &apiErr):
		return apiErr.Status, apiErr.Message
	case httpclient.IsNetworkError(err):
		return http.StatusBadGateway, httpclient.ConnectionMessage
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return 0, false
	}
	return id, true
}
