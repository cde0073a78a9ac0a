package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ConnectionMessage is shown for network-level failures.
const ConnectionMessage = "Unable to connect to the server. Please check your connection and try again."

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Body    any
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

// NetworkError wraps transport failures such as refused connections, DNS
// errors and attempt timeouts.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsCanceled reports whether err comes from the caller abandoning the
// request. Cancellation is not a failure and should not be shown to users.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsNetworkError reports whether err is a transport-level failure.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// UserMessage maps err to the text a user should see. Cancellation maps to
// the empty string.
func UserMessage(err error) string {
	if err == nil || IsCanceled(err) {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if IsNetworkError(err) {
		return ConnectionMessage
	}
	return err.Error()
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var parsed any
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		apiErr.Body = parsed
	} else if len(body) > 0 {
		apiErr.Body = strings.TrimSpace(string(body))
	}

	apiErr.Message = messageFromBody(parsed)
	if apiErr.Message == "" {
		apiErr.Message = DefaultMessage(status)
	}
	return apiErr
}

func messageFromBody(parsed any) string {
	obj, ok := parsed.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"message", "error"} {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// DefaultMessage returns the status-specific message used when the backend
// does not provide one.
func DefaultMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request was invalid."
	case http.StatusUnauthorized:
		return "You need to sign in to do that."
	case http.StatusForbidden:
		return "You do not have permission to do that."
	case http.StatusNotFound:
		return "The requested recipe could not be found."
	case http.StatusRequestTimeout:
		return "The request timed out. Please try again."
	case http.StatusConflict:
		return "Another update is already in progress."
	case http.StatusTooManyRequests:
		return "Too many requests. Please wait a moment and try again."
	case http.StatusInternalServerError:
		return "The server encountered an error. Please try again later."
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return fmt.Sprintf("Request failed with status %d.", status)
	}
}
