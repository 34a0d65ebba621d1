package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bobmcallan/events-portal/internal/models"
)

var (
	// ErrUnauthorized matches any 401 response.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSessionExpired is returned when a 401 could not be recovered by a
	// token refresh and the session has been cleared.
	ErrSessionExpired = errors.New("session expired")
	// ErrNoRefreshToken is returned alongside ErrSessionExpired when no
	// refresh token was available.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrNotFound matches any 404 response.
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx response from the events API.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Problem    *models.ProblemDetails
	Body       string
}

func (e *APIError) Error() string {
	msg := e.Message()
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// Unwrap maps well-known status codes onto sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Message returns a human-readable summary suitable for a notification.
func (e *APIError) Message() string {
	if e.Problem != nil && e.Problem.Title != "" {
		return e.Problem.Title
	}
	var generic struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal([]byte(e.Body), &generic) == nil {
		if generic.Message != "" {
			return generic.Message
		}
		if generic.Error != "" {
			return generic.Error
		}
	}
	if text := http.StatusText(e.StatusCode); text != "" {
		return text
	}
	return strings.TrimSpace(e.Body)
}

// FieldErrors returns the per-field rejections reported by the API, if any.
func (e *APIError) FieldErrors() map[string]string {
	return e.Problem.FieldErrors()
}

// newAPIError decodes body as a problem document when possible.
func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Method:     method,
		Path:       path,
		Body:       string(body),
	}
	var problem models.ProblemDetails
	if len(body) > 0 && json.Unmarshal(body, &problem) == nil && (problem.Title != "" || len(problem.InvalidParams) > 0) {
		apiErr.Problem = &problem
	}
	return apiErr
}

// AsAPIError returns the first *APIError in err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsStatus reports whether err carries an API response with the given status.
func IsStatus(err error, status int) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.StatusCode == status
}
