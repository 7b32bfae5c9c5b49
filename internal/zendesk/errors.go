package zendesk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError represents a non-2xx response from the Zendesk REST API.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Code is Zendesk's short error identifier, e.g. "RecordNotFound".
	Code string

	// Message is the human-readable description.
	Message string
}

func (err *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "zendesk: HTTP %d", err.StatusCode)
	if err.Code != "" {
		fmt.Fprintf(&b, ": %s", err.Code)
	}
	if err.Message != "" {
		fmt.Fprintf(&b, ": %s", err.Message)
	}
	return b.String()
}

// IsNotFound reports whether err is a Zendesk 404 response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusNotFound
}

// IsRateLimited reports whether err is a Zendesk 429 response.
func IsRateLimited(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusTooManyRequests
}

// IsUnauthorized reports whether err is a credential failure.
func IsUnauthorized(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) &&
		(apiError.StatusCode == http.StatusUnauthorized || apiError.StatusCode == http.StatusForbidden)
}

// parseAPIError decodes the two shapes Zendesk uses for error bodies:
// {"error": "Code", "description": "..."} and
// {"error": {"title": "...", "message": "..."}}.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var envelope struct {
		Error       json.RawMessage `json:"error"`
		Description string          `json:"description"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		apiErr.Message = strings.TrimSpace(string(body))
		if len(apiErr.Message) > 200 {
			apiErr.Message = apiErr.Message[:200]
		}
		return apiErr
	}

	var code string
	if err := json.Unmarshal(envelope.Error, &code); err == nil {
		apiErr.Code = code
		apiErr.Message = envelope.Description
		return apiErr
	}

	var detail struct {
		Title   string `json:"title"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detail); err == nil {
		apiErr.Code = detail.Title
		apiErr.Message = detail.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = envelope.Description
	}
	return apiErr
}
