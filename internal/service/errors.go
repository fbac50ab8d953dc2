package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTaskRequired is returned when a task instruction is blank.
	ErrTaskRequired = errors.New("task required")

	// ErrIDRequired is returned when a resource id is blank.
	ErrIDRequired = errors.New("id required")

	// ErrUnauthorized is returned for any 401 response.
	ErrUnauthorized = errors.New("session expired (run: dialdesk login)")

	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrTimeout is returned when a single API call exceeds its deadline.
	ErrTimeout = errors.New("request timed out")
)

// APIError is the backend error envelope {error: {code, message, details?}}.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s, status %d)", msg, e.Code, e.Status)
	}
	return fmt.Sprintf("%s (status %d)", msg, e.Status)
}

// Unwrap maps well-known statuses onto sentinel errors so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// IsServerError reports whether err is an APIError with a 5xx status.
func IsServerError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 500
}
