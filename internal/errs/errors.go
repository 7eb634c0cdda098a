package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports the first offending form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// APIError is a failed backend call: a non-2xx status or success=false.
type APIError struct {
	Status      int    // HTTP status code
	Message     string // server-provided message, may be empty
	Application bool   // 2xx with success=false
}

func (e *APIError) Error() string {
	if e.Application {
		return fmt.Sprintf("api: application failure: %s", e.Message)
	}
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Is maps the status code onto the sentinel taxonomy.
func (e *APIError) Is(target error) bool {
	if e.Application {
		return target == ErrApplication
	}
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrBadRequest:
		return e.Status >= 400 && e.Status < 500
	case ErrServer:
		return e.Status >= 500
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// ServerMessage returns the backend-provided message carried by err, or "".
func ServerMessage(err error) string {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return ""
}
