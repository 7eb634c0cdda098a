// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across transport/service layers.
var (
	// ErrValidation indicates a local form validation failure; nothing was sent.
	ErrValidation = errors.New("validation failed")

	// ErrTransport indicates the backend could not be reached at all.
	ErrTransport = errors.New("transport failure")

	// ErrMalformed indicates a response that does not match the envelope contract.
	ErrMalformed = errors.New("malformed response")

	// ErrUnauthorized indicates HTTP 401 from the backend.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates HTTP 404 from the backend.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates HTTP 409 (duplicate username/email and similar).
	ErrConflict = errors.New("conflict")

	// ErrBadRequest indicates a generic 4xx rejection of the request.
	ErrBadRequest = errors.New("bad request")

	// ErrServer indicates HTTP status >= 500.
	ErrServer = errors.New("server error")

	// ErrApplication indicates success=false inside a 2xx envelope.
	ErrApplication = errors.New("application failure")

	// ErrNoSession indicates an authenticated operation was attempted without a session.
	ErrNoSession = errors.New("no session (login required)")

	// ErrInFlight indicates the same action is already running for the same target.
	ErrInFlight = errors.New("already in progress")

	// ErrNotEligible indicates a client-side precondition (borrowable, reservable, fine > 0) failed.
	ErrNotEligible = errors.New("not eligible")

	// ErrDeclined indicates the user did not confirm an action.
	ErrDeclined = errors.New("declined by user")
)
