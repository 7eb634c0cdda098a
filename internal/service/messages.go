// Package service contains the client flows: auth, catalog, borrows,
// reservations, memberships, ratings and payment callbacks.
//
// Every flow talks to the backend through repository interfaces, surfaces
// failures through a single-slot ui.Notifier and returns navigation commands
// instead of navigating itself.
package service

import (
	"errors"
	"net/http"

	"github.com/and161185/libdesk/internal/errs"
	"github.com/and161185/libdesk/internal/ui"
)

// User-facing messages.
const (
	MsgUsernameRequired = "Username is required"
	MsgUsernameShort    = "Username must be at least 3 characters long."
	MsgPasswordRequired = "Password is required"
	MsgPasswordShort    = "Password must be at least 6 characters long."
	MsgRegPasswordShort = "Password must be at least 8 characters long."
	MsgFirstName        = "First name is required"
	MsgLastName         = "Last name is required"
	MsgPhoneRequired    = "Phone number is required"
	MsgPhoneDigits      = "Phone number must be exactly 10 digits."
	MsgAddress          = "Address is required"
	MsgEmailRequired    = "Email is required"
	MsgEmailInvalid     = "Please enter a valid email address."
	MsgPasswordMismatch = "Passwords do not match."

	MsgInvalidCredentials = "Invalid username or password."
	MsgServerError        = "Server error. Please try again later."
	MsgConnectivity       = "Unable to connect to the server. Please check your connection."
	MsgLoginFailed        = "Login failed. Please try again."
	MsgLoginSuccess       = "Login successful!"
	MsgDuplicate          = "Username or email already exists."
	MsgCheckInput         = "Please check your input and try again."
	MsgRegisterFailed     = "Registration failed. Please try again."
	MsgRegisterSuccess    = "Registration successful! Redirecting to login..."
	MsgRegisteredFlash    = "Registration successful! Please log in."
	MsgSessionExpired     = "Your session has expired. Please log in again."
	MsgLoginRequired      = "Please log in to continue."

	MsgBorrowFailed      = "Failed to borrow the book. Please try again."
	MsgBorrowSuccess     = "Book borrowed successfully!"
	MsgNotBorrowable     = "This book is not available for borrowing."
	MsgReturnDateRange   = "Return date must be between today and 90 days from now."
	MsgReturnFailed      = "Failed to return the book. Please try again."
	MsgReturnSuccess     = "Book returned successfully!"
	MsgReturnInFlight    = "A return for this borrow is already in progress."
	MsgBorrowsFailed     = "Failed to load borrows. Please try again."
	MsgNoFine            = "There is no fine to pay for this borrow."
	MsgPaymentFailed     = "Failed to initiate payment. Please try again."
	MsgBooksFailed       = "Failed to load books. Please try again."
	MsgReserveAvailable  = "This book is available; borrow it instead of reserving."
	MsgReserveFailed     = "Failed to create the reservation. Please try again."
	MsgReserveSuccess    = "Reservation created successfully!"
	MsgMembershipType    = "Please select a valid membership type."
	MsgMembershipFailed  = "Failed to create membership. Please try again."
	MsgMembershipSuccess = "Membership created successfully!"
	MsgMembershipLoad    = "Failed to load membership. Please try again."
	MsgRatingRequired    = "Please select a rating."
	MsgRatingRange       = "Rating must be between 1 and 5."
	MsgRatingFailed      = "Failed to submit rating. Please try again."
	MsgRatingSuccess     = "Thank you for your rating!"

	MsgNoPaymentID       = "No payment identifier found."
	MsgPaymentCanceled   = "Payment was canceled."
	MsgPaymentExpired    = "Payment session expired."
	MsgPaymentVerified   = "Payment successful! Your fine has been paid."
	MsgPaymentUnverified = "Payment verification failed. Please contact support."
)

// UserError carries the message shown to the user next to the failure that caused it.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *UserError) Unwrap() error { return e.Err }

// Message returns the text to show for err.
func Message(err error) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Message
	}
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return generic.resolve(err)
}

// messages maps a backend failure onto a user-facing message.
// Overrides win over the server message; defaults only apply when the
// server did not send one.
type messages struct {
	overrides map[int]string
	server    string // overrides any status >= 500 when set
	fallback  string
	// bare skips the built-in per-status defaults.
	bare bool
}

var generic = messages{fallback: "Something went wrong. Please try again."}

func (m messages) resolve(err error) string {
	switch {
	case errors.Is(err, errs.ErrTransport):
		return MsgConnectivity
	case errors.Is(err, errs.ErrNoSession):
		return MsgLoginRequired
	}

	var ae *errs.APIError
	if !errors.As(err, &ae) {
		return m.fallback
	}
	if !ae.Application {
		if msg, ok := m.overrides[ae.Status]; ok {
			return msg
		}
		if ae.Status >= http.StatusInternalServerError && m.server != "" {
			return m.server
		}
	}
	if ae.Message != "" {
		return ae.Message
	}
	if ae.Application || m.bare {
		return m.fallback
	}
	switch {
	case ae.Status == http.StatusUnauthorized:
		return MsgSessionExpired
	case ae.Status >= http.StatusInternalServerError:
		return MsgServerError
	case ae.Status >= http.StatusBadRequest:
		return MsgCheckInput
	}
	return m.fallback
}

type nopNotifier struct{}

func (nopNotifier) Notify(ui.Notice) {}

func notifierOr(n ui.Notifier) ui.Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

// explain wraps err with its message without reporting it.
func explain(m messages, err error) *UserError {
	return &UserError{Message: m.resolve(err), Err: err}
}

// fail reports err through n and returns it wrapped with its message.
func fail(n ui.Notifier, m messages, err error) error {
	ue := explain(m, err)
	n.Notify(ui.Notice{Level: ui.LevelError, Message: ue.Message})
	return ue
}

// reject reports a local validation failure; nothing was sent.
func reject(n ui.Notifier, field, msg string) error {
	n.Notify(ui.Notice{Level: ui.LevelError, Message: msg})
	return errs.Invalid(field, msg)
}

// refuse reports a failed client-side precondition.
func refuse(n ui.Notifier, msg string, sentinel error) error {
	n.Notify(ui.Notice{Level: ui.LevelError, Message: msg})
	return &UserError{Message: msg, Err: sentinel}
}

func success(n ui.Notifier, msg string) {
	n.Notify(ui.Notice{Level: ui.LevelSuccess, Message: msg})
}
