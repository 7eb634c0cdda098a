// Package repository defines the backend resources the client talks to.
// Implementations live in subpackages (rest).
package repository

import (
	"context"
	"time"

	"github.com/and161185/libdesk/internal/model"
)

// Registration is the body of a sign-up request.
type Registration struct {
	FirstName string
	LastName  string
	Phone     string
	Address   string
	Username  string
	Email     string
	Password  string
}

// AuthRepository covers the unauthenticated user endpoints.
type AuthRepository interface {
	// Login exchanges credentials for a session.
	Login(ctx context.Context, username, password string) (model.Session, error)
	// Register creates an account and reports the HTTP status of the answer.
	Register(ctx context.Context, r Registration) (status int, err error)
}

// BookListParams are the wire-level catalog query parameters. Page is 0-based.
type BookListParams struct {
	Page      int
	Size      int
	Search    string // omitted when empty
	SortBy    string
	SortOrder string
}

// BookRepository provides catalog access.
type BookRepository interface {
	List(ctx context.Context, p BookListParams) (model.Page[model.Book], error)
	Get(ctx context.Context, id int64) (model.Book, error)
	Total(ctx context.Context) (int64, error)
	Discover(ctx context.Context) ([]model.Book, error)
}

// BorrowRepository provides borrow records.
type BorrowRepository interface {
	Create(ctx context.Context, bookID, userID int64, returnDate time.Time) (model.Borrow, error)
	// List fetches one 0-based page of the caller's borrows.
	List(ctx context.Context, page, size int) (model.Page[model.Borrow], error)
	Get(ctx context.Context, id int64) (model.Borrow, error)
	Return(ctx context.Context, id int64) (model.Borrow, error)
}

// NewMembership carries the client hints sent when creating a membership.
type NewMembership struct {
	Type           model.MembershipType
	Status         model.MembershipStatus
	DateOfIssue    time.Time
	ExpiryDate     time.Time
	BorrowingLimit int
}

// MembershipRepository provides membership records.
type MembershipRepository interface {
	// GetByUser returns errs.ErrNotFound (via errors.Is) when the user has none.
	GetByUser(ctx context.Context, userID int64) (model.Membership, error)
	Create(ctx context.Context, userID int64, m NewMembership) (model.Membership, error)
	Total(ctx context.Context) (int64, error)
}

// ReservationRepository provides reservation queue entries.
type ReservationRepository interface {
	ListByMember(ctx context.Context, membershipID int64) ([]model.Reservation, error)
	Create(ctx context.Context, bookID, membershipID int64) (model.Reservation, error)
}

// RatingRepository submits ratings.
type RatingRepository interface {
	Rate(ctx context.Context, bookID int64, r model.Rating) (model.Rating, error)
}

// DocumentRepository resolves document URLs.
type DocumentRepository interface {
	URL(ctx context.Context, id int64) (string, error)
}

// PaymentRepository talks to the backend side of the payment gateway.
type PaymentRepository interface {
	Initiate(ctx context.Context, borrowID int64) (model.PaymentInitiation, error)
	Verify(ctx context.Context, pidx string) (model.PaymentVerification, error)
}
