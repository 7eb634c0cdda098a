// Package model defines the client-side views of server-owned entities.
package model

import "time"

// Role names issued by the backend.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Profile is the user-profile blob persisted next to the token.
type Profile struct {
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email,omitempty"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Roles     []string `json:"roles"`
}

// HasRole reports whether the profile carries role r.
func (p Profile) HasRole(r string) bool {
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// Session is the authenticated identity: opaque bearer token plus profile.
type Session struct {
	Token   string
	Profile Profile
}

// Username returns the profile username.
func (s Session) Username() string { return s.Profile.Username }

// Roles returns the profile roles.
func (s Session) Roles() []string { return s.Profile.Roles }

// Document is a file attached to a book (cover image, scans).
type Document struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"` // empty when it must be resolved lazily
}

// IsImage reports whether the document looks like a cover image.
func (d Document) IsImage() bool {
	switch d.Type {
	case "IMAGE", "COVER", "image", "cover", "image/jpeg", "image/png", "image/webp":
		return true
	}
	return false
}

// Book is a catalog entry.
type Book struct {
	ID              int64
	Title           string
	Author          string
	Publisher       string
	ISBN            string
	Genre           string
	TotalCopies     *int // nil when the backend omits it
	AvailableCopies *int // nil when the backend omits it
	IsAvailable     bool
	Documents       []Document
	CreatedAt       time.Time
}

// Cover returns the first image document, if any.
func (b Book) Cover() (Document, bool) {
	for _, d := range b.Documents {
		if d.IsImage() {
			return d, true
		}
	}
	if len(b.Documents) > 0 {
		return b.Documents[0], true
	}
	return Document{}, false
}

// BookRef is the book summary embedded in borrow records.
type BookRef struct {
	ID     int64
	Title  string
	Author string
	ISBN   string
}

// UserRef is the user summary embedded in borrow records.
type UserRef struct {
	ID       int64
	Username string
	Email    string
}

// Borrow is a loan of one copy.
type Borrow struct {
	ID         int64
	BorrowDate time.Time
	DueDate    time.Time
	ReturnDate *time.Time
	IsReturned bool
	FineAmount *float64
	Book       BookRef
	User       UserRef
}

// HasFine reports whether a positive fine is attached.
func (b Borrow) HasFine() bool { return b.FineAmount != nil && *b.FineAmount > 0 }

// MembershipType is the membership tier.
type MembershipType string

const (
	MembershipStudent MembershipType = "STUDENT"
	MembershipRegular MembershipType = "REGULAR"
	MembershipPremium MembershipType = "PREMIUM"
)

// MembershipStatus is the membership lifecycle status.
type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "ACTIVE"
	MembershipExpired   MembershipStatus = "EXPIRED"
	MembershipSuspended MembershipStatus = "SUSPENDED"
)

// Membership gates borrowing and reservations.
type Membership struct {
	ID             int64
	Type           MembershipType
	Status         MembershipStatus
	DateOfIssue    time.Time
	ExpiryDate     time.Time
	BorrowingLimit int
}

// ReservationStatus is the queue-entry status.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationAvailable ReservationStatus = "AVAILABLE"
	ReservationExpired   ReservationStatus = "EXPIRED"
	ReservationClaimed   ReservationStatus = "CLAIMED"
)

// Reservation is a queue entry for an unavailable book.
type Reservation struct {
	ID               int64
	BookID           int64
	BookTitle        string
	MemberID         int64
	MemberName       string
	ReservationDate  time.Time
	NotificationDate *time.Time
	ExpiryDate       *time.Time
	Status           ReservationStatus
}

// Rating is a star rating with an optional review.
type Rating struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// PageInfo describes one page of a server-side listing. Page is 0-based.
type PageInfo struct {
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
}

// Page is one page of results.
type Page[T any] struct {
	Content []T
	Info    PageInfo
}

// PaymentInitiation is the backend's answer to a fine payment request.
type PaymentInitiation struct {
	PIDX       string
	PaymentURL string
	ExpiresAt  *time.Time
}

// PaymentVerification is the backend's view of a gateway payment.
type PaymentVerification struct {
	PIDX          string
	Status        string
	TransactionID string
	TotalAmount   int64
}

// Gateway status values reported on redirect and by verification.
const (
	PaymentCompleted    = "Completed"
	PaymentUserCanceled = "User canceled"
	PaymentCanceled     = "Canceled"
	PaymentExpired      = "Expired"
)

// CallbackParams are the query parameters the gateway appends on return.
type CallbackParams struct {
	PIDX            string
	Status          string
	TransactionID   string
	Amount          int64 // smallest currency unit
	PurchaseOrderID string
}

// DisplayAmount converts the amount to major currency units.
func (p CallbackParams) DisplayAmount() float64 { return float64(p.Amount) / 100 }
