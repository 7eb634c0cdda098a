// Package convert turns backend JSON payloads into domain models, rejecting
// payloads that break the client's expectations instead of trusting them.
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/and161185/libdesk/internal/errs"
	"github.com/and161185/libdesk/internal/model"
	"github.com/tidwall/gjson"
)

func malformed(format string, a ...any) error {
	return fmt.Errorf("%w: %s", errs.ErrMalformed, fmt.Sprintf(format, a...))
}

// --- auth ---

// LoginData is the data section of a successful login.
type LoginData struct {
	Token       string   `json:"token"`
	AccessToken string   `json:"accessToken"`
	ID          int64    `json:"id"`
	UserID      int64    `json:"userId"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Roles       []string `json:"roles"`
}

// ToSession validates login data and builds a session.
func (d LoginData) ToSession() (model.Session, error) {
	tok := d.Token
	if tok == "" {
		tok = d.AccessToken
	}
	if tok == "" {
		return model.Session{}, malformed("login: missing token")
	}
	id := d.ID
	if id == 0 {
		id = d.UserID
	}
	roles := d.Roles
	if roles == nil {
		roles = []string{}
	}
	return model.Session{
		Token: tok,
		Profile: model.Profile{
			ID:        id,
			Username:  d.Username,
			Email:     d.Email,
			FirstName: d.FirstName,
			LastName:  d.LastName,
			Roles:     roles,
		},
	}, nil
}

// --- documents ---

// DocumentData is a book document as sent by the backend.
type DocumentData struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	FileName     string `json:"fileName"`
	Type         string `json:"type"`
	DocumentType string `json:"documentType"`
	FileType     string `json:"fileType"`
	URL          string `json:"url"`
	FileURL      string `json:"fileUrl"`
	DocumentURL  string `json:"documentUrl"`
}

// ToModel converts a document.
func (d DocumentData) ToModel() model.Document {
	return model.Document{
		ID:   d.ID,
		Name: firstNonEmpty(d.Name, d.FileName),
		Type: firstNonEmpty(d.DocumentType, d.Type, d.FileType),
		URL:  firstNonEmpty(d.URL, d.FileURL, d.DocumentURL),
	}
}

// DocumentURL extracts the resolved URL from a document lookup.
func DocumentURL(raw json.RawMessage) (string, error) {
	if gjson.ParseBytes(raw).Type == gjson.String {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return "", malformed("document: empty url")
		}
		return s, nil
	}
	var d DocumentData
	if err := json.Unmarshal(raw, &d); err != nil {
		return "", malformed("document: %v", err)
	}
	u := d.ToModel().URL
	if u == "" {
		return "", malformed("document %d: no url", d.ID)
	}
	return u, nil
}

// --- books ---

// BookData is a catalog entry as sent by the backend.
type BookData struct {
	ID              int64          `json:"id"`
	Title           string         `json:"title"`
	Author          string         `json:"author"`
	Publisher       string         `json:"publisher"`
	ISBN            string         `json:"isbn"`
	Genre           string         `json:"genre"`
	TotalCopies     *int           `json:"totalCopies"`
	AvailableCopies *int           `json:"availableCopies"`
	IsAvailable     *bool          `json:"isAvailable"`
	Available       *bool          `json:"available"`
	Documents       []DocumentData `json:"documents"`
	CreatedAt       Time           `json:"createdAt"`
}

// ToModel validates and converts a book.
func (d BookData) ToModel() (model.Book, error) {
	if d.ID <= 0 {
		return model.Book{}, malformed("book: bad id %d", d.ID)
	}
	if d.TotalCopies != nil && *d.TotalCopies < 0 {
		return model.Book{}, malformed("book %d: negative totalCopies", d.ID)
	}
	if d.AvailableCopies != nil {
		if *d.AvailableCopies < 0 {
			return model.Book{}, malformed("book %d: negative availableCopies", d.ID)
		}
		if d.TotalCopies != nil && *d.AvailableCopies > *d.TotalCopies {
			return model.Book{}, malformed("book %d: availableCopies > totalCopies", d.ID)
		}
	}
	avail := false
	switch {
	case d.IsAvailable != nil:
		avail = *d.IsAvailable
	case d.Available != nil:
		avail = *d.Available
	}
	docs := make([]model.Document, 0, len(d.Documents))
	for _, doc := range d.Documents {
		docs = append(docs, doc.ToModel())
	}
	return model.Book{
		ID:              d.ID,
		Title:           d.Title,
		Author:          d.Author,
		Publisher:       d.Publisher,
		ISBN:            d.ISBN,
		Genre:           d.Genre,
		TotalCopies:     d.TotalCopies,
		AvailableCopies: d.AvailableCopies,
		IsAvailable:     avail,
		Documents:       docs,
		CreatedAt:       d.CreatedAt.Time,
	}, nil
}

// Book decodes a single book payload.
func Book(raw json.RawMessage) (model.Book, error) {
	var d BookData
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.Book{}, malformed("book: %v", err)
	}
	return d.ToModel()
}

// Books decodes a list of books (the discover feed).
func Books(raw json.RawMessage) ([]model.Book, error) {
	var ds []BookData
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, malformed("books: %v", err)
	}
	out := make([]model.Book, 0, len(ds))
	for _, d := range ds {
		b, err := d.ToModel()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// BookPage decodes a paginated book listing.
func BookPage(raw json.RawMessage) (model.Page[model.Book], error) {
	return decodePage(raw, func(d BookData) (model.Book, error) { return d.ToModel() })
}

// --- borrows ---

// BorrowData is a borrow record as sent by the backend.
type BorrowData struct {
	ID         int64    `json:"id"`
	BorrowDate Time     `json:"borrowDate"`
	DueDate    Time     `json:"dueDate"`
	ReturnDate Time     `json:"returnDate"`
	IsReturned bool     `json:"isReturned"`
	FineAmount *float64 `json:"fineAmount"`
	Books      *struct {
		ID     int64  `json:"id"`
		Title  string `json:"title"`
		Author string `json:"author"`
		ISBN   string `json:"isbn"`
	} `json:"books"`
	Users *struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"users"`
}

// ToModel validates and converts a borrow record.
func (d BorrowData) ToModel() (model.Borrow, error) {
	if d.ID <= 0 {
		return model.Borrow{}, malformed("borrow: bad id %d", d.ID)
	}
	if d.DueDate.IsZero() {
		return model.Borrow{}, malformed("borrow %d: missing dueDate", d.ID)
	}
	if d.FineAmount != nil && *d.FineAmount < 0 {
		return model.Borrow{}, malformed("borrow %d: negative fine", d.ID)
	}
	b := model.Borrow{
		ID:         d.ID,
		BorrowDate: d.BorrowDate.Time,
		DueDate:    d.DueDate.Time,
		ReturnDate: d.ReturnDate.Ptr(),
		IsReturned: d.IsReturned,
		FineAmount: d.FineAmount,
	}
	if d.Books != nil {
		b.Book = model.BookRef{ID: d.Books.ID, Title: d.Books.Title, Author: d.Books.Author, ISBN: d.Books.ISBN}
	}
	if d.Users != nil {
		b.User = model.UserRef{ID: d.Users.ID, Username: d.Users.Username, Email: d.Users.Email}
	}
	return b, nil
}

// Borrow decodes a single borrow payload.
func Borrow(raw json.RawMessage) (model.Borrow, error) {
	var d BorrowData
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.Borrow{}, malformed("borrow: %v", err)
	}
	return d.ToModel()
}

// BorrowPage decodes a paginated borrow listing.
func BorrowPage(raw json.RawMessage) (model.Page[model.Borrow], error) {
	return decodePage(raw, func(d BorrowData) (model.Borrow, error) { return d.ToModel() })
}

// --- membership ---

// MembershipData is a membership as sent by the backend.
type MembershipData struct {
	ID               int64  `json:"id"`
	MembershipType   string `json:"membershipType"`
	MembershipStatus string `json:"membershipStatus"`
	DateOfIssue      Time   `json:"dateOfIssue"`
	ExpiryDate       Time   `json:"expiryDate"`
	BorrowingLimit   int    `json:"borrowingLimit"`
}

// ToModel validates and converts a membership.
func (d MembershipData) ToModel() (model.Membership, error) {
	if d.ID <= 0 {
		return model.Membership{}, malformed("membership: bad id %d", d.ID)
	}
	t := model.MembershipType(d.MembershipType)
	switch t {
	case model.MembershipStudent, model.MembershipRegular, model.MembershipPremium:
	default:
		return model.Membership{}, malformed("membership %d: unknown type %q", d.ID, d.MembershipType)
	}
	s := model.MembershipStatus(d.MembershipStatus)
	switch s {
	case model.MembershipActive, model.MembershipExpired, model.MembershipSuspended:
	default:
		return model.Membership{}, malformed("membership %d: unknown status %q", d.ID, d.MembershipStatus)
	}
	if d.BorrowingLimit < 0 {
		return model.Membership{}, malformed("membership %d: negative borrowingLimit", d.ID)
	}
	return model.Membership{
		ID:             d.ID,
		Type:           t,
		Status:         s,
		DateOfIssue:    d.DateOfIssue.Time,
		ExpiryDate:     d.ExpiryDate.Time,
		BorrowingLimit: d.BorrowingLimit,
	}, nil
}

// Membership decodes a membership payload.
func Membership(raw json.RawMessage) (model.Membership, error) {
	var d MembershipData
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.Membership{}, malformed("membership: %v", err)
	}
	return d.ToModel()
}

// MembershipRequest is the body of POST /membership/create/{userId}.
type MembershipRequest struct {
	MembershipType   string `json:"membershipType"`
	MembershipStatus string `json:"membershipStatus"`
	DateOfIssue      string `json:"dateOfIssue"`
	ExpiryDate       string `json:"expiryDate"`
	BorrowingLimit   int    `json:"borrowingLimit"`
}

// --- reservations ---

// ReservationData is a reservation as sent by the backend.
type ReservationData struct {
	ID               int64  `json:"id"`
	BookID           int64  `json:"bookId"`
	BookTitle        string `json:"bookTitle"`
	MemberID         int64  `json:"memberId"`
	MemberName       string `json:"memberName"`
	ReservationDate  Time   `json:"reservationDate"`
	NotificationDate Time   `json:"notificationDate"`
	ExpiryDate       Time   `json:"expiryDate"`
	Status           string `json:"status"`
}

// ToModel validates and converts a reservation.
func (d ReservationData) ToModel() (model.Reservation, error) {
	if d.ID <= 0 {
		return model.Reservation{}, malformed("reservation: bad id %d", d.ID)
	}
	s := model.ReservationStatus(d.Status)
	switch s {
	case model.ReservationPending, model.ReservationAvailable, model.ReservationExpired, model.ReservationClaimed:
	default:
		return model.Reservation{}, malformed("reservation %d: unknown status %q", d.ID, d.Status)
	}
	return model.Reservation{
		ID:               d.ID,
		BookID:           d.BookID,
		BookTitle:        d.BookTitle,
		MemberID:         d.MemberID,
		MemberName:       d.MemberName,
		ReservationDate:  d.ReservationDate.Time,
		NotificationDate: d.NotificationDate.Ptr(),
		ExpiryDate:       d.ExpiryDate.Ptr(),
		Status:           s,
	}, nil
}

// Reservation decodes a single reservation.
func Reservation(raw json.RawMessage) (model.Reservation, error) {
	var d ReservationData
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.Reservation{}, malformed("reservation: %v", err)
	}
	return d.ToModel()
}

// Reservations decodes a reservation list.
func Reservations(raw json.RawMessage) ([]model.Reservation, error) {
	var ds []ReservationData
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, malformed("reservations: %v", err)
	}
	out := make([]model.Reservation, 0, len(ds))
	for _, d := range ds {
		r, err := d.ToModel()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// --- rating ---

// Rating decodes a rating payload; an absent payload echoes the request.
func Rating(raw json.RawMessage, sent model.Rating) (model.Rating, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return sent, nil
	}
	var r model.Rating
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.Rating{}, malformed("rating: %v", err)
	}
	if r.Rating < 1 || r.Rating > 5 {
		return model.Rating{}, malformed("rating: out of range %d", r.Rating)
	}
	return r, nil
}

// --- payments ---

// PaymentInitData is the data section of POST /api/payments/initiate.
type PaymentInitData struct {
	PIDX          string `json:"pidx"`
	PaymentURL    string `json:"payment_url"`
	PaymentURLAlt string `json:"paymentUrl"`
	ExpiresAt     Time   `json:"expires_at"`
}

// ToModel validates the initiation result.
func (d PaymentInitData) ToModel() (model.PaymentInitiation, error) {
	u := firstNonEmpty(d.PaymentURL, d.PaymentURLAlt)
	if u == "" {
		return model.PaymentInitiation{}, malformed("payment: missing payment url")
	}
	return model.PaymentInitiation{PIDX: d.PIDX, PaymentURL: u, ExpiresAt: d.ExpiresAt.Ptr()}, nil
}

// PaymentVerifyData is the data section of POST /api/payments/verify.
type PaymentVerifyData struct {
	PIDX          string `json:"pidx"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	TotalAmount   int64  `json:"total_amount"`
}

// ToModel validates the verification result.
func (d PaymentVerifyData) ToModel() (model.PaymentVerification, error) {
	if d.Status == "" {
		return model.PaymentVerification{}, malformed("payment verify: missing status")
	}
	return model.PaymentVerification{
		PIDX:          d.PIDX,
		Status:        d.Status,
		TransactionID: d.TransactionID,
		TotalAmount:   d.TotalAmount,
	}, nil
}

// Count decodes a bare number or an object with a count/total field.
func Count(raw json.RawMessage) (int64, error) {
	r := gjson.ParseBytes(raw)
	switch {
	case r.Type == gjson.Number:
		return r.Int(), nil
	case r.IsObject():
		for _, k := range []string{"count", "total", "totalBooks", "totalMembership", "totalMemberships"} {
			if v := r.Get(k); v.Type == gjson.Number {
				return v.Int(), nil
			}
		}
	}
	return 0, malformed("count: unexpected payload %s", raw)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
