// Package rest implements repository interfaces over the backend REST API.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/and161185/libdesk/internal/apiclient"
	"github.com/and161185/libdesk/internal/convert"
	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/repository"
)

// Doer is implemented by *apiclient.Client.
type Doer interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

func get(path string) apiclient.Request {
	return apiclient.Request{Method: http.MethodGet, Path: path, Auth: true}
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

// --- auth ---

// AuthRepo implements repository.AuthRepository.
type AuthRepo struct{ c Doer }

var _ repository.AuthRepository = (*AuthRepo)(nil)

// NewAuthRepo constructs an auth repository.
func NewAuthRepo(c Doer) *AuthRepo { return &AuthRepo{c: c} }

// Login posts credentials to /users/login.
func (r *AuthRepo) Login(ctx context.Context, username, password string) (model.Session, error) {
	resp, err := r.c.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/users/login",
		Body:   map[string]string{"username": username, "password": password},
	})
	if err != nil {
		return model.Session{}, err
	}
	var d convert.LoginData
	if err := resp.Decode(&d); err != nil {
		return model.Session{}, err
	}
	return d.ToSession()
}

// Register posts the sign-up form to /users/register.
func (r *AuthRepo) Register(ctx context.Context, reg repository.Registration) (int, error) {
	resp, err := r.c.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/users/register",
		Body: map[string]string{
			"firstName":   reg.FirstName,
			"lastName":    reg.LastName,
			"phoneNumber": reg.Phone,
			"address":     reg.Address,
			"username":    reg.Username,
			"email":       reg.Email,
			"password":    reg.Password,
		},
	})
	if err != nil {
		return 0, err
	}
	return resp.Status, nil
}

// --- books ---

// BookRepo implements repository.BookRepository.
type BookRepo struct{ c Doer }

var _ repository.BookRepository = (*BookRepo)(nil)

// NewBookRepo constructs a book repository.
func NewBookRepo(c Doer) *BookRepo { return &BookRepo{c: c} }

// List fetches one catalog page.
func (r *BookRepo) List(ctx context.Context, p repository.BookListParams) (model.Page[model.Book], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("size", strconv.Itoa(p.Size))
	q.Set("sortBy", p.SortBy)
	q.Set("sortOrder", p.SortOrder)
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	req := get("/book")
	req.Query = q
	resp, err := r.c.Do(ctx, req)
	if err != nil {
		return model.Page[model.Book]{}, err
	}
	return convert.BookPage(resp.Data)
}

// Get fetches one book.
func (r *BookRepo) Get(ctx context.Context, bookID int64) (model.Book, error) {
	resp, err := r.c.Do(ctx, get("/book/"+id(bookID)))
	if err != nil {
		return model.Book{}, err
	}
	return convert.Book(resp.Data)
}

// Total returns the catalog size.
func (r *BookRepo) Total(ctx context.Context) (int64, error) {
	resp, err := r.c.Do(ctx, get("/book/total-books"))
	if err != nil {
		return 0, err
	}
	return convert.Count(resp.Data)
}

// Discover returns the backend's featured selection.
func (r *BookRepo) Discover(ctx context.Context) ([]model.Book, error) {
	resp, err := r.c.Do(ctx, get("/book/discover"))
	if err != nil {
		return nil, err
	}
	return convert.Books(resp.Data)
}

// --- borrows ---

// BorrowRepo implements repository.BorrowRepository.
type BorrowRepo struct{ c Doer }

var _ repository.BorrowRepository = (*BorrowRepo)(nil)

// NewBorrowRepo constructs a borrow repository.
func NewBorrowRepo(c Doer) *BorrowRepo { return &BorrowRepo{c: c} }

// Create reserves a copy until returnDate.
func (r *BorrowRepo) Create(ctx context.Context, bookID, userID int64, returnDate time.Time) (model.Borrow, error) {
	resp, err := r.c.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/borrow/create",
		Auth:   true,
		Body: map[string]any{
			"bookId":     bookID,
			"userId":     userID,
			"returnDate": convert.DateString(returnDate),
		},
	})
	if err != nil {
		return model.Borrow{}, err
	}
	return convert.Borrow(resp.Data)
}

// List fetches one page of borrows.
func (r *BorrowRepo) List(ctx context.Context, page, size int) (model.Page[model.Borrow], error) {
	req := get("/borrow")
	req.Query = url.Values{"page": {strconv.Itoa(page)}, "size": {strconv.Itoa(size)}}
	resp, err := r.c.Do(ctx, req)
	if err != nil {
		return model.Page[model.Borrow]{}, err
	}
	return convert.BorrowPage(resp.Data)
}

// Get fetches one borrow with expanded book/user.
func (r *BorrowRepo) Get(ctx context.Context, borrowID int64) (model.Borrow, error) {
	resp, err := r.c.Do(ctx, get("/borrow/"+id(borrowID)))
	if err != nil {
		return model.Borrow{}, err
	}
	return convert.Borrow(resp.Data)
}

// Return marks the borrow returned.
func (r *BorrowRepo) Return(ctx context.Context, borrowID int64) (model.Borrow, error) {
	resp, err := r.c.Do(ctx, apiclient.Request{Method: http.MethodPut, Path: "/borrow/return/" + id(borrowID), Auth: true})
	if err != nil {
		return model.Borrow{}, err
	}
	return convert.Borrow(resp.Data)
}

// --- membership ---

// MembershipRepo implements repository.MembershipRepository.
type MembershipRepo struct{ c Doer }

var _ repository.MembershipRepository = (*MembershipRepo)(nil)

// NewMembershipRepo constructs a membership repository.
func NewMembershipRepo(c Doer) *MembershipRepo { return &MembershipRepo{c: c} }

// GetByUser fetches the user's membership.
func (r *MembershipRepo) GetByUser(ctx context.Context, userID int64) (model.Membership, error) {
	resp, err := r.c.Do(ctx, get("/membership/user/"+id(userID)))
	if err != nil {
		return model.Membership{}, err
	}
	return convert.Membership(resp.Data)
}

// Create creates a membership with client hints.
func (r *MembershipRepo) Create(ctx context.Context, userID int64, m repository.NewMembership) (model.Membership, error) {
	resp, err := r.c.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/membership/create/" + id(userID),
		Auth:   true,
		Body: convert.MembershipRequest{
			MembershipType:   string(m.Type),
			MembershipStatus: string(m.Status),
			DateOfIssue:      convert.DateTimeString(m.DateOfIssue),
			ExpiryDate:       convert.DateTimeString(m.ExpiryDate),
			BorrowingLimit:   m.BorrowingLimit,
		},
	})
	if err != nil {
		return model.Membership{}, err
	}
	return convert.Membership(resp.Data)
}

// Total returns the number of memberships.
func (r *MembershipRepo) Total(ctx context.Context) (int64, error) {
	resp, err := r.c.Do(ctx, get("/membership/total-membership"))
	if err != nil {
		return 0, err
	}
	return convert.Count(resp.Data)
}

// --- reservations ---

// ReservationRepo implements repository.ReservationRepository.
type ReservationRepo struct{ c Doer }

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// NewReservationRepo constructs a reservation repository.
func NewReservationRepo(c Doer) *ReservationRepo { return &ReservationRepo{c: c} }

// ListByMember lists reservations for a membership.
func (r *ReservationRepo) ListByMember(ctx context.Context, membershipID int64) ([]model.Reservation, error) {
	resp, err := r.c.Do(ctx, get("/reservation/member/"+id(membershipID)))
	if err != nil {
		return nil, err
	}
	return convert.Reservations(resp.Data)
}

// Create queues the member for the book.
func (r *ReservationRepo) Create(ctx context.Context, bookID, membershipID int64) (model.Reservation, error) {
	resp, err := r.c.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/reservation/book/%d/member/%d", bookID, membershipID),
		Auth:   true,
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return convert.Reservation(resp.Data)
}

// --- ratings ---

// RatingRepo implements repository.RatingRepository.
type RatingRepo struct{ c Doer }

var _ repository.RatingRepository = (*RatingRepo)(nil)

// NewRatingRepo constructs a rating repository.
func NewRatingRepo(c Doer) *RatingRepo { return &RatingRepo{c: c} }

// Rate posts a rating for the book.
func (r *RatingRepo) Rate(ctx context.Context, bookID int64, rt model.Rating) (model.Rating, error) {
	resp, err := r.c.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/rating/book/" + id(bookID),
		Auth:   true,
		Body:   rt,
	})
	if err != nil {
		return model.Rating{}, err
	}
	return convert.Rating(resp.Data, rt)
}

// --- documents ---

// DocumentRepo implements repository.DocumentRepository.
type DocumentRepo struct{ c Doer }

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// NewDocumentRepo constructs a document repository.
func NewDocumentRepo(c Doer) *DocumentRepo { return &DocumentRepo{c: c} }

// URL resolves a document id to a fetchable URL.
func (r *DocumentRepo) URL(ctx context.Context, docID int64) (string, error) {
	resp, err := r.c.Do(ctx, get("/api/document/"+id(docID)))
	if err != nil {
		return "", err
	}
	return convert.DocumentURL(resp.Data)
}

// --- payments ---

// PaymentRepo implements repository.PaymentRepository.
type PaymentRepo struct{ c Doer }

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

// NewPaymentRepo constructs a payment repository.
func NewPaymentRepo(c Doer) *PaymentRepo { return &PaymentRepo{c: c} }

// Initiate asks the backend for a gateway redirect for the borrow's fine.
func (r *PaymentRepo) Initiate(ctx context.Context, borrowID int64) (model.PaymentInitiation, error) {
	resp, err := r.c.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/payments/initiate",
		Query:  url.Values{"borrowId": {id(borrowID)}},
		Auth:   true,
	})
	if err != nil {
		return model.PaymentInitiation{}, err
	}
	var d convert.PaymentInitData
	if err := resp.Decode(&d); err != nil {
		return model.PaymentInitiation{}, err
	}
	return d.ToModel()
}

// Verify asks the backend to confirm a gateway payment.
func (r *PaymentRepo) Verify(ctx context.Context, pidx string) (model.PaymentVerification, error) {
	resp, err := r.c.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/payments/verify",
		Query:  url.Values{"pidx": {pidx}},
		Auth:   true,
	})
	if err != nil {
		return model.PaymentVerification{}, err
	}
	var d convert.PaymentVerifyData
	if err := resp.Decode(&d); err != nil {
		return model.PaymentVerification{}, err
	}
	return d.ToModel()
}
