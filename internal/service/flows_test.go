package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/and161185/libdesk/internal/errs"
	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/session"
	"github.com/and161185/libdesk/internal/ui"
	"go.uber.org/zap/zaptest"
)

func TestReservableBooks_FiltersCatalogByTitle(t *testing.T) {
	t.Parallel()

	books := &fakeBooks{page: model.Page[model.Book]{Content: []model.Book{
		{ID: 1, IsAvailable: true, AvailableCopies: intp(2)},
		{ID: 2, IsAvailable: false},
		{ID: 3, IsAvailable: true, AvailableCopies: intp(0)},
		{ID: 4, IsAvailable: true},
	}}}
	s := NewReservationService(&fakeReservations{}, books, nil, zaptest.NewLogger(t))

	got, err := s.ReservableBooks(context.Background())
	if err != nil {
		t.Fatalf("ReservableBooks: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 3 {
		t.Fatalf("filtered = %+v", got)
	}
	p := books.lastReq
	if p.Page != 0 || p.Size != 50 || p.SortBy != SortTitle || p.SortOrder != OrderAsc || p.Search != "" {
		t.Fatalf("catalog params = %+v", p)
	}
}

func TestCreateReservation(t *testing.T) {
	t.Parallel()

	res := &fakeReservations{res: model.Reservation{ID: 5, Status: model.ReservationPending}}
	s := NewReservationService(res, &fakeBooks{}, nil, nil)

	if _, err := s.CreateReservation(context.Background(), model.Book{ID: 1, IsAvailable: true}, 9); !errors.Is(err, errs.ErrNotEligible) {
		t.Fatalf("available book: %v", err)
	}
	if _, err := s.CreateReservation(context.Background(), model.Book{ID: 1}, 0); !errors.Is(err, errs.ErrNotEligible) {
		t.Fatalf("no membership: %v", err)
	}
	if res.calls != 0 {
		t.Fatalf("backend called for an ineligible reservation")
	}
	r, err := s.CreateReservation(context.Background(), model.Book{ID: 1}, 9)
	if err != nil || r.ID != 5 {
		t.Fatalf("CreateReservation: %+v, %v", r, err)
	}
}

func TestLoadReservationsQuietly(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	s := NewReservationService(&fakeReservations{err: errs.ErrTransport}, &fakeBooks{}, rec, zaptest.NewLogger(t))
	if got := s.LoadReservationsQuietly(context.Background(), 3); len(got) != 0 {
		t.Fatalf("want empty list, got %+v", got)
	}
	if len(rec.all()) != 0 {
		t.Fatalf("background failure must not notify")
	}

	if _, err := s.ListReservations(context.Background(), 3); Message(err) != MsgConnectivity {
		t.Fatalf("foreground failure message = %q", Message(err))
	}
}

func TestGetMembership_NotFoundIsNoMembership(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	s := NewMembershipService(&fakeMemberships{getErr: &errs.APIError{Status: 404}}, session.NewMemory(), rec, nil)
	m, err := s.GetMembership(context.Background(), 7)
	if err != nil || m != nil {
		t.Fatalf("want (nil, nil), got %+v, %v", m, err)
	}
	if len(rec.all()) != 0 {
		t.Fatalf("404 must not notify")
	}

	s = NewMembershipService(&fakeMemberships{getErr: &errs.APIError{Status: 500}}, session.NewMemory(), rec, nil)
	if _, err := s.GetMembership(context.Background(), 7); err == nil {
		t.Fatalf("500 must be an error")
	}
}

func TestCreateMembership_SendsHintsReturnsServerValues(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	st := session.NewMemory()
	_ = st.Set(context.Background(), model.Session{Token: "t", Profile: model.Profile{ID: 42}})
	repo := &fakeMemberships{m: model.Membership{ID: 1, Type: model.MembershipPremium, BorrowingLimit: 12}}
	s := NewMembershipService(repo, st, nil, func() time.Time { return now })

	if _, err := s.CreateMembership(context.Background(), "GOLD"); !errors.Is(err, errs.ErrValidation) || repo.calls != 0 {
		t.Fatalf("unknown tier: %v", err)
	}

	m, err := s.CreateMembership(context.Background(), model.MembershipPremium)
	if err != nil {
		t.Fatalf("CreateMembership: %v", err)
	}
	if m.BorrowingLimit != 12 {
		t.Fatalf("want server limit, got %d", m.BorrowingLimit)
	}
	h := repo.lastNew
	if repo.lastUser != 42 || h.BorrowingLimit != 10 || h.Status != model.MembershipActive ||
		!h.DateOfIssue.Equal(now) || !h.ExpiryDate.Equal(now.AddDate(0, 0, 365)) {
		t.Fatalf("hints = %+v (user %d)", h, repo.lastUser)
	}
}

func TestSuggestedLimit(t *testing.T) {
	t.Parallel()

	for tier, want := range map[string]int{"student": 5, "REGULAR": 3, " Premium ": 10} {
		mt, ok := ParseMembershipType(tier)
		if !ok || SuggestedLimit(mt) != want {
			t.Fatalf("%q: %v %d", tier, ok, SuggestedLimit(mt))
		}
	}
	if _, ok := ParseMembershipType("gold"); ok {
		t.Fatalf("gold must be rejected")
	}
}

func TestRating_Submit(t *testing.T) {
	t.Parallel()

	repo := &fakeRatings{}
	s := NewRatingService(repo, nil)

	f := &RatingForm{Review: "meh"}
	if _, err := s.Submit(context.Background(), 1, f); Message(err) != MsgRatingRequired || repo.calls != 0 {
		t.Fatalf("rating 0: %v (calls %d)", err, repo.calls)
	}
	f.Rating = 6
	if _, err := s.Submit(context.Background(), 1, f); !errors.Is(err, errs.ErrValidation) || repo.calls != 0 {
		t.Fatalf("rating 6: %v", err)
	}

	f = &RatingForm{Rating: 5}
	r, err := s.Submit(context.Background(), 1, f)
	if err != nil || r.Rating != 5 {
		t.Fatalf("Submit: %+v, %v", r, err)
	}
	if *f != (RatingForm{}) {
		t.Fatalf("form not cleared: %+v", f)
	}

	repo.err = errs.ErrTransport
	f = &RatingForm{Rating: 4, Review: "good"}
	if _, err := s.Submit(context.Background(), 1, f); err == nil || f.Rating != 4 {
		t.Fatalf("failed submit must keep the form: %+v, %v", f, err)
	}
}

func TestRatingForm_ClampsReview(t *testing.T) {
	t.Parallel()

	var f RatingForm
	f.SetReview(strings.Repeat("ж", 600))
	if n := len([]rune(f.Review)); n != MaxReviewRunes {
		t.Fatalf("review runes = %d", n)
	}
	f.SetReview("short")
	if f.Review != "short" {
		t.Fatalf("review = %q", f.Review)
	}
}

func TestParseCallback(t *testing.T) {
	t.Parallel()

	q, _ := url.ParseQuery("pidx=abc&status=Completed&txnId=T9&amount=12550&purchase_order_id=borrow-7")
	p := ParseCallback(q)
	if p.PIDX != "abc" || p.TransactionID != "T9" || p.Amount != 12550 || p.PurchaseOrderID != "borrow-7" {
		t.Fatalf("params = %+v", p)
	}
	if p.DisplayAmount() != 125.5 {
		t.Fatalf("display amount = %v", p.DisplayAmount())
	}

	q, _ = url.ParseQuery("pidx=abc&transaction_id=T1&txnId=T2&amount=x")
	if p := ParseCallback(q); p.TransactionID != "T1" || p.Amount != 0 {
		t.Fatalf("params = %+v", p)
	}
}

func TestPaymentCallback_Transitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		params   model.CallbackParams
		verify   model.PaymentVerification
		err      error
		state    CallbackState
		msg      string
		delay    time.Duration
		verified bool
	}{
		{"verified", model.CallbackParams{PIDX: "p", Status: "Completed"}, model.PaymentVerification{Status: "Completed"}, nil, CallbackSuccess, MsgPaymentVerified, 3 * time.Second, true},
		{"mismatch", model.CallbackParams{PIDX: "p", Status: "Completed"}, model.PaymentVerification{Status: "Pending"}, nil, CallbackError, MsgPaymentUnverified, 5 * time.Second, true},
		{"verify error", model.CallbackParams{PIDX: "p", Status: "Completed"}, model.PaymentVerification{}, errs.ErrServer, CallbackError, MsgPaymentUnverified, 5 * time.Second, true},
		{"no pidx", model.CallbackParams{Status: "Completed"}, model.PaymentVerification{}, nil, CallbackError, MsgNoPaymentID, 5 * time.Second, false},
		{"user canceled", model.CallbackParams{PIDX: "p", Status: "User canceled"}, model.PaymentVerification{}, nil, CallbackError, MsgPaymentCanceled, 5 * time.Second, false},
		{"canceled", model.CallbackParams{PIDX: "p", Status: "Canceled"}, model.PaymentVerification{}, nil, CallbackError, MsgPaymentCanceled, 5 * time.Second, false},
		{"expired", model.CallbackParams{PIDX: "p", Status: "Expired"}, model.PaymentVerification{}, nil, CallbackError, MsgPaymentExpired, 5 * time.Second, false},
		{"other", model.CallbackParams{PIDX: "p", Status: "Refunded"}, model.PaymentVerification{}, nil, CallbackError, "Payment failed with status: Refunded.", 5 * time.Second, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			pay := &fakePayments{verify: tc.verify, err: tc.err}
			c := NewPaymentCallback(pay, zaptest.NewLogger(t))
			if c.State() != CallbackLoading {
				t.Fatalf("initial state = %v", c.State())
			}
			out := c.Run(context.Background(), tc.params)
			if out.State != tc.state || out.Message != tc.msg {
				t.Fatalf("outcome = %+v", out)
			}
			if out.Next.To != ui.RouteBorrows || out.Next.After != tc.delay {
				t.Fatalf("navigation = %+v", out.Next)
			}
			if (pay.verCalls == 1) != tc.verified {
				t.Fatalf("verify calls = %d", pay.verCalls)
			}
		})
	}
}

func TestPaymentCallback_RunsOnce(t *testing.T) {
	t.Parallel()

	pay := &fakePayments{verify: model.PaymentVerification{Status: "Completed"}}
	c := NewPaymentCallback(pay, nil)

	first := c.Run(context.Background(), model.CallbackParams{PIDX: "p", Status: "Completed"})
	second := c.Run(context.Background(), model.CallbackParams{PIDX: "q", Status: "Expired"})
	if second.State != first.State || second.Params.PIDX != "p" {
		t.Fatalf("second run re-evaluated: %+v", second)
	}
	if pay.verCalls != 1 || c.State() != CallbackSuccess {
		t.Fatalf("verify calls = %d state = %v", pay.verCalls, c.State())
	}
}

func TestMessage_Precedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{&errs.APIError{Status: 422, Message: "ISBN taken"}, "ISBN taken"},
		{&errs.APIError{Status: 422}, MsgCheckInput},
		{&errs.APIError{Status: 401}, MsgSessionExpired},
		{&errs.APIError{Status: 503}, MsgServerError},
		{errs.ErrNoSession, MsgLoginRequired},
		{errs.Invalid("f", "Field is bad"), "Field is bad"},
		{&UserError{Message: "custom"}, "custom"},
	}
	for _, tc := range cases {
		if got := Message(tc.err); got != tc.want {
			t.Fatalf("Message(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
