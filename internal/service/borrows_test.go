package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/libdesk/internal/errs"
	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/session"
	"github.com/and161185/libdesk/internal/ui"
)

var fixedNow = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

func newBorrowSvc(b *fakeBorrows, p *fakePayments, loggedIn bool) (*BorrowServiceImpl, *recorder) {
	st := session.NewMemory()
	if loggedIn {
		_ = st.Set(context.Background(), model.Session{Token: "t", Profile: model.Profile{ID: 42, Username: "alice"}})
	}
	rec := &recorder{}
	return NewBorrowService(b, p, st, rec, func() time.Time { return fixedNow }), rec
}

func TestValidReturnDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		d    time.Time
		want bool
	}{
		{fixedNow, true},
		{time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC), false},
		{time.Date(2024, 6, 8, 23, 0, 0, 0, time.UTC), true}, // today + 90
		{time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		if got := ValidReturnDate(tc.d, fixedNow); got != tc.want {
			t.Fatalf("ValidReturnDate(%v) = %v, want %v", tc.d, got, tc.want)
		}
	}
}

func TestCreateBorrow(t *testing.T) {
	t.Parallel()

	book := model.Book{ID: 3, IsAvailable: true, AvailableCopies: intp(1)}
	due := fixedNow.AddDate(0, 0, 14)

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		borrows := &fakeBorrows{created: model.Borrow{ID: 100}}
		s, rec := newBorrowSvc(borrows, &fakePayments{}, true)
		b, err := s.CreateBorrow(context.Background(), book, due)
		if err != nil || b.ID != 100 {
			t.Fatalf("CreateBorrow: %+v, %v", b, err)
		}
		if borrows.lastUser != 42 || !borrows.lastDate.Equal(time.Date(2024, 3, 24, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("sent user=%d date=%v", borrows.lastUser, borrows.lastDate)
		}
		if n := rec.all(); len(n) != 1 || n[0].Level != ui.LevelSuccess {
			t.Fatalf("notices = %+v", n)
		}
	})

	t.Run("not borrowable", func(t *testing.T) {
		t.Parallel()
		borrows := &fakeBorrows{}
		s, _ := newBorrowSvc(borrows, &fakePayments{}, true)
		_, err := s.CreateBorrow(context.Background(), model.Book{ID: 3, IsAvailable: true, AvailableCopies: intp(0)}, due)
		if !errors.Is(err, errs.ErrNotEligible) || borrows.createCalls != 0 {
			t.Fatalf("err=%v calls=%d", err, borrows.createCalls)
		}
	})

	t.Run("date out of window", func(t *testing.T) {
		t.Parallel()
		borrows := &fakeBorrows{}
		s, _ := newBorrowSvc(borrows, &fakePayments{}, true)
		_, err := s.CreateBorrow(context.Background(), book, fixedNow.AddDate(0, 0, 91))
		if !errors.Is(err, errs.ErrValidation) || borrows.createCalls != 0 {
			t.Fatalf("err=%v calls=%d", err, borrows.createCalls)
		}
	})

	t.Run("no session", func(t *testing.T) {
		t.Parallel()
		borrows := &fakeBorrows{}
		s, _ := newBorrowSvc(borrows, &fakePayments{}, false)
		_, err := s.CreateBorrow(context.Background(), book, due)
		if !errors.Is(err, errs.ErrNoSession) || borrows.createCalls != 0 {
			t.Fatalf("err=%v calls=%d", err, borrows.createCalls)
		}
	})

	t.Run("server message verbatim", func(t *testing.T) {
		t.Parallel()
		s, _ := newBorrowSvc(&fakeBorrows{err: &errs.APIError{Status: 200, Application: true, Message: "Borrow limit reached"}}, &fakePayments{}, true)
		_, err := s.CreateBorrow(context.Background(), book, due)
		if Message(err) != "Borrow limit reached" {
			t.Fatalf("message = %q", Message(err))
		}
	})

	t.Run("generic", func(t *testing.T) {
		t.Parallel()
		s, _ := newBorrowSvc(&fakeBorrows{err: errs.ErrMalformed}, &fakePayments{}, true)
		_, err := s.CreateBorrow(context.Background(), book, due)
		if Message(err) != MsgBorrowFailed {
			t.Fatalf("message = %q", Message(err))
		}
	})
}

func TestListBorrows_Partitions(t *testing.T) {
	t.Parallel()

	borrows := &fakeBorrows{page: model.Page[model.Borrow]{
		Content: []model.Borrow{{ID: 1}, {ID: 2, IsReturned: true}, {ID: 3}},
		Info:    model.PageInfo{Page: 1, TotalPages: 2},
	}}
	s, _ := newBorrowSvc(borrows, &fakePayments{}, true)

	l, err := s.ListBorrows(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("ListBorrows: %v", err)
	}
	if borrows.lastPage != 1 {
		t.Fatalf("wire page = %d", borrows.lastPage)
	}
	if len(l.Current) != 2 || len(l.History) != 1 || l.History[0].ID != 2 {
		t.Fatalf("partition = %+v", l)
	}
}

func TestReturnBorrow_InFlightGuard(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	borrows := &fakeBorrows{returnGate: gate}
	s, _ := newBorrowSvc(borrows, &fakePayments{}, true)

	done := make(chan error, 1)
	go func() {
		_, err := s.ReturnBorrow(context.Background(), 5)
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !s.Returning(5) {
		if time.Now().After(deadline) {
			t.Fatalf("first return never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := s.ReturnBorrow(context.Background(), 5); !errors.Is(err, errs.ErrInFlight) {
		t.Fatalf("want ErrInFlight, got %v", err)
	}
	if s.Returning(6) {
		t.Fatalf("other ids must not be blocked")
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first return: %v", err)
	}
	if s.Returning(5) {
		t.Fatalf("guard not released")
	}

	borrows.mu.Lock()
	calls := borrows.returnCalls
	borrows.mu.Unlock()
	if calls != 1 {
		t.Fatalf("want 1 backend call, got %d", calls)
	}

	if b, err := s.ReturnBorrow(context.Background(), 5); err != nil || !b.IsReturned {
		t.Fatalf("retry after release: %+v, %v", b, err)
	}
}

func TestReturnBorrow_ReleasesOnError(t *testing.T) {
	t.Parallel()

	s, _ := newBorrowSvc(&fakeBorrows{err: &errs.APIError{Status: 400, Message: "Already returned"}}, &fakePayments{}, true)
	_, err := s.ReturnBorrow(context.Background(), 8)
	if Message(err) != "Already returned" {
		t.Fatalf("message = %q", Message(err))
	}
	if s.Returning(8) {
		t.Fatalf("guard must be released after a failure")
	}
}

func TestDueState(t *testing.T) {
	t.Parallel()

	cases := []struct {
		due      time.Time
		returned bool
		overdue  bool
		days     int
		label    string
	}{
		{fixedNow.Add(36 * time.Hour), false, false, 2, "2 days left"},
		{fixedNow.Add(24 * time.Hour), false, false, 1, "1 days left"},
		{fixedNow.Add(-50 * time.Hour), false, true, -2, "overdue by 2 days"},
		{fixedNow.Add(-72 * time.Hour), false, true, -3, "overdue by 3 days"},
		{fixedNow.Add(-72 * time.Hour), true, false, -3, "returned"},
	}
	for _, tc := range cases {
		b := model.Borrow{DueDate: tc.due, IsReturned: tc.returned}
		if got := Overdue(b, fixedNow); got != tc.overdue {
			t.Fatalf("Overdue(%v) = %v", tc.due, got)
		}
		if got := DaysRemaining(b, fixedNow); got != tc.days {
			t.Fatalf("DaysRemaining(%v) = %d, want %d", tc.due, got, tc.days)
		}
		if got := DueLabel(b, fixedNow); got != tc.label {
			t.Fatalf("DueLabel(%v) = %q, want %q", tc.due, got, tc.label)
		}
	}
}

func TestPayFine(t *testing.T) {
	t.Parallel()

	fined := model.Borrow{ID: 11, FineAmount: floatp(2.5), Book: model.BookRef{Title: "Dune"}}
	yes := ui.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
	no := ui.ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })

	pay := &fakePayments{init: model.PaymentInitiation{PIDX: "p1", PaymentURL: "https://gw/pay/p1"}}
	s, _ := newBorrowSvc(&fakeBorrows{}, pay, true)

	if _, err := s.PayFine(context.Background(), model.Borrow{ID: 1, FineAmount: floatp(0)}, yes); !errors.Is(err, errs.ErrNotEligible) {
		t.Fatalf("zero fine: %v", err)
	}
	if _, err := s.PayFine(context.Background(), model.Borrow{ID: 1}, yes); !errors.Is(err, errs.ErrNotEligible) {
		t.Fatalf("nil fine: %v", err)
	}
	if _, err := s.PayFine(context.Background(), fined, no); !errors.Is(err, errs.ErrDeclined) {
		t.Fatalf("declined: %v", err)
	}
	if pay.initCalls != 0 {
		t.Fatalf("backend called without confirmation")
	}

	nav, err := s.PayFine(context.Background(), fined, yes)
	if err != nil {
		t.Fatalf("PayFine: %v", err)
	}
	if nav.External != "https://gw/pay/p1" || nav.Target() != "https://gw/pay/p1" {
		t.Fatalf("navigation = %+v", nav)
	}
}
