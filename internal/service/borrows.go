package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/and161185/libdesk/internal/errs"
	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/pager"
	"github.com/and161185/libdesk/internal/repository"
	"github.com/and161185/libdesk/internal/session"
	"github.com/and161185/libdesk/internal/ui"
)

// MaxLoanDays bounds the chosen return date.
const MaxLoanDays = 90

// BorrowService defines the borrow lifecycle.
type BorrowService interface {
	CreateBorrow(ctx context.Context, book model.Book, returnDate time.Time) (model.Borrow, error)
	ListBorrows(ctx context.Context, uiPage float64, size int) (BorrowList, error)
	ReturnBorrow(ctx context.Context, id int64) (model.Borrow, error)
	GetBorrowDetail(ctx context.Context, id int64) (model.Borrow, error)
	PayFine(ctx context.Context, b model.Borrow, c ui.Confirmer) (ui.Navigation, error)
}

// BorrowList is one page of borrows split by state.
type BorrowList struct {
	Current []model.Borrow // not returned yet
	History []model.Borrow // returned
	Info    model.PageInfo
}

type BorrowServiceImpl struct {
	borrows  repository.BorrowRepository
	payments repository.PaymentRepository
	store    session.Store
	notify   ui.Notifier
	now      func() time.Time

	mu        sync.Mutex
	returning map[int64]struct{}
}

var _ BorrowService = (*BorrowServiceImpl)(nil)

var (
	borrowMessages  = messages{fallback: MsgBorrowFailed}
	returnMessages  = messages{fallback: MsgReturnFailed}
	listMessages    = messages{fallback: MsgBorrowsFailed}
	paymentMessages = messages{fallback: MsgPaymentFailed}
)

// NewBorrowService constructs BorrowService. now may be nil (time.Now).
func NewBorrowService(borrows repository.BorrowRepository, payments repository.PaymentRepository, store session.Store, n ui.Notifier, now func() time.Time) *BorrowServiceImpl {
	if now == nil {
		now = time.Now
	}
	return &BorrowServiceImpl{
		borrows:   borrows,
		payments:  payments,
		store:     store,
		notify:    notifierOr(n),
		now:       now,
		returning: map[int64]struct{}{},
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ReturnDateWindow returns the first and last selectable return dates.
func ReturnDateWindow(now time.Time) (time.Time, time.Time) {
	today := startOfDay(now)
	return today, today.AddDate(0, 0, MaxLoanDays)
}

// ValidReturnDate reports whether d falls within today..today+90 days, by calendar day.
func ValidReturnDate(d, now time.Time) bool {
	first, last := ReturnDateWindow(now)
	day := startOfDay(d.In(now.Location()))
	return !day.Before(first) && !day.After(last)
}

// CreateBorrow implements BorrowService.
func (s *BorrowServiceImpl) CreateBorrow(ctx context.Context, book model.Book, returnDate time.Time) (model.Borrow, error) {
	sess, err := session.Require(ctx, s.store)
	if err != nil {
		return model.Borrow{}, fail(s.notify, borrowMessages, err)
	}
	if !Borrowable(book) {
		return model.Borrow{}, refuse(s.notify, MsgNotBorrowable, errs.ErrNotEligible)
	}
	if !ValidReturnDate(returnDate, s.now()) {
		return model.Borrow{}, reject(s.notify, "returnDate", MsgReturnDateRange)
	}

	b, err := s.borrows.Create(ctx, book.ID, sess.Profile.ID, startOfDay(returnDate.In(s.now().Location())))
	if err != nil {
		return model.Borrow{}, fail(s.notify, borrowMessages, err)
	}
	success(s.notify, MsgBorrowSuccess)
	return b, nil
}

// ListBorrows implements BorrowService.
func (s *BorrowServiceImpl) ListBorrows(ctx context.Context, uiPage float64, size int) (BorrowList, error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	p, err := s.borrows.List(ctx, pager.WireIndex(uiPage), size)
	if err != nil {
		return BorrowList{}, fail(s.notify, listMessages, err)
	}
	out := BorrowList{Info: p.Info}
	for _, b := range p.Content {
		if b.IsReturned {
			out.History = append(out.History, b)
		} else {
			out.Current = append(out.Current, b)
		}
	}
	return out, nil
}

// Returning reports whether a return for id is in flight; the return action
// is disabled while it is.
func (s *BorrowServiceImpl) Returning(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.returning[id]
	return ok
}

func (s *BorrowServiceImpl) acquire(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.returning[id]; busy {
		return false
	}
	s.returning[id] = struct{}{}
	return true
}

func (s *BorrowServiceImpl) release(id int64) {
	s.mu.Lock()
	delete(s.returning, id)
	s.mu.Unlock()
}

// ReturnBorrow implements BorrowService. A second return for the same id
// while one is in flight fails with errs.ErrInFlight without a call.
func (s *BorrowServiceImpl) ReturnBorrow(ctx context.Context, id int64) (model.Borrow, error) {
	if !s.acquire(id) {
		return model.Borrow{}, &UserError{Message: MsgReturnInFlight, Err: errs.ErrInFlight}
	}
	defer s.release(id)

	b, err := s.borrows.Return(ctx, id)
	if err != nil {
		return model.Borrow{}, fail(s.notify, returnMessages, err)
	}
	success(s.notify, MsgReturnSuccess)
	return b, nil
}

// GetBorrowDetail implements BorrowService.
func (s *BorrowServiceImpl) GetBorrowDetail(ctx context.Context, id int64) (model.Borrow, error) {
	b, err := s.borrows.Get(ctx, id)
	if err != nil {
		return model.Borrow{}, fail(s.notify, listMessages, err)
	}
	return b, nil
}

// PayFine implements BorrowService. The confirmer must approve before the
// backend is asked for a gateway URL; the returned navigation leaves the app.
func (s *BorrowServiceImpl) PayFine(ctx context.Context, b model.Borrow, c ui.Confirmer) (ui.Navigation, error) {
	if !b.HasFine() {
		return ui.Navigation{}, refuse(s.notify, MsgNoFine, errs.ErrNotEligible)
	}
	if c == nil {
		return ui.Navigation{}, errs.ErrDeclined
	}
	ok, err := c.Confirm(ctx, fmt.Sprintf("Pay fine of %.2f for %q?", *b.FineAmount, b.Book.Title))
	if err != nil {
		return ui.Navigation{}, err
	}
	if !ok {
		return ui.Navigation{}, errs.ErrDeclined
	}

	init, err := s.payments.Initiate(ctx, b.ID)
	if err != nil {
		return ui.Navigation{}, fail(s.notify, paymentMessages, err)
	}
	return ui.Navigation{External: init.PaymentURL}, nil
}

// Overdue reports whether an unreturned borrow is past due at now.
func Overdue(b model.Borrow, now time.Time) bool {
	return !b.IsReturned && now.After(b.DueDate)
}

// DaysRemaining is ceil((due - now) / 24h); negative once overdue.
func DaysRemaining(b model.Borrow, now time.Time) int {
	d := b.DueDate.Sub(now)
	return int(math.Ceil(float64(d) / float64(24*time.Hour)))
}

// DueLabel renders the due state of b at now.
func DueLabel(b model.Borrow, now time.Time) string {
	if b.IsReturned {
		return "returned"
	}
	n := DaysRemaining(b, now)
	if n < 0 {
		return fmt.Sprintf("overdue by %d days", -n)
	}
	return fmt.Sprintf("%d days left", n)
}
