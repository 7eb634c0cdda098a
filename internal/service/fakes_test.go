package service

import (
	"context"
	"sync"
	"time"

	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/repository"
	"github.com/and161185/libdesk/internal/ui"
)

type fakeAuth struct {
	sess     model.Session
	loginErr error
	status   int
	regErr   error

	loginCalls int
	regCalls   int
	lastReg    repository.Registration
}

var _ repository.AuthRepository = (*fakeAuth)(nil)

func (f *fakeAuth) Login(context.Context, string, string) (model.Session, error) {
	f.loginCalls++
	return f.sess, f.loginErr
}
func (f *fakeAuth) Register(_ context.Context, r repository.Registration) (int, error) {
	f.regCalls++
	f.lastReg = r
	return f.status, f.regErr
}

type fakeBooks struct {
	page    model.Page[model.Book]
	book    model.Book
	total   int64
	discov  []model.Book
	err     error
	lastReq repository.BookListParams
	calls   int
}

var _ repository.BookRepository = (*fakeBooks)(nil)

func (f *fakeBooks) List(_ context.Context, p repository.BookListParams) (model.Page[model.Book], error) {
	f.calls++
	f.lastReq = p
	return f.page, f.err
}
func (f *fakeBooks) Get(context.Context, int64) (model.Book, error) { f.calls++; return f.book, f.err }
func (f *fakeBooks) Total(context.Context) (int64, error)           { f.calls++; return f.total, f.err }
func (f *fakeBooks) Discover(context.Context) ([]model.Book, error) {
	f.calls++
	return f.discov, f.err
}

type fakeBorrows struct {
	mu sync.Mutex

	created    model.Borrow
	page       model.Page[model.Borrow]
	err        error
	returnGate chan struct{} // blocks Return until closed when non-nil

	createCalls int
	returnCalls int
	lastUser    int64
	lastDate    time.Time
	lastPage    int
}

var _ repository.BorrowRepository = (*fakeBorrows)(nil)

func (f *fakeBorrows) Create(_ context.Context, bookID, userID int64, d time.Time) (model.Borrow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.lastUser = userID
	f.lastDate = d
	return f.created, f.err
}
func (f *fakeBorrows) List(_ context.Context, page, _ int) (model.Page[model.Borrow], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPage = page
	return f.page, f.err
}
func (f *fakeBorrows) Get(_ context.Context, id int64) (model.Borrow, error) {
	return model.Borrow{ID: id}, f.err
}
func (f *fakeBorrows) Return(_ context.Context, id int64) (model.Borrow, error) {
	f.mu.Lock()
	f.returnCalls++
	gate := f.returnGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return model.Borrow{ID: id, IsReturned: true}, f.err
}

type fakePayments struct {
	init      model.PaymentInitiation
	verify    model.PaymentVerification
	err       error
	initCalls int
	verCalls  int
}

var _ repository.PaymentRepository = (*fakePayments)(nil)

func (f *fakePayments) Initiate(context.Context, int64) (model.PaymentInitiation, error) {
	f.initCalls++
	return f.init, f.err
}
func (f *fakePayments) Verify(context.Context, string) (model.PaymentVerification, error) {
	f.verCalls++
	return f.verify, f.err
}

type fakeMemberships struct {
	m        model.Membership
	getErr   error
	err      error
	total    int64
	lastUser int64
	lastNew  repository.NewMembership
	calls    int
}

var _ repository.MembershipRepository = (*fakeMemberships)(nil)

func (f *fakeMemberships) GetByUser(_ context.Context, userID int64) (model.Membership, error) {
	f.calls++
	f.lastUser = userID
	return f.m, f.getErr
}
func (f *fakeMemberships) Create(_ context.Context, userID int64, m repository.NewMembership) (model.Membership, error) {
	f.calls++
	f.lastUser = userID
	f.lastNew = m
	return f.m, f.err
}
func (f *fakeMemberships) Total(context.Context) (int64, error) { f.calls++; return f.total, f.err }

type fakeReservations struct {
	list  []model.Reservation
	res   model.Reservation
	err   error
	calls int
}

var _ repository.ReservationRepository = (*fakeReservations)(nil)

func (f *fakeReservations) ListByMember(context.Context, int64) ([]model.Reservation, error) {
	f.calls++
	return f.list, f.err
}
func (f *fakeReservations) Create(context.Context, int64, int64) (model.Reservation, error) {
	f.calls++
	return f.res, f.err
}

type fakeRatings struct {
	err   error
	calls int
	last  model.Rating
}

var _ repository.RatingRepository = (*fakeRatings)(nil)

func (f *fakeRatings) Rate(_ context.Context, _ int64, r model.Rating) (model.Rating, error) {
	f.calls++
	f.last = r
	return r, f.err
}

type fakeDocs struct {
	mu    sync.Mutex
	calls int
	url   string
	err   error
	delay time.Duration
}

var _ repository.DocumentRepository = (*fakeDocs)(nil)

func (f *fakeDocs) URL(context.Context, int64) (string, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.url, f.err
}

// recorder collects notices in order.
type recorder struct {
	mu      sync.Mutex
	notices []ui.Notice
}

func (r *recorder) Notify(n ui.Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *recorder) all() []ui.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ui.Notice(nil), r.notices...)
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
