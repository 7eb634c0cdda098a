package service

import (
	"context"

	"github.com/and161185/libdesk/internal/errs"
	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/repository"
	"github.com/and161185/libdesk/internal/ui"
	"go.uber.org/zap"
)

// ReservableCatalogSize caps the catalog pulled for the reservation picker.
const ReservableCatalogSize = 50

// MsgMembershipRequired is shown when reserving without a membership.
const MsgMembershipRequired = "You need a membership to reserve books."

// ReservationService manages queue entries for unavailable books.
type ReservationService struct {
	reservations repository.ReservationRepository
	books        repository.BookRepository
	notify       ui.Notifier
	log          *zap.Logger
}

var reserveMessages = messages{fallback: MsgReserveFailed}

// NewReservationService constructs ReservationService.
func NewReservationService(reservations repository.ReservationRepository, books repository.BookRepository, n ui.Notifier, log *zap.Logger) *ReservationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReservationService{reservations: reservations, books: books, notify: notifierOr(n), log: log}
}

// ListReservations returns the membership's reservations.
func (s *ReservationService) ListReservations(ctx context.Context, membershipID int64) ([]model.Reservation, error) {
	rs, err := s.reservations.ListByMember(ctx, membershipID)
	if err != nil {
		return nil, fail(s.notify, reserveMessages, err)
	}
	return rs, nil
}

// LoadReservationsQuietly is the background variant used on page load: a
// failure is logged at debug level and yields an empty list.
func (s *ReservationService) LoadReservationsQuietly(ctx context.Context, membershipID int64) []model.Reservation {
	rs, err := s.reservations.ListByMember(ctx, membershipID)
	if err != nil {
		s.log.Debug("load reservations", zap.Int64("membership_id", membershipID), zap.Error(err))
		return nil
	}
	return rs
}

// ReservableBooks pulls the first 50 books by title and keeps the ones
// that cannot be borrowed right now.
func (s *ReservationService) ReservableBooks(ctx context.Context) ([]model.Book, error) {
	p, err := s.books.List(ctx, repository.BookListParams{
		Page:      0,
		Size:      ReservableCatalogSize,
		SortBy:    SortTitle,
		SortOrder: OrderAsc,
	})
	if err != nil {
		return nil, fail(s.notify, catalogMessages, err)
	}
	out := make([]model.Book, 0, len(p.Content))
	for _, b := range p.Content {
		if Reservable(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

// CreateReservation queues the membership for book.
func (s *ReservationService) CreateReservation(ctx context.Context, book model.Book, membershipID int64) (model.Reservation, error) {
	if membershipID <= 0 {
		return model.Reservation{}, refuse(s.notify, MsgMembershipRequired, errs.ErrNotEligible)
	}
	if !Reservable(book) {
		return model.Reservation{}, refuse(s.notify, MsgReserveAvailable, errs.ErrNotEligible)
	}
	r, err := s.reservations.Create(ctx, book.ID, membershipID)
	if err != nil {
		return model.Reservation{}, fail(s.notify, reserveMessages, err)
	}
	success(s.notify, MsgReserveSuccess)
	return r, nil
}
