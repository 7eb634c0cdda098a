package service

import (
	"context"
	"strings"

	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/pager"
	"github.com/and161185/libdesk/internal/repository"
	"github.com/and161185/libdesk/internal/ui"
)

// Sort keys and orders accepted by the catalog.
const (
	SortCreatedAt = "createdAt"
	SortTitle     = "title"
	SortAuthor    = "author"

	OrderAsc  = "asc"
	OrderDesc = "desc"

	DefaultPageSize = 10
)

// BookQuery is a catalog request as the user sees it. Page is 1-based.
type BookQuery struct {
	Page      float64
	Size      int
	Query     string
	SortBy    string
	SortOrder string
}

// Params translates the query to wire parameters.
func (q BookQuery) Params() repository.BookListParams {
	size := q.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	sortBy := q.SortBy
	switch sortBy {
	case SortCreatedAt, SortTitle, SortAuthor:
	default:
		sortBy = SortCreatedAt
	}
	order := strings.ToLower(q.SortOrder)
	if order != OrderAsc {
		order = OrderDesc
	}
	return repository.BookListParams{
		Page:      pager.WireIndex(q.Page),
		Size:      size,
		Search:    strings.TrimSpace(q.Query),
		SortBy:    sortBy,
		SortOrder: order,
	}
}

// CatalogService browses books.
type CatalogService interface {
	ListBooks(ctx context.Context, q BookQuery) (model.Page[model.Book], error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	TotalBooks(ctx context.Context) (int64, error)
	Discover(ctx context.Context) ([]model.Book, error)
}

type CatalogServiceImpl struct {
	books  repository.BookRepository
	notify ui.Notifier
}

var _ CatalogService = (*CatalogServiceImpl)(nil)

var catalogMessages = messages{fallback: MsgBooksFailed}

// NewCatalogService constructs CatalogService.
func NewCatalogService(books repository.BookRepository, n ui.Notifier) *CatalogServiceImpl {
	return &CatalogServiceImpl{books: books, notify: notifierOr(n)}
}

// ListBooks implements CatalogService.
func (s *CatalogServiceImpl) ListBooks(ctx context.Context, q BookQuery) (model.Page[model.Book], error) {
	p, err := s.books.List(ctx, q.Params())
	if err != nil {
		return model.Page[model.Book]{}, fail(s.notify, catalogMessages, err)
	}
	return p, nil
}

// FetchBooks is ListBooks without the failure notice. Views that may have
// moved on by the time the page arrives report the error themselves.
func (s *CatalogServiceImpl) FetchBooks(ctx context.Context, q BookQuery) (model.Page[model.Book], error) {
	p, err := s.books.List(ctx, q.Params())
	if err != nil {
		return model.Page[model.Book]{}, explain(catalogMessages, err)
	}
	return p, nil
}

// GetBook implements CatalogService.
func (s *CatalogServiceImpl) GetBook(ctx context.Context, id int64) (model.Book, error) {
	b, err := s.books.Get(ctx, id)
	if err != nil {
		return model.Book{}, fail(s.notify, catalogMessages, err)
	}
	return b, nil
}

// TotalBooks implements CatalogService.
func (s *CatalogServiceImpl) TotalBooks(ctx context.Context) (int64, error) {
	n, err := s.books.Total(ctx)
	if err != nil {
		return 0, fail(s.notify, catalogMessages, err)
	}
	return n, nil
}

// Discover implements CatalogService.
func (s *CatalogServiceImpl) Discover(ctx context.Context) ([]model.Book, error) {
	bs, err := s.books.Discover(ctx)
	if err != nil {
		return nil, fail(s.notify, catalogMessages, err)
	}
	return bs, nil
}

// Borrowable reports whether the borrow action is enabled for b: the server
// flag and the copy count must both allow it.
func Borrowable(b model.Book) bool {
	return b.IsAvailable && (b.AvailableCopies == nil || *b.AvailableCopies > 0)
}

// Reservable reports whether b can be queued for: the complement of a
// missing copy, not of Borrowable.
func Reservable(b model.Book) bool {
	return !b.IsAvailable || (b.AvailableCopies != nil && *b.AvailableCopies == 0)
}

// Controls returns the pagination bar for a page of results.
func Controls(info model.PageInfo) pager.Controls {
	return pager.Build(info.Page+1, info.TotalPages)
}
