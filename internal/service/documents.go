package service

import (
	"context"
	"strconv"
	"sync"

	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/repository"
	"golang.org/x/sync/singleflight"
)

// DocumentService resolves cover URLs. Lookups are memoized for the life of
// the process and concurrent lookups of one document share a single fetch.
type DocumentService struct {
	docs repository.DocumentRepository

	mu   sync.RWMutex
	urls map[int64]string
	sf   singleflight.Group
}

// NewDocumentService constructs DocumentService.
func NewDocumentService(docs repository.DocumentRepository) *DocumentService {
	return &DocumentService{docs: docs, urls: map[int64]string{}}
}

// CoverURL returns the cover URL for b, or "" when the book has no documents.
func (s *DocumentService) CoverURL(ctx context.Context, b model.Book) (string, error) {
	d, ok := b.Cover()
	if !ok {
		return "", nil
	}
	if d.URL != "" {
		return d.URL, nil
	}
	return s.URL(ctx, d.ID)
}

// URL resolves one document id.
func (s *DocumentService) URL(ctx context.Context, id int64) (string, error) {
	s.mu.RLock()
	u, ok := s.urls[id]
	s.mu.RUnlock()
	if ok {
		return u, nil
	}

	v, err, _ := s.sf.Do(strconv.FormatInt(id, 10), func() (any, error) {
		s.mu.RLock()
		u, ok := s.urls[id]
		s.mu.RUnlock()
		if ok {
			return u, nil
		}
		u, err := s.docs.URL(ctx, id)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.urls[id] = u
		s.mu.Unlock()
		return u, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Cover is the render state of one cover image.
type Cover struct {
	URL    string
	Failed bool
}

// Cover builds the render state for b. A lookup error is a failed cover, not
// a failed page.
func (s *DocumentService) Cover(ctx context.Context, b model.Book) Cover {
	u, err := s.CoverURL(ctx, b)
	if err != nil || u == "" {
		return Cover{Failed: true}
	}
	return Cover{URL: u}
}

// MarkFailed flips the cover to its placeholder; called by the image error callback.
func (c *Cover) MarkFailed() { c.Failed = true }

// ShowImage reports whether the image, not the placeholder, should render.
func (c Cover) ShowImage() bool { return !c.Failed && c.URL != "" }
