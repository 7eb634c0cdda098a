package service

import (
	"context"

	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/repository"
	"github.com/and161185/libdesk/internal/ui"
)

// MaxReviewRunes bounds a review.
const MaxReviewRunes = 500

// RatingForm is the star-rating input state.
type RatingForm struct {
	Rating int
	Review string
}

// SetReview stores s, truncated to MaxReviewRunes.
func (f *RatingForm) SetReview(s string) {
	r := []rune(s)
	if len(r) > MaxReviewRunes {
		r = r[:MaxReviewRunes]
	}
	f.Review = string(r)
}

// Reset clears the form.
func (f *RatingForm) Reset() { *f = RatingForm{} }

// RatingService submits ratings.
type RatingService struct {
	ratings repository.RatingRepository
	notify  ui.Notifier
}

var ratingMessages = messages{fallback: MsgRatingFailed}

// NewRatingService constructs RatingService.
func NewRatingService(ratings repository.RatingRepository, n ui.Notifier) *RatingService {
	return &RatingService{ratings: ratings, notify: notifierOr(n)}
}

// Submit sends the form for bookID and clears it on success.
func (s *RatingService) Submit(ctx context.Context, bookID int64, f *RatingForm) (model.Rating, error) {
	switch {
	case f.Rating == 0:
		return model.Rating{}, reject(s.notify, "rating", MsgRatingRequired)
	case f.Rating < 1 || f.Rating > 5:
		return model.Rating{}, reject(s.notify, "rating", MsgRatingRange)
	}
	f.SetReview(f.Review)

	r, err := s.ratings.Rate(ctx, bookID, model.Rating{Rating: f.Rating, Review: f.Review})
	if err != nil {
		return model.Rating{}, fail(s.notify, ratingMessages, err)
	}
	success(s.notify, MsgRatingSuccess)
	f.Reset()
	return r, nil
}
