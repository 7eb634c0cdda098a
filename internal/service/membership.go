package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/and161185/libdesk/internal/errs"
	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/repository"
	"github.com/and161185/libdesk/internal/session"
	"github.com/and161185/libdesk/internal/ui"
)

// MembershipValidity is the suggested lifetime of a new membership.
const MembershipValidity = 365 * 24 * time.Hour

// SuggestedLimit returns the borrowing limit hinted for a tier, or 0 for an unknown tier.
func SuggestedLimit(t model.MembershipType) int {
	switch t {
	case model.MembershipStudent:
		return 5
	case model.MembershipRegular:
		return 3
	case model.MembershipPremium:
		return 10
	}
	return 0
}

// ParseMembershipType accepts a tier name in any case.
func ParseMembershipType(s string) (model.MembershipType, bool) {
	t := model.MembershipType(strings.ToUpper(strings.TrimSpace(s)))
	return t, SuggestedLimit(t) > 0
}

// MembershipService fetches or creates the user's membership.
type MembershipService struct {
	memberships repository.MembershipRepository
	store       session.Store
	notify      ui.Notifier
	now         func() time.Time
}

var membershipMessages = messages{fallback: MsgMembershipFailed}

// NewMembershipService constructs MembershipService. now may be nil (time.Now).
func NewMembershipService(memberships repository.MembershipRepository, store session.Store, n ui.Notifier, now func() time.Time) *MembershipService {
	if now == nil {
		now = time.Now
	}
	return &MembershipService{memberships: memberships, store: store, notify: notifierOr(n), now: now}
}

// GetMembership returns the user's membership, or nil when the backend
// answers 404: having none is a normal state.
func (s *MembershipService) GetMembership(ctx context.Context, userID int64) (*model.Membership, error) {
	m, err := s.memberships.GetByUser(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fail(s.notify, messages{fallback: MsgMembershipLoad}, err)
	}
	return &m, nil
}

// MyMembership is GetMembership for the logged-in user.
func (s *MembershipService) MyMembership(ctx context.Context) (*model.Membership, error) {
	sess, err := session.Require(ctx, s.store)
	if err != nil {
		return nil, fail(s.notify, messages{fallback: MsgMembershipLoad}, err)
	}
	return s.GetMembership(ctx, sess.Profile.ID)
}

// CreateMembership creates a membership of tier t for the logged-in user.
// The limit and validity window are hints; the server's answer is returned.
func (s *MembershipService) CreateMembership(ctx context.Context, t model.MembershipType) (model.Membership, error) {
	limit := SuggestedLimit(t)
	if limit == 0 {
		return model.Membership{}, reject(s.notify, "membershipType", MsgMembershipType)
	}
	sess, err := session.Require(ctx, s.store)
	if err != nil {
		return model.Membership{}, fail(s.notify, membershipMessages, err)
	}

	now := s.now()
	m, err := s.memberships.Create(ctx, sess.Profile.ID, repository.NewMembership{
		Type:           t,
		Status:         model.MembershipActive,
		DateOfIssue:    now,
		ExpiryDate:     now.Add(MembershipValidity),
		BorrowingLimit: limit,
	})
	if err != nil {
		return model.Membership{}, fail(s.notify, membershipMessages, err)
	}
	success(s.notify, MsgMembershipSuccess)
	return m, nil
}

// TotalMemberships returns the membership count (admin view).
func (s *MembershipService) TotalMemberships(ctx context.Context) (int64, error) {
	n, err := s.memberships.Total(ctx)
	if err != nil {
		return 0, fail(s.notify, membershipMessages, err)
	}
	return n, nil
}
