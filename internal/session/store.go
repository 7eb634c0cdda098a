// Package session persists the authenticated identity: a bearer token and a
// user-profile blob, stored under exactly two keys and cleared together.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/and161185/libdesk/internal/errs"
	"github.com/and161185/libdesk/internal/model"
)

// Persisted keys.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Store is the session store contract. Get returns (nil, nil) when no session
// is stored. There is no expiry tracking; writers do not lock each other out,
// the last Set wins.
type Store interface {
	Set(ctx context.Context, s model.Session) error
	Get(ctx context.Context) (*model.Session, error)
	Clear(ctx context.Context) error
}

// Token returns the bearer token, preferring a session carried in ctx.
func Token(ctx context.Context, st Store) (string, error) {
	if s, ok := FromContext(ctx); ok && s.Token != "" {
		return s.Token, nil
	}
	s, err := st.Get(ctx)
	if err != nil {
		return "", err
	}
	if s == nil || s.Token == "" {
		return "", errs.ErrNoSession
	}
	return s.Token, nil
}

// Require loads the session or fails with errs.ErrNoSession.
func Require(ctx context.Context, st Store) (*model.Session, error) {
	if s, ok := FromContext(ctx); ok {
		return &s, nil
	}
	s, err := st.Get(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errs.ErrNoSession
	}
	return s, nil
}

func encodeProfile(p model.Profile) ([]byte, error) {
	return json.Marshal(p)
}

func decodeProfile(b []byte) (model.Profile, error) {
	var p model.Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return model.Profile{}, fmt.Errorf("decode stored profile: %w", err)
	}
	return p, nil
}

// Memory is an in-process Store.
type Memory struct {
	mu sync.RWMutex
	kv map[string][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{kv: map[string][]byte{}} }

// Set stores both keys.
func (m *Memory) Set(_ context.Context, s model.Session) error {
	user, err := encodeProfile(s.Profile)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[KeyToken] = []byte(s.Token)
	m.kv[KeyUser] = user
	return nil
}

// Get loads the session, or nil when either key is missing.
func (m *Memory) Get(_ context.Context) (*model.Session, error) {
	m.mu.RLock()
	tok, okT := m.kv[KeyToken]
	user, okU := m.kv[KeyUser]
	m.mu.RUnlock()
	if !okT || !okU || len(tok) == 0 {
		return nil, nil
	}
	p, err := decodeProfile(user)
	if err != nil {
		return nil, err
	}
	return &model.Session{Token: string(tok), Profile: p}, nil
}

// Clear removes both keys.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kv, KeyToken)
	delete(m.kv, KeyUser)
	return nil
}
