// Package ui holds the presentation-side contracts the flows talk to:
// navigation commands, a single-slot notifier, one-time flash messages,
// confirmation prompts and view epochs for discarding stale responses.
package ui

import (
	"context"
	"sync"
	"time"
)

// Route is an in-app destination.
type Route string

// Known routes.
const (
	RouteHome      Route = "/"
	RouteLogin     Route = "/login"
	RouteDashboard Route = "/dashboard"
	RouteAdmin     Route = "/admin"
	RouteBorrows   Route = "/borrows"
)

// Navigation is a command returned by a flow; the shell decides how to carry it out.
type Navigation struct {
	To       Route
	External string        // absolute URL outside the app (payment gateway); overrides To
	After    time.Duration // delay before navigating
	Flash    string        // one-time message for the destination
}

// Target returns the external URL or the route.
func (n Navigation) Target() string {
	if n.External != "" {
		return n.External
	}
	return string(n.To)
}

// Level classifies notifications.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	}
	return "info"
}

// Notice is one transient notification.
type Notice struct {
	Level   Level
	Message string
}

// Notifier shows transient notifications. A new notice replaces the current one.
type Notifier interface {
	Notify(n Notice)
}

// Slot is a Notifier that keeps only the latest notice and forwards it to an
// optional sink (terminal printer, test recorder).
type Slot struct {
	mu      sync.Mutex
	current *Notice
	shown   int
	sink    func(Notice)
}

var _ Notifier = (*Slot)(nil)

// NewSlot returns a Slot that forwards to sink (may be nil).
func NewSlot(sink func(Notice)) *Slot { return &Slot{sink: sink} }

// Notify replaces any current notice.
func (s *Slot) Notify(n Notice) {
	s.mu.Lock()
	s.current = &n
	s.shown++
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink(n)
	}
}

// Current returns the notice on screen, if any.
func (s *Slot) Current() (Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Notice{}, false
	}
	return *s.current, true
}

// Shown reports how many notices were issued.
func (s *Slot) Shown() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown
}

// Dismiss clears the current notice.
func (s *Slot) Dismiss() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Flash carries a message to the next view; Take consumes it.
type Flash struct {
	mu  sync.Mutex
	msg string
}

// Put stores msg, replacing any pending one.
func (f *Flash) Put(msg string) {
	f.mu.Lock()
	f.msg = msg
	f.mu.Unlock()
}

// Take returns the pending message and clears it.
func (f *Flash) Take() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.msg
	f.msg = ""
	return m, m != ""
}

// Confirmer asks the user to confirm an action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// Epoch tracks which view is current so late responses can be dropped.
type Epoch struct {
	mu  sync.Mutex
	gen uint64
}

// Ticket identifies the view a request was issued from.
type Ticket uint64

// Enter starts a new view and returns its ticket; older tickets go stale.
func (e *Epoch) Enter() Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	return Ticket(e.gen)
}

// Current reports whether t still belongs to the current view.
func (e *Epoch) Current(t Ticket) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(t) == e.gen
}

// Apply runs apply only if t is still current; it reports whether it ran.
func (e *Epoch) Apply(t Ticket, apply func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if uint64(t) != e.gen {
		return false
	}
	apply()
	return true
}
