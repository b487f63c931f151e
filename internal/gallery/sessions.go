package gallery

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/quikpix/internal/apperr"
	"github.com/starford/quikpix/internal/models"
	"github.com/starford/quikpix/internal/viewer"
)

// DefaultMaxSessions bounds the number of open viewers.
const DefaultMaxSessions = 256

// GestureKind names one input event a client can send to a viewer.
type GestureKind string

const (
	GestureTap       GestureKind = "tap"
	GestureDoubleTap GestureKind = "double_tap"
	GestureMove      GestureKind = "move"
	GestureRelease   GestureKind = "release"
	GestureGoTo      GestureKind = "goto"
	GestureViewport  GestureKind = "viewport"
	GestureTick      GestureKind = "tick"
)

// Gesture is one client input event.
type Gesture struct {
	Kind   GestureKind `json:"type"`
	Move   viewer.Move `json:"move"`
	Index  int         `json:"index"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
}

// View is the externally visible state of a session.
type View struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Current   models.ImageRef `json:"current"`
	State     viewer.State    `json:"state"`
	Navigated bool            `json:"navigated,omitempty"`
}

type session struct {
	id       string
	category string
	refs     []models.ImageRef
	v        *viewer.Viewer
	lastUsed time.Time
}

func (s *session) view() View {
	st := s.v.State()
	return View{ID: s.id, Category: s.category, Current: s.refs[st.Index], State: st}
}

// Sessions keeps open viewers keyed by id. Each viewer is only touched under
// the registry lock.
type Sessions struct {
	cfg viewer.Config
	max int
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// SessionOption customises a Sessions registry.
type SessionOption func(*Sessions)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Sessions) { s.now = now }
}

// WithMaxSessions caps the number of open sessions; the least recently used
// one is evicted when the cap is reached.
func WithMaxSessions(n int) SessionOption {
	return func(s *Sessions) { s.max = n }
}

// NewSessions creates an empty registry using cfg for every viewer.
func NewSessions(cfg viewer.Config, opts ...SessionOption) *Sessions {
	s := &Sessions{
		cfg:      cfg,
		max:      DefaultMaxSessions,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open starts a viewer over refs at start.
func (s *Sessions) Open(category string, refs []models.ImageRef, start int) (View, error) {
	now := s.now()
	v, err := viewer.New(s.cfg, len(refs), start, now)
	if err != nil {
		return View{}, err
	}
	sess := &session{
		id:       uuid.NewString(),
		category: category,
		refs:     slices.Clone(refs),
		v:        v,
		lastUsed: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.max > 0 && len(s.sessions) >= s.max {
		s.evictOldest()
	}
	s.sessions[sess.id] = sess
	return sess.view(), nil
}

// Get returns the session state after advancing its idle timer.
func (s *Sessions) Get(id string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return View{}, apperr.ErrNotFound
	}
	sess.v.Tick(s.now())
	return sess.view(), nil
}

// Apply feeds one gesture to a session.
func (s *Sessions) Apply(id string, g Gesture) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return View{}, apperr.ErrNotFound
	}
	now := s.now()
	sess.lastUsed = now

	var navigated bool
	switch g.Kind {
	case GestureTap:
		sess.v.Tap(now)
	case GestureDoubleTap:
		sess.v.DoubleTap(now)
	case GestureMove:
		sess.v.Move(g.Move, now)
	case GestureRelease:
		navigated = sess.v.Release(now)
	case GestureGoTo:
		navigated = sess.v.GoTo(g.Index, now)
	case GestureViewport:
		sess.v.SetViewport(g.Width, g.Height)
	case GestureTick:
		sess.v.Tick(now)
	default:
		return View{}, fmt.Errorf("gallery: unknown gesture %q: %w", g.Kind, apperr.ErrInvalidArgument)
	}
	out := sess.view()
	out.Navigated = navigated
	return out, nil
}

// Close discards a session.
func (s *Sessions) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of open sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Sessions) evictOldest() {
	var (
		oldest string
		at     time.Time
	)
	for id, sess := range s.sessions {
		if oldest == "" || sess.lastUsed.Before(at) {
			oldest, at = id, sess.lastUsed
		}
	}
	delete(s.sessions, oldest)
}
