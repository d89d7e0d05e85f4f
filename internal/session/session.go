package session

import (
	"errors"
	"sync"

	"github.com/couchcryptid/rescue-triage-service/internal/chat"
	"github.com/couchcryptid/rescue-triage-service/internal/domain"
	"github.com/couchcryptid/rescue-triage-service/internal/observability"
	"github.com/couchcryptid/rescue-triage-service/internal/selection"
	"github.com/google/uuid"
)

// ErrNotFound reports an unknown session ID.
var ErrNotFound = errors.New("session not found")

// Session is one operator's selection and chat history. Callers hold the
// session lock, through Do, while reading or changing either.
type Session struct {
	ID string

	mu        sync.Mutex
	selection selection.State
	history   chat.History
}

// Do runs fn with exclusive access to the session state.
func (s *Session) Do(fn func(sel *selection.State, history *chat.History)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.selection, &s.history)
}

// Registry holds open sessions in memory.
type Registry struct {
	center  domain.Coordinates
	zoom    int
	metrics *observability.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry whose sessions start centered on center.
func NewRegistry(center domain.Coordinates, zoom int, metrics *observability.Metrics) *Registry {
	return &Registry{
		center:   center,
		zoom:     zoom,
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session with no selection and an empty history.
func (r *Registry) Create() *Session {
	s := &Session{ID: uuid.NewString(), selection: selection.NewState(r.center, r.zoom)}

	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SessionsActive.Set(float64(n))
	return s
}

// Get returns the session with id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete closes a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	r.metrics.SessionsActive.Set(float64(n))
	return nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
