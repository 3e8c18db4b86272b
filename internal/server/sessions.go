package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formflow/internal/submissions"
	"github.com/goliatone/go-formflow/pkg/engine"
)

// session is one attendee walking through one form.
type session struct {
	ID       string
	Form     string
	Attendee string
	form     *engine.Form

	mu       sync.Mutex
	record   *submissions.Record
	lastSeen time.Time
}

func (s *session) registered() (submissions.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return submissions.Record{}, false
	}
	return *s.record, true
}

func (s *session) complete(record submissions.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = &record
}

// sessionRegistry keeps sessions in memory. Sessions idle for longer than
// ttl are evicted when new ones are created.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
	onCount  func(n int)
}

func newSessionRegistry(ttl time.Duration, onCount func(int)) *sessionRegistry {
	if onCount == nil {
		onCount = func(int) {}
	}
	return &sessionRegistry{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
		onCount:  onCount,
	}
}

func (r *sessionRegistry) create(formName, attendee string, form *engine.Form) *session {
	s := &session{
		ID:       uuid.NewString(),
		Form:     formName,
		Attendee: attendee,
		form:     form,
		lastSeen: r.now(),
	}

	r.mu.Lock()
	r.evictLocked()
	r.sessions[s.ID] = s
	count := len(r.sessions)
	r.mu.Unlock()

	r.onCount(count)
	return s
}

func (r *sessionRegistry) get(id string) (*session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	s.lastSeen = r.now()
	s.mu.Unlock()
	return s, true
}

func (r *sessionRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *sessionRegistry) evictLocked() {
	if r.ttl <= 0 {
		return
	}
	cutoff := r.now().Add(-r.ttl)
	for id, s := range r.sessions {
		s.mu.Lock()
		stale := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if stale {
			delete(r.sessions, id)
		}
	}
}
