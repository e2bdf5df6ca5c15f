package builder

import (
	"sync"
	"time"

	"github.com/juju/clock"
)

// DefaultSessionTTL is how long an untouched session builder is kept.
const DefaultSessionTTL = 12 * time.Hour

// DefaultMaxSessions bounds the number of live session builders.
const DefaultMaxSessions = 10000

// Registry keeps one Builder per browser session.
type Registry struct {
	factory func() *Builder
	clock   clock.Clock
	ttl     time.Duration
	max     int

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	builder  *Builder
	lastUsed time.Time
}

// NewRegistry returns a registry that creates builders with factory, evicts
// sessions idle for longer than ttl, and keeps at most max sessions by
// evicting the least recently used one.
func NewRegistry(factory func() *Builder, clk clock.Clock, ttl time.Duration, max int) *Registry {
	if clk == nil {
		clk = clock.WallClock
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &Registry{
		factory:  factory,
		clock:    clk,
		ttl:      ttl,
		max:      max,
		sessions: make(map[string]*session),
	}
}

// Get returns the builder for sessionID, creating it on first use.
func (r *Registry) Get(sessionID string) *Builder {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	r.evictLocked(now)

	s, ok := r.sessions[sessionID]
	if !ok {
		if len(r.sessions) >= r.max {
			r.evictOldestLocked()
		}
		s = &session{builder: r.factory()}
		r.sessions[sessionID] = s
	}
	s.lastUsed = now
	return s.builder
}

// Lookup returns the builder for sessionID without creating one.
func (r *Registry) Lookup(sessionID string) (*Builder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	r.evictLocked(now)

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	s.lastUsed = now
	return s.builder, true
}

// Detached returns a new builder that is not tracked by the registry. The
// caller must Close it.
func (r *Registry) Detached() *Builder {
	return r.factory()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close closes and forgets all builders.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.builder.Close()
		delete(r.sessions, id)
	}
}

func (r *Registry) evictLocked(now time.Time) {
	for id, s := range r.sessions {
		if now.Sub(s.lastUsed) > r.ttl {
			s.builder.Close()
			delete(r.sessions, id)
		}
	}
}

func (r *Registry) evictOldestLocked() {
	var (
		oldestID string
		oldest   *session
	)
	for id, s := range r.sessions {
		if oldest == nil || s.lastUsed.Before(oldest.lastUsed) {
			oldestID, oldest = id, s
		}
	}
	if oldest != nil {
		oldest.builder.Close()
		delete(r.sessions, oldestID)
	}
}
