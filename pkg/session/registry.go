package session

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pion/logging"
)

// DefaultMaxSessions is the default registry capacity.
const DefaultMaxSessions = 256

// Registry holds session handles keyed by id for lookup and idle sweeps.
// It consumes only the Session handle contract: each registered session is
// held through the registry's own cloned handle, released on removal.
//
// Lookup follows session identity: ids are the whole key, so a remote
// session and a local one with the same id cannot coexist in one registry.
type Registry struct {
	sessions    map[uint16]*Session
	maxSessions int
	clk         clock.Clock
	log         logging.LeveledLogger

	mu sync.RWMutex
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// MaxSessions limits the number of registered sessions.
	// Default: DefaultMaxSessions.
	MaxSessions int

	// LoggerFactory creates the registry's logger.
	// Default: logging.NewDefaultLoggerFactory().
	LoggerFactory logging.LoggerFactory

	// Clock is the time source for idle sweeps. Default: the real clock.
	Clock clock.Clock
}

// NewRegistry creates a session registry.
func NewRegistry(config RegistryConfig) *Registry {
	if config.MaxSessions <= 0 {
		config.MaxSessions = DefaultMaxSessions
	}
	if config.LoggerFactory == nil {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}

	return &Registry{
		sessions:    make(map[uint16]*Session),
		maxSessions: config.MaxSessions,
		clk:         config.Clock,
		log:         config.LoggerFactory.NewLogger("session"),
	}
}

// Add registers a session. The registry clones the handle, so the caller
// keeps its own reference. Sessions with id 0 are rejected.
func (r *Registry) Add(s *Session) error {
	if s == nil || s.ID() == 0 {
		return ErrInvalidSessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.maxSessions {
		return ErrRegistryFull
	}
	id := s.ID()
	if _, exists := r.sessions[id]; exists {
		return ErrDuplicateSession
	}

	r.sessions[id] = s.Clone()
	r.log.Debugf("registered session %d (remote=%t)", id, s.IsRemote())
	return nil
}

// Find returns a new handle to the session with the given id, or nil.
// The caller owns the returned handle and must Release it.
func (r *Registry) Find(id uint16) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	return s.Clone()
}

// Remove drops the session with the given id, releasing the registry's
// reference. Removing an unknown id is a no-op.
func (r *Registry) Remove(id uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	s.Release()
	r.log.Debugf("removed session %d", id)
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IsFull returns true when no more sessions can be added.
func (r *Registry) IsFull() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions) >= r.maxSessions
}

// MaxSessions returns the registry capacity.
func (r *Registry) MaxSessions() int {
	return r.maxSessions
}

// ForEach calls fn for each registered session, stopping when fn returns
// false. The callback borrows the handle; Clone it to retain it beyond the
// call, and do not modify the registry from inside fn.
func (r *Registry) ForEach(fn func(*Session) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		if !fn(s) {
			return
		}
	}
}

// SweepIdle removes every session whose last action is older than maxIdle,
// releasing the registry's references. Returns the number removed.
//
// Liveness is entirely Touch-driven: a session the encryption protocols
// stopped touching is idle no matter how many handles still reference it.
func (r *Registry) SweepIdle(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clk.Now()
	removed := 0
	for id, s := range r.sessions {
		if now.Sub(s.LastAction()) > maxIdle {
			delete(r.sessions, id)
			s.Release()
			removed++
		}
	}

	if removed > 0 {
		r.log.Infof("swept %d idle sessions, %d remaining", removed, len(r.sessions))
	}
	return removed
}

// Clear removes all sessions, releasing the registry's references.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		delete(r.sessions, id)
		s.Release()
	}
}
