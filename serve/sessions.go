package serve

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/everydev1618/daobuilder/session"
)

// sessionEntry guards one open document. Handlers hold mu for the whole
// request so calls into a Session never interleave.
type sessionEntry struct {
	mu       sync.Mutex
	id       string
	s        *session.Session
	created  time.Time
	lastUsed time.Time
}

// registry tracks open sessions by id.
type registry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*sessionEntry)}
}

func (r *registry) create() *sessionEntry {
	now := time.Now()
	e := &sessionEntry{
		id:       uuid.New().String(),
		s:        session.New(),
		created:  now,
		lastUsed: now,
	}
	r.mu.Lock()
	r.sessions[e.id] = e
	r.mu.Unlock()
	return e
}

func (r *registry) get(id string) (*sessionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	return e, ok
}

func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// expire drops sessions idle for longer than ttl and returns how many went.
func (r *registry) expire(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, e := range r.sessions {
		if !e.mu.TryLock() {
			continue
		}
		idle := e.lastUsed.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}
