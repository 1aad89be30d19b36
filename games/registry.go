package games

import (
	"sync"
	"time"
)

// Registry is the single process-wide map of live sessions plus the
// shared asset cache, guarded as one unit by a single mutex. That is
// coarse but fine: every operation on it is a short synchronous critical
// section that never blocks on I/O, and per-game contention lives behind
// each session's own lock instead. Constructed once at startup and
// passed to handlers explicitly.
type Registry struct {
	mu       sync.Mutex
	sessions map[uint64]*TimedResource[Session]
	cache    *AssetCache
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[uint64]*TimedResource[Session]),
		cache:    NewAssetCache(),
	}
}

// NewID returns a random session id not currently in use.
func (r *Registry) NewID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		id := RandomID()
		if _, exists := r.sessions[id]; !exists {
			return id
		}
	}
}

// Create inserts a session under id with the given TTL. Any live session
// referencing either of the new session's player identities is evicted
// first: a player starting a new game destroys their previous one.
// Expired entries encountered during the sweep are dropped too. Returns
// the number of active sessions after insertion, for logging.
func (r *Registry) Create(id uint64, session *Session, ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	for old, timed := range r.sessions {
		live := timed.Get()
		if live == nil {
			delete(r.sessions, old)
			continue
		}
		if live.References(session.p0.ID) || live.References(session.p1.ID) {
			delete(r.sessions, old)
		}
	}

	r.sessions[id] = NewTimedResource(session, ttl)

	return len(r.sessions)
}

// Lookup returns the session stored under id, or false if it is unknown
// or its TTL has elapsed. Expired entries are evicted on the spot.
func (r *Registry) Lookup(id uint64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timed, ok := r.sessions[id]
	if !ok {
		return nil, false
	}

	session := timed.Get()
	if session == nil {
		delete(r.sessions, id)
		return nil, false
	}

	return session, true
}

// LoadSet runs an archive through the shared cache. The registry lock is
// held for the duration; decoding is pure CPU with no suspension points.
func (r *Registry) LoadSet(pack []byte, n int) (CharacterSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cache.Load(pack, n)
}

// CacheSize returns the aggregate live size of the dedup index. Callers
// enforce the admission ceiling against this before uploading.
func (r *Registry) CacheSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cache.Size()
}

// CacheLen reports the number of live cache entries.
func (r *Registry) CacheLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cache.Len()
}
