package session

import (
	"sync"
	"time"
)

// Store keeps live sessions keyed by id and expires idle ones.
type Store struct {
	settings Settings
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty store. A ttl of 0 disables expiry.
func NewStore(settings Settings, ttl time.Duration) *Store {
	return &Store{settings: settings, ttl: ttl, now: time.Now, sessions: map[string]*Session{}}
}

// Get returns a live session and marks it as used.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return nil, false
	}
	s.touch(st.now())
	return s, true
}

// GetOrCreate returns the session for id, creating a new one (with a new
// id) when it is unknown or expired. created reports which case happened.
func (st *Store) GetOrCreate(id string) (s *Session, created bool) {
	if id != "" {
		if s, ok := st.Get(id); ok {
			return s, false
		}
	}
	s = New(st.settings)
	now := st.now()
	s.Created = now
	s.touch(now)
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s, true
}

// Sweep drops sessions idle for longer than the ttl and returns how many
// were removed.
func (st *Store) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, s := range st.sessions {
		if s.idleSince(now) > st.ttl {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
