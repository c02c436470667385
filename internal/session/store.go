// Package session keeps per-connection client state. A session is created
// when a client connects, destroyed when it disconnects, and is never
// shared between clients: the store only synchronizes the map itself, the
// state inside a session is operated on serially by its owner.
package session

import (
	"sync"
	"time"

	"github.com/iliyamo/flight-reservation/internal/model"
)

// Session holds the process-local state of one connected client: whether
// a user is logged in, who that user is, and the itineraries produced by
// the most recent search. Search results are ephemeral; a new search
// replaces the slice wholesale and invalidates all previous ordinals.
type Session struct {
	ID        string
	LoggedIn  bool
	Username  string
	ExpiresAt time.Time

	lastSearch []model.Itinerary
}

// SetSearchResults replaces the session's itinerary list. Ordinals from
// any earlier search stop resolving immediately.
func (s *Session) SetSearchResults(its []model.Itinerary) {
	s.lastSearch = its
}

// ItineraryByOrdinal resolves an ordinal against the most recent search.
// The second return value is false when no search has been performed or
// the ordinal is out of range.
func (s *Session) ItineraryByOrdinal(ordinal int) (model.Itinerary, bool) {
	if ordinal < 0 || ordinal >= len(s.lastSearch) {
		return model.Itinerary{}, false
	}
	return s.lastSearch[ordinal], true
}

// Store maps session ids to live sessions. Expired sessions are dropped
// lazily on lookup.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewStore returns an empty session store whose sessions live for ttl.
// A janitor goroutine sweeps expired sessions for the life of the
// process, so sessions that are opened and never presented again do not
// accumulate.
func NewStore(ttl time.Duration) *Store {
	st := &Store{sessions: make(map[string]*Session), ttl: ttl}
	go st.janitor()
	return st
}

func (st *Store) janitor() {
	interval := st.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for range t.C {
		st.sweepExpired(time.Now().UTC())
	}
}

// sweepExpired drops every session whose deadline has passed.
func (st *Store) sweepExpired(now time.Time) {
	st.mu.Lock()
	for id, s := range st.sessions {
		if now.After(s.ExpiresAt) {
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()
}

// Create registers a new session under the given id.
func (st *Store) Create(id string) *Session {
	s := &Session{ID: id, ExpiresAt: time.Now().UTC().Add(st.ttl)}
	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()
	return s
}

// Get returns the session for id, or false when it does not exist or has
// expired.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().UTC().After(s.ExpiresAt) {
		st.Delete(id)
		return nil, false
	}
	return s, true
}

// Delete removes a session. Removing an unknown id is a no-op.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}
