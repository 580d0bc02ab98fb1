package server

import (
	"errors"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tichu-server/internal/tichu"
)

// maxJoinAttempts bounds the find-or-create retry loop: a session found
// joinable can fill or start between lookup and join, in which case we
// simply look again.
const maxJoinAttempts = 3

// Registry is the matchmaking map of all live sessions. Lookups take the
// shared lock; insertion and eviction take the exclusive lock.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*GameSession
	usedIDs     map[string]bool
	broadcaster Broadcaster
}

func NewRegistry(broadcaster Broadcaster) *Registry {
	return &Registry{
		sessions:    make(map[string]*GameSession),
		usedIDs:     make(map[string]bool),
		broadcaster: broadcaster,
	}
}

func (r *Registry) Get(id string) (*GameSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[strings.ToUpper(id)]
	return s, ok
}

// All returns the current sessions, for persistence sweeps.
func (r *Registry) All() []*GameSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*GameSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// FindOrCreateJoinable returns a session that is not full and not yet
// started, creating and registering a new one when none exists. Finished
// sessions found along the way are evicted.
func (r *Registry) FindOrCreateJoinable() *GameSession {
	r.mu.RLock()
	for _, s := range r.sessions {
		if s.IsJoinable() {
			r.mu.RUnlock()
			return s
		}
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		if s.IsFinished() {
			delete(r.sessions, id)
			delete(r.usedIDs, id)
		}
	}

	// Re-scan: another writer may have created a joinable session
	// between the lock handoff.
	for _, s := range r.sessions {
		if s.IsJoinable() {
			return s
		}
	}

	id := generateSessionID(r.usedIDs)
	r.usedIDs[id] = true
	session := NewGameSession(id, r.broadcaster)
	r.sessions[id] = session
	return session
}

// TryAddPlayerToAnyGame matches a player into some joinable session,
// retrying a bounded number of times to tolerate join races.
func (r *Registry) TryAddPlayerToAnyGame(playerID uuid.UUID, name string, team tichu.Team) (*GameSession, int, error) {
	var lastErr error
	for range maxJoinAttempts {
		session := r.FindOrCreateJoinable()
		seat, err := session.Join(playerID, name, team)
		if err == nil {
			return session, seat, nil
		}
		lastErr = err
	}
	return nil, -1, errors.New("MATCHMAKING_FAILED: " + lastErr.Error())
}

// Restore re-registers a persisted session, e.g. at startup.
func (r *Registry) Restore(session *GameSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	r.usedIDs[session.ID] = true
}

// EvictFinished removes finished sessions and returns their ids.
func (r *Registry) EvictFinished() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, s := range r.sessions {
		if s.IsFinished() {
			delete(r.sessions, id)
			delete(r.usedIDs, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// generateSessionID draws a fresh 4-letter id. The caller holds the
// registry's write lock.
func generateSessionID(used map[string]bool) string {
	for {
		code := make([]byte, 4)
		for i := range code {
			code[i] = 'A' + byte(rand.Intn(26))
		}
		if !used[string(code)] {
			return string(code)
		}
	}
}
