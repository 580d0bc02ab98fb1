package server

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// PlayerLocation records where a player is seated. Sessions and the
// directory reference each other only through ids, never through shared
// pointers: the directory is the one authoritative player arena.
type PlayerLocation struct {
	PlayerID  uuid.UUID
	Name      string
	SessionID string
	Seat      int
}

type PlayerDirectory struct {
	mu      sync.RWMutex
	players map[uuid.UUID]PlayerLocation
}

func NewPlayerDirectory() *PlayerDirectory {
	return &PlayerDirectory{
		players: make(map[uuid.UUID]PlayerLocation),
	}
}

func (d *PlayerDirectory) Register(loc PlayerLocation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.players[loc.PlayerID] = loc
}

func (d *PlayerDirectory) Lookup(id uuid.UUID) (PlayerLocation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	loc, ok := d.players[id]
	if !ok {
		return PlayerLocation{}, errors.New("PLAYER_NOT_FOUND: Unknown player id")
	}
	return loc, nil
}

func (d *PlayerDirectory) Remove(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.players, id)
}

// RemoveSession drops every player seated in the given session.
func (d *PlayerDirectory) RemoveSession(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, loc := range d.players {
		if loc.SessionID == sessionID {
			delete(d.players, id)
		}
	}
}

func (d *PlayerDirectory) All() []PlayerLocation {
	d.mu.RLock()
	defer d.mu.RUnlock()

	locations := make([]PlayerLocation, 0, len(d.players))
	for _, loc := range d.players {
		locations = append(locations, loc)
	}
	return locations
}
