package server

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Conn abstracts one client connection so the broadcast path does not
// care whether the peer speaks framed TCP or websocket.
type Conn interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

type ConnectionManager struct {
	connections map[string]Conn      // connectionID → conn
	players     map[string]uuid.UUID // connectionID → playerID
	byPlayer    map[uuid.UUID]string // playerID → connectionID
	mu          sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]Conn),
		players:     make(map[string]uuid.UUID),
		byPlayer:    make(map[uuid.UUID]string),
	}
}

func (cm *ConnectionManager) AddConnection(id string, conn Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
}

// RemoveConnection drops the connection and returns the player that was
// bound to it, if any.
func (cm *ConnectionManager) RemoveConnection(id string) (uuid.UUID, bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	delete(cm.connections, id)
	playerID, bound := cm.players[id]
	if bound {
		delete(cm.players, id)
		if cm.byPlayer[playerID] == id {
			delete(cm.byPlayer, playerID)
		}
	}
	return playerID, bound
}

// BindPlayer associates a connection with a player id, returning the id
// of a previous connection for the same player, if any.
func (cm *ConnectionManager) BindPlayer(connectionID string, playerID uuid.UUID) string {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	old := cm.byPlayer[playerID]
	cm.players[connectionID] = playerID
	cm.byPlayer[playerID] = connectionID
	if old == connectionID {
		return ""
	}
	return old
}

func (cm *ConnectionManager) PlayerFor(connectionID string) (uuid.UUID, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	id, ok := cm.players[connectionID]
	return id, ok
}

func (cm *ConnectionManager) GetConnection(connectionID string) Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.connections[connectionID]
}

// ConnFor returns the live connection for a player.
func (cm *ConnectionManager) ConnFor(playerID uuid.UUID) Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	connID, ok := cm.byPlayer[playerID]
	if !ok {
		return nil
	}
	return cm.connections[connID]
}
