package server

import (
	"context"
	"encoding/json"
	"log"

	"tichu-server/internal/protocol"
	"tichu-server/internal/tichu"
)

// BroadcastState pushes the personalized authoritative state to every
// player in the session. It runs while the session lock is held, so
// every player converges to the same linearized sequence of states.
func (s *Server) BroadcastState(session *GameSession, game *tichu.Game, events []tichu.Event) {
	for _, player := range game.Players {
		conn := s.connectionManager.ConnFor(player.ID)
		if conn == nil {
			// Player not connected right now; they get the full
			// state with their next push.
			continue
		}

		push := protocol.GameStatePush{
			State:  game.ClientStateFor(player.Seat),
			Events: events,
		}

		data, err := json.Marshal(protocol.ServerMessage{
			Type:    protocol.TypeGameState,
			Payload: push,
		})
		if err != nil {
			log.Printf("Failed to marshal state for %s: %v", player.Name, err)
			continue
		}

		if err := conn.Send(context.Background(), data); err != nil {
			log.Printf("Failed to broadcast state to %s: %v", player.Name, err)
		}
	}
}
