package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"

	"tichu-server/internal/protocol"
	"tichu-server/internal/tichu"
)

// handleCommand routes one decoded client message. Validation and
// resource errors go back to the offending connection only; successful
// mutations broadcast from inside the session's locked step.
func (s *Server) handleCommand(cmd Command) {
	msg := cmd.Msg

	switch msg.Type {
	case protocol.TypePing:
		s.sendToConn(cmd.ConnID, protocol.ServerMessage{
			Type:    protocol.TypePong,
			Payload: struct{}{},
		})

	case protocol.TypeJoinGame:
		s.handleJoinGame(cmd)

	case protocol.TypeStartGame:
		s.withSession(cmd, func(session *GameSession, playerID uuid.UUID) error {
			return session.StartGame()
		})

	case protocol.TypeCallGrandTichu:
		s.withSession(cmd, func(session *GameSession, playerID uuid.UUID) error {
			return session.CallGrandTichu(playerID)
		})

	case protocol.TypeCallTichu:
		s.withSession(cmd, func(session *GameSession, playerID uuid.UUID) error {
			return session.CallTichu(playerID)
		})

	case protocol.TypeSwap:
		s.handleSwap(cmd)

	case protocol.TypePlayCombination:
		s.handlePlayCombination(cmd)

	case protocol.TypePass:
		s.withSession(cmd, func(session *GameSession, playerID uuid.UUID) error {
			return session.Pass(playerID)
		})

	case protocol.TypeDragonSelection:
		s.handleDragonSelection(cmd)

	case protocol.TypeLeaveGame:
		s.handleLeaveGame(cmd)

	default:
		log.Printf("Unknown message type %q from %s", msg.Type, cmd.ConnID)
		s.sendError(cmd.ConnID, "UNKNOWN_TYPE", "Unknown message type: "+msg.Type)
	}
}

func (s *Server) handleJoinGame(cmd Command) {
	var req protocol.JoinGameRequest
	if err := json.Unmarshal(cmd.Msg.Payload, &req); err != nil {
		s.sendError(cmd.ConnID, "INVALID_PAYLOAD", "Invalid join_game payload")
		return
	}

	if err := validatePlayerName(req.PlayerName); err != nil {
		s.sendError(cmd.ConnID, "NAME_INVALID", err.Error())
		return
	}

	playerID := uuid.New()
	if cmd.Msg.PlayerID != "" {
		parsed, err := uuid.Parse(cmd.Msg.PlayerID)
		if err != nil {
			s.sendError(cmd.ConnID, "INVALID_PLAYER_ID", "player id is not a UUID")
			return
		}
		playerID = parsed
	}
	if _, err := s.directory.Lookup(playerID); err == nil {
		s.sendError(cmd.ConnID, "ALREADY_JOINED", "Player is already in a game")
		return
	}

	session, seat, err := s.registry.TryAddPlayerToAnyGame(playerID, req.PlayerName, tichu.Team(req.Team))
	if err != nil {
		s.sendError(cmd.ConnID, "MATCHMAKING_FAILED", err.Error())
		return
	}

	s.directory.Register(PlayerLocation{
		PlayerID:  playerID,
		Name:      req.PlayerName,
		SessionID: session.ID,
		Seat:      seat,
	})
	s.connectionManager.BindPlayer(cmd.ConnID, playerID)

	log.Printf("Player %s (%s) joined session %s at seat %d", req.PlayerName, playerID, session.ID, seat)

	s.sendToConn(cmd.ConnID, protocol.ServerMessage{
		Type: protocol.TypeJoined,
		Payload: protocol.JoinGameResponse{
			PlayerID:  playerID.String(),
			SessionID: session.ID,
			Seat:      seat,
		},
	})
}

func (s *Server) handleSwap(cmd Command) {
	var req protocol.SwapRequest
	if err := json.Unmarshal(cmd.Msg.Payload, &req); err != nil {
		s.sendError(cmd.ConnID, "INVALID_PAYLOAD", "Invalid swap payload")
		return
	}

	s.withSession(cmd, func(session *GameSession, playerID uuid.UUID) error {
		return session.SubmitSwap(playerID, req.Cards)
	})
}

func (s *Server) handlePlayCombination(cmd Command) {
	var req protocol.PlayCombinationRequest
	if err := json.Unmarshal(cmd.Msg.Payload, &req); err != nil {
		s.sendError(cmd.ConnID, "INVALID_PAYLOAD", "Invalid play_combination payload")
		return
	}

	s.withSession(cmd, func(session *GameSession, playerID uuid.UUID) error {
		return session.PlayCombination(playerID, req.Cards, req.Wish)
	})
}

func (s *Server) handleDragonSelection(cmd Command) {
	var req protocol.DragonSelectionRequest
	if err := json.Unmarshal(cmd.Msg.Payload, &req); err != nil {
		s.sendError(cmd.ConnID, "INVALID_PAYLOAD", "Invalid dragon_selection payload")
		return
	}

	recipientID, err := uuid.Parse(req.SelectedPlayer)
	if err != nil {
		s.sendError(cmd.ConnID, "INVALID_PLAYER_ID", "selected player id is not a UUID")
		return
	}

	s.withSession(cmd, func(session *GameSession, playerID uuid.UUID) error {
		return session.SelectDragonRecipient(playerID, recipientID)
	})
}

func (s *Server) handleLeaveGame(cmd Command) {
	s.withSession(cmd, func(session *GameSession, playerID uuid.UUID) error {
		if err := session.Leave(playerID); err != nil {
			return err
		}
		s.directory.Remove(playerID)
		return nil
	})
}

// withSession resolves the sender and their session, applies the action,
// and reports failure back to the sender only.
func (s *Server) withSession(cmd Command, action func(session *GameSession, playerID uuid.UUID) error) {
	playerID, session, err := s.resolvePlayer(cmd)
	if err != nil {
		s.sendError(cmd.ConnID, errorCode(err), err.Error())
		return
	}

	if err := action(session, playerID); err != nil {
		s.sendError(cmd.ConnID, "INVALID_MOVE", err.Error())
	}
}

func (s *Server) resolvePlayer(cmd Command) (uuid.UUID, *GameSession, error) {
	playerID, err := uuid.Parse(cmd.Msg.PlayerID)
	if err != nil {
		// Fall back to the id bound to the connection at join time.
		bound, ok := s.connectionManager.PlayerFor(cmd.ConnID)
		if !ok {
			return uuid.Nil, nil, errors.New("NOT_IN_GAME: No player id on message or connection")
		}
		playerID = bound
	}

	loc, err := s.directory.Lookup(playerID)
	if err != nil {
		return uuid.Nil, nil, err
	}

	session, ok := s.registry.Get(loc.SessionID)
	if !ok {
		return uuid.Nil, nil, errors.New("SESSION_NOT_FOUND: Game no longer exists")
	}

	// Rebind so broadcasts reach the sender's current connection.
	s.connectionManager.BindPlayer(cmd.ConnID, playerID)

	return playerID, session, nil
}

// errorCode extracts the "CODE: message" prefix when one is present.
func errorCode(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ":"); i > 0 {
		code := msg[:i]
		if code == strings.ToUpper(code) && !strings.Contains(code, " ") {
			return code
		}
	}
	return "REQUEST_FAILED"
}

func (s *Server) sendToConn(connectionID string, msg protocol.ServerMessage) {
	conn := s.connectionManager.GetConnection(connectionID)
	if conn == nil {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Marshal error for %s: %v", msg.Type, err)
		return
	}

	if err := conn.Send(context.Background(), data); err != nil {
		log.Printf("Failed to send %s to %s: %v", msg.Type, connectionID, err)
	}
}

func (s *Server) sendError(connectionID, code, message string) {
	s.sendToConn(connectionID, protocol.ServerMessage{
		Type: protocol.TypeError,
		Payload: protocol.ErrorMessage{
			Message: message,
			Code:    code,
		},
	})
}

func validatePlayerName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("player name cannot be empty")
	}
	if len(name) > 20 {
		return errors.New("player name too long (max 20 characters)")
	}
	return nil
}
