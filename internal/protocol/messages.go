package protocol

import (
	"encoding/json"

	"tichu-server/internal/tichu"
)

// ClientMessage is the envelope for everything a client sends. PlayerID
// identifies the sender for every type except join_game, where the
// server assigns one.
type ClientMessage struct {
	Type     string          `json:"type"`
	PlayerID string          `json:"playerId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage is the envelope for responses and broadcasts.
type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Client → server message types.
const (
	TypeJoinGame        = "join_game"
	TypeStartGame       = "start_game"
	TypeCallGrandTichu  = "call_grand_tichu"
	TypeCallTichu       = "call_small_tichu"
	TypeDragonSelection = "dragon_selection"
	TypeSwap            = "swap"
	TypePlayCombination = "play_combination"
	TypePass            = "fold"
	TypeLeaveGame       = "leave_game"
	TypePing            = "ping"
)

// Server → client message types.
const (
	TypeJoined    = "game_joined"
	TypeGameState = "game_state"
	TypeInfo      = "info"
	TypeWarning   = "warning"
	TypeError     = "error"
	TypePong      = "pong"
)

type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type InfoMessage struct {
	Message string `json:"message"`
}

type JoinGameRequest struct {
	PlayerName string `json:"playerName"`
	Team       string `json:"team,omitempty"` // "A" or "B", optional preference
}

type JoinGameResponse struct {
	PlayerID  string `json:"playerId"`
	SessionID string `json:"sessionId"`
	Seat      int    `json:"seat"`
}

type PlayCombinationRequest struct {
	Cards []tichu.Card `json:"cards"`
	Wish  *tichu.Card  `json:"wish,omitempty"`
}

type SwapRequest struct {
	// Cards in recipient order: left opponent, partner, right opponent.
	Cards []tichu.Card `json:"cards"`
}

type DragonSelectionRequest struct {
	SelectedPlayer string `json:"selectedPlayer"`
}

// GameStatePush is the authoritative state broadcast after every
// successful mutation: the complete per-player view plus the events
// describing what changed since the previous push.
type GameStatePush struct {
	State  *tichu.ClientState `json:"state"`
	Events []tichu.Event      `json:"events"`
}
