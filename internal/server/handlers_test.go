package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tichu-server/internal/protocol"
	"tichu-server/internal/tichu"
)

// newTestServer builds a server wired for in-memory dispatch only: no
// database, no listeners.
func newTestServer() *Server {
	s := &Server{
		connectionManager: NewConnectionManager(),
		directory:         NewPlayerDirectory(),
		limiter:           NewRateLimiter(100, time.Second),
	}
	s.registry = NewRegistry(s)
	s.dispatcher = NewDispatcher(s, 64)
	return s
}

func connect(s *Server, connID string) *fakeConn {
	conn := &fakeConn{}
	s.connectionManager.AddConnection(connID, conn)
	return conn
}

// lastMessage decodes the most recent ServerMessage sent to the conn.
func lastMessage(t *testing.T, conn *fakeConn) protocol.ServerMessage {
	t.Helper()

	payloads := conn.payloads()
	require.NotEmpty(t, payloads, "no message was sent")

	var msg protocol.ServerMessage
	require.NoError(t, json.Unmarshal(payloads[len(payloads)-1], &msg))
	return msg
}

func joinPlayer(t *testing.T, s *Server, connID, name string) uuid.UUID {
	t.Helper()

	conn := connect(s, connID)
	payload, _ := json.Marshal(protocol.JoinGameRequest{PlayerName: name})
	s.handleCommand(Command{ConnID: connID, Msg: protocol.ClientMessage{
		Type:    protocol.TypeJoinGame,
		Payload: payload,
	}})

	msg := lastMessage(t, conn)
	require.Equal(t, protocol.TypeJoined, msg.Type)

	data, _ := json.Marshal(msg.Payload)
	var resp protocol.JoinGameResponse
	require.NoError(t, json.Unmarshal(data, &resp))

	id, err := uuid.Parse(resp.PlayerID)
	require.NoError(t, err)
	return id
}

func TestHandlePing(t *testing.T) {
	s := newTestServer()
	conn := connect(s, "conn-1")

	s.handleCommand(Command{ConnID: "conn-1", Msg: protocol.ClientMessage{Type: protocol.TypePing}})

	msg := lastMessage(t, conn)
	assert.Equal(t, protocol.TypePong, msg.Type)
}

func TestHandleUnknownType(t *testing.T) {
	s := newTestServer()
	conn := connect(s, "conn-1")

	s.handleCommand(Command{ConnID: "conn-1", Msg: protocol.ClientMessage{Type: "teleport"}})

	msg := lastMessage(t, conn)
	assert.Equal(t, protocol.TypeError, msg.Type)

	data, _ := json.Marshal(msg.Payload)
	var errMsg protocol.ErrorMessage
	require.NoError(t, json.Unmarshal(data, &errMsg))
	assert.Equal(t, "UNKNOWN_TYPE", errMsg.Code)
}

func TestHandleJoinGame(t *testing.T) {
	assert := assert.New(t)

	s := newTestServer()
	playerID := joinPlayer(t, s, "conn-1", "Anna")

	// The player is registered and bound to the connection.
	loc, err := s.directory.Lookup(playerID)
	require.NoError(t, err)
	assert.Equal("Anna", loc.Name)

	_, ok := s.registry.Get(loc.SessionID)
	assert.True(ok)

	bound, ok := s.connectionManager.PlayerFor("conn-1")
	require.True(t, ok)
	assert.Equal(playerID, bound)
}

func TestHandleJoinGameRejectsBadName(t *testing.T) {
	s := newTestServer()
	conn := connect(s, "conn-1")

	payload, _ := json.Marshal(protocol.JoinGameRequest{PlayerName: "   "})
	s.handleCommand(Command{ConnID: "conn-1", Msg: protocol.ClientMessage{
		Type:    protocol.TypeJoinGame,
		Payload: payload,
	}})

	msg := lastMessage(t, conn)
	require.Equal(t, protocol.TypeError, msg.Type)

	data, _ := json.Marshal(msg.Payload)
	var errMsg protocol.ErrorMessage
	require.NoError(t, json.Unmarshal(data, &errMsg))
	assert.Equal(t, "NAME_INVALID", errMsg.Code)
}

func TestHandleJoinGameRejectsDoubleJoin(t *testing.T) {
	s := newTestServer()
	playerID := joinPlayer(t, s, "conn-1", "Anna")

	conn := connect(s, "conn-2")
	payload, _ := json.Marshal(protocol.JoinGameRequest{PlayerName: "Anna"})
	s.handleCommand(Command{ConnID: "conn-2", Msg: protocol.ClientMessage{
		Type:     protocol.TypeJoinGame,
		PlayerID: playerID.String(),
		Payload:  payload,
	}})

	msg := lastMessage(t, conn)
	require.Equal(t, protocol.TypeError, msg.Type)

	data, _ := json.Marshal(msg.Payload)
	var errMsg protocol.ErrorMessage
	require.NoError(t, json.Unmarshal(data, &errMsg))
	assert.Equal(t, "ALREADY_JOINED", errMsg.Code)
}

func TestCommandWithoutJoinFails(t *testing.T) {
	s := newTestServer()
	conn := connect(s, "conn-1")

	s.handleCommand(Command{ConnID: "conn-1", Msg: protocol.ClientMessage{Type: protocol.TypeStartGame}})

	msg := lastMessage(t, conn)
	require.Equal(t, protocol.TypeError, msg.Type)

	data, _ := json.Marshal(msg.Payload)
	var errMsg protocol.ErrorMessage
	require.NoError(t, json.Unmarshal(data, &errMsg))
	assert.Equal(t, "NOT_IN_GAME", errMsg.Code)
}

func TestStartGameBroadcastsToAllPlayers(t *testing.T) {
	assert := assert.New(t)

	s := newTestServer()
	conns := make([]*fakeConn, 4)
	for i := 0; i < 4; i++ {
		connID := fmt.Sprintf("conn-%d", i)
		joinPlayer(t, s, connID, fmt.Sprintf("Player%d", i))
		conns[i] = s.connectionManager.GetConnection(connID).(*fakeConn)
	}

	s.handleCommand(Command{ConnID: "conn-0", Msg: protocol.ClientMessage{Type: protocol.TypeStartGame}})

	// Every member gets the personalized deal push.
	for i, conn := range conns {
		msg := lastMessage(t, conn)
		require.Equal(t, protocol.TypeGameState, msg.Type, "conn %d", i)

		data, _ := json.Marshal(msg.Payload)
		var push protocol.GameStatePush
		require.NoError(t, json.Unmarshal(data, &push))
		require.NotNil(t, push.State)

		assert.Equal(tichu.PhasePreround, push.State.Phase)
		assert.Len(push.State.Hand, tichu.HandSize)
		assert.Equal(i, push.State.Seat)
	}
}

func TestIllegalMoveOnlyAnswersOffender(t *testing.T) {
	assert := assert.New(t)

	s := newTestServer()
	for i := 0; i < 4; i++ {
		joinPlayer(t, s, fmt.Sprintf("conn-%d", i), fmt.Sprintf("Player%d", i))
	}
	s.handleCommand(Command{ConnID: "conn-0", Msg: protocol.ClientMessage{Type: protocol.TypeStartGame}})

	bystander := s.connectionManager.GetConnection("conn-1").(*fakeConn)
	before := len(bystander.payloads())

	// Playing during the preround phase is a validation error.
	payload, _ := json.Marshal(protocol.PlayCombinationRequest{Cards: []tichu.Card{tichu.Dragon}})
	s.handleCommand(Command{ConnID: "conn-0", Msg: protocol.ClientMessage{
		Type:    protocol.TypePlayCombination,
		Payload: payload,
	}})

	offender := s.connectionManager.GetConnection("conn-0").(*fakeConn)
	msg := lastMessage(t, offender)
	require.Equal(t, protocol.TypeError, msg.Type)

	data, _ := json.Marshal(msg.Payload)
	var errMsg protocol.ErrorMessage
	require.NoError(t, json.Unmarshal(data, &errMsg))
	assert.Equal("INVALID_MOVE", errMsg.Code)

	// Failed moves are never broadcast.
	assert.Len(bystander.payloads(), before)
}

func TestLeaveGameUnregistersPlayer(t *testing.T) {
	s := newTestServer()
	playerID := joinPlayer(t, s, "conn-1", "Anna")

	s.handleCommand(Command{ConnID: "conn-1", Msg: protocol.ClientMessage{Type: protocol.TypeLeaveGame}})

	_, err := s.directory.Lookup(playerID)
	assert.Error(t, err)
}

func TestErrorCodeExtraction(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("PLAYER_NOT_FOUND", errorCode(errors.New("PLAYER_NOT_FOUND: Unknown player id")))
	assert.Equal("MATCHMAKING_FAILED", errorCode(errors.New("MATCHMAKING_FAILED: game is full")))
	assert.Equal("REQUEST_FAILED", errorCode(errors.New("not your turn")))
	assert.Equal("REQUEST_FAILED", errorCode(errors.New("need 4 players to start: have 1")))
}

func TestValidatePlayerName(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(validatePlayerName("Anna"))
	assert.Error(validatePlayerName(""))
	assert.Error(validatePlayerName("   "))
	assert.Error(validatePlayerName("this-name-is-way-too-long-for-us"))
}
