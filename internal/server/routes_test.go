package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tichu-server/internal/protocol"
)

// stubDB satisfies the database service without a real database.
type stubDB struct{}

func (stubDB) Health() map[string]string { return map[string]string{"status": "up"} }
func (stubDB) DB() *sql.DB               { return nil }
func (stubDB) Close() error              { return nil }

func newHTTPTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	s := newTestServer()
	s.db = stubDB{}

	ctx, cancel := context.WithCancel(context.Background())
	go s.dispatcher.Run(ctx)

	ts := httptest.NewServer(s.RegisterRoutes())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return s, ts
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newHTTPTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "up", health["status"])
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newHTTPTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/health", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebsocketPingPong(t *testing.T) {
	_, ts := newHTTPTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/websocket"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	data, err := json.Marshal(protocol.ClientMessage{Type: protocol.TypePing})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))

	_, reply, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg protocol.ServerMessage
	require.NoError(t, json.Unmarshal(reply, &msg))
	assert.Equal(t, protocol.TypePong, msg.Type)
}

func TestWebsocketJoinFlow(t *testing.T) {
	s, ts := newHTTPTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/websocket"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	payload, _ := json.Marshal(protocol.JoinGameRequest{PlayerName: "Anna"})
	data, _ := json.Marshal(protocol.ClientMessage{Type: protocol.TypeJoinGame, Payload: payload})
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))

	_, reply, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg protocol.ServerMessage
	require.NoError(t, json.Unmarshal(reply, &msg))
	require.Equal(t, protocol.TypeJoined, msg.Type)

	respData, _ := json.Marshal(msg.Payload)
	var joined protocol.JoinGameResponse
	require.NoError(t, json.Unmarshal(respData, &joined))
	assert.NotEmpty(t, joined.PlayerID)
	assert.Len(t, joined.SessionID, 4)

	_, ok := s.registry.Get(joined.SessionID)
	assert.True(t, ok)
}

func TestWebsocketInvalidJSON(t *testing.T) {
	_, ts := newHTTPTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/websocket"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{not json")))

	// The connection answers with an error and stays open.
	_, reply, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg protocol.ServerMessage
	require.NoError(t, json.Unmarshal(reply, &msg))
	assert.Equal(t, protocol.TypeError, msg.Type)

	data, _ := json.Marshal(protocol.ClientMessage{Type: protocol.TypePing})
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))

	_, reply, err = conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(reply, &msg))
	assert.Equal(t, protocol.TypePong, msg.Type)
}
