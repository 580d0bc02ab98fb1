package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"tichu-server/internal/protocol"
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/websocket", s.websocketHandler)

	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := json.Marshal(s.db.Health())
	if err != nil {
		http.Error(w, "Failed to marshal health check response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// wsConn adapts a websocket to the Conn interface. Websocket clients
// skip the hex length prefix: the socket already frames messages.
type wsConn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

func (w *wsConn) Send(ctx context.Context, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.Write(ctx, websocket.MessageText, payload)
}

func (w *wsConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "closing")
}

// websocketHandler runs the same receive loop as the TCP listener over a
// websocket transport, feeding the shared command queue.
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()
	connectionID := uuid.New().String()
	log.Printf("New websocket connection: %s", connectionID)

	s.connectionManager.AddConnection(connectionID, &wsConn{c: socket})
	defer func() {
		s.connectionManager.RemoveConnection(connectionID)
		log.Printf("Websocket connection closed: %s", connectionID)
	}()

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			log.Printf("Connection %s read error: %v", connectionID, err)
			return
		}

		if msgType != websocket.MessageText {
			log.Printf("Non-text input from %s", connectionID)
			continue
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Invalid JSON from %s: %v", connectionID, err)
			s.sendError(connectionID, "INVALID_JSON", "Invalid JSON payload")
			continue
		}

		if !s.limiter.Allow(connectionID) {
			s.sendError(connectionID, "RATE_LIMITED", "Too many requests, slow down")
			continue
		}

		s.dispatcher.Enqueue(Command{ConnID: connectionID, Msg: msg})
	}
}
