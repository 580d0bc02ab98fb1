package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/pressly/goose/v3"

	"tichu-server/internal/database"
)

type Server struct {
	port    int
	tcpPort int

	db                database.Service
	connectionManager *ConnectionManager
	registry          *Registry
	directory         *PlayerDirectory
	persistence       *PersistenceManager
	dispatcher        *Dispatcher
	limiter           *RateLimiter

	tcpListener net.Listener
	cancel      context.CancelFunc
}

// NewServer wires every collaborator explicitly and starts the
// background loops: the TCP accept loop, the dispatcher, the periodic
// save task and the cleanup task. It returns the server plus the HTTP
// server carrying the websocket gateway and health endpoint.
func NewServer() (*Server, *http.Server) {
	port, _ := strconv.Atoi(os.Getenv("PORT"))
	if port == 0 {
		port = 8080
	}
	tcpPort, _ := strconv.Atoi(os.Getenv("TCP_PORT"))
	if tcpPort == 0 {
		tcpPort = 9000
	}

	dbService := database.New()

	if err := runMigrations(dbService.DB()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	s := &Server{
		port:              port,
		tcpPort:           tcpPort,
		db:                dbService,
		connectionManager: NewConnectionManager(),
		directory:         NewPlayerDirectory(),
		persistence:       NewPersistenceManager(dbService.DB()),
		limiter:           NewRateLimiter(20, time.Second),
	}

	// The server itself is the broadcast hook for every session.
	s.registry = NewRegistry(s)
	s.dispatcher = NewDispatcher(s, 256)

	if err := s.loadPersistedState(); err != nil {
		// Not fatal: the server can start with empty state.
		log.Printf("Warning: Failed to load persisted state: %v", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", tcpPort))
	if err != nil {
		log.Fatalf("Failed to listen on TCP port %d: %v", tcpPort, err)
	}
	s.tcpListener = listener
	log.Printf("Framed TCP protocol listening on :%d", tcpPort)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.dispatcher.Run(ctx)
	go s.serveTCP(ctx, listener)
	go s.periodicSaveTask(ctx)
	go s.cleanupTask(ctx)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, httpServer
}

func runMigrations(db *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "./db/migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Println("Database migrations applied successfully")
	return nil
}

// loadPersistedState restores games and player seats from the database.
func (s *Server) loadPersistedState() error {
	games, err := s.persistence.LoadAllActiveGames()
	if err != nil {
		return fmt.Errorf("failed to load games: %w", err)
	}

	for _, game := range games {
		session := restoreSession(game.ID, game, s)
		s.registry.Restore(session)
		log.Printf("Restored session: %s (phase: %s)", game.ID, game.Phase)
	}

	players, err := s.persistence.LoadAllPlayers()
	if err != nil {
		return fmt.Errorf("failed to load players: %w", err)
	}

	restored := 0
	for _, loc := range players {
		if _, ok := s.registry.Get(loc.SessionID); !ok {
			continue
		}
		s.directory.Register(loc)
		restored++
	}

	log.Printf("Loaded %d games, %d players", len(games), restored)
	return nil
}

// periodicSaveTask persists all live sessions every 30 seconds, catching
// state changes between explicit save points.
func (s *Server) periodicSaveTask(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.saveAllSessions()
		}
	}
}

func (s *Server) saveAllSessions() {
	saved := 0
	for _, session := range s.registry.All() {
		if err := s.persistence.SaveSession(session); err != nil {
			log.Printf("Periodic save failed for session %s: %v", session.ID, err)
		} else {
			saved++
		}
	}
	for _, loc := range s.directory.All() {
		if err := s.persistence.SavePlayer(loc); err != nil {
			log.Printf("Periodic save failed for player %s: %v", loc.PlayerID, err)
		}
	}
	log.Printf("Periodic save completed: %d sessions persisted", saved)
}

// cleanupTask evicts finished sessions from memory and deletes old
// finished games from the database once an hour.
func (s *Server) cleanupTask(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range s.registry.EvictFinished() {
				s.directory.RemoveSession(id)
				log.Printf("Evicted finished session %s", id)
			}

			deleted, err := s.persistence.CleanupOldGames(24 * time.Hour)
			if err != nil {
				log.Printf("Cleanup task failed: %v", err)
				continue
			}
			if deleted > 0 {
				log.Printf("Cleanup task: deleted %d old completed games", deleted)
			}
		}
	}
}

// Shutdown saves all state and stops the background loops.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Saving all sessions before shutdown...")
	s.saveAllSessions()

	if s.cancel != nil {
		s.cancel()
	}
	if s.tcpListener != nil {
		s.tcpListener.Close()
	}
	return s.db.Close()
}
