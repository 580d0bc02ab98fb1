package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"
)

// Service wraps the database connection pool and exposes a health check.
type Service interface {
	Health() map[string]string
	DB() *sql.DB
	Close() error
}

type service struct {
	db *sql.DB
}

var (
	dburl      = os.Getenv("DATABASE_URL")
	dbInstance *service
)

// New opens the Postgres pool. Reuses the existing instance when called
// twice (e.g. from tests and the server).
func New() Service {
	if dbInstance != nil {
		return dbInstance
	}

	db, err := sql.Open("pgx", dburl)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	dbInstance = &service{db: db}
	return dbInstance
}

// Health reports connectivity and basic pool statistics.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	dbStats := s.db.Stats()
	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)

	return stats
}

func (s *service) DB() *sql.DB {
	return s.db
}

func (s *service) Close() error {
	log.Println("Disconnected from database")
	return s.db.Close()
}
