package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"tichu-server/internal/tichu"
)

// PersistenceManager saves and restores sessions and player seats, so a
// restarted server picks up running games where they left off.
type PersistenceManager struct {
	db *sql.DB
}

func NewPersistenceManager(db *sql.DB) *PersistenceManager {
	return &PersistenceManager{db: db}
}

// SaveSession upserts one session's full game state. The caller is
// expected to hold the session snapshot lock while the state is read.
func (pm *PersistenceManager) SaveSession(session *GameSession) error {
	var gameData []byte
	var phase tichu.Phase
	var marshalErr error

	session.Snapshot(func(g *tichu.Game) {
		phase = g.Phase
		gameData, marshalErr = json.Marshal(g)
	})
	if marshalErr != nil {
		return fmt.Errorf("failed to serialize game %s: %w", session.ID, marshalErr)
	}

	query := `
		INSERT INTO games (session_id, phase, game_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE
		SET phase = EXCLUDED.phase,
		    game_data = EXCLUDED.game_data,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := pm.db.Exec(query, session.ID, string(phase), gameData, session.CreatedAt, session.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to save game %s: %w", session.ID, err)
	}
	return nil
}

// LoadAllActiveGames reads every unfinished game back out of the
// database. Used at startup to rebuild the registry.
func (pm *PersistenceManager) LoadAllActiveGames() ([]*tichu.Game, error) {
	query := `
		SELECT game_data FROM games
		WHERE phase != $1
		ORDER BY updated_at DESC
	`

	rows, err := pm.db.Query(query, string(tichu.PhasePostgame))
	if err != nil {
		return nil, fmt.Errorf("failed to query active games: %w", err)
	}
	defer rows.Close()

	var games []*tichu.Game
	for rows.Next() {
		var gameData []byte
		if err := rows.Scan(&gameData); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}

		var game tichu.Game
		if err := json.Unmarshal(gameData, &game); err != nil {
			// A corrupted row should not block the rest.
			log.Printf("Warning: failed to deserialize game: %v", err)
			continue
		}
		games = append(games, &game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game rows: %w", err)
	}
	return games, nil
}

func (pm *PersistenceManager) DeleteGame(sessionID string) error {
	result, err := pm.db.Exec(`DELETE FROM games WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete game %s: %w", sessionID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion result: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("game not found: %s", sessionID)
	}
	return nil
}

// SavePlayer upserts one player's seat assignment.
func (pm *PersistenceManager) SavePlayer(loc PlayerLocation) error {
	query := `
		INSERT INTO players (id, name, session_id, seat, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    session_id = EXCLUDED.session_id,
		    seat = EXCLUDED.seat
	`

	_, err := pm.db.Exec(query, loc.PlayerID, loc.Name, loc.SessionID, loc.Seat, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save player %s: %w", loc.PlayerID, err)
	}
	return nil
}

func (pm *PersistenceManager) LoadAllPlayers() ([]PlayerLocation, error) {
	rows, err := pm.db.Query(`SELECT id, name, session_id, seat FROM players`)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var locations []PlayerLocation
	for rows.Next() {
		var loc PlayerLocation
		var id string
		if err := rows.Scan(&id, &loc.Name, &loc.SessionID, &loc.Seat); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			log.Printf("Warning: skipping player with bad id %q: %v", id, err)
			continue
		}
		loc.PlayerID = parsed
		locations = append(locations, loc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player rows: %w", err)
	}
	return locations, nil
}

func (pm *PersistenceManager) DeletePlayer(id uuid.UUID) error {
	if _, err := pm.db.Exec(`DELETE FROM players WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete player %s: %w", id, err)
	}
	return nil
}

// CleanupOldGames deletes finished games older than the given age,
// together with their player rows.
func (pm *PersistenceManager) CleanupOldGames(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	if _, err := pm.db.Exec(`
		DELETE FROM players WHERE session_id IN (
			SELECT session_id FROM games WHERE phase = $1 AND updated_at < $2
		)`, string(tichu.PhasePostgame), cutoff); err != nil {
		return 0, fmt.Errorf("failed to cleanup old players: %w", err)
	}

	result, err := pm.db.Exec(
		`DELETE FROM games WHERE phase = $1 AND updated_at < $2`,
		string(tichu.PhasePostgame), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old games: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check cleanup result: %w", err)
	}
	return int(rowsAffected), nil
}
