package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"tichu-server/internal/tichu"
)

// Broadcaster pushes the authoritative state of a session to all of its
// members. It is invoked while the session lock is held, so a state push
// can never interleave with a concurrent mutation; implementations must
// not call back into the session.
type Broadcaster interface {
	BroadcastState(session *GameSession, game *tichu.Game, events []tichu.Event)
}

// GameSession wraps one game behind a mutex: the unit of concurrency
// isolation. Every mutating call locks, applies the game operation, and
// on success broadcasts the new state before releasing the lock.
type GameSession struct {
	ID        string
	CreatedAt time.Time

	mu          sync.Mutex
	game        *tichu.Game
	broadcaster Broadcaster
	updatedAt   time.Time
}

func NewGameSession(id string, broadcaster Broadcaster) *GameSession {
	now := time.Now()
	return &GameSession{
		ID:          id,
		CreatedAt:   now,
		game:        tichu.NewGame(id),
		broadcaster: broadcaster,
		updatedAt:   now,
	}
}

// restoreSession rebuilds a session around a persisted game.
func restoreSession(id string, game *tichu.Game, broadcaster Broadcaster) *GameSession {
	s := NewGameSession(id, broadcaster)
	s.game = game
	return s
}

// mutate serializes a game mutation and broadcasts on success.
func (s *GameSession) mutate(apply func(g *tichu.Game) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := apply(s.game); err != nil {
		return err
	}

	s.updatedAt = time.Now()
	if s.broadcaster != nil {
		s.broadcaster.BroadcastState(s, s.game, s.game.DrainEvents())
	}
	return nil
}

// Snapshot runs a read-only function under the session lock.
func (s *GameSession) Snapshot(read func(g *tichu.Game)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	read(s.game)
}

func (s *GameSession) Join(playerID uuid.UUID, name string, team tichu.Team) (int, error) {
	seat := -1
	err := s.mutate(func(g *tichu.Game) error {
		var err error
		seat, err = g.AddPlayer(playerID, name, team)
		return err
	})
	return seat, err
}

func (s *GameSession) Leave(playerID uuid.UUID) error {
	return s.mutate(func(g *tichu.Game) error {
		return g.RemovePlayer(playerID)
	})
}

func (s *GameSession) StartGame() error {
	return s.mutate(func(g *tichu.Game) error {
		return g.StartGame()
	})
}

func (s *GameSession) CallTichu(playerID uuid.UUID) error {
	return s.mutate(func(g *tichu.Game) error {
		return g.CallTichu(playerID)
	})
}

func (s *GameSession) CallGrandTichu(playerID uuid.UUID) error {
	return s.mutate(func(g *tichu.Game) error {
		return g.CallGrandTichu(playerID)
	})
}

func (s *GameSession) SubmitSwap(playerID uuid.UUID, cards []tichu.Card) error {
	return s.mutate(func(g *tichu.Game) error {
		return g.SubmitSwap(playerID, cards)
	})
}

func (s *GameSession) PlayCombination(playerID uuid.UUID, cards []tichu.Card, wish *tichu.Card) error {
	return s.mutate(func(g *tichu.Game) error {
		return g.PlayCombination(playerID, cards, wish)
	})
}

// Pass folds the player's turn, which is a play of zero cards.
func (s *GameSession) Pass(playerID uuid.UUID) error {
	return s.PlayCombination(playerID, nil, nil)
}

func (s *GameSession) SelectDragonRecipient(playerID, recipientID uuid.UUID) error {
	return s.mutate(func(g *tichu.Game) error {
		return g.SelectDragonRecipient(playerID, recipientID)
	})
}

// Abandon force-finishes the session's game, broadcasting the final state.
func (s *GameSession) Abandon() {
	_ = s.mutate(func(g *tichu.Game) error {
		g.Abandon()
		return nil
	})
}

func (s *GameSession) IsJoinable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.IsJoinable()
}

func (s *GameSession) IsFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.IsFinished()
}

func (s *GameSession) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}
