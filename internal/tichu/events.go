package tichu

import "fmt"

// Event is a human-narratable description of something that changed
// during a state transition. Events are collected while an operation
// runs and drained by the session layer for broadcasting.
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

const (
	EventPlay       = "play"
	EventPass       = "pass"
	EventTrickWon   = "trick_won"
	EventPlayerOut  = "player_out"
	EventRoundScore = "round_score"
	EventTichu      = "tichu"
	EventGrandTichu = "grand_tichu"
	EventWish       = "wish"
	EventSwap       = "swap"
	EventDeal       = "deal"
	EventDragon     = "dragon_given"
	EventGameOver   = "game_over"
)

func (g *Game) addEvent(eventType, format string, args ...any) {
	g.Events = append(g.Events, Event{
		Type:    eventType,
		Message: fmt.Sprintf(format, args...),
	})
}

// DrainEvents returns the events accumulated since the last drain.
func (g *Game) DrainEvents() []Event {
	events := g.Events
	g.Events = nil
	return events
}
