package tichu

import "github.com/google/uuid"

type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

// TeamForSeat maps a seat to its team: seats 0 and 2 form team A,
// seats 1 and 3 form team B.
func TeamForSeat(seat int) Team {
	if seat%2 == 0 {
		return TeamA
	}
	return TeamB
}

// PartnerSeat returns the seat opposite the given one.
func PartnerSeat(seat int) int {
	return (seat + 2) % 4
}

type Player struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Seat             int       `json:"seat"`
	Hand             Hand      `json:"hand"`
	Won              []Card    `json:"won"`
	Finished         bool      `json:"finished"`
	CalledTichu      bool      `json:"calledTichu"`
	CalledGrandTichu bool      `json:"calledGrandTichu"`
	HasPlayed        bool      `json:"hasPlayed"`
	SwapSubmitted    bool      `json:"swapSubmitted"`
}

func (p *Player) Team() Team {
	return TeamForSeat(p.Seat)
}

// resetForRound clears the per-round state while keeping identity.
func (p *Player) resetForRound() {
	p.Hand = nil
	p.Won = nil
	p.Finished = false
	p.CalledTichu = false
	p.CalledGrandTichu = false
	p.HasPlayed = false
	p.SwapSubmitted = false
}
