package tichu

// ClientState is the personalized view of a game sent to one player:
// their own hand in full, only card counts for everyone else.
type ClientState struct {
	GameID      string             `json:"gameId"`
	Phase       Phase              `json:"phase"`
	Seat        int                `json:"seat"`
	Name        string             `json:"name"`
	Hand        Hand               `json:"hand"`
	Players     []SeatState        `json:"players"`
	PileTop     *PlayedCombination `json:"pileTop"` // nil when the trick is open
	NextSeat    int                `json:"nextSeat"`
	LastSeat    int                `json:"lastSeat"`
	WishRank    Rank               `json:"wishRank"`
	DragonSeat  int                `json:"dragonSeat"`
	FinishOrder []int              `json:"finishOrder"`
	ScoreA      int                `json:"scoreA"`
	ScoreB      int                `json:"scoreB"`
}

type SeatState struct {
	Seat             int    `json:"seat"`
	Name             string `json:"name"`
	Team             Team   `json:"team"`
	HandCount        int    `json:"handCount"`
	WonCount         int    `json:"wonCount"`
	Finished         bool   `json:"finished"`
	CalledTichu      bool   `json:"calledTichu"`
	CalledGrandTichu bool   `json:"calledGrandTichu"`
	SwapSubmitted    bool   `json:"swapSubmitted"`
}

// ClientStateFor builds the view for the player at the given seat.
func (g *Game) ClientStateFor(seat int) *ClientState {
	self := g.playerAtSeat(seat)

	seats := make([]SeatState, 0, len(g.Players))
	for _, p := range g.Players {
		seats = append(seats, SeatState{
			Seat:             p.Seat,
			Name:             p.Name,
			Team:             p.Team(),
			HandCount:        len(p.Hand),
			WonCount:         len(p.Won),
			Finished:         p.Finished,
			CalledTichu:      p.CalledTichu,
			CalledGrandTichu: p.CalledGrandTichu,
			SwapSubmitted:    p.SwapSubmitted,
		})
	}

	state := &ClientState{
		GameID:      g.ID,
		Phase:       g.Phase,
		Seat:        seat,
		Players:     seats,
		PileTop:     g.Active.Top(),
		NextSeat:    g.NextSeat,
		LastSeat:    g.LastSeat,
		WishRank:    g.WishRank,
		DragonSeat:  g.DragonSeat,
		FinishOrder: g.FinishOrder,
		ScoreA:      g.ScoreA,
		ScoreB:      g.ScoreB,
	}

	if self != nil {
		state.Name = self.Name
		state.Hand = self.Hand
	}
	return state
}
