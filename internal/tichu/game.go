package tichu

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Phase string

const (
	PhasePregame   Phase = "pregame"
	PhasePreround  Phase = "preround"
	PhaseSwapping  Phase = "swapping"
	PhaseInround   Phase = "inround"
	PhaseSelecting Phase = "selecting"
	PhasePostgame  Phase = "postgame"
)

const (
	HandSize        = 14
	WinningScore    = 1000
	DoppelsiegBonus = 200
	TichuBonus      = 100
)

// Game is the authoritative state of one table: players, piles, scores
// and the phase machine. It is created once per session and mutated in
// place for the life of the game. It is not safe for concurrent use;
// the session layer serializes access.
type Game struct {
	ID           string         `json:"id"`
	Players      []*Player      `json:"players"`
	Phase        Phase          `json:"phase"`
	Active       ActivePile     `json:"activePile"`
	FinishOrder  []int          `json:"finishOrder"`
	ScoreA       int            `json:"scoreA"`
	ScoreB       int            `json:"scoreB"`
	NextSeat     int            `json:"nextSeat"`
	LastSeat     int            `json:"lastSeat"`
	Passes       int            `json:"passes"`
	WishRank     Rank           `json:"wishRank"`
	DragonSeat   int            `json:"dragonSeat"`
	PendingSwaps map[int][]Card `json:"pendingSwaps,omitempty"`
	Events       []Event        `json:"events,omitempty"`
}

func NewGame(id string) *Game {
	return &Game{
		ID:           id,
		Phase:        PhasePregame,
		NextSeat:     -1,
		LastSeat:     -1,
		DragonSeat:   -1,
		PendingSwaps: make(map[int][]Card),
	}
}

var seatsByTeam = map[Team][]int{
	TeamA: {0, 2},
	TeamB: {1, 3},
}

// AddPlayer seats a new player, honoring a team preference when one of
// that team's seats is still open.
func (g *Game) AddPlayer(id uuid.UUID, name string, preferred Team) (int, error) {
	if g.Phase == PhasePostgame {
		return -1, errors.New("game is already finished")
	}
	if g.Phase != PhasePregame {
		return -1, errors.New("game has already started")
	}
	if len(g.Players) >= 4 {
		return -1, errors.New("game is full")
	}
	if g.playerByID(id) != nil {
		return -1, errors.New("player has already joined")
	}

	seat := -1
	if seats, ok := seatsByTeam[preferred]; ok {
		for _, s := range seats {
			if g.playerAtSeat(s) == nil {
				seat = s
				break
			}
		}
	}
	if seat == -1 {
		for s := range 4 {
			if g.playerAtSeat(s) == nil {
				seat = s
				break
			}
		}
	}

	g.Players = append(g.Players, &Player{ID: id, Name: name, Seat: seat})
	return seat, nil
}

// RemovePlayer unseats a player. Only possible before the game starts.
func (g *Game) RemovePlayer(id uuid.UUID) error {
	if g.Phase != PhasePregame {
		return errors.New("cannot leave a running game")
	}
	for i, p := range g.Players {
		if p.ID == id {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			return nil
		}
	}
	return errors.New("player is not in this game")
}

// StartGame deals the first round. Requires a full table.
func (g *Game) StartGame() error {
	if g.Phase != PhasePregame {
		return errors.New("game has already started")
	}
	if len(g.Players) < 4 {
		return fmt.Errorf("need 4 players to start, have %d", len(g.Players))
	}

	g.dealRound()
	return nil
}

// dealRound shuffles a fresh deck, hands out 14 cards per seat and
// opens the Grand Tichu / swap window.
func (g *Game) dealRound() {
	deck := NewDeck()
	deck.Shuffle()

	for _, p := range g.Players {
		p.resetForRound()
		p.Hand.Add(deck.Draw(HandSize)...)
	}

	g.Active = ActivePile{}
	g.FinishOrder = nil
	g.NextSeat = -1
	g.LastSeat = -1
	g.Passes = 0
	g.WishRank = 0
	g.DragonSeat = -1
	g.PendingSwaps = make(map[int][]Card)
	g.Phase = PhasePreround

	g.addEvent(EventDeal, "A new round has been dealt")
}

// CallGrandTichu registers a Grand Tichu bet. Only allowed while the
// caller still holds their dealt hand and has not swapped.
func (g *Game) CallGrandTichu(id uuid.UUID) error {
	p := g.playerByID(id)
	if p == nil {
		return errors.New("player is not in this game")
	}
	if g.Phase != PhasePreround && g.Phase != PhaseSwapping {
		return errors.New("grand tichu can only be called before the round starts")
	}
	if p.SwapSubmitted {
		return errors.New("grand tichu must be called before swapping")
	}
	if p.CalledTichu || p.CalledGrandTichu {
		return errors.New("tichu already called")
	}

	p.CalledGrandTichu = true
	g.addEvent(EventGrandTichu, "%s called a Grand Tichu!", p.Name)
	return nil
}

// CallTichu registers a small Tichu bet. Allowed any time before the
// caller plays their first card of the round.
func (g *Game) CallTichu(id uuid.UUID) error {
	p := g.playerByID(id)
	if p == nil {
		return errors.New("player is not in this game")
	}
	switch g.Phase {
	case PhasePreround, PhaseSwapping, PhaseInround:
	default:
		return errors.New("tichu cannot be called right now")
	}
	if p.HasPlayed {
		return errors.New("tichu must be called before playing a card")
	}
	if p.CalledTichu || p.CalledGrandTichu {
		return errors.New("tichu already called")
	}

	p.CalledTichu = true
	g.addEvent(EventTichu, "%s called a Tichu!", p.Name)
	return nil
}

// SubmitSwap stages the three cards a player passes on: one to the left
// opponent, one to the partner, one to the right opponent, in that
// order. Once all four players have submitted, the cards are exchanged
// and the round begins with the MahJong holder leading.
func (g *Game) SubmitSwap(id uuid.UUID, cards []Card) error {
	p := g.playerByID(id)
	if p == nil {
		return errors.New("player is not in this game")
	}
	if g.Phase != PhasePreround && g.Phase != PhaseSwapping {
		return errors.New("swapping is not possible right now")
	}
	if p.SwapSubmitted {
		return errors.New("swap already submitted")
	}
	if len(cards) != 3 {
		return fmt.Errorf("a swap needs exactly 3 cards, got %d", len(cards))
	}
	if !p.Hand.ContainsAll(cards) {
		return errors.New("card is not in hand")
	}

	// Copy before removing: callers may pass a slice of the hand itself.
	give := make([]Card, len(cards))
	copy(give, cards)

	if err := p.Hand.Remove(give); err != nil {
		return err
	}
	g.PendingSwaps[p.Seat] = give
	p.SwapSubmitted = true
	g.Phase = PhaseSwapping

	for _, other := range g.Players {
		if !other.SwapSubmitted {
			return nil
		}
	}
	g.executeSwaps()
	return nil
}

func (g *Game) executeSwaps() {
	for seat, cards := range g.PendingSwaps {
		for i, card := range cards {
			recipient := g.playerAtSeat((seat + 1 + i) % 4)
			recipient.Hand.Add(card)
		}
	}
	g.PendingSwaps = make(map[int][]Card)
	g.Phase = PhaseInround
	g.addEvent(EventSwap, "Cards have been swapped")

	for _, p := range g.Players {
		if p.Hand.Contains(MahJong) {
			g.NextSeat = p.Seat
			g.addEvent(EventDeal, "%s holds the MahJong and leads", p.Name)
			return
		}
	}
	g.NextSeat = 0
}

// PlayCombination validates and applies a play (or a pass, when cards is
// empty) for the given player, then runs the trick/round/game wrap-up
// cascade. wish may carry the rank wished for when the MahJong is played.
func (g *Game) PlayCombination(id uuid.UUID, cards []Card, wish *Card) error {
	p := g.playerByID(id)
	if p == nil {
		return errors.New("player is not in this game")
	}
	if g.Phase == PhasePostgame {
		return errors.New("game is already finished")
	}
	if g.Phase != PhaseInround {
		return errors.New("the round has not started yet")
	}
	if p.Finished {
		return errors.New("you have already played all your cards")
	}
	if p.Seat != g.NextSeat {
		return errors.New("not your turn")
	}

	combi := Classify(cards)

	if combi.Kind == KindPass {
		return g.applyPass(p)
	}

	if !p.Hand.ContainsAll(cards) {
		return errors.New("card is not in hand")
	}

	effective, err := combi.CanPlayOn(g.Active.Top())
	if err != nil {
		return err
	}

	wishing := containsCard(cards, MahJong) && wish != nil
	if wishing && (wish.Rank < RankTwo || wish.Rank > RankAce) {
		return errors.New("wished rank must be between Two and Ace")
	}

	if g.WishRank != 0 && !combi.ContainsRank(g.WishRank) && g.canFulfillWish(p) {
		return fmt.Errorf("you must fulfill the wish for a %s", g.WishRank)
	}
	if combi.ContainsRank(g.WishRank) {
		g.WishRank = 0
	}

	if wishing {
		g.WishRank = wish.Rank
		g.addEvent(EventWish, "%s wishes for a %s", p.Name, wish.Rank)
	}

	if err := p.Hand.Remove(cards); err != nil {
		return err
	}

	g.Active.Push(PlayedCombination{Combination: combi, Effective: effective, Seat: p.Seat})
	g.LastSeat = p.Seat
	g.Passes = 0
	p.HasPlayed = true

	if combi.Kind == KindBomb {
		g.addEvent(EventPlay, "%s played a Bomb!!", p.Name)
	} else {
		g.addEvent(EventPlay, "%s played %s", p.Name, combi)
	}

	if len(p.Hand) == 0 {
		p.Finished = true
		g.FinishOrder = append(g.FinishOrder, p.Seat)
		g.addEvent(EventPlayerOut, "%s has played all their cards", p.Name)
	}

	g.advanceTurn()
	if combi.Kind == KindDog {
		// The Dog skips straight to the partner.
		g.advanceTurn()
	}

	g.continueRound()
	return nil
}

func (g *Game) applyPass(p *Player) error {
	if g.Active.IsEmpty() {
		return errors.New("cannot pass when leading a trick")
	}
	if g.WishRank != 0 && g.canFulfillWish(p) {
		return fmt.Errorf("you must fulfill the wish for a %s", g.WishRank)
	}

	g.Passes++
	g.addEvent(EventPass, "%s passed", p.Name)
	g.advanceTurn()
	g.continueRound()
	return nil
}

// continueRound runs the wrap-up cascade after a play or pass: resolve a
// finished trick, then a finished round, then check for game over.
func (g *Game) continueRound() {
	if g.roundFinished() {
		// An open trick goes to whoever played its top; a Dragon
		// handover is pointless once the round is decided.
		if !g.Active.IsEmpty() && g.LastSeat >= 0 {
			winner := g.playerAtSeat(g.LastSeat)
			winner.Won = append(winner.Won, g.Active.TakeAll()...)
		}
		g.wrapUpRound()
		return
	}

	if g.trickFinished() {
		g.resolveTrick()
	}
}

// trickFinished reports whether everyone since the last non-pass play has
// passed: either the turn came back around to the last player, or that
// player is finished and all remaining players passed.
func (g *Game) trickFinished() bool {
	if g.Active.IsEmpty() || g.LastSeat < 0 {
		return false
	}
	if g.NextSeat == g.LastSeat {
		return true
	}
	if g.playerAtSeat(g.LastSeat).Finished && g.Passes >= g.unfinishedCount() {
		return true
	}
	return false
}

func (g *Game) resolveTrick() {
	winner := g.playerAtSeat(g.LastSeat)
	top := g.Active.Top()

	// A trick won with the Dragon must be given away to an opponent.
	if top != nil && len(top.Cards) == 1 && top.Cards[0] == Dragon {
		g.Phase = PhaseSelecting
		g.DragonSeat = winner.Seat
		g.addEvent(EventTrickWon, "%s won the trick with the Dragon and must give it away", winner.Name)
		return
	}

	winner.Won = append(winner.Won, g.Active.TakeAll()...)
	g.addEvent(EventTrickWon, "%s won the trick", winner.Name)
	g.setupNextTrick(winner.Seat)
}

func (g *Game) setupNextTrick(leadSeat int) {
	g.LastSeat = -1
	g.Passes = 0
	g.NextSeat = leadSeat
	if g.playerAtSeat(leadSeat).Finished {
		g.advanceTurn()
	}
}

// SelectDragonRecipient hands a Dragon-won trick to a chosen opponent,
// then returns the game to normal play.
func (g *Game) SelectDragonRecipient(id uuid.UUID, recipientID uuid.UUID) error {
	p := g.playerByID(id)
	if p == nil {
		return errors.New("player is not in this game")
	}
	if g.Phase != PhaseSelecting {
		return errors.New("there is no dragon trick to give away")
	}
	if p.Seat != g.DragonSeat {
		return errors.New("only the trick winner picks the recipient")
	}

	recipient := g.playerByID(recipientID)
	if recipient == nil {
		return errors.New("selected player is not in this game")
	}
	if recipient.Team() == p.Team() {
		return errors.New("the dragon trick must go to an opponent")
	}

	recipient.Won = append(recipient.Won, g.Active.TakeAll()...)
	g.addEvent(EventDragon, "%s gave the Dragon trick to %s", p.Name, recipient.Name)

	g.Phase = PhaseInround
	winnerSeat := g.DragonSeat
	g.DragonSeat = -1
	g.setupNextTrick(winnerSeat)
	return nil
}

func (g *Game) roundFinished() bool {
	if len(g.FinishOrder) >= 3 {
		return true
	}
	_, doubled := g.teamDoubledOut()
	return doubled
}

// teamDoubledOut reports whether both members of one team emptied their
// hands while both opponents still hold cards. The seat-to-team mapping
// is the single TeamForSeat function, checked per team.
func (g *Game) teamDoubledOut() (Team, bool) {
	if len(g.FinishOrder) != 2 {
		return "", false
	}
	first := TeamForSeat(g.FinishOrder[0])
	if first != TeamForSeat(g.FinishOrder[1]) {
		return "", false
	}
	return first, true
}

// wrapUpRound scores the finished round and either ends the game or
// deals the next round.
func (g *Game) wrapUpRound() {
	if team, doubled := g.teamDoubledOut(); doubled {
		g.addTeamScore(team, DoppelsiegBonus)
		g.addEvent(EventRoundScore, "Team %s doubled out! +%d", team, DoppelsiegBonus)
	} else {
		g.scoreCardPoints()
	}
	g.settleTichuCalls()

	if g.ScoreA >= WinningScore || g.ScoreB >= WinningScore {
		g.Phase = PhasePostgame
		switch {
		case g.ScoreA == g.ScoreB:
			g.addEvent(EventGameOver, "The game ends in a draw %d:%d", g.ScoreA, g.ScoreB)
		case g.ScoreA > g.ScoreB:
			g.addEvent(EventGameOver, "Team %s wins the game %d:%d", TeamA, g.ScoreA, g.ScoreB)
		default:
			g.addEvent(EventGameOver, "Team %s wins the game %d:%d", TeamB, g.ScoreA, g.ScoreB)
		}
		return
	}

	g.dealRound()
}

// scoreCardPoints performs normal round scoring: every won pile counts
// for its owner's team, and the hand the last remaining player is still
// holding is forfeited to the first finisher's team.
func (g *Game) scoreCardPoints() {
	for _, p := range g.Players {
		g.addTeamScore(p.Team(), CardValueSum(p.Won))
	}

	if len(g.FinishOrder) >= 1 {
		firstTeam := TeamForSeat(g.FinishOrder[0])
		for _, p := range g.Players {
			if !p.Finished {
				g.addTeamScore(firstTeam, p.Hand.Value())
				p.Hand = nil
			}
		}
	}

	g.addEvent(EventRoundScore, "Round scored: %d vs %d", g.ScoreA, g.ScoreB)
}

func (g *Game) settleTichuCalls() {
	if len(g.FinishOrder) == 0 {
		return
	}
	first := g.FinishOrder[0]

	for _, p := range g.Players {
		if !p.CalledTichu && !p.CalledGrandTichu {
			continue
		}
		if p.Seat == first {
			g.addTeamScore(p.Team(), TichuBonus)
			g.addEvent(EventRoundScore, "%s made their Tichu: Team %s +%d", p.Name, p.Team(), TichuBonus)
		} else {
			g.addTeamScore(p.Team(), -TichuBonus)
			g.addEvent(EventRoundScore, "%s failed their Tichu: Team %s -%d", p.Name, p.Team(), TichuBonus)
		}
	}
}

func (g *Game) addTeamScore(team Team, points int) {
	if team == TeamA {
		g.ScoreA += points
	} else {
		g.ScoreB += points
	}
}

// Abandon force-finishes the game, e.g. when the session is torn down.
func (g *Game) Abandon() {
	if g.Phase != PhasePostgame {
		g.Phase = PhasePostgame
		g.addEvent(EventGameOver, "Game abandoned")
	}
}

func (g *Game) IsFinished() bool {
	return g.Phase == PhasePostgame
}

func (g *Game) IsJoinable() bool {
	return g.Phase == PhasePregame && len(g.Players) < 4
}

// canFulfillWish reports whether the player could legally play a
// combination containing the wished rank against the current pile top.
// Checked for empty tricks, singles, doubles, triples and bombs; larger
// shapes are not searched exhaustively.
func (g *Game) canFulfillWish(p *Player) bool {
	if g.WishRank == 0 || !p.Hand.HasRank(g.WishRank) {
		return false
	}

	// Four natural cards of the wished rank form a bomb, which beats
	// almost anything.
	wished := 0
	for _, card := range p.Hand {
		if card.Rank == g.WishRank && card != Phoenix {
			wished++
		}
	}

	top := g.Active.Top()
	if top == nil || top.Kind == KindDog {
		return true
	}

	if wished == 4 && top.Kind != KindBomb {
		return true
	}

	switch top.Kind {
	case KindSingle:
		return int(g.WishRank) > top.Effective
	case KindDouble:
		return wished >= 2 && int(g.WishRank) > top.Effective
	case KindTriple:
		return wished >= 3 && int(g.WishRank) > top.Effective
	case KindBomb:
		// A quad of the wished rank only beats another four-card bomb
		// of lower rank; longer suited bombs always win.
		return wished == 4 && len(top.Cards) == 4 && int(g.WishRank) > top.Effective
	}
	return false
}

func (g *Game) advanceTurn() {
	if g.NextSeat < 0 {
		g.NextSeat = 0
	}
	for range 4 {
		g.NextSeat = (g.NextSeat + 1) % 4
		if !g.playerAtSeat(g.NextSeat).Finished {
			return
		}
	}
}

func (g *Game) unfinishedCount() (count int) {
	for _, p := range g.Players {
		if !p.Finished {
			count++
		}
	}
	return
}

func (g *Game) playerByID(id uuid.UUID) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) playerAtSeat(seat int) *Player {
	for _, p := range g.Players {
		if p.Seat == seat {
			return p
		}
	}
	return nil
}

// PlayerByID exposes lookup for the session layer.
func (g *Game) PlayerByID(id uuid.UUID) *Player {
	return g.playerByID(id)
}
