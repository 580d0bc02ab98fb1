package tichu

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNone Kind = iota
	KindSingle
	KindDouble
	KindTriple
	KindBomb
	KindFullHouse
	KindStraight
	KindStairs
	KindPass
	KindDog
)

var kindString = map[Kind]string{
	KindNone:      "None",
	KindSingle:    "Single",
	KindDouble:    "Double",
	KindTriple:    "Triple",
	KindBomb:      "Bomb",
	KindFullHouse: "FullHouse",
	KindStraight:  "Straight",
	KindStairs:    "Stairs",
	KindPass:      "Pass",
	KindDog:       "Dog",
}

func (k Kind) String() string {
	return kindString[k]
}

const (
	// DragonSingleRank is the rank of a lone Dragon, above every normal single.
	DragonSingleRank = 15
	// PhoenixSingleRank marks a lone Phoenix, whose real strength is only
	// known once it is compared against the pile top.
	PhoenixSingleRank = -1
)

// Combination is an immutable classification of a set of cards.
// Kind and Rank are derived from Cards and never edited afterwards.
type Combination struct {
	Cards []Card `json:"cards"`
	Kind  Kind   `json:"kind"`
	Rank  int    `json:"rank"`
}

// PlayedCombination is a pile entry: the combination plus the effective
// rank it was played at and the seat that played it. Storing the
// effective rank here keeps Combination itself immutable even for the
// lone-Phoenix case.
type PlayedCombination struct {
	Combination
	Effective int `json:"effective"`
	Seat      int `json:"seat"`
}

// Classify maps any multiset of cards to its combination kind and rank.
// It is total: unrecognizable sets come back as KindNone.
func Classify(cards []Card) Combination {
	sorted := make([]Card, len(cards))
	copy(sorted, cards)
	SortCards(sorted)

	kind, rank := classify(sorted)
	return Combination{Cards: sorted, Kind: kind, Rank: rank}
}

func classify(cards []Card) (Kind, int) {
	n := len(cards)

	if n == 0 {
		return KindPass, 0
	}

	if n == 1 {
		switch cards[0] {
		case Dog:
			return KindDog, 0
		case Dragon:
			return KindSingle, DragonSingleRank
		case Phoenix:
			return KindSingle, PhoenixSingleRank
		}
		return KindSingle, int(cards[0].Rank)
	}

	// Dog and Dragon never combine with other cards.
	if containsCard(cards, Dog) || containsCard(cards, Dragon) {
		return KindNone, 0
	}

	hasPhoenix := containsCard(cards, Phoenix)
	plain := withoutCard(cards, Phoenix)

	if allSameRank(plain) {
		rank := int(plain[0].Rank)
		switch n {
		case 2:
			return KindDouble, rank
		case 3:
			return KindTriple, rank
		case 4:
			if !hasPhoenix {
				return KindBomb, rank
			}
		}
		// Quads with a Phoenix and larger same-rank groups are illegal.
		return KindNone, 0
	}

	if n == 5 {
		if rank, ok := tryFullHouse(plain, hasPhoenix); ok {
			return KindFullHouse, rank
		}
	}

	if n >= 5 {
		if kind, rank, ok := tryStraight(plain, hasPhoenix); ok {
			return kind, rank
		}
	}

	if n >= 4 && n%2 == 0 {
		if rank, ok := tryStairs(plain, hasPhoenix, n); ok {
			return KindStairs, rank
		}
	}

	return KindNone, 0
}

func containsCard(cards []Card, c Card) bool {
	for _, card := range cards {
		if card == c {
			return true
		}
	}
	return false
}

func withoutCard(cards []Card, c Card) []Card {
	out := make([]Card, 0, len(cards))
	for _, card := range cards {
		if card != c {
			out = append(out, card)
		}
	}
	return out
}

func allSameRank(cards []Card) bool {
	for _, c := range cards[1:] {
		if c.Rank != cards[0].Rank {
			return false
		}
	}
	return true
}

// tryFullHouse tests a five-card set (Phoenix already stripped from plain)
// for three-of-a-kind plus a pair. The Phoenix may fill exactly one
// missing slot in either group. Returns the triple's rank.
func tryFullHouse(plain []Card, hasPhoenix bool) (int, bool) {
	counts := make(map[Rank]int)
	for _, c := range plain {
		counts[c.Rank]++
	}

	if !hasPhoenix {
		if len(counts) != 2 {
			return 0, false
		}
		for rank, count := range counts {
			if count == 3 {
				return int(rank), true
			}
		}
		return 0, false
	}

	if len(counts) != 2 {
		return 0, false
	}

	// Phoenix completes either a 3+1 or a 2+2 split. For 2+2 it joins
	// the higher pair, which becomes the triple.
	var ranks []Rank
	for rank := range counts {
		ranks = append(ranks, rank)
	}
	if ranks[0] > ranks[1] {
		ranks[0], ranks[1] = ranks[1], ranks[0]
	}

	lo, hi := counts[ranks[0]], counts[ranks[1]]
	switch {
	case lo == 3 && hi == 1:
		return int(ranks[0]), true
	case lo == 1 && hi == 3:
		return int(ranks[1]), true
	case lo == 2 && hi == 2:
		return int(ranks[1]), true
	}
	return 0, false
}

// tryStraight tests for five or more strictly ascending consecutive ranks.
// The Phoenix may fill at most one missing rank; with no hole to fill it
// extends the run instead. A run whose natural cards share one suit is a
// suited bomb.
func tryStraight(plain []Card, hasPhoenix bool) (Kind, int, bool) {
	for i := 1; i < len(plain); i++ {
		if plain[i].Rank == plain[i-1].Rank {
			return KindNone, 0, false
		}
	}

	missing := 0
	for i := 1; i < len(plain); i++ {
		missing += int(plain[i].Rank-plain[i-1].Rank) - 1
	}

	if missing > 1 || (missing == 1 && !hasPhoenix) {
		return KindNone, 0, false
	}

	low := int(plain[0].Rank)
	if hasPhoenix && missing == 0 {
		// No hole: the Phoenix extends at the top, or below the run
		// when the run already ends at the Ace.
		if plain[len(plain)-1].Rank == RankAce {
			low--
			if low < 1 {
				return KindNone, 0, false
			}
		}
	}

	kind := KindStraight
	// The MahJong never forms part of a bomb, even though it carries a suit.
	if plain[0].Rank != RankSpecial && allSameSuit(plain) {
		kind = KindBomb
	}
	return kind, low, true
}

func allSameSuit(cards []Card) bool {
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			return false
		}
	}
	return true
}

// tryStairs tests for consecutive ascending pairs. The Phoenix may stand
// in for at most one missing card. Returns the lowest pair's rank.
func tryStairs(plain []Card, hasPhoenix bool, n int) (int, bool) {
	counts := make(map[Rank]int)
	for _, c := range plain {
		counts[c.Rank]++
	}

	pairCount := n / 2
	low := plain[0].Rank

	deficit := 0
	seen := 0
	for rank := low; rank < low+Rank(pairCount); rank++ {
		count := counts[rank]
		if count > 2 {
			return 0, false
		}
		deficit += 2 - count
		seen += count
	}

	// Every natural card must sit inside the run.
	if seen != len(plain) {
		return 0, false
	}

	if hasPhoenix {
		return int(low), deficit == 1
	}
	return int(low), deficit == 0
}

var (
	ErrInvalidCombination = errors.New("invalid combination")
	ErrWrongKind          = errors.New("wrong combination type")
	ErrNotHighEnough      = errors.New("not high enough")
)

// CanPlayOn reports whether c may legally be played on the given pile top
// (nil when leading) and returns the rank c is effectively played at.
// The effective rank matters for the lone Phoenix, which assumes the rank
// of the single it beats; the comparison reports it instead of mutating c.
func (c Combination) CanPlayOn(top *PlayedCombination) (int, error) {
	switch c.Kind {
	case KindNone:
		return 0, ErrInvalidCombination
	case KindPass:
		// Always accepted; passes never update the pile top.
		return 0, nil
	}

	if c.Kind == KindDog {
		if top != nil {
			return 0, fmt.Errorf("%w: the Dog can only lead a trick", ErrWrongKind)
		}
		return 0, nil
	}

	if top == nil || top.Kind == KindDog {
		if c.Kind == KindSingle && c.Rank == PhoenixSingleRank {
			// A Phoenix led on an empty trick is worth barely more
			// than the MahJong.
			return int(RankSpecial), nil
		}
		return c.Rank, nil
	}

	if c.Kind == KindBomb {
		if top.Kind != KindBomb {
			return c.Rank, nil
		}
		if len(c.Cards) != len(top.Cards) {
			if len(c.Cards) > len(top.Cards) {
				return c.Rank, nil
			}
			return 0, ErrNotHighEnough
		}
		if c.Rank > top.Effective {
			return c.Rank, nil
		}
		return 0, ErrNotHighEnough
	}

	if top.Kind == KindBomb {
		return 0, fmt.Errorf("%w: only a bomb beats a bomb", ErrNotHighEnough)
	}

	if c.Kind == KindSingle && c.Rank == PhoenixSingleRank {
		if top.Kind != KindSingle {
			return 0, ErrWrongKind
		}
		if top.Effective >= DragonSingleRank {
			return 0, ErrNotHighEnough
		}
		return top.Effective, nil
	}

	if c.Kind != top.Kind || len(c.Cards) != len(top.Cards) {
		return 0, ErrWrongKind
	}

	if c.Rank <= top.Effective {
		return 0, ErrNotHighEnough
	}
	return c.Rank, nil
}

// ContainsRank reports whether the combination includes a natural card of
// the given rank. Used for wish fulfillment checks.
func (c Combination) ContainsRank(rank Rank) bool {
	for _, card := range c.Cards {
		if card.Rank == rank && card != Phoenix {
			return true
		}
	}
	return false
}

func (c Combination) String() string {
	return fmt.Sprintf("%s(%d)", c.Kind, c.Rank)
}
