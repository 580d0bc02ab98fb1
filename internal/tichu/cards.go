package tichu

import (
	"fmt"
	"math/rand"
	"sort"
)

type Suit int

const (
	Green Suit = iota + 1
	Red
	Blue
	Black
)

var suitString = map[Suit]string{
	Green: "Green",
	Red:   "Red",
	Blue:  "Blue",
	Black: "Black",
}

func (s Suit) String() string {
	return suitString[s]
}

type Rank int

const (
	// Specials carry rank 1; the suit tells which special it is.
	RankSpecial Rank = 1
	RankTwo     Rank = 2
	RankThree   Rank = 3
	RankFour    Rank = 4
	RankFive    Rank = 5
	RankSix     Rank = 6
	RankSeven   Rank = 7
	RankEight   Rank = 8
	RankNine    Rank = 9
	RankTen     Rank = 10
	RankJack    Rank = 11
	RankQueen   Rank = 12
	RankKing    Rank = 13
	RankAce     Rank = 14
)

var rankString = map[Rank]string{
	RankTwo:   "Two",
	RankThree: "Three",
	RankFour:  "Four",
	RankFive:  "Five",
	RankSix:   "Six",
	RankSeven: "Seven",
	RankEight: "Eight",
	RankNine:  "Nine",
	RankTen:   "Ten",
	RankJack:  "Jack",
	RankQueen: "Queen",
	RankKing:  "King",
	RankAce:   "Ace",
}

func (r Rank) String() string {
	return rankString[r]
}

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// The four special cards double as suit identities at rank 1.
var (
	Dragon  = Card{RankSpecial, Red}
	Phoenix = Card{RankSpecial, Green}
	Dog     = Card{RankSpecial, Blue}
	MahJong = Card{RankSpecial, Black}
)

func (c Card) IsSpecial() bool {
	return c.Rank == RankSpecial
}

// Value returns the card's scoring value at round end.
func (c Card) Value() int {
	switch {
	case c == Dragon:
		return 25
	case c == Phoenix:
		return -25
	case c.Rank == RankFive:
		return 5
	case c.Rank == RankTen || c.Rank == RankKing:
		return 10
	default:
		return 0
	}
}

func (c Card) String() string {
	switch c {
	case Dragon:
		return "Dragon"
	case Phoenix:
		return "Phoenix"
	case Dog:
		return "Dog"
	case MahJong:
		return "MahJong"
	}
	return fmt.Sprintf("%s of %s", c.Rank.String(), c.Suit.String())
}

// Less orders cards totally by rank, then suit, for canonical scans.
func (c Card) Less(other Card) bool {
	if c.Rank != other.Rank {
		return c.Rank < other.Rank
	}
	return c.Suit < other.Suit
}

func SortCards(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].Less(cards[j])
	})
}

// CardValueSum totals the scoring value of a pile of cards.
func CardValueSum(cards []Card) (sum int) {
	for _, c := range cards {
		sum += c.Value()
	}
	return
}

type Deck struct {
	Cards []Card `json:"cards"`
}

// NewDeck builds the full 56-card deck: four suits of ranks Two..Ace
// plus the four specials.
func NewDeck() *Deck {
	cards := make([]Card, 0, 56)
	suits := []Suit{Green, Red, Blue, Black}

	for _, suit := range suits {
		for rank := RankTwo; rank <= RankAce; rank++ {
			cards = append(cards, Card{rank, suit})
		}
	}
	cards = append(cards, Dragon, Phoenix, Dog, MahJong)

	return &Deck{cards}
}

func (d Deck) Count() int {
	return len(d.Cards)
}

func (d *Deck) Draw(n int) (cards []Card) {
	for range n {
		card := d.Cards[len(d.Cards)-1]
		cards = append(cards, card)
		d.Cards = d.Cards[:len(d.Cards)-1]
	}
	return
}

func (d *Deck) Shuffle() {
	rand.Shuffle(d.Count(), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}
