package tichu

import (
	"errors"
	"fmt"
)

// Hand is the multiset of cards a player is holding.
type Hand []Card

func (h *Hand) Add(cards ...Card) {
	*h = append(*h, cards...)
	SortCards(*h)
}

func (h Hand) Contains(card Card) bool {
	return containsCard(h, card)
}

// ContainsAll checks that every given card (duplicates included) is held.
func (h Hand) ContainsAll(cards []Card) bool {
	remaining := make([]Card, len(h))
	copy(remaining, h)

	for _, card := range cards {
		found := false
		for i, held := range remaining {
			if held == card {
				remaining[i] = remaining[len(remaining)-1]
				remaining = remaining[:len(remaining)-1]
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Remove takes the given cards out of the hand.
func (h *Hand) Remove(cards []Card) error {
	if !h.ContainsAll(cards) {
		return errors.New("card is not in hand")
	}

	for _, card := range cards {
		for i, held := range *h {
			if held == card {
				*h = append((*h)[:i], (*h)[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (h Hand) Value() int {
	return CardValueSum(h)
}

func (h Hand) HasRank(rank Rank) bool {
	for _, card := range h {
		if card.Rank == rank && card != Phoenix {
			return true
		}
	}
	return false
}

// ActivePile is the sequence of combinations played in the current trick.
// Only the most recent entry is legally relevant.
type ActivePile struct {
	Played []PlayedCombination `json:"played"`
}

func (p *ActivePile) Push(pc PlayedCombination) {
	p.Played = append(p.Played, pc)
}

func (p *ActivePile) Top() *PlayedCombination {
	if len(p.Played) == 0 {
		return nil
	}
	return &p.Played[len(p.Played)-1]
}

func (p *ActivePile) IsEmpty() bool {
	return len(p.Played) == 0
}

// TakeAll drains every card off the pile, clearing it.
func (p *ActivePile) TakeAll() []Card {
	var cards []Card
	for _, pc := range p.Played {
		cards = append(cards, pc.Cards...)
	}
	p.Played = nil
	return cards
}

func (p *ActivePile) String() string {
	if top := p.Top(); top != nil {
		return fmt.Sprintf("pile topped by %s", top.Combination)
	}
	return "empty pile"
}
