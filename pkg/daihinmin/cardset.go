package daihinmin

import "sort"

// CardSet is a duplicate-free collection of cards. The zero value is not
// usable; construct with NewCardSet.
type CardSet struct {
	cards map[Card]struct{}
}

// NewCardSet builds a set from the given cards, dropping duplicates.
func NewCardSet(cards ...Card) *CardSet {
	s := &CardSet{cards: make(map[Card]struct{}, len(cards))}
	for _, c := range cards {
		s.cards[c] = struct{}{}
	}
	return s
}

// Add inserts a card, reporting whether it was not already present.
func (s *CardSet) Add(c Card) bool {
	if _, ok := s.cards[c]; ok {
		return false
	}
	s.cards[c] = struct{}{}
	return true
}

// Remove deletes a card, reporting whether it was present.
func (s *CardSet) Remove(c Card) bool {
	if _, ok := s.cards[c]; !ok {
		return false
	}
	delete(s.cards, c)
	return true
}

// Contains reports whether the card is in the set.
func (s *CardSet) Contains(c Card) bool {
	_, ok := s.cards[c]
	return ok
}

// Len returns the number of cards in the set.
func (s *CardSet) Len() int { return len(s.cards) }

// Empty reports whether the set has no cards.
func (s *CardSet) Empty() bool { return len(s.cards) == 0 }

// Cards returns the cards in display order (suit-major, rank-minor, Joker
// last).
func (s *CardSet) Cards() []Card {
	out := make([]Card, 0, len(s.cards))
	for c := range s.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

// Clone returns an independent copy of the set.
func (s *CardSet) Clone() *CardSet {
	out := &CardSet{cards: make(map[Card]struct{}, len(s.cards))}
	for c := range s.cards {
		out.cards[c] = struct{}{}
	}
	return out
}

// String renders the set in journal form.
func (s *CardSet) String() string {
	return FormatCards(s.Cards())
}
