// Package daihinmin implements the rules of five-player Daihinmin as played
// over the UECda protocol: the card model, play classification, field
// legality, and the per-game match engine. The package never touches the
// network; the server drives it and owns all I/O.
package daihinmin

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Suit represents a card suit. The numeric order (Spade first) is also the
// strength order used to break ties during the card exchange.
type Suit int

const (
	Spade Suit = iota
	Heart
	Diamond
	Club
)

// String returns the single-letter suit code used in symbolic card form.
func (s Suit) String() string {
	switch s {
	case Spade:
		return "S"
	case Heart:
		return "H"
	case Diamond:
		return "D"
	case Club:
		return "C"
	}
	return "?"
}

// Rank represents a card rank in play order: Three is the weakest and Two the
// strongest under the normal direction. The numeric value is also the card's
// column in the wire matrix.
type Rank int

const (
	Three Rank = iota
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
	Two
)

var rankCodes = [...]string{"3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A", "2"}

// String returns the rank literal used in symbolic card form.
func (r Rank) String() string {
	if r < Three || r > Two {
		return "?"
	}
	return rankCodes[r]
}

// Card identifies one of the 53 cards: a suited rank card, or the Joker.
type Card struct {
	suit  Suit
	rank  Rank
	joker bool
}

// NewCard creates a suited card.
func NewCard(suit Suit, rank Rank) Card {
	return Card{suit: suit, rank: rank}
}

// Joker creates the Joker.
func Joker() Card {
	return Card{joker: true}
}

// Suit returns the card's suit. Meaningless for the Joker.
func (c Card) Suit() Suit { return c.suit }

// Rank returns the card's rank. Meaningless for the Joker.
func (c Card) Rank() Rank { return c.rank }

// IsJoker reports whether the card is the Joker.
func (c Card) IsJoker() bool { return c.joker }

// String returns the symbolic form: "S3", "H10", "Jo".
func (c Card) String() string {
	if c.joker {
		return "Jo"
	}
	return c.suit.String() + c.rank.String()
}

// ParseCard is the inverse of String.
func ParseCard(s string) (Card, error) {
	if s == "Jo" {
		return Joker(), nil
	}
	if len(s) < 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	var suit Suit
	switch s[0] {
	case 'S':
		suit = Spade
	case 'H':
		suit = Heart
	case 'D':
		suit = Diamond
	case 'C':
		suit = Club
	default:
		return Card{}, fmt.Errorf("invalid suit in card %q", s)
	}
	lit := s[1:]
	for r, code := range rankCodes {
		if code == lit {
			return NewCard(suit, Rank(r)), nil
		}
	}
	return Card{}, fmt.Errorf("invalid rank in card %q", s)
}

// MarshalJSON encodes the card in symbolic form.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a card from symbolic form.
func (c *Card) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	card, err := ParseCard(s)
	if err != nil {
		return err
	}
	*c = card
	return nil
}

// less orders cards for display: suits in declaration order, ranks ascending,
// Joker last. This is the order hands appear in the journal.
func (c Card) less(o Card) bool {
	if c.joker != o.joker {
		return !c.joker
	}
	if c.suit != o.suit {
		return c.suit < o.suit
	}
	return c.rank < o.rank
}

// weaker orders cards weakest-first under the normal direction, ties broken
// by suit with Spade strongest. Used for the forced card exchange.
func (c Card) weaker(o Card) bool {
	if c.joker != o.joker {
		return !c.joker
	}
	if c.rank != o.rank {
		return c.rank < o.rank
	}
	return c.suit > o.suit
}

// FormatCards renders a set of cards as the comma-joined symbolic list used
// in the journal ("S8,H8,D8"); empty input yields the empty string.
func FormatCards(cards []Card) string {
	if len(cards) == 0 {
		return ""
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

// ParseCards is the inverse of FormatCards.
func ParseCards(s string) ([]Card, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	cards := make([]Card, 0, len(parts))
	for _, p := range parts {
		c, err := ParseCard(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}
