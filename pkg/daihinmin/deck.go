package daihinmin

import "math/rand"

const (
	// NumSeats is the fixed table size of the UECda protocol.
	NumSeats = 5
	// DeckSize counts the four suits plus the Joker.
	DeckSize = 53
)

// Deck represents the 53-card Daihinmin deck.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck creates a full deck shuffled with the given random number
// generator. The same generator state always yields the same order.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, DeckSize),
		rng:   rng,
	}
	for suit := Spade; suit <= Club; suit++ {
		for rank := Three; rank <= Two; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
	d.cards = append(d.cards, Joker())
	d.Shuffle()
	return d
}

// Shuffle randomizes the order of cards in the deck.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Size returns the number of cards remaining in the deck.
func (d *Deck) Size() int { return len(d.cards) }

// Deal distributes the whole deck round-robin starting at seat 0. With five
// seats the first three receive 11 cards and the last two receive 10.
func (d *Deck) Deal(seats int) []*CardSet {
	hands := make([]*CardSet, seats)
	for i := range hands {
		hands[i] = NewCardSet()
	}
	for i, c := range d.cards {
		hands[i%seats].Add(c)
	}
	d.cards = d.cards[:0]
	return hands
}
