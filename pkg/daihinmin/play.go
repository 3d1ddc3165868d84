package daihinmin

import "sort"

// Shape classifies a submitted set of cards. String values match the
// card_type vocabulary of the journal.
type Shape int

const (
	ShapePass Shape = iota
	ShapeSingle
	ShapeJokerSingle
	ShapeGroup
	ShapeSequence
	ShapeInvalid
)

func (s Shape) String() string {
	switch s {
	case ShapePass:
		return "empty"
	case ShapeSingle:
		return "single"
	case ShapeJokerSingle:
		return "joker_single"
	case ShapeGroup:
		return "pair"
	case ShapeSequence:
		return "sequence"
	}
	return "invalid"
}

// SuitSet is a bitmask over the four suits.
type SuitSet uint8

// Add returns the set with the suit included.
func (ss SuitSet) Add(s Suit) SuitSet { return ss | 1<<uint(s) }

// Has reports whether the suit is in the set.
func (ss SuitSet) Has(s Suit) bool { return ss&(1<<uint(s)) != 0 }

// SubsetOf reports whether every suit in ss is also in o.
func (ss SuitSet) SubsetOf(o SuitSet) bool { return ss&^o == 0 }

// Intersect returns the suits common to both sets.
func (ss SuitSet) Intersect(o SuitSet) SuitSet { return ss & o }

// Suits lists the members in declaration order.
func (ss SuitSet) Suits() []Suit {
	var out []Suit
	for s := Spade; s <= Club; s++ {
		if ss.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// Play is the classified form of a card submission. Rank is the play's own
// rank for singles and groups and the low end for sequences; Suits covers
// the natural (non-Joker) cards only.
type Play struct {
	Shape    Shape
	Cards    []Card
	Rank     Rank
	Size     int
	Suits    SuitSet
	HasJoker bool
	// JokerRank is the rank the Joker stands in for, when HasJoker.
	JokerRank Rank
}

// TopRank returns the comparison rank: the high end for sequences, the rank
// itself otherwise.
func (p Play) TopRank() Rank {
	if p.Shape == ShapeSequence {
		return p.Rank + Rank(p.Size) - 1
	}
	return p.Rank
}

// Covers reports whether the play occupies the given rank, counting the
// Joker's substituted slot. Drives the eight-cut and eleven-back checks.
func (p Play) Covers(r Rank) bool {
	switch p.Shape {
	case ShapeSingle, ShapeGroup:
		return p.Rank == r
	case ShapeSequence:
		return r >= p.Rank && r <= p.TopRank()
	}
	return false
}

// IsPass reports whether the play is a pass.
func (p Play) IsPass() bool { return p.Shape == ShapePass }

// String renders the played cards in journal form.
func (p Play) String() string { return FormatCards(p.Cards) }

// AnalyzePlay classifies a set of cards into exactly one shape. The Joker
// substitutes for at most one member of a group or one slot of a sequence;
// in a sequence it takes the slot giving the widest contiguous range,
// preferring the lower end on ties.
func AnalyzePlay(cards []Card) Play {
	sorted := make([]Card, len(cards))
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].less(sorted[j]) })

	if len(sorted) == 0 {
		return Play{Shape: ShapePass}
	}

	var naturals []Card
	jokers := 0
	for _, c := range sorted {
		if c.IsJoker() {
			jokers++
		} else {
			naturals = append(naturals, c)
		}
	}
	if jokers > 1 {
		return Play{Shape: ShapeInvalid, Cards: sorted, Size: len(sorted)}
	}

	if len(sorted) == 1 {
		if jokers == 1 {
			return Play{Shape: ShapeJokerSingle, Cards: sorted, Size: 1, HasJoker: true}
		}
		c := sorted[0]
		return Play{
			Shape: ShapeSingle,
			Cards: sorted,
			Rank:  c.Rank(),
			Size:  1,
			Suits: SuitSet(0).Add(c.Suit()),
		}
	}

	if len(sorted) <= 4 && sameRank(naturals) {
		var suits SuitSet
		for _, c := range naturals {
			suits = suits.Add(c.Suit())
		}
		return Play{
			Shape:     ShapeGroup,
			Cards:     sorted,
			Rank:      naturals[0].Rank(),
			Size:      len(sorted),
			Suits:     suits,
			HasJoker:  jokers == 1,
			JokerRank: naturals[0].Rank(),
		}
	}

	if len(sorted) >= 3 && len(sorted) <= 14 && sameSuit(naturals) {
		if low, slot, ok := sequenceSpan(naturals, jokers == 1); ok {
			return Play{
				Shape:     ShapeSequence,
				Cards:     sorted,
				Rank:      low,
				Size:      len(sorted),
				Suits:     SuitSet(0).Add(naturals[0].Suit()),
				HasJoker:  jokers == 1,
				JokerRank: slot,
			}
		}
	}

	return Play{Shape: ShapeInvalid, Cards: sorted, Size: len(sorted)}
}

func sameRank(cards []Card) bool {
	for _, c := range cards[1:] {
		if c.Rank() != cards[0].Rank() {
			return false
		}
	}
	return true
}

func sameSuit(cards []Card) bool {
	for _, c := range cards[1:] {
		if c.Suit() != cards[0].Suit() {
			return false
		}
	}
	return true
}

// sequenceSpan finds the contiguous rank range covered by the naturals, with
// the Joker filling at most one hole or extending one end. Returns the low
// rank of the range and the Joker's slot.
func sequenceSpan(naturals []Card, hasJoker bool) (low, slot Rank, ok bool) {
	ranks := make([]int, 0, len(naturals))
	for _, c := range naturals {
		ranks = append(ranks, int(c.Rank()))
	}
	sort.Ints(ranks)
	for i := 1; i < len(ranks); i++ {
		if ranks[i] == ranks[i-1] {
			return 0, 0, false
		}
	}

	min, max := ranks[0], ranks[len(ranks)-1]
	holes := (max - min + 1) - len(ranks)

	if !hasJoker {
		if holes != 0 {
			return 0, 0, false
		}
		return Rank(min), 0, true
	}

	switch holes {
	case 1:
		// Exactly one missing rank inside the span: the Joker fills it.
		have := make(map[int]bool, len(ranks))
		for _, r := range ranks {
			have[r] = true
		}
		for r := min + 1; r < max; r++ {
			if !have[r] {
				return Rank(min), Rank(r), true
			}
		}
		return 0, 0, false
	case 0:
		// Naturals already contiguous: extend an end, low side first.
		if min > int(Three) {
			return Rank(min - 1), Rank(min - 1), true
		}
		if max < int(Two) {
			return Rank(min), Rank(max + 1), true
		}
		return 0, 0, false
	}
	return 0, 0, false
}
