package daihinmin

import (
	"errors"
	"fmt"
)

// Rules selects which table rules are in force for a session. YAML keys
// follow the server config file vocabulary.
type Rules struct {
	Revolution   bool `yaml:"revolution"`
	EightCut     bool `yaml:"eight_stop"`
	SuitLock     bool `yaml:"lock"`
	CardExchange bool `yaml:"card_exchange"`
	Spade3Return bool `yaml:"spade3_joker"`
	Sennichite   bool `yaml:"sennichite"`
	ElevenBack   bool `yaml:"eleven_back"`
}

// DefaultRules enables the standard rule set. Eleven-back is an opt-in
// variant and starts disabled.
func DefaultRules() Rules {
	return Rules{
		Revolution:   true,
		EightCut:     true,
		SuitLock:     true,
		CardExchange: true,
		Spade3Return: true,
		Sennichite:   true,
		ElevenBack:   false,
	}
}

// Illegal-play reasons. The engine reports these; the server converts any of
// them into a forced pass.
var (
	ErrInvalidShape  = errors.New("not a recognized play shape")
	ErrNotInHand     = errors.New("card not in hand")
	ErrShapeMismatch = errors.New("play does not match the field shape")
	ErrSuitLocked    = errors.New("suit not allowed under the active lock")
	ErrTooWeak       = errors.New("play does not beat the field")
	ErrJokerFollow   = errors.New("a lone joker can only follow a single")
)

// Effects reports what a play triggered, for journaling and broadcasts.
type Effects struct {
	Revolution   bool
	ElevenBack   bool
	EightCut     bool
	LockArmed    bool
	SpadeThree   bool
	FieldCleared bool
}

// Field holds the pile state a follow play must beat.
type Field struct {
	LastPlay    Play
	LastPlayer  int
	PassMask    uint8
	LockedSuits SuitSet
	Revolution  bool
	ElevenBack  bool
}

// NewField returns a cleared field.
func NewField() *Field {
	return &Field{LastPlayer: -1}
}

// Empty reports whether the field is clear.
func (f *Field) Empty() bool { return f.LastPlay.Shape == ShapePass }

// Locked reports whether a suit lock is armed.
func (f *Field) Locked() bool { return f.LockedSuits != 0 }

/// Inverted reports the effective rank direction: revolution and eleven-back
// each flip it, so together they cancel.
func (f *Field) Inverted() bool { return f.Revolution != f.ElevenBack }

// Clear resets the pile, the lock, the pass mask, and eleven-back.
// Revolution persists until toggled by another revolution play.
func (f *Field) Clear() {
	f.LastPlay = Play{Shape: ShapePass}
	f.LastPlayer = -1
	f.PassMask = 0
	f.LockedSuits = 0
	f.ElevenBack = false
}

// MarkPass records that a seat passed on the current pile.
func (f *Field) MarkPass(seat int) { f.PassMask |= 1 << uint(seat) }

// Passed reports whether a seat has passed since the last play.
func (f *Field) Passed(seat int) bool { return f.PassMask&(1<<uint(seat)) != 0 }

// Stronger reports whether rank a strictly beats rank b under the given
// direction.
func Stronger(a, b Rank, inverted bool) bool {
	if inverted {
		return a < b
	}
	return a > b
}

var spadeThree = NewCard(Spade, Three)

// Validate decides whether the play may be placed on the field by a seat
// holding hand. A pass is always legal and is not routed through here by the
// engine; it returns nil defensively.
func (f *Field) Validate(play Play, hand *CardSet, rules Rules) error {
	if play.Shape == ShapeInvalid {
		return ErrInvalidShape
	}
	if play.Shape == ShapePass {
		return nil
	}
	for _, c := range play.Cards {
		if !hand.Contains(c) {
			return fmt.Errorf("%w: %s", ErrNotInHand, c)
		}
	}
	if f.Empty() {
		return nil
	}

	last := f.LastPlay
	if play.Shape == ShapeJokerSingle {
		if last.Shape != ShapeSingle {
			return ErrJokerFollow
		}
		return nil
	}
	if last.Shape == ShapeJokerSingle {
		if rules.Spade3Return && play.Shape == ShapeSingle && play.Cards[0] == spadeThree {
			return nil
		}
		return fmt.Errorf("%w: only the spade 3 beats a lone joker", ErrTooWeak)
	}

	if play.Shape != last.Shape || play.Size != last.Size {
		return ErrShapeMismatch
	}
	if f.Locked() && !play.Suits.SubsetOf(f.LockedSuits) {
		return ErrSuitLocked
	}
	if !Stronger(play.TopRank(), last.TopRank(), f.Inverted()) {
		return ErrTooWeak
	}
	return nil
}

// Apply places a validated play on the field, computing rule effects and any
// resulting clear. The caller removes the cards from the hand.
func (f *Field) Apply(play Play, seat int, rules Rules) Effects {
	var fx Effects
	prev := f.LastPlay
	wasEmpty := f.Empty()

	if rules.Revolution &&
		((play.Shape == ShapeGroup && play.Size == 4) ||
			(play.Shape == ShapeSequence && play.Size >= 5)) {
		f.Revolution = !f.Revolution
		fx.Revolution = true
	}
	if rules.ElevenBack && play.Covers(Jack) && !f.ElevenBack {
		f.ElevenBack = true
		fx.ElevenBack = true
	}
	if rules.SuitLock && !wasEmpty && !f.Locked() &&
		play.Suits != 0 && prev.Suits != 0 && play.Suits.SubsetOf(prev.Suits) {
		f.LockedSuits = play.Suits.Intersect(prev.Suits)
		fx.LockArmed = true
	}

	f.LastPlay = play
	f.LastPlayer = seat
	f.PassMask = 0

	if !wasEmpty && prev.Shape == ShapeJokerSingle &&
		play.Shape == ShapeSingle && play.Cards[0] == spadeThree {
		fx.SpadeThree = true
	}
	if rules.EightCut && play.Covers(Eight) {
		fx.EightCut = true
	}
	if fx.SpadeThree || fx.EightCut {
		f.Clear()
		fx.FieldCleared = true
	}
	return fx
}
