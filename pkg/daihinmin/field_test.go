package daihinmin

import (
	"errors"
	"testing"
)

// handWith builds a CardSet guaranteed to contain the given cards.
func handWith(t *testing.T, s string) *CardSet {
	t.Helper()
	return NewCardSet(cardList(t, s)...)
}

// place puts a play on the field without validation, for test setup.
func place(t *testing.T, f *Field, seat int, cards string, rules Rules) Effects {
	t.Helper()
	play := AnalyzePlay(cardList(t, cards))
	if play.Shape == ShapeInvalid {
		t.Fatalf("setup play %q is invalid", cards)
	}
	return f.Apply(play, seat, rules)
}

func TestValidateEmptyField(t *testing.T) {
	f := NewField()
	rules := DefaultRules()
	for _, cards := range []string{"S3", "Jo", "H5,D5", "C6,C7,C8"} {
		play := AnalyzePlay(cardList(t, cards))
		if err := f.Validate(play, handWith(t, cards), rules); err != nil {
			t.Errorf("Expected %s to lead an empty field, got %v", cards, err)
		}
	}
}

func TestValidateOwnership(t *testing.T) {
	f := NewField()
	play := AnalyzePlay(cardList(t, "S3"))
	err := f.Validate(play, handWith(t, "H4,H5"), DefaultRules())
	if !errors.Is(err, ErrNotInHand) {
		t.Errorf("Expected ErrNotInHand, got %v", err)
	}
}

func TestValidateInvalidShape(t *testing.T) {
	f := NewField()
	play := AnalyzePlay(cardList(t, "S3,H4"))
	err := f.Validate(play, handWith(t, "S3,H4"), DefaultRules())
	if !errors.Is(err, ErrInvalidShape) {
		t.Errorf("Expected ErrInvalidShape, got %v", err)
	}
}

func TestValidateFollow(t *testing.T) {
	rules := DefaultRules()

	cases := []struct {
		name    string
		field   string
		follow  string
		wantErr error
	}{
		{"stronger single", "H5", "D9", nil},
		{"equal single", "H5", "D5", ErrTooWeak},
		{"weaker single", "H9", "D5", ErrTooWeak},
		{"single on pair", "H5,D5", "SK", ErrShapeMismatch},
		{"pair on single", "H5", "SK,HK", ErrShapeMismatch},
		{"stronger pair", "H5,D5", "SK,HK", nil},
		{"triple on pair", "H5,D5", "SK,HK,DK", ErrShapeMismatch},
		{"longer run", "C4,C5,C6", "D7,D8,D9,D10", ErrShapeMismatch},
		{"stronger run", "C4,C5,C6", "D7,D8,D9", nil},
		{"weaker run", "C7,C8,C9", "D4,D5,D6", ErrTooWeak},
		{"joker single on single", "H5", "Jo", nil},
		{"joker single on pair", "H5,D5", "Jo", ErrJokerFollow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewField()
			place(t, f, 0, tc.field, rules)
			play := AnalyzePlay(cardList(t, tc.follow))
			err := f.Validate(play, handWith(t, tc.follow), rules)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateSpadeThreeOnJoker(t *testing.T) {
	rules := DefaultRules()

	f := NewField()
	place(t, f, 0, "Jo", rules)
	s3 := AnalyzePlay(cardList(t, "S3"))
	if err := f.Validate(s3, handWith(t, "S3"), rules); err != nil {
		t.Errorf("Expected spade 3 to beat a lone joker, got %v", err)
	}
	other := AnalyzePlay(cardList(t, "S2"))
	if err := f.Validate(other, handWith(t, "S2"), rules); !errors.Is(err, ErrTooWeak) {
		t.Errorf("Expected ErrTooWeak for S2 on a lone joker, got %v", err)
	}

	// With the rule disabled nothing beats the lone joker.
	rules.Spade3Return = false
	f = NewField()
	place(t, f, 0, "Jo", rules)
	if err := f.Validate(s3, handWith(t, "S3"), rules); !errors.Is(err, ErrTooWeak) {
		t.Errorf("Expected ErrTooWeak with spade3_joker off, got %v", err)
	}
}

func TestValidateInverted(t *testing.T) {
	rules := DefaultRules()
	f := NewField()
	f.Revolution = true
	place(t, f, 0, "H9", rules)

	weak := AnalyzePlay(cardList(t, "D5"))
	if err := f.Validate(weak, handWith(t, "D5"), rules); err != nil {
		t.Errorf("Expected lower rank to win under revolution, got %v", err)
	}
	strong := AnalyzePlay(cardList(t, "DK"))
	if err := f.Validate(strong, handWith(t, "DK"), rules); !errors.Is(err, ErrTooWeak) {
		t.Errorf("Expected ErrTooWeak for higher rank under revolution, got %v", err)
	}
}

func TestInvertedCancellation(t *testing.T) {
	f := NewField()
	if f.Inverted() {
		t.Error("Expected normal direction initially")
	}
	f.Revolution = true
	if !f.Inverted() {
		t.Error("Expected inversion under revolution")
	}
	f.ElevenBack = true
	if f.Inverted() {
		t.Error("Expected revolution and eleven-back to cancel")
	}
	f.Revolution = false
	if !f.Inverted() {
		t.Error("Expected inversion under eleven-back alone")
	}
}

func TestApplyRevolution(t *testing.T) {
	rules := DefaultRules()
	f := NewField()

	fx := place(t, f, 0, "S4,H4,D4,C4", rules)
	if !fx.Revolution {
		t.Error("Expected a quad to trigger revolution")
	}
	if !f.Revolution {
		t.Error("Expected revolution flag set")
	}

	// Revolution persists across a clear and toggles back on the next one.
	f.Clear()
	if !f.Revolution {
		t.Error("Expected revolution to survive a field clear")
	}
	fx = place(t, f, 1, "D5,D6,D7,D8,D9", rules)
	if !fx.Revolution {
		t.Error("Expected a five-card run to trigger revolution")
	}
	if f.Revolution {
		t.Error("Expected second revolution to restore normal order")
	}

	rules.Revolution = false
	f = NewField()
	fx = place(t, f, 0, "S4,H4,D4,C4", rules)
	if fx.Revolution || f.Revolution {
		t.Error("Expected no revolution with the rule disabled")
	}
}

func TestApplyElevenBack(t *testing.T) {
	rules := DefaultRules()
	rules.ElevenBack = true
	f := NewField()

	fx := place(t, f, 0, "HJ", rules)
	if !fx.ElevenBack {
		t.Error("Expected a jack to trigger eleven-back")
	}
	if !f.Inverted() {
		t.Error("Expected inverted order under eleven-back")
	}

	// A second jack play changes nothing while eleven-back is in force.
	fx = place(t, f, 1, "SJ", rules)
	if fx.ElevenBack {
		t.Error("Expected no repeat eleven-back event")
	}

	f.Clear()
	if f.ElevenBack {
		t.Error("Expected eleven-back to end with the trick")
	}

	rules.ElevenBack = false
	f = NewField()
	fx = place(t, f, 0, "HJ", rules)
	if fx.ElevenBack || f.ElevenBack {
		t.Error("Expected no eleven-back with the rule disabled")
	}
}

func TestApplyEightCut(t *testing.T) {
	rules := DefaultRules()
	f := NewField()

	fx := place(t, f, 0, "C8", rules)
	if !fx.EightCut {
		t.Error("Expected an eight to cut")
	}
	if !fx.FieldCleared || !f.Empty() {
		t.Error("Expected the field to clear after an eight cut")
	}

	// A run covering the 8 via the joker also cuts.
	fx = place(t, f, 1, "S9,S10,Jo", rules)
	if !fx.EightCut || !f.Empty() {
		t.Error("Expected a joker-backed run over the 8 to cut")
	}

	rules.EightCut = false
	f = NewField()
	fx = place(t, f, 0, "C8", rules)
	if fx.EightCut || f.Empty() {
		t.Error("Expected no cut with the rule disabled")
	}
}

func TestApplySpadeThreeReturn(t *testing.T) {
	rules := DefaultRules()
	f := NewField()

	place(t, f, 0, "Jo", rules)
	fx := place(t, f, 1, "S3", rules)
	if !fx.SpadeThree {
		t.Error("Expected spade 3 return to register")
	}
	if !fx.FieldCleared || !f.Empty() {
		t.Error("Expected the field to clear after a spade 3 return")
	}
}

func TestApplySuitLock(t *testing.T) {
	rules := DefaultRules()
	f := NewField()

	place(t, f, 0, "S5", rules)
	fx := place(t, f, 1, "S7", rules)
	if !fx.LockArmed {
		t.Error("Expected same-suit follow to arm the lock")
	}
	if !f.Locked() || !f.LockedSuits.Has(Spade) {
		t.Error("Expected spades to be locked")
	}

	heart := AnalyzePlay(cardList(t, "H9"))
	if err := f.Validate(heart, handWith(t, "H9"), rules); !errors.Is(err, ErrSuitLocked) {
		t.Errorf("Expected ErrSuitLocked for off-suit follow, got %v", err)
	}
	spade := AnalyzePlay(cardList(t, "S9"))
	if err := f.Validate(spade, handWith(t, "S9"), rules); err != nil {
		t.Errorf("Expected locked-suit follow to be legal, got %v", err)
	}

	// The lock arms once; a further same-suit play raises no new event.
	fx = place(t, f, 2, "S9", rules)
	if fx.LockArmed {
		t.Error("Expected no repeat lock event")
	}

	f.Clear()
	if f.Locked() {
		t.Error("Expected the lock to end with the trick")
	}
}

func TestApplySuitLockPairSubset(t *testing.T) {
	rules := DefaultRules()
	f := NewField()

	// {H} from the joker-backed pair is a subset of {H,D}: the lock arms on
	// the intersection.
	place(t, f, 0, "H3,D3", rules)
	fx := place(t, f, 1, "H6,Jo", rules)
	if !fx.LockArmed {
		t.Error("Expected subset follow to arm the lock")
	}
	if !f.LockedSuits.Has(Heart) || f.LockedSuits.Has(Diamond) {
		t.Errorf("Expected lock on hearts only, got %v", f.LockedSuits.Suits())
	}
}

func TestApplySuitLockDisabled(t *testing.T) {
	rules := DefaultRules()
	rules.SuitLock = false
	f := NewField()

	place(t, f, 0, "S5", rules)
	fx := place(t, f, 1, "S7", rules)
	if fx.LockArmed || f.Locked() {
		t.Error("Expected no lock with the rule disabled")
	}
}

func TestStronger(t *testing.T) {
	if !Stronger(Ten, Five, false) {
		t.Error("Expected 10 to beat 5 normally")
	}
	if Stronger(Five, Ten, false) {
		t.Error("Expected 5 not to beat 10 normally")
	}
	if Stronger(Five, Five, false) || Stronger(Five, Five, true) {
		t.Error("Expected equal ranks never to beat each other")
	}
	if !Stronger(Five, Ten, true) {
		t.Error("Expected 5 to beat 10 when inverted")
	}
}
