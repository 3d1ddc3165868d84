package daihinmin

import (
	"fmt"
	"math/rand"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/slog"
)

// Phase tracks where a match is in its lifecycle.
type Phase int

const (
	PhaseDealing Phase = iota
	PhaseExchanging
	PhasePlaying
	PhaseScoring
)

func (p Phase) String() string {
	switch p {
	case PhaseDealing:
		return "dealing"
	case PhaseExchanging:
		return "exchanging"
	case PhasePlaying:
		return "playing"
	case PhaseScoring:
		return "scoring"
	}
	return "unknown"
}

// sennichitePasses is the thousand-day-hand threshold: this many consecutive
// passes without an intervening play clears a deadlocked field.
const sennichitePasses = 20

// Action is what a seat did on its turn, in journal vocabulary.
type Action string

const (
	ActionPlay Action = "play"
	ActionPass Action = "pass"
)

// TurnResult describes one applied turn for the coordinator to journal and
// broadcast.
type TurnResult struct {
	Seat    int
	Turn    int
	Action  Action
	Play    Play
	Effects Effects

	// FieldCleared covers every clear: play effects, pass-around, and
	// sennichite. PassedAround and Sennichite name the non-effect causes.
	FieldCleared bool
	PassedAround bool
	Sennichite   bool

	Finished  bool
	FinishPos int
	GameOver  bool
	NextSeat  int
}

// MatchConfig carries everything one game needs. The random source is owned
// by the session so consecutive games share one deterministic stream.
type MatchConfig struct {
	Game       int
	TotalGames int
	Rules      Rules
	Classes    [NumSeats]Class
	Rng        *rand.Rand
	Log        slog.Logger
}

// Match is the state machine for a single game: it owns the hands, the
// field, turn order, and the finish order. All methods are driven from one
// goroutine; the coordinator serializes access.
type Match struct {
	cfg MatchConfig
	log slog.Logger

	hands    [NumSeats]*CardSet
	discards *CardSet
	field    *Field

	phase       Phase
	activeSeat  int
	firstPlayer int
	turn        int

	finishOrder       []int
	finished          [NumSeats]bool
	consecutivePasses int
}

// NewMatch creates a match in the dealing phase.
func NewMatch(cfg MatchConfig) *Match {
	if cfg.Rng == nil {
		panic("daihinmin: match requires a random source")
	}
	if cfg.Game < 1 {
		cfg.Game = 1
	}
	log := cfg.Log
	if log == nil {
		log = slog.Disabled
	}
	return &Match{
		cfg:      cfg,
		log:      log,
		discards: NewCardSet(),
		field:    NewField(),
		phase:    PhaseDealing,
	}
}

// Deal shuffles and distributes the deck. The Spade 3 holder leads game 1;
// from game 2 on, the previous daihinmin leads.
func (m *Match) Deal() {
	if m.phase != PhaseDealing {
		panic(fmt.Sprintf("daihinmin: deal in phase %s", m.phase))
	}
	deck := NewDeck(m.cfg.Rng)
	hands := deck.Deal(NumSeats)
	for i := range m.hands {
		m.hands[i] = hands[i]
	}

	lead := m.spadeThreeHolder()
	if m.cfg.Game > 1 {
		if s, ok := m.seatWithClass(ClassDaihinmin); ok {
			lead = s
		}
	}
	m.firstPlayer = lead
	m.activeSeat = lead

	if m.cfg.Game > 1 && m.cfg.Rules.CardExchange {
		m.phase = PhaseExchanging
	} else {
		m.phase = PhasePlaying
	}
	m.checkInvariants()
}

// Submit applies the active seat's card submission. An empty submission is a
// pass. A validation error leaves the match untouched; the caller decides
// whether to convert it into a forced pass.
func (m *Match) Submit(seat int, cards []Card) (TurnResult, error) {
	m.mustBeActive(seat)
	if len(cards) == 0 {
		return m.Pass(seat), nil
	}

	play := AnalyzePlay(cards)
	if err := m.field.Validate(play, m.hands[seat], m.cfg.Rules); err != nil {
		return TurnResult{}, err
	}

	m.turn++
	fx := m.field.Apply(play, seat, m.cfg.Rules)
	for _, c := range play.Cards {
		m.hands[seat].Remove(c)
		m.discards.Add(c)
	}
	m.consecutivePasses = 0

	res := TurnResult{
		Seat:         seat,
		Turn:         m.turn,
		Action:       ActionPlay,
		Play:         play,
		Effects:      fx,
		FieldCleared: fx.FieldCleared,
		NextSeat:     -1,
	}

	if m.hands[seat].Empty() {
		m.finished[seat] = true
		m.finishOrder = append(m.finishOrder, seat)
		res.Finished = true
		res.FinishPos = len(m.finishOrder)

		if len(m.finishOrder) == NumSeats-1 {
			for s := 0; s < NumSeats; s++ {
				if !m.finished[s] {
					m.finished[s] = true
					m.finishOrder = append(m.finishOrder, s)
				}
			}
			m.phase = PhaseScoring
			res.GameOver = true
			m.checkInvariants()
			return res, nil
		}
	}

	m.advance(&res)
	m.checkInvariants()
	return res, nil
}

// Pass records a pass for the active seat, voluntary or forced. At the
// sennichite threshold the field clears and the lead moves to the next
// unfinished seat; the game continues.
func (m *Match) Pass(seat int) TurnResult {
	m.mustBeActive(seat)
	m.turn++
	m.field.MarkPass(seat)
	m.consecutivePasses++

	res := TurnResult{
		Seat:     seat,
		Turn:     m.turn,
		Action:   ActionPass,
		NextSeat: -1,
	}

	if m.cfg.Rules.Sennichite && m.consecutivePasses >= sennichitePasses {
		m.field.Clear()
		m.consecutivePasses = 0
		res.Sennichite = true
		res.FieldCleared = true
		m.activeSeat = m.nextUnfinished(seat)
		res.NextSeat = m.activeSeat
		m.checkInvariants()
		return res
	}

	m.advance(&res)
	m.checkInvariants()
	return res
}

// advance moves the turn to the next seat, clearing the field when play has
// come back around to the last player or every other unfinished seat has
// passed.
func (m *Match) advance(res *TurnResult) {
	seat := res.Seat
	if m.field.Empty() {
		if res.Action == ActionPlay && !m.finished[seat] {
			// Eight-cut or Spade 3 return: the player leads again.
			m.activeSeat = seat
		} else {
			m.activeSeat = m.nextUnfinished(seat)
		}
		res.NextSeat = m.activeSeat
		return
	}

	next := m.nextUnfinished(seat)
	if next == m.field.LastPlayer || m.allOthersPassed() {
		leader := m.field.LastPlayer
		m.field.Clear()
		res.FieldCleared = true
		res.PassedAround = true
		if leader >= 0 && !m.finished[leader] {
			m.activeSeat = leader
		} else {
			m.activeSeat = m.nextUnfinished(leader)
		}
		res.NextSeat = m.activeSeat
		return
	}

	m.activeSeat = next
	res.NextSeat = next
}

// nextUnfinished returns the first seat clockwise after from that still
// holds cards.
func (m *Match) nextUnfinished(from int) int {
	for i := 1; i <= NumSeats; i++ {
		s := (from + i) % NumSeats
		if !m.finished[s] {
			return s
		}
	}
	return from
}

// allOthersPassed reports whether every unfinished seat other than the last
// player has passed on the current pile. Handles the case where the last
// player finished with their play and can never be advanced to.
func (m *Match) allOthersPassed() bool {
	for s := 0; s < NumSeats; s++ {
		if s == m.field.LastPlayer || m.finished[s] {
			continue
		}
		if !m.field.Passed(s) {
			return false
		}
	}
	return true
}

func (m *Match) mustBeActive(seat int) {
	if m.phase != PhasePlaying {
		panic(fmt.Sprintf("daihinmin: submission in phase %s", m.phase))
	}
	if seat != m.activeSeat {
		panic(fmt.Sprintf("daihinmin: seat %d acted out of turn (active %d)", seat, m.activeSeat))
	}
}

func (m *Match) spadeThreeHolder() int {
	for s := 0; s < NumSeats; s++ {
		if m.hands[s].Contains(spadeThree) {
			return s
		}
	}
	return 0
}

func (m *Match) seatWithClass(c Class) (int, bool) {
	for s := 0; s < NumSeats; s++ {
		if m.cfg.Classes[s] == c {
			return s, true
		}
	}
	return 0, false
}

// Results summarizes a finished game.
type Results struct {
	FinishOrder []int
	Classes     [NumSeats]Class
	Points      [NumSeats]int
}

// Results reports finish order, the classes carried into the next game, and
// the points awarded for this one.
func (m *Match) Results() Results {
	if m.phase != PhaseScoring {
		panic(fmt.Sprintf("daihinmin: results in phase %s", m.phase))
	}
	r := Results{FinishOrder: append([]int(nil), m.finishOrder...)}
	for i, seat := range m.finishOrder {
		pos := i + 1
		r.Classes[seat] = ClassForFinish(pos)
		r.Points[seat] = PointsForFinish(pos)
	}
	return r
}

// Accessors. Hand returns a copy; mutating it does not affect the match.

func (m *Match) Phase() Phase       { return m.phase }
func (m *Match) Game() int          { return m.cfg.Game }
func (m *Match) ActiveSeat() int    { return m.activeSeat }
func (m *Match) FirstPlayer() int   { return m.firstPlayer }
func (m *Match) Turn() int          { return m.turn }
func (m *Match) GameOver() bool     { return m.phase == PhaseScoring }
func (m *Match) Field() Field       { return *m.field }
func (m *Match) Rules() Rules       { return m.cfg.Rules }
func (m *Match) Finished(seat int) bool { return m.finished[seat] }

func (m *Match) Hand(seat int) *CardSet { return m.hands[seat].Clone() }

// HandSizes returns the per-seat card counts.
func (m *Match) HandSizes() [NumSeats]int {
	var sizes [NumSeats]int
	for s := 0; s < NumSeats; s++ {
		sizes[s] = m.hands[s].Len()
	}
	return sizes
}

// FinishOrder returns the seats that have emptied their hands, in order.
func (m *Match) FinishOrder() []int {
	return append([]int(nil), m.finishOrder...)
}

// checkInvariants verifies card conservation and turn-order sanity after
// every mutation. A violation is unrecoverable engine corruption.
func (m *Match) checkInvariants() {
	total := m.discards.Len()
	for _, h := range m.hands {
		total += h.Len()
	}
	if total != DeckSize {
		m.dumpState()
		panic(fmt.Sprintf("daihinmin: card conservation violated: %d cards accounted for", total))
	}
	seen := make(map[int]bool, len(m.finishOrder))
	for _, s := range m.finishOrder {
		if seen[s] {
			m.dumpState()
			panic(fmt.Sprintf("daihinmin: seat %d finished twice", s))
		}
		seen[s] = true
	}
	if m.phase == PhasePlaying && m.finished[m.activeSeat] {
		m.dumpState()
		panic(fmt.Sprintf("daihinmin: finished seat %d is active", m.activeSeat))
	}
}

func (m *Match) dumpState() {
	m.log.Tracef("match state at violation: %s", spew.Sdump(m.hands, m.field, m.finishOrder, m.activeSeat))
}
