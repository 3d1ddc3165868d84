package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/decred/slog"

	"github.com/uecdago/uecda-server/pkg/daihinmin"
	"github.com/uecdago/uecda-server/pkg/journal"
	"github.com/uecdago/uecda-server/pkg/logging"
	"github.com/uecdago/uecda-server/pkg/protocol"
	"github.com/uecdago/uecda-server/pkg/statemachine"
)

// writeTimeout bounds every frame send. Clients that stop draining their
// socket are a transport failure, not a slow turn.
const writeTimeout = 10 * time.Second

// sessionParams collects the pieces a session is assembled from.
type sessionParams struct {
	cfg   Config
	seats [daihinmin.NumSeats]*seat
	rng   *rand.Rand
	jw    *journal.Writer
	db    Database
	start time.Time
	lb    *logging.LogBackend
}

// Session drives one complete sitting: deal, exchange, the turn loop,
// scoring, and the next game until the configured count is played. All seat
// I/O is serialized here; exactly one seat is ever deciding.
type Session struct {
	cfg   Config
	log   slog.Logger
	wire  slog.Logger
	dblog slog.Logger

	seats [daihinmin.NumSeats]*seat
	rng   *rand.Rand
	jw    *journal.Writer
	db    Database

	start     time.Time
	dbSession int64

	match   *daihinmin.Match
	classes [daihinmin.NumSeats]daihinmin.Class
	points  [daihinmin.NumSeats]int
	game    int

	ctx context.Context
	err error
}

func newSession(p sessionParams) *Session {
	lb := p.lb
	if lb == nil {
		lb = &logging.LogBackend{}
	}
	return &Session{
		cfg:     p.cfg,
		log:     lb.Logger("GAME"),
		wire:    lb.Logger("PROT"),
		dblog:   lb.Logger("DB"),
		seats:   p.seats,
		rng:     p.rng,
		jw:      p.jw,
		db:      p.db,
		start:   p.start,
		classes: daihinmin.DefaultClasses(),
	}
}

// Run executes the session state machine to completion and returns the
// first fatal error. Engine panics are converted into a session error so
// the host binary can exit nonzero instead of crashing mid-write.
func (s *Session) Run(ctx context.Context) (err error) {
	s.ctx = ctx
	defer func() {
		if r := recover(); r != nil {
			s.log.Criticalf("Session panic: %v", r)
			err = fmt.Errorf("session aborted: %v", r)
		}
	}()

	statemachine.New(s, stateStarting).Run()
	return s.err
}

// fail records the first fatal error; the current state returns nil to
// stop the machine.
func (s *Session) fail(err error) {
	s.log.Errorf("Session failed: %v", err)
	if s.err == nil {
		s.err = err
	}
}

func stateStarting(s *Session) statemachine.StateFn[Session] {
	players := make([]journal.Player, daihinmin.NumSeats)
	names := make([]string, daihinmin.NumSeats)
	for i, st := range s.seats {
		players[i] = journal.Player{ID: st.id, Name: st.name}
		names[i] = st.name
	}
	s.jw.SessionStart(s.start, players)

	if s.db != nil {
		id, err := s.db.CreateSession(s.start, names)
		if err != nil {
			// The store is optional; play on without it.
			s.dblog.Errorf("Failed to create session record: %v", err)
			s.db = nil
		} else {
			s.dbSession = id
			s.dblog.Debugf("Recording results as session %d", id)
		}
	}

	s.log.Infof("Session of %d games: %s", s.cfg.Game.NumGames, strings.Join(names, ", "))
	return stateDealing
}

func stateDealing(s *Session) statemachine.StateFn[Session] {
	if err := s.ctx.Err(); err != nil {
		s.fail(err)
		return nil
	}

	s.game++
	s.match = daihinmin.NewMatch(daihinmin.MatchConfig{
		Game:       s.game,
		TotalGames: s.cfg.Game.NumGames,
		Rules:      s.cfg.Rules,
		Classes:    s.classes,
		Rng:        s.rng,
		Log:        s.log,
	})
	s.match.Deal()

	s.log.Infof("Game %d/%d: seat %d leads", s.game, s.cfg.Game.NumGames, s.match.FirstPlayer())
	if s.cfg.Logging.ShowHands {
		for id := 0; id < daihinmin.NumSeats; id++ {
			s.log.Infof("Seat %d hand: %s", id, daihinmin.FormatCards(s.match.Hand(id).Cards()))
		}
	}

	s.jw.GameStart(s.game, s.handsSnapshot(), s.ranksSnapshot(), s.match.FirstPlayer())

	// Every seat sees its deal before any exchange or turn.
	if !s.sendHandInfo() {
		return nil
	}

	if s.match.Phase() == daihinmin.PhaseExchanging {
		return stateExchanging
	}
	return statePlaying
}

func stateExchanging(s *Session) statemachine.StateFn[Session] {
	moves := s.match.RunExchange()

	entries := make([]journal.ExchangeEntry, len(moves))
	for i, m := range moves {
		entries[i] = journal.ExchangeEntry{
			From:  m.From,
			To:    m.To,
			Cards: daihinmin.FormatCards(m.Cards),
		}
		s.log.Infof("Exchange: seat %d gives %s to seat %d",
			m.From, daihinmin.FormatCards(m.Cards), m.To)
	}
	s.jw.Exchange(s.game, entries, s.handsSnapshot())

	if !s.sendHandInfo() {
		return nil
	}
	return statePlaying
}

// statePlaying runs exactly one turn per step: query the active seat, read
// its reply, apply it, journal, broadcast.
func statePlaying(s *Session) statemachine.StateFn[Session] {
	if err := s.ctx.Err(); err != nil {
		s.fail(err)
		return nil
	}

	active := s.match.ActiveSeat()
	hand := s.match.Hand(active).Cards()
	before := s.match.Field()

	query := protocol.NewQuery(s.frameState(), hand)
	if err := s.seats[active].conn.WriteTable(query, deadline(writeTimeout)); err != nil {
		s.fail(fmt.Errorf("seat %d query failed: %w", active, err))
		return nil
	}
	s.wire.Tracef("Seat %d queried on turn %d", active, s.match.Turn()+1)

	var cards []daihinmin.Card
	reply, err := s.seats[active].conn.ReadTable(deadline(s.cfg.Game.TurnTimeoutDuration()))
	switch {
	case err == nil:
		cards = reply.MarkedCards()
	case isTimeout(err):
		s.log.Warnf("Seat %d took over %s to answer, forcing a pass",
			active, s.cfg.Game.TurnTimeoutDuration())
	default:
		s.fail(fmt.Errorf("seat %d read failed: %w", active, err))
		return nil
	}

	var res daihinmin.TurnResult
	if len(cards) == 0 {
		res = s.match.Pass(active)
	} else {
		res, err = s.match.Submit(active, cards)
		if err != nil {
			s.log.Debugf("Seat %d illegal play %s: %v, forcing a pass",
				active, daihinmin.FormatCards(cards), err)
			res = s.match.Pass(active)
		}
	}

	s.journalTurn(res, before)

	st := s.frameState()
	st.EightCut = res.Effects.EightCut
	if !s.sendAll(protocol.NewBroadcast(st, s.match.Field().LastPlay.Cards)) {
		return nil
	}

	if res.GameOver {
		return stateScoring
	}
	return statePlaying
}

func stateScoring(s *Session) statemachine.StateFn[Session] {
	results := s.match.Results()
	s.classes = results.Classes
	for i := 0; i < daihinmin.NumSeats; i++ {
		s.points[i] += results.Points[i]
	}

	s.jw.GameEnd(s.game, results.FinishOrder, s.ranksSnapshot())
	s.log.Infof("Game %d finished: order %v, cumulative points %v",
		s.game, results.FinishOrder, s.points)

	if s.db != nil {
		if err := s.db.RecordGameResult(s.dbSession, s.game, results.FinishOrder, results.Points[:]); err != nil {
			s.dblog.Errorf("Failed to record game %d: %v", s.game, err)
		}
	}

	// Standings broadcast with the new classes and cumulative points.
	if !s.sendAll(protocol.NewBroadcast(s.frameState(), nil)) {
		return nil
	}

	if s.game < s.cfg.Game.NumGames {
		return stateDealing
	}
	return stateFinishing
}

func stateFinishing(s *Session) statemachine.StateFn[Session] {
	finalPoints := make(map[string]int, daihinmin.NumSeats)
	for i, p := range s.points {
		finalPoints[strconv.Itoa(i)] = p
	}
	s.jw.SessionEnd(s.game, finalPoints, s.ranking())

	if s.db != nil {
		if err := s.db.FinishSession(s.dbSession, time.Now(), s.game, s.points[:]); err != nil {
			s.dblog.Errorf("Failed to close session record: %v", err)
		}
	}

	// The last frame raises the end-of-session flag so clients disconnect
	// cleanly.
	st := s.frameState()
	st.SessionEnd = true
	if !s.sendAll(protocol.NewBroadcast(st, nil)) {
		return nil
	}

	s.log.Infof("Session complete after %d games: points %v, ranking %v",
		s.game, s.points, s.ranking())
	return nil
}

// journalTurn writes one turn's records in the order a reader replays them:
// rule effects, the turn itself, then finishes and clears.
func (s *Session) journalTurn(res daihinmin.TurnResult, before daihinmin.Field) {
	after := s.match.Field()

	if res.Effects.EightCut {
		s.jw.Special(s.game, res.Turn, journal.EventEightStop, res.Seat, nil)
	}
	if res.Effects.Revolution {
		s.jw.Special(s.game, res.Turn, journal.EventRevolution, res.Seat,
			map[string]any{"is_revolution": after.Revolution})
	}
	if res.Effects.ElevenBack {
		s.jw.Special(s.game, res.Turn, journal.EventElevenBack, res.Seat,
			map[string]any{"is_eleven_back": true})
	}
	if res.Effects.LockArmed {
		s.jw.Special(s.game, res.Turn, journal.EventLock, res.Seat, nil)
	}

	rec := journal.TurnRecord{
		Game:   s.game,
		Turn:   res.Turn,
		Player: res.Seat,
		Action: string(res.Action),
		Hands:  s.handsSnapshot(),
	}
	if res.Action == daihinmin.ActionPlay {
		rec.Cards = daihinmin.FormatCards(res.Play.Cards)
		rec.CardType = res.Play.Shape.String()
		// The pile after the play but before any pass-around clear: the
		// played cards, unless the play's own effects already cleared it.
		if !res.Effects.FieldCleared {
			rec.Field = rec.Cards
		}
		rec.State = journal.TurnState{
			Revolution: after.Revolution,
			ElevenBack: (before.ElevenBack || res.Effects.ElevenBack) && !res.Effects.FieldCleared,
			Locked:     (before.Locked() || res.Effects.LockArmed) && !res.Effects.FieldCleared,
		}
	} else {
		rec.CardType = daihinmin.ShapePass.String()
		rec.Field = daihinmin.FormatCards(before.LastPlay.Cards)
		rec.State = journal.TurnState{
			Revolution: before.Revolution,
			ElevenBack: before.ElevenBack,
			Locked:     before.Locked(),
		}
	}
	s.jw.Turn(rec)

	if res.Finished {
		s.jw.Special(s.game, res.Turn, journal.EventPlayerFinish, res.Seat,
			map[string]any{"position": res.FinishPos})
		s.log.Infof("Seat %d finished in position %d", res.Seat, res.FinishPos)
	}

	if reason := clearReason(res); reason != "" && !res.GameOver {
		s.jw.Special(s.game, res.Turn, journal.EventFieldClear, res.NextSeat,
			map[string]any{"reason": reason})
	}
}

func clearReason(res daihinmin.TurnResult) string {
	switch {
	case res.Sennichite:
		return journal.ReasonSennichite
	case res.Effects.SpadeThree:
		return journal.ReasonSpade3Return
	case res.PassedAround:
		return journal.ReasonAllPassed
	}
	return ""
}

// frameState snapshots the match for the row-0 metadata cells.
func (s *Session) frameState() protocol.State {
	f := s.match.Field()
	st := protocol.State{
		Turn:       s.match.Turn(),
		ActiveSeat: s.match.ActiveSeat(),
		TrickStart: f.Empty(),
		Revolution: f.Revolution,
		ElevenBack: f.ElevenBack,
		Locked:     f.LockedSuits,
		GameNumber: s.game,
		TotalGames: s.cfg.Game.NumGames,
		Counts:     s.match.HandSizes(),
		Points:     s.points,
		Classes:    s.classes,
	}
	for i := 0; i < daihinmin.NumSeats; i++ {
		st.Finished[i] = s.match.Finished(i)
	}
	return st
}

// sendHandInfo sends each seat its own hand, seat 0 first.
func (s *Session) sendHandInfo() bool {
	st := s.frameState()
	for id := 0; id < daihinmin.NumSeats; id++ {
		tab := protocol.NewHandInfo(st, s.match.Hand(id).Cards())
		if err := s.seats[id].conn.WriteTable(tab, deadline(writeTimeout)); err != nil {
			s.fail(fmt.Errorf("seat %d hand snapshot failed: %w", id, err))
			return false
		}
	}
	s.wire.Debugf("Hand snapshots sent for game %d", s.game)
	return true
}

// sendAll writes one frame to every seat in seat order, completing only
// when all five writes return.
func (s *Session) sendAll(tab protocol.Table) bool {
	for id := 0; id < daihinmin.NumSeats; id++ {
		if err := s.seats[id].conn.WriteTable(tab, deadline(writeTimeout)); err != nil {
			s.fail(fmt.Errorf("seat %d broadcast failed: %w", id, err))
			return false
		}
	}
	return true
}

func (s *Session) handsSnapshot() map[string]string {
	hands := make(map[string]string, daihinmin.NumSeats)
	for id := 0; id < daihinmin.NumSeats; id++ {
		hands[strconv.Itoa(id)] = daihinmin.FormatCards(s.match.Hand(id).Cards())
	}
	return hands
}

func (s *Session) ranksSnapshot() map[string]string {
	ranks := make(map[string]string, daihinmin.NumSeats)
	for id, c := range s.classes {
		ranks[strconv.Itoa(id)] = c.String()
	}
	return ranks
}

// ranking orders seats by cumulative points, best first; ties keep seat
// order.
func (s *Session) ranking() []int {
	order := make([]int, daihinmin.NumSeats)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.points[order[a]] > s.points[order[b]]
	})
	return order
}

func deadline(d time.Duration) time.Time {
	return time.Now().Add(d)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
