package server

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uecdago/uecda-server/pkg/daihinmin"
	"github.com/uecdago/uecda-server/pkg/journal"
	"github.com/uecdago/uecda-server/pkg/logging"
	"github.com/uecdago/uecda-server/pkg/protocol"
)

// strategy produces the cards a scripted seat marks in answer to a query.
// nil means pass.
type strategy func(q protocol.Table) []daihinmin.Card

// leadLowest plays the weakest card on an empty field and passes otherwise.
// Every play it makes is legal, so a session driven by it always finishes.
func leadLowest(q protocol.Table) []daihinmin.Card {
	if q[protocol.RowMeta][protocol.ColTrickStart] != 1 {
		return nil
	}
	hand := q.Cards()
	if len(hand) == 0 {
		return nil
	}
	return hand[:1]
}

// illegalFollow leads like leadLowest but answers every follow with two
// mismatched ranks, an invalid shape the coordinator must convert to a pass.
func illegalFollow(q protocol.Table) []daihinmin.Card {
	hand := q.Cards()
	if q[protocol.RowMeta][protocol.ColTrickStart] == 1 {
		if len(hand) == 0 {
			return nil
		}
		return hand[:1]
	}
	for i := 0; i < len(hand); i++ {
		for j := i + 1; j < len(hand); j++ {
			if !hand[i].IsJoker() && !hand[j].IsJoker() && hand[i].Rank() != hand[j].Rank() {
				return []daihinmin.Card{hand[i], hand[j]}
			}
		}
	}
	return nil
}

// scriptedSeat is an in-memory endpoint. The session writes frames into it
// and reads back whatever its strategy marks on the latest query.
type scriptedSeat struct {
	strategy strategy
	frames   []protocol.Table
	pending  *protocol.Table
	readErrs []error
	closed   bool
}

func (f *scriptedSeat) WriteTable(t protocol.Table, _ time.Time) error {
	f.frames = append(f.frames, t)
	if t[protocol.RowMeta][protocol.ColYourTurn] == 1 {
		q := t
		f.pending = &q
	}
	return nil
}

func (f *scriptedSeat) ReadTable(_ time.Time) (protocol.Table, error) {
	if len(f.readErrs) > 0 {
		err := f.readErrs[0]
		f.readErrs = f.readErrs[1:]
		return protocol.Table{}, err
	}
	if f.pending == nil {
		return protocol.Table{}, fmt.Errorf("read without a pending query")
	}
	q := *f.pending
	f.pending = nil

	var resp protocol.Table
	for _, c := range f.strategy(q) {
		resp.Mark(c)
	}
	return resp, nil
}

func (f *scriptedSeat) Close() error {
	f.closed = true
	return nil
}

// timeoutErr satisfies net.Error with Timeout() true.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func quietBackend(t *testing.T) *logging.LogBackend {
	lb, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:    filepath.Join(t.TempDir(), "test.log"),
		DebugLevel: "warn",
	})
	require.NoError(t, err)
	t.Cleanup(func() { lb.Close() })
	return lb
}

func tempJournal(t *testing.T) (*journal.Writer, string) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	jw, err := journal.NewWriter(path, nil)
	require.NoError(t, err)
	return jw, path
}

func newTestSession(t *testing.T, games int, jw *journal.Writer, db Database) (*Session, [daihinmin.NumSeats]*scriptedSeat) {
	cfg := DefaultConfig()
	cfg.Game.NumGames = games

	var fakes [daihinmin.NumSeats]*scriptedSeat
	var seats [daihinmin.NumSeats]*seat
	for i := range fakes {
		fakes[i] = &scriptedSeat{strategy: leadLowest}
		seats[i] = &seat{id: i, name: fmt.Sprintf("bot%d", i), conn: fakes[i]}
	}

	sess := newSession(sessionParams{
		cfg:   cfg,
		seats: seats,
		rng:   rand.New(rand.NewSource(42)),
		jw:    jw,
		db:    db,
		start: time.Now(),
		lb:    quietBackend(t),
	})
	return sess, fakes
}

func countTurns(g *journal.Game, player int, action string) int {
	n := 0
	for _, ev := range g.Events {
		if tr, ok := ev.(*journal.TurnRecord); ok && tr.Player == player && tr.Action == action {
			n++
		}
	}
	return n
}

func TestSessionSingleGame(t *testing.T) {
	jw, path := tempJournal(t)
	sess, fakes := newTestSession(t, 1, jw, nil)

	require.NoError(t, sess.Run(context.Background()))
	require.NoError(t, jw.Close())

	rec, err := journal.ReadSessionFile(path)
	require.NoError(t, err)
	require.NotNil(t, rec.Start)
	require.Len(t, rec.Games, 1)

	g := rec.Games[0]
	require.NotNil(t, g.Start)
	assert.Nil(t, g.Exchange)
	require.NotNil(t, g.End)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, g.End.FinishOrder)

	require.NotNil(t, rec.End)
	assert.Equal(t, 1, rec.End.TotalGames)
	// One game awards 5+4+3+2+1 points.
	total := 0
	for _, p := range rec.End.FinalPoints {
		total += p
	}
	assert.Equal(t, 15, total)

	// Every seat saw the end-of-session flag in its final frame.
	for i, f := range fakes {
		require.NotEmpty(t, f.frames, "seat %d received no frames", i)
		last := f.frames[len(f.frames)-1]
		assert.Equal(t, int32(1), last[protocol.RowMeta][protocol.ColSessionEnd], "seat %d", i)
	}
}

func TestSessionTwoGamesWithExchange(t *testing.T) {
	jw, path := tempJournal(t)
	sess, _ := newTestSession(t, 2, jw, nil)

	require.NoError(t, sess.Run(context.Background()))
	require.NoError(t, jw.Close())

	rec, err := journal.ReadSessionFile(path)
	require.NoError(t, err)
	require.Len(t, rec.Games, 2)

	assert.Nil(t, rec.Games[0].Exchange)
	require.NotNil(t, rec.Games[1].Exchange)
	// Four classed seats trade after game one.
	assert.Len(t, rec.Games[1].Exchange.Exchanges, 4)

	require.NotNil(t, rec.End)
	assert.Equal(t, 2, rec.End.TotalGames)
	total := 0
	for _, p := range rec.End.FinalPoints {
		total += p
	}
	assert.Equal(t, 30, total)
}

func TestSessionTimeoutForcesPass(t *testing.T) {
	jw, path := tempJournal(t)
	sess, fakes := newTestSession(t, 1, jw, nil)
	fakes[3].readErrs = []error{timeoutErr{}}

	require.NoError(t, sess.Run(context.Background()))
	require.NoError(t, jw.Close())

	rec, err := journal.ReadSessionFile(path)
	require.NoError(t, err)
	require.Len(t, rec.Games, 1)
	require.NotNil(t, rec.Games[0].End)
	assert.Greater(t, countTurns(rec.Games[0], 3, "pass"), 0)
}

func TestSessionTransportErrorAborts(t *testing.T) {
	jw, path := tempJournal(t)
	sess, fakes := newTestSession(t, 1, jw, nil)
	fakes[2].readErrs = []error{io.ErrClosedPipe}

	require.Error(t, sess.Run(context.Background()))
	require.NoError(t, jw.Close())

	// The aborted game never reaches its game_end record.
	rec, err := journal.ReadSessionFile(path)
	require.NoError(t, err)
	require.Len(t, rec.Games, 1)
	assert.Nil(t, rec.Games[0].End)
	assert.Nil(t, rec.End)
}

func TestSessionIllegalPlayForcedPass(t *testing.T) {
	jw, path := tempJournal(t)
	sess, fakes := newTestSession(t, 1, jw, nil)
	for _, f := range fakes {
		f.strategy = illegalFollow
	}

	require.NoError(t, sess.Run(context.Background()))
	require.NoError(t, jw.Close())

	rec, err := journal.ReadSessionFile(path)
	require.NoError(t, err)
	require.NotNil(t, rec.Games[0].End)

	// Marked-but-invalid follows are journaled as passes, so the only plays
	// that land are the single-card leads.
	passes := 0
	for _, ev := range rec.Games[0].Events {
		tr, ok := ev.(*journal.TurnRecord)
		if !ok {
			continue
		}
		switch tr.Action {
		case "play":
			assert.Equal(t, "single", tr.CardType)
		case "pass":
			passes++
		}
	}
	assert.Greater(t, passes, 0)
}

func TestSessionCanceledContext(t *testing.T) {
	jw, _ := tempJournal(t)
	sess, _ := newTestSession(t, 1, jw, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sess.Run(ctx), context.Canceled)
	require.NoError(t, jw.Close())
}

func TestSessionRecordsResults(t *testing.T) {
	store, err := NewDatabase(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer store.Close()

	jw, _ := tempJournal(t)
	sess, _ := newTestSession(t, 2, jw, store)

	require.NoError(t, sess.Run(context.Background()))
	require.NoError(t, jw.Close())

	results, err := store.GameResults(sess.dbSession)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Game)
	assert.Equal(t, 2, results[1].Game)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, results[0].FinishOrder)
	// Per-game points are the 5..1 awards in seat order.
	assert.ElementsMatch(t, []int{5, 4, 3, 2, 1}, results[0].Points)
}
