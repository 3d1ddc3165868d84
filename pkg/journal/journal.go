// Package journal records game sessions as JSONL: one JSON object per line,
// in event order, suitable for step-by-step replay.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/decred/slog"
)

// Event type discriminators, stored in each record's "type" field.
const (
	TypeSessionStart = "session_start"
	TypeGameStart    = "game_start"
	TypeExchange     = "exchange"
	TypeTurn         = "turn"
	TypeSpecial      = "special"
	TypeGameEnd      = "game_end"
	TypeSessionEnd   = "session_end"
)

// Special event names.
const (
	EventEightStop    = "eight_stop"
	EventRevolution   = "revolution"
	EventElevenBack   = "eleven_back"
	EventLock         = "lock"
	EventFieldClear   = "field_clear"
	EventPlayerFinish = "player_finish"
)

// Field-clear reasons carried in the detail of a field_clear event.
const (
	ReasonAllPassed    = "all_passed"
	ReasonSennichite   = "sennichite"
	ReasonSpade3Return = "spade3_return"
)

// Player identifies one seat in the session header.
type Player struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SessionStartRecord opens a journal.
type SessionStartRecord struct {
	Type      string   `json:"type"`
	Timestamp string   `json:"timestamp"`
	Players   []Player `json:"players"`
}

// GameStartRecord carries the dealt hands and carried-over ranks. Hands and
// ranks are keyed by decimal seat index.
type GameStartRecord struct {
	Type        string            `json:"type"`
	Game        int               `json:"game"`
	Hands       map[string]string `json:"hands"`
	Ranks       map[string]string `json:"ranks"`
	FirstPlayer int               `json:"first_player"`
}

// ExchangeEntry is one directed transfer in the exchange phase.
type ExchangeEntry struct {
	From  int    `json:"from"`
	To    int    `json:"to"`
	Cards string `json:"cards"`
}

// ExchangeRecord logs the card exchange and the hands it produced.
type ExchangeRecord struct {
	Type       string            `json:"type"`
	Game       int               `json:"game"`
	Exchanges  []ExchangeEntry   `json:"exchanges"`
	HandsAfter map[string]string `json:"hands_after"`
}

// TurnState is the rule state after a turn resolved.
type TurnState struct {
	Revolution bool `json:"revolution"`
	ElevenBack bool `json:"eleven_back"`
	Locked     bool `json:"locked"`
}

// TurnRecord logs one resolved turn: the action, the resulting field, and
// every hand after the action.
type TurnRecord struct {
	Type     string            `json:"type"`
	Game     int               `json:"game"`
	Turn     int               `json:"turn"`
	Player   int               `json:"player"`
	Action   string            `json:"action"`
	Cards    string            `json:"cards"`
	CardType string            `json:"card_type"`
	Field    string            `json:"field"`
	Hands    map[string]string `json:"hands"`
	State    TurnState         `json:"state"`
}

// SpecialRecord logs a rule event triggered by a turn.
type SpecialRecord struct {
	Type   string         `json:"type"`
	Game   int            `json:"game"`
	Turn   int            `json:"turn"`
	Event  string         `json:"event"`
	Player int            `json:"player"`
	Detail map[string]any `json:"detail,omitempty"`
}

// GameEndRecord logs a game's finish order and the ranks carried forward.
type GameEndRecord struct {
	Type        string            `json:"type"`
	Game        int               `json:"game"`
	FinishOrder []int             `json:"finish_order"`
	NewRanks    map[string]string `json:"new_ranks"`
}

// SessionEndRecord closes a journal with the final standings.
type SessionEndRecord struct {
	Type        string         `json:"type"`
	TotalGames  int            `json:"total_games"`
	FinalPoints map[string]int `json:"final_points"`
	Ranking     []int          `json:"ranking"`
}

// Writer appends records to a journal file from a single background
// goroutine, preserving submission order. Write errors are sticky: the
// first one is logged and kept, later records are dropped, and Close
// returns it.
type Writer struct {
	log   slog.Logger
	f     *os.File
	queue chan any
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
	err    error
}

// NewWriter opens (or creates) the journal at path and starts the writer
// goroutine.
func NewWriter(path string, log slog.Logger) (*Writer, error) {
	if log == nil {
		log = slog.Disabled
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	w := &Writer{
		log:   log,
		f:     f,
		queue: make(chan any, 256),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *Writer) run() {
	defer w.wg.Done()
	for rec := range w.queue {
		data, err := json.Marshal(rec)
		if err == nil {
			data = append(data, '\n')
			_, err = w.f.Write(data)
		}
		if err != nil {
			w.mu.Lock()
			if w.err == nil {
				w.err = err
				w.log.Errorf("Journal write failed: %v", err)
			}
			w.mu.Unlock()
		}
	}
}

// enqueue blocks until the record is queued. Records submitted after Close
// are dropped. A nil writer discards everything, so a session can run
// without a journal.
func (w *Writer) enqueue(rec any) {
	if w == nil {
		return
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.log.Warnf("Journal closed, dropping %T", rec)
		return
	}
	w.mu.Unlock()
	w.queue <- rec
}

// Err returns the first write error, if any.
func (w *Writer) Err() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close drains pending records, closes the file, and returns the first
// write error encountered over the writer's lifetime.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.queue)
	w.wg.Wait()

	err := w.f.Close()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	return err
}

// SessionStart writes the opening record.
func (w *Writer) SessionStart(start time.Time, players []Player) {
	w.enqueue(SessionStartRecord{
		Type:      TypeSessionStart,
		Timestamp: start.Format(time.RFC3339),
		Players:   players,
	})
}

// GameStart writes the dealt hands for a game.
func (w *Writer) GameStart(game int, hands, ranks map[string]string, firstPlayer int) {
	w.enqueue(GameStartRecord{
		Type:        TypeGameStart,
		Game:        game,
		Hands:       hands,
		Ranks:       ranks,
		FirstPlayer: firstPlayer,
	})
}

// Exchange writes the exchange-phase transfers.
func (w *Writer) Exchange(game int, entries []ExchangeEntry, handsAfter map[string]string) {
	w.enqueue(ExchangeRecord{
		Type:       TypeExchange,
		Game:       game,
		Exchanges:  entries,
		HandsAfter: handsAfter,
	})
}

// Turn writes one resolved turn. The record's Type is set here.
func (w *Writer) Turn(rec TurnRecord) {
	rec.Type = TypeTurn
	w.enqueue(rec)
}

// Special writes a rule event. A nil detail is omitted from the output.
func (w *Writer) Special(game, turn int, event string, player int, detail map[string]any) {
	w.enqueue(SpecialRecord{
		Type:   TypeSpecial,
		Game:   game,
		Turn:   turn,
		Event:  event,
		Player: player,
		Detail: detail,
	})
}

// GameEnd writes a game's results.
func (w *Writer) GameEnd(game int, finishOrder []int, newRanks map[string]string) {
	w.enqueue(GameEndRecord{
		Type:        TypeGameEnd,
		Game:        game,
		FinishOrder: finishOrder,
		NewRanks:    newRanks,
	})
}

// SessionEnd writes the closing record.
func (w *Writer) SessionEnd(totalGames int, finalPoints map[string]int, ranking []int) {
	w.enqueue(SessionEndRecord{
		Type:        TypeSessionEnd,
		TotalGames:  totalGames,
		FinalPoints: finalPoints,
		Ranking:     ranking,
	})
}

// LogFileName builds the conventional journal file name from the session
// start time and the seated player names.
func LogFileName(start time.Time, names []string) string {
	parts := make([]string, 0, len(names)+1)
	parts = append(parts, start.Format("20060102T150405"))
	for _, n := range names {
		parts = append(parts, sanitizeName(n))
	}
	return strings.Join(parts, "_") + ".jsonl"
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "player"
	}
	return b.String()
}
