package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Session is a fully parsed journal, grouped by game for replay.
type Session struct {
	Start *SessionStartRecord
	Games []*Game
	End   *SessionEndRecord
}

// Game groups one game's records. Events holds *TurnRecord and
// *SpecialRecord values in journal order.
type Game struct {
	Start    *GameStartRecord
	Exchange *ExchangeRecord
	Events   []any
	End      *GameEndRecord
}

// ReadSessionFile parses the journal at path.
func ReadSessionFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSession(f)
}

// ReadSession parses a journal stream. Unknown record types are an error;
// a truncated final game (no game_end) is kept as-is so crashed sessions
// remain inspectable.
func ReadSession(r io.Reader) (*Session, error) {
	s := &Session{}
	var cur *Game

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, fmt.Errorf("journal line %d: %w", line, err)
		}

		switch head.Type {
		case TypeSessionStart:
			rec := &SessionStartRecord{}
			if err := json.Unmarshal(raw, rec); err != nil {
				return nil, fmt.Errorf("journal line %d: %w", line, err)
			}
			s.Start = rec
		case TypeGameStart:
			rec := &GameStartRecord{}
			if err := json.Unmarshal(raw, rec); err != nil {
				return nil, fmt.Errorf("journal line %d: %w", line, err)
			}
			cur = &Game{Start: rec}
			s.Games = append(s.Games, cur)
		case TypeExchange:
			rec := &ExchangeRecord{}
			if err := json.Unmarshal(raw, rec); err != nil {
				return nil, fmt.Errorf("journal line %d: %w", line, err)
			}
			if cur != nil {
				cur.Exchange = rec
			}
		case TypeTurn:
			rec := &TurnRecord{}
			if err := json.Unmarshal(raw, rec); err != nil {
				return nil, fmt.Errorf("journal line %d: %w", line, err)
			}
			if cur != nil {
				cur.Events = append(cur.Events, rec)
			}
		case TypeSpecial:
			rec := &SpecialRecord{}
			if err := json.Unmarshal(raw, rec); err != nil {
				return nil, fmt.Errorf("journal line %d: %w", line, err)
			}
			if cur != nil {
				cur.Events = append(cur.Events, rec)
			}
		case TypeGameEnd:
			rec := &GameEndRecord{}
			if err := json.Unmarshal(raw, rec); err != nil {
				return nil, fmt.Errorf("journal line %d: %w", line, err)
			}
			if cur != nil {
				cur.End = rec
				cur = nil
			}
		case TypeSessionEnd:
			rec := &SessionEndRecord{}
			if err := json.Unmarshal(raw, rec); err != nil {
				return nil, fmt.Errorf("journal line %d: %w", line, err)
			}
			s.End = rec
		default:
			return nil, fmt.Errorf("journal line %d: unknown record type %q", line, head.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}
