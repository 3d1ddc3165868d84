package db

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DB represents the results database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary database tables
func createTables(db *sql.DB) error {
	// Create sessions table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP,
			players TEXT NOT NULL,
			total_games INTEGER NOT NULL DEFAULT 0,
			final_points TEXT
		)
	`)
	if err != nil {
		return err
	}

	// Create game_results table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS game_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL,
			game INTEGER NOT NULL,
			finish_order TEXT NOT NULL,
			points TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)
	`)
	if err != nil {
		return err
	}

	return nil
}

// GameResult is one recorded game within a session.
type GameResult struct {
	Game        int
	FinishOrder []int
	Points      []int
}

// CreateSession inserts a new session row and returns its id
func (db *DB) CreateSession(startedAt time.Time, players []string) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO sessions (started_at, players)
		VALUES (?, ?)
	`, startedAt.UTC().Format(time.RFC3339), strings.Join(players, ","))
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %v", err)
	}
	return res.LastInsertId()
}

// RecordGameResult stores one game's finish order and per-seat points
func (db *DB) RecordGameResult(sessionID int64, game int, finishOrder, points []int) error {
	_, err := db.Exec(`
		INSERT INTO game_results (session_id, game, finish_order, points)
		VALUES (?, ?, ?, ?)
	`, sessionID, game, joinInts(finishOrder), joinInts(points))
	if err != nil {
		return fmt.Errorf("failed to record game result: %v", err)
	}
	return nil
}

// FinishSession marks a session complete with its final cumulative points
func (db *DB) FinishSession(sessionID int64, endedAt time.Time, totalGames int, finalPoints []int) error {
	_, err := db.Exec(`
		UPDATE sessions
		SET ended_at = ?, total_games = ?, final_points = ?
		WHERE id = ?
	`, endedAt.UTC().Format(time.RFC3339), totalGames, joinInts(finalPoints), sessionID)
	if err != nil {
		return fmt.Errorf("failed to finish session: %v", err)
	}
	return nil
}

// GameResults returns the recorded games of a session in game order
func (db *DB) GameResults(sessionID int64) ([]GameResult, error) {
	rows, err := db.Query(`
		SELECT game, finish_order, points
		FROM game_results
		WHERE session_id = ?
		ORDER BY game
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query game results: %v", err)
	}
	defer rows.Close()

	var results []GameResult
	for rows.Next() {
		var r GameResult
		var order, points string
		if err := rows.Scan(&r.Game, &order, &points); err != nil {
			return nil, fmt.Errorf("failed to scan game result: %v", err)
		}
		if r.FinishOrder, err = splitInts(order); err != nil {
			return nil, fmt.Errorf("bad finish order %q: %v", order, err)
		}
		if r.Points, err = splitInts(points); err != nil {
			return nil, fmt.Errorf("bad points %q: %v", points, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// SessionPlayers returns the player names recorded for a session
func (db *DB) SessionPlayers(sessionID int64) ([]string, error) {
	var players string
	err := db.QueryRow("SELECT players FROM sessions WHERE id = ?", sessionID).Scan(&players)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %v", err)
	}
	return strings.Split(players, ","), nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func splitInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	vals := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
