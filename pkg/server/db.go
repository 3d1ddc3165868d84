package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/uecdago/uecda-server/pkg/server/internal/db"
)

// Database defines the interface for the results store. It is optional: a
// nil Database disables recording entirely.
type Database interface {
	// CreateSession inserts a session row and returns its id
	CreateSession(startedAt time.Time, players []string) (int64, error)
	// RecordGameResult stores one game's finish order and per-seat points
	RecordGameResult(sessionID int64, game int, finishOrder, points []int) error
	// FinishSession marks a session complete with its final points
	FinishSession(sessionID int64, endedAt time.Time, totalGames int, finalPoints []int) error
	// GameResults returns the recorded games of a session
	GameResults(sessionID int64) ([]db.GameResult, error)

	// Close closes the database connection
	Close() error
}

// NewDatabase creates a new results database connection
func NewDatabase(dbPath string) (Database, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	return db.NewDB(dbPath)
}
