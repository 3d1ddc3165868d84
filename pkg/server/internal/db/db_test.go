package db

import (
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	store, err := NewDB(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer store.Close()

	start := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	id, err := store.CreateSession(start, []string{"default", "north", "east", "south", "west"})
	require.NoError(t, err)
	require.NotZero(t, id)

	require.NoError(t, store.RecordGameResult(id, 1, []int{2, 0, 4, 1, 3}, []int{4, 2, 5, 1, 3}))
	require.NoError(t, store.RecordGameResult(id, 2, []int{0, 2, 1, 4, 3}, []int{9, 6, 9, 2, 6}))
	require.NoError(t, store.FinishSession(id, start.Add(time.Minute), 2, []int{9, 6, 9, 2, 6}))

	results, err := store.GameResults(id)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Game)
	assert.Equal(t, []int{2, 0, 4, 1, 3}, results[0].FinishOrder)
	assert.Equal(t, []int{9, 6, 9, 2, 6}, results[1].Points)

	players, err := store.SessionPlayers(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "north", "east", "south", "west"}, players)
}

func TestGameResultsEmpty(t *testing.T) {
	store, err := NewDB(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer store.Close()

	id, err := store.CreateSession(time.Now(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)

	results, err := store.GameResults(id)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSessionPlayersMissing(t *testing.T) {
	store, err := NewDB(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.SessionPlayers(99)
	require.Error(t, err)
}
