package etl

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncStateNoBaseline(t *testing.T) {
	state := NewSyncState(filepath.Join(t.TempDir(), "last_sync.txt"))

	_, err := state.Last()
	assert.ErrorIs(t, err, ErrNoSyncState)
}

func TestSyncStateRoundTrip(t *testing.T) {
	state := NewSyncState(filepath.Join(t.TempDir(), "last_sync.txt"))

	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, state.Record(at))

	last, err := state.Last()
	require.NoError(t, err)
	assert.True(t, last.Equal(at))
}

func TestSyncStateCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_sync.txt")
	writeFile(t, filepath.Dir(path), "last_sync.txt", "not a timestamp")

	state := NewSyncState(path)
	_, err := state.Last()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSyncState)
}
