package etl

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrNoSyncState indicates no previous sync has been recorded.
var ErrNoSyncState = errors.New("no sync state recorded")

// SyncState persists the last successful sync timestamp in a plain text
// file so incremental pulls survive restarts.
type SyncState struct {
	path string
}

// NewSyncState creates a SyncState backed by the given file path.
func NewSyncState(path string) *SyncState {
	return &SyncState{path: path}
}

// Last reads the last sync timestamp. Returns ErrNoSyncState when the
// file does not exist (first run).
func (s *SyncState) Last() (time.Time, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, ErrNoSyncState
		}
		return time.Time{}, fmt.Errorf("read sync state: %w", err)
	}

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse sync state %s: %w", s.path, err)
	}
	return t, nil
}

// Record writes the timestamp of a successful sync.
func (s *SyncState) Record(t time.Time) error {
	if err := os.WriteFile(s.path, []byte(t.UTC().Format(time.RFC3339)), 0o644); err != nil {
		return fmt.Errorf("write sync state: %w", err)
	}
	return nil
}
