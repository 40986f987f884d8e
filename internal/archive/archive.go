// Package archive persists finished turn transcripts to SQLite so past runs
// can be listed and reloaded after the process exits.
package archive

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"agentwire/internal/logging"
	"agentwire/internal/transcript"
)

// ErrTurnNotFound is returned when a turn id is not in the archive.
var ErrTurnNotFound = errors.New("turn not found")

// TurnSummary is one row of the history listing.
type TurnSummary struct {
	ID        string
	State     transcript.State
	TextBytes int
	CallCount int
	CreatedAt time.Time
}

// Store is a SQLite-backed turn archive.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the archive database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	// Same pragmas the rest of the tooling relies on for concurrent access.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.ArchiveDebug("failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.ArchiveDebug("failed to set journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.ArchiveDebug("failed to set synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Archive("opened archive at %s", path)
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id         TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	text       TEXT NOT NULL,
	tool_calls TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_created_at ON turns(created_at DESC);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate archive schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a finished transcript snapshot. Saving the same turn id twice
// replaces the earlier row (a retried save after a crash is not an error).
func (s *Store) Save(snap transcript.Snapshot) error {
	calls, err := json.Marshal(snap.Calls)
	if err != nil {
		return fmt.Errorf("failed to encode tool calls: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO turns (id, state, text, tool_calls, created_at) VALUES (?, ?, ?, ?, ?)`,
		snap.TurnID, string(snap.State), snap.Text, string(calls), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}

	logging.Archive("saved turn %s (%s, %d calls)", snap.TurnID, snap.State, len(snap.Calls))
	return nil
}

// List returns the most recent turns, newest first.
func (s *Store) List(limit int) ([]TurnSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, state, length(text), tool_calls, created_at FROM turns ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var out []TurnSummary
	for rows.Next() {
		var (
			sum       TurnSummary
			state     string
			callsJSON string
			createdMs int64
		)
		if err := rows.Scan(&sum.ID, &state, &sum.TextBytes, &callsJSON, &createdMs); err != nil {
			return nil, fmt.Errorf("failed to scan turn row: %w", err)
		}
		sum.State = transcript.State(state)
		sum.CreatedAt = time.UnixMilli(createdMs)

		var calls []transcript.ToolCallRecord
		if err := json.Unmarshal([]byte(callsJSON), &calls); err == nil {
			sum.CallCount = len(calls)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Load returns the full snapshot for a turn id.
func (s *Store) Load(id string) (transcript.Snapshot, error) {
	var (
		snap      transcript.Snapshot
		state     string
		callsJSON string
	)
	err := s.db.QueryRow(
		`SELECT id, state, text, tool_calls FROM turns WHERE id = ?`, id,
	).Scan(&snap.TurnID, &state, &snap.Text, &callsJSON)
	if err == sql.ErrNoRows {
		return transcript.Snapshot{}, ErrTurnNotFound
	}
	if err != nil {
		return transcript.Snapshot{}, fmt.Errorf("failed to load turn: %w", err)
	}

	snap.State = transcript.State(state)
	if err := json.Unmarshal([]byte(callsJSON), &snap.Calls); err != nil {
		return transcript.Snapshot{}, fmt.Errorf("failed to decode tool calls: %w", err)
	}
	return snap, nil
}
