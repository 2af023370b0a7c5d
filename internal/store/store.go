// Package store is the SQLite-backed persistence layer: sessions, message
// fallback, append-only analysis records, pipeline status and reference vectors.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// CreatedAtLayout is fixed width so lexical order equals time order.
const CreatedAtLayout = "2006-01-02T15:04:05.000000Z"

type Store struct {
	db  *sql.DB
	now func() time.Time

	mu     sync.Mutex
	lastTS time.Time
}

// Open creates the database file (and its directory) if needed and migrates it.
func Open(dbPath string) (*Store, error) {
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// Serialise writers; sqlite allows one at a time anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			scenario_id TEXT,
			language TEXT,
			title TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS session_feedback (
			session_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			data_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			expire_at INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (session_id, created_at)
		);

		CREATE TABLE IF NOT EXISTS analysis_status (
			session_id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			execution_ref TEXT,
			error_message TEXT,
			expire_at INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS reference_vectors (
			scenario_id TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			chunk INTEGER NOT NULL,
			title TEXT,
			content TEXT NOT NULL,
			embedding BLOB NOT NULL,
			dimensions INTEGER NOT NULL,
			PRIMARY KEY (scenario_id, doc_id, chunk)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
		CREATE INDEX IF NOT EXISTS idx_feedback_type ON session_feedback(session_id, data_type);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// nextCreatedAt returns a strictly increasing creation timestamp so two
// appends for one session never collide on the primary key.
func (s *Store) nextCreatedAt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.lastTS) {
		t = s.lastTS.Add(time.Microsecond)
	}
	s.lastTS = t
	return t.Format(CreatedAtLayout)
}

func (s *Store) expiry(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return s.now().Add(ttl).Unix()
}
