// Package sqlite implements core.MemoryStore on SQLite through the pure Go
// modernc.org/sqlite driver, so conversations survive restarts without cgo.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/agentmux/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversation_turn (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT    NOT NULL,
	role            TEXT    NOT NULL,
	payload         TEXT    NOT NULL,
	created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_conversation_turn_conv ON conversation_turn (conversation_id, seq);
`

// Store persists turns as JSON rows ordered by an autoincrement sequence.
type Store struct {
	db       *sql.DB
	ownsDB   bool
	maxTurns int
}

// Options configures a Store.
type Options struct {
	// MaxTurns bounds the turns returned by Load (most recent); 0 returns all.
	MaxTurns int
}

// Open opens (creating when missing) the database at dsn and installs the schema.
// A bare file path is turned into a DSN with busy timeout and WAL pragmas.
func Open(ctx context.Context, dsn string, optFns ...func(o *Options)) (*Store, error) {
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		dsn = "file:" + dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	s, err := New(ctx, db, optFns...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s.ownsDB = true

	return s, nil
}

// New wraps an existing database handle and installs the schema.
func New(ctx context.Context, db *sql.DB, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to install schema: %w", err)
	}

	return &Store{db: db, maxTurns: opts.MaxTurns}, nil
}

// Load returns the conversation's turns in append order.
func (s *Store) Load(ctx context.Context, conversationID string) ([]core.Turn, error) {
	query := `SELECT payload FROM conversation_turn WHERE conversation_id = ? ORDER BY seq`
	args := []any{conversationID}

	if s.maxTurns > 0 {
		query = `SELECT payload FROM (
			SELECT seq, payload FROM conversation_turn WHERE conversation_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq`
		args = append(args, s.maxTurns)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load conversation %q: %w", conversationID, err)
	}
	defer rows.Close()

	var turns []core.Turn

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}

		var t core.Turn
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}

		turns = append(turns, t)
	}

	return turns, rows.Err()
}

// Append inserts turns in one transaction.
func (s *Store) Append(ctx context.Context, conversationID string, turns ...core.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO conversation_turn (conversation_id, role, payload) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range turns {
		payload, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, conversationID, string(t.Role), string(payload)); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}

	return tx.Commit()
}

// Clear deletes the conversation.
func (s *Store) Clear(ctx context.Context, conversationID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversation_turn WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("clear conversation %q: %w", conversationID, err)
	}

	return nil
}

// Close closes the database when the store opened it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}

	return s.db.Close()
}
