// Package audit persists the append-only conversation audit trail: one
// record per document-retrieval turn, keyed by the provider's external
// message id.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"billbot/internal/domain"
	"billbot/internal/gateway"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.AuditStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_entries (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id  TEXT NOT NULL,
		account_id  TEXT,
		legal_id    TEXT,
		transcript  TEXT NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_audit_message ON audit_entries(message_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append writes one record. It never overwrites: the same message id appends
// a second row, preserving the full reprocessing history.
func (s *SQLiteStore) Append(ctx context.Context, e domain.AuditEntry) error {
	transcript, err := json.Marshal(e.Transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_entries (message_id, account_id, legal_id, transcript, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.MessageID, e.AccountID, e.LegalID, string(transcript), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit append %s: %w", e.MessageID, mapStale(err))
	}
	return nil
}

// GetByMessageID returns every record written for an external message id, in
// insertion order.
func (s *SQLiteStore) GetByMessageID(ctx context.Context, messageID string) ([]domain.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message_id, account_id, legal_id, transcript, created_at
		 FROM audit_entries WHERE message_id = ? ORDER BY id`, messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("audit read %s: %w", messageID, mapStale(err))
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			e   domain.AuditEntry
			raw string
		)
		if err := rows.Scan(&e.ID, &e.MessageID, &e.AccountID, &e.LegalID, &raw, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &e.Transcript); err != nil {
			s.logger.Warn("audit transcript corrupt", "id", e.ID, "err", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// mapStale marks the SQLite schema-changed condition as the retryable
// stale-statement error so the resilient caller re-prepares by retrying.
func mapStale(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "schema has changed") {
		return fmt.Errorf("%w: %v", gateway.ErrStaleStatement, err)
	}
	return err
}
