// Package postgres provides a PostgreSQL-backed status store for
// deployments that persist the document in a database instead of files.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notdeathm/notdeath/internal/status"
)

// Store keeps the status document as a single jsonb row and the history as
// append-only rows trimmed to status.HistoryLimit.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL status store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the backing tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS status_document (
			id INT PRIMARY KEY CHECK (id = 1),
			doc JSONB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS status_history (
			id BIGSERIAL PRIMARY KEY,
			entry JSONB NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate status tables: %w", err)
	}
	return nil
}

// Load reads the persisted document. A missing row or undecodable payload
// yields (nil, nil): callers treat it as a first run.
func (s *Store) Load(ctx context.Context) (*status.Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM status_document WHERE id = 1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, nil
	}

	var doc status.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil
	}
	return &doc, nil
}

// Save replaces the document in a single upsert; row-level atomicity gives
// readers either the old or the new complete document.
func (s *Store) Save(ctx context.Context, doc *status.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal status document: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO status_document (id, doc) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
	`, raw)
	if err != nil {
		return fmt.Errorf("save status document: %w", err)
	}
	return nil
}

// AppendHistory inserts the entry and evicts rows beyond the limit, oldest
// first.
func (s *Store) AppendHistory(ctx context.Context, entry status.HistoryEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin history append: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx, `INSERT INTO status_history (entry) VALUES ($1)`, raw); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM status_history
		WHERE id NOT IN (
			SELECT id FROM status_history ORDER BY id DESC LIMIT $1
		)
	`, status.HistoryLimit)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}

	return tx.Commit(ctx)
}

// Ensure Store implements status.Store.
var _ status.Store = (*Store)(nil)
