package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/cognicore/metaload/pkg/metaload/internalerr"
	"github.com/cognicore/metaload/pkg/metaload/store"
)

// Options tunes the connection pool.
type Options struct {
	MaxConns int
	MaxIdle  int
}

// Store persists canonical entities in PostgreSQL
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects to dsn, checks the connection and creates the entity table
// when missing.
func Open(ctx context.Context, dsn string, opts Options, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", internalerr.ErrStoreUnavailable, err)
	}

	if opts.MaxConns > 0 {
		db.SetMaxOpenConns(opts.MaxConns)
	}
	if opts.MaxIdle > 0 {
		db.SetMaxIdleConns(opts.MaxIdle)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %v", internalerr.ErrStoreUnavailable, err)
	}

	s := New(db, logger)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing handle.
func New(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Migrate creates the entity table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS canonical_entities (
	id TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	cui TEXT NOT NULL,
	name VARCHAR(255) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (category, cui)
)`)
	if err != nil {
		return fmt.Errorf("failed to create canonical_entities: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// CountEntities counts the rows held for a category.
func (s *Store) CountEntities(ctx context.Context, category string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM canonical_entities WHERE category = $1`, category).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	return n, nil
}

// WithTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) InsertEntity(ctx context.Context, e store.Entity) (bool, error) {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO canonical_entities (id, category, cui, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (category, cui) DO NOTHING
	`, e.ID, e.Category, e.CUI, e.Name, created.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to insert entity %s: %w", e.CUI, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListEntities returns a category's entities ordered by CUI.
func (s *Store) ListEntities(ctx context.Context, category string) ([]store.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, cui, name, created_at
		FROM canonical_entities
		WHERE category = $1
		ORDER BY cui
	`, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var out []store.Entity
	for rows.Next() {
		var e store.Entity
		if err := rows.Scan(&e.ID, &e.Category, &e.CUI, &e.Name, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeCategory deletes every entity of a category.
func (s *Store) PurgeCategory(ctx context.Context, category string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM canonical_entities WHERE category = $1`, category)
	if err != nil {
		return 0, fmt.Errorf("failed to purge %s: %w", category, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	s.logger.Info("category purged", zap.String("category", category), zap.Int64("deleted", n))
	return n, nil
}
