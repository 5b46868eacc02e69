package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/metaload/pkg/metaload/internalerr"
	"github.com/cognicore/metaload/pkg/metaload/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates the
// entity table when missing.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// SQLite allows one writer; a single connection serializes category
	// runs instead of failing them with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %s: %v", internalerr.ErrStoreUnavailable, pragma, err)
		}
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return New(db), nil
}

// New wraps an open handle whose schema already exists.
func New(db *sql.DB) store.Store {
	return &sqliteStore{db: db}
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS canonical_entities (
	id TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	cui TEXT NOT NULL,
	name VARCHAR(255) NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE(category, cui)
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// CountEntities counts the rows held for a category
func (s *sqliteStore) CountEntities(ctx context.Context, category string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM canonical_entities WHERE category = ?`, category).Scan(&n)
	return n, err
}

// WithTx runs fn in a transaction
func (s *sqliteStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type sqliteTx struct {
	tx   *sql.Tx
	stmt *sql.Stmt
}

func (t *sqliteTx) InsertEntity(ctx context.Context, e store.Entity) (bool, error) {
	if t.stmt == nil {
		stmt, err := t.tx.PrepareContext(ctx, `
INSERT INTO canonical_entities (id, category, cui, name, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(category, cui) DO NOTHING;
`)
		if err != nil {
			return false, err
		}
		t.stmt = stmt
	}

	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := t.stmt.ExecContext(ctx, e.ID, e.Category, e.CUI, e.Name, created.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListEntities returns a category's entities ordered by CUI
func (s *sqliteStore) ListEntities(ctx context.Context, category string) ([]store.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, category, cui, name, created_at
FROM canonical_entities
WHERE category = ?
ORDER BY cui;
`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Entity
	for rows.Next() {
		var (
			e       store.Entity
			created string
		)
		if err := rows.Scan(&e.ID, &e.Category, &e.CUI, &e.Name, &created); err != nil {
			return nil, err
		}
		if parsed, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
			e.CreatedAt = parsed
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeCategory deletes every entity of a category
func (s *sqliteStore) PurgeCategory(ctx context.Context, category string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM canonical_entities WHERE category = ?`, category)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
