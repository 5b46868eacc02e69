package store

import (
	"context"
	"time"
)

// DefaultMaxNameLength matches the width of the name column.
const DefaultMaxNameLength = 255

// Store is the destination for canonical entities
type Store interface {
	Close() error

	// CountEntities reports how many entities a category already holds.
	CountEntities(ctx context.Context, category string) (int64, error)

	// WithTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back on an error or panic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	ListEntities(ctx context.Context, category string) ([]Entity, error)
	PurgeCategory(ctx context.Context, category string) (int64, error)
}

// Tx is the write side of an open transaction
type Tx interface {
	// InsertEntity adds e and reports whether a row was written. An entity
	// already present for the same category and CUI is left untouched.
	InsertEntity(ctx context.Context, e Entity) (bool, error)
}

// Entity is one persisted canonical name
type Entity struct {
	ID        string
	Category  string
	CUI       string
	Name      string
	CreatedAt time.Time
}
