package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"signapi/internal/repository"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the PostgreSQL implementation of repository.Store.
// It uses database/sql with parameterized queries and contains no business logic.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ repository.Store = (*Store)(nil)

// InTx runs fn inside a READ COMMITTED transaction. Row locks taken through
// LockShare/LockUpdate serialize concurrent signing of the same aggregate.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, q repository.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &Queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Queries implements repository.Queries on top of a *sql.DB or *sql.Tx.
type Queries struct {
	db dbtx
}

// NewQueries returns Queries that run outside of any explicit transaction.
func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

var _ repository.Queries = (*Queries)(nil)

func lockClause(mode repository.LockMode, of string) string {
	suffix := ""
	if of != "" {
		suffix = " OF " + of
	}
	switch mode {
	case repository.LockShare:
		return " FOR SHARE" + suffix
	case repository.LockUpdate:
		return " FOR UPDATE" + suffix
	}
	return ""
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func scanJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func mustJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	return b, nil
}
