// Package store provides the shared Postgres handle and the transaction
// helper the confirm pipeline needs: multiple repositories must read and
// write inside one ACID transaction or none of it commits (spec §4.2,
// §4.4.3 step 5). Grounded on the teacher's inline
// `tx, err := r.db.BeginTxx(ctx, nil); defer tx.Rollback()` pattern
// (internal/repository/ticket/postgres.go ReserveTickets), generalized
// into one reusable helper instead of being duplicated per call site.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Execer is satisfied by both *sqlx.DB and *sqlx.Tx, letting repository
// methods run unmodified against a bare connection or an open
// transaction.
type Execer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Store wraps the pooled Postgres connection.
type Store struct {
	DB *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{DB: db}
}

// Execer exposes the pooled connection as the same Execer interface a
// transaction satisfies, so callers needing "the DB, or a tx, whichever
// is open" can depend on one interface instead of reaching into the DB
// field directly.
func (s *Store) Execer() Execer {
	return s.DB
}

// WithTx runs fn inside a single transaction, committing on success and
// rolling back on any error (including a panic, which it re-panics after
// rollback). fn receives the Execer to pass into repository methods.
func (s *Store) WithTx(ctx context.Context, fn func(tx Execer) error) (err error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
