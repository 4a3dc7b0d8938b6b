// Package pg implements the ledger, registry and directory stores on
// PostgreSQL. It is the single component allowed to mutate balances;
// everything money-critical runs inside SERIALIZABLE transactions with row
// locks taken in sorted account-id order.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"mopesa.org/internal/ledger"
)

type Store struct {
	db *sql.DB
}

// Open connects with pool settings tuned for a request-serving workload.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle; tests use this with sqlmock.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for the readiness probe.
func (s *Store) DB() *sql.DB { return s.db }

// maxTxRetries bounds retries of serialization failures before the caller
// sees ErrConflict.
const maxTxRetries = 3

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		(pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected)
}

// mapError folds driver errors into the ledger taxonomy so nothing
// store-specific leaks past this package.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ledger.ErrUnavailable, err)
	case isSerializationFailure(err):
		return fmt.Errorf("%w: %v", ledger.ErrConflict, err)
	}
	return err
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
