package core

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

type (
	DBExecutor interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	// DB is the storage handle services share. A nil DB means in-memory storage.
	DB interface {
		DBExecutor

		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
		PingContext(ctx context.Context) error
		Close() error
	}
)

// txAttempts bounds how often a transaction aborted by a concurrent one is replayed.
const txAttempts = 3

// sqlStateError is implemented by driver errors carrying a SQLSTATE code, e.g. *pq.Error.
type sqlStateError interface {
	SQLState() string
}

// IsTxConflict reports whether err aborted a transaction because of a concurrent one:
// a serialization failure or a deadlock.
func IsTxConflict(err error) bool {
	var se sqlStateError
	if !errors.As(err, &se) {
		return false
	}
	switch se.SQLState() {
	case "40001", "40P01":
		return true
	}
	return false
}

// RunInTx runs fn inside a transaction on db, committing on success.
// fn is replayed when the transaction loses against a concurrent one, so it must not
// have effects outside exec. When db is nil (in-memory storage) fn runs once with a nil executor.
func RunInTx(ctx context.Context, db DB, fn func(exec DBExecutor) error) error {
	if db == nil {
		return fn(nil)
	}
	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		if err = runTx(ctx, db, fn); !IsTxConflict(err) {
			return err
		}
	}
	return err
}

func runTx(ctx context.Context, db DB, fn func(exec DBExecutor) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	if ord.Ascending {
		return ord.Field + " ASC"
	}
	return ord.Field + " DESC"
}

// AllowedOrderings maps API field names to columns, dropping fields that are not in `fields`
// and repeated ones.
func AllowedOrderings(orderings []DBOrdering, fields map[string]string) []DBOrdering {
	allowed := make([]DBOrdering, 0, len(orderings))
	seen := make(map[string]bool, len(orderings))
	for _, ord := range orderings {
		col, ok := fields[ord.Field]
		if !ok || seen[col] {
			continue
		}
		seen[col] = true
		allowed = append(allowed, DBOrdering{Field: col, Ascending: ord.Ascending})
	}
	return allowed
}
