// Package store implements the dynasty-scoped Persistence Store (§4.1 of
// SPEC_FULL.md, component table row "Persistence Store" in spec.md §2).
// Every query goes through a Store handle bound to one backend; no query
// omits dynasty_id (§6).
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nfl-analytics/backend/internal/engineerr"
)

// Store is the store-agnostic contract the rest of the engine depends on.
// Two drivers implement it: Postgres (multi-dynasty server deployment) and
// SQLite (single file at a `store_path`, the CLI/demo deployment named in
// §6). Both are backed by database/sql so every repository in this module
// (eventstore, standings, cap, ...) is written once against *sql.DB/*sql.Tx
// and works unmodified against either driver.
type Store interface {
	// DB returns the underlying connection pool for read-only queries that
	// don't need dynasty write serialization.
	DB() *sql.DB

	// WithDynastyTx runs fn inside a transaction serialized per-dynasty:
	// only one WithDynastyTx call for a given dynasty id is ever inside fn
	// at a time, satisfying §5's single-writer-per-dynasty requirement.
	// On fn error the transaction is rolled back and the error returned
	// wrapped as engineerr.KindPersistenceFailed unless it already carries
	// a more specific engineerr.Kind.
	WithDynastyTx(ctx context.Context, dynasty string, fn func(tx *sql.Tx) error) error

	// Close releases the underlying connection pool.
	Close() error

	// Driver identifies the backend ("postgres" or "sqlite") so callers can
	// pick dialect-specific SQL (e.g. RETURNING vs last_insert_rowid()).
	Driver() string
}

// wrapTxError normalizes an error from inside a WithDynastyTx callback: if
// it is already a typed engineerr.Error it passes through untouched so the
// validator/phase-FSM's specific kinds survive; anything else (driver
// errors, I/O failures) becomes a PersistenceFailure, matching §7's policy
// that persistence failures are fatal and must never be silently
// downgraded to a log line.
func wrapTxError(err error) error {
	if err == nil {
		return nil
	}
	var typed *engineerr.Error
	if asEngineErr(err, &typed) {
		return err
	}
	return engineerr.Wrap(engineerr.KindPersistenceFailed, "transaction failed", err)
}

func asEngineErr(err error, target **engineerr.Error) bool {
	for err != nil {
		if e, ok := err.(*engineerr.Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// rollback rolls back tx and reports a rollback failure if the rollback
// itself errors (distinct from sql.ErrTxDone, which just means the tx was
// already committed/rolled back and is not an error here).
func rollback(tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}
