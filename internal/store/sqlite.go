package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is the single-file Store driver for the `leaguectl` CLI deployment
// (§6), grounded on aristath-sentinel's internal/database/db.go: same WAL
// pragma DSN, same directory-creation-before-open, same pool limits.
type SQLite struct {
	db   *sql.DB
	path string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewSQLite opens (creating if absent) a single-file database at path,
// enabling WAL mode and foreign keys exactly as the teacher reference does.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create db dir: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}

	return &SQLite{db: db, path: path, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *SQLite) DB() *sql.DB     { return s.db }
func (s *SQLite) Driver() string  { return "sqlite" }
func (s *SQLite) Close() error    { return s.db.Close() }
func (s *SQLite) Path() string    { return s.path }

// lockFor returns the per-dynasty mutex, creating it on first use. SQLite
// itself serializes writers at the file level, but without this mutex two
// goroutines racing for the same dynasty would both block inside
// database/sql's own connection handling in an order we can't reason about
// or test; the mutex makes the serialization point explicit and matches the
// Postgres driver's advisory lock in spirit (§5).
func (s *SQLite) lockFor(dynasty string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[dynasty]
	if !ok {
		m = &sync.Mutex{}
		s.locks[dynasty] = m
	}
	return m
}

// WithDynastyTx acquires the in-process per-dynasty mutex, then runs fn in
// a database/sql transaction. The mutex is released only after commit or
// rollback completes, so a second caller for the same dynasty never
// observes a partially-applied write even under SQLite's file-level
// serialization.
func (s *SQLite) WithDynastyTx(ctx context.Context, dynasty string, fn func(tx *sql.Tx) error) error {
	lock := s.lockFor(dynasty)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapTxError(fmt.Errorf("begin tx: %w", err))
	}

	if err := fn(tx); err != nil {
		if rbErr := rollback(tx); rbErr != nil {
			return wrapTxError(fmt.Errorf("%v (rollback also failed: %v)", err, rbErr))
		}
		return wrapTxError(err)
	}

	if err := tx.Commit(); err != nil {
		return wrapTxError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}
