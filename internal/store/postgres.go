package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresConfig mirrors the teacher's database.Config shape (§2 of
// SPEC_FULL.md): Host/Port/User/Password/DBName/SSLMode fields assembled
// into a libpq DSN.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Postgres is the server-deployment Store driver, grounded directly on the
// teacher's internal/database/postgres.go PostgresDB: same DSN assembly and
// pool-limit defaults, generalized to satisfy the Store interface and add
// dynasty-scoped write serialization via advisory locks.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens the pool, applies the teacher's pool-limit defaults
// (25 open / 5 idle / 30 minute max lifetime), and pings to verify
// connectivity before returning.
func NewPostgres(cfg PostgresConfig) (*Postgres, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}

	return &Postgres{db: db}, nil
}

func (p *Postgres) DB() *sql.DB { return p.db }
func (p *Postgres) Driver() string { return "postgres" }
func (p *Postgres) Close() error { return p.db.Close() }

// Health runs the teacher's `SELECT 1` liveness probe.
func (p *Postgres) Health(ctx context.Context) error {
	var one int
	return p.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// WithDynastyTx opens a transaction and immediately takes a transaction-
// scoped Postgres advisory lock keyed on the dynasty id's hash, so two
// concurrent callers touching the same dynasty serialize at the database
// rather than racing on the row set (§5). The lock releases automatically
// at commit/rollback.
func (p *Postgres) WithDynastyTx(ctx context.Context, dynasty string, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapTxError(fmt.Errorf("begin tx: %w", err))
	}

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", dynasty); err != nil {
		rollback(tx)
		return wrapTxError(fmt.Errorf("acquire dynasty lock: %w", err))
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
