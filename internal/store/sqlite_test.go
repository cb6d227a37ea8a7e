package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.DB().Exec(`CREATE TABLE counters (dynasty_id TEXT PRIMARY KEY, value INTEGER NOT NULL)`)
	require.NoError(t, err)
	return s
}

func TestSQLiteWithDynastyTx_CommitsOnSuccess(t *testing.T) {
	s := newTestSQLite(t)

	err := s.WithDynastyTx(context.Background(), "dynasty-a", func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO counters (dynasty_id, value) VALUES (?, 1)`, "dynasty-a")
		return err
	})
	require.NoError(t, err)

	var value int
	err = s.DB().QueryRow(`SELECT value FROM counters WHERE dynasty_id = ?`, "dynasty-a").Scan(&value)
	require.NoError(t, err)
	assert.Equal(t, 1, value)
}

func TestSQLiteWithDynastyTx_RollsBackOnError(t *testing.T) {
	s := newTestSQLite(t)

	err := s.WithDynastyTx(context.Background(), "dynasty-b", func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO counters (dynasty_id, value) VALUES (?, 1)`, "dynasty-b"); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	var value int
	err = s.DB().QueryRow(`SELECT value FROM counters WHERE dynasty_id = ?`, "dynasty-b").Scan(&value)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSQLiteWithDynastyTx_SerializesSameDynasty(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.DB().Exec(`INSERT INTO counters (dynasty_id, value) VALUES (?, 0)`, "dynasty-c")
	require.NoError(t, err)

	const increments = 20
	var wg sync.WaitGroup
	for i := 0; i < increments; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithDynastyTx(context.Background(), "dynasty-c", func(tx *sql.Tx) error {
				var current int
				if err := tx.QueryRow(`SELECT value FROM counters WHERE dynasty_id = ?`, "dynasty-c").Scan(&current); err != nil {
					return err
				}
				time.Sleep(time.Millisecond)
				_, err := tx.Exec(`UPDATE counters SET value = ? WHERE dynasty_id = ?`, current+1, "dynasty-c")
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var value int
	err = s.DB().QueryRow(`SELECT value FROM counters WHERE dynasty_id = ?`, "dynasty-c").Scan(&value)
	require.NoError(t, err)
	assert.Equal(t, increments, value, "per-dynasty mutex must serialize read-modify-write across goroutines")
}

func TestSQLiteWithDynastyTx_DifferentDynastiesDoNotBlockEachOther(t *testing.T) {
	s := newTestSQLite(t)

	var wg sync.WaitGroup
	for _, dynasty := range []string{"dynasty-d", "dynasty-e"} {
		wg.Add(1)
		go func(d string) {
			defer wg.Done()
			err := s.WithDynastyTx(context.Background(), d, func(tx *sql.Tx) error {
				_, err := tx.Exec(`INSERT INTO counters (dynasty_id, value) VALUES (?, 1)`, d)
				return err
			})
			assert.NoError(t, err)
		}(dynasty)
	}
	wg.Wait()

	var count int
	err := s.DB().QueryRow(`SELECT COUNT(*) FROM counters WHERE dynasty_id IN (?, ?)`, "dynasty-d", "dynasty-e").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLiteDriver_ReportsSqlite(t *testing.T) {
	s := newTestSQLite(t)
	assert.Equal(t, "sqlite", s.Driver())
}
