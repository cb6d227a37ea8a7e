package dispatch

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/eventstore"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/phase"
	"github.com/nfl-analytics/backend/internal/store"
	"github.com/nfl-analytics/backend/pkg/logger"
)

func newTestEnv(t *testing.T) (store.Store, *eventstore.EventStore) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "dispatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.DB().Exec(`CREATE TABLE events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dynasty_id TEXT NOT NULL,
		structured_id TEXT NOT NULL,
		date DATE NOT NULL,
		kind TEXT NOT NULL,
		insertion_order INTEGER NOT NULL,
		payload_blob BLOB,
		status TEXT NOT NULL DEFAULT 'scheduled',
		result_blob BLOB,
		UNIQUE (dynasty_id, structured_id)
	)`)
	require.NoError(t, err)
	return s, eventstore.New(s)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "text"})
}

func insertEvent(t *testing.T, ctx context.Context, s store.Store, es *eventstore.EventStore, dynasty string, ev *models.Event) int64 {
	t.Helper()
	var id int64
	err := s.WithDynastyTx(ctx, dynasty, func(tx *sql.Tx) error {
		var err error
		id, err = es.Insert(ctx, tx, dynasty, ev)
		return err
	})
	require.NoError(t, err)
	ev.ID = id
	return id
}

func TestRunDate_DispatchesInPriorityOrderAndContinuesAfterFailure(t *testing.T) {
	s, es := newTestEnv(t)
	ctx := context.Background()
	date := time.Date(2025, 10, 14, 0, 0, 0, 0, time.UTC)

	m := phase.NewMachine("d1", 2025, date)
	m.State.Phase = models.PhaseRegularSeason

	insertEvent(t, ctx, s, es, "d1", &models.Event{StructuredID: "game_1", Date: date, Kind: models.EventGame, InsertionOrder: 1})
	insertEvent(t, ctx, s, es, "d1", &models.Event{StructuredID: "deadline_1", Date: date, Kind: models.EventDeadline, InsertionOrder: 2})

	d := New(s, es, testLogger())
	var order []string
	d.Register(models.EventGame, func(ctx context.Context, tx *sql.Tx, dynasty string, ev *models.Event) ([]byte, error) {
		order = append(order, "game")
		return nil, nil
	})
	d.Register(models.EventDeadline, func(ctx context.Context, tx *sql.Tx, dynasty string, ev *models.Event) ([]byte, error) {
		order = append(order, "deadline")
		return nil, engineerr.New(engineerr.KindInvalidTx, "boom")
	})

	outcomes, err := d.RunDate(ctx, m, date)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, []string{"deadline", "game"}, order, "deadline events dispatch before game events")

	byKind := map[models.EventKind]Outcome{}
	for _, o := range outcomes {
		byKind[o.Event.Kind] = o
	}
	assert.Equal(t, models.EventFailed, byKind[models.EventDeadline].Status)
	assert.Equal(t, models.EventExecuted, byKind[models.EventGame].Status, "a prior failure must not block subsequent events the same day")
}

func TestRunDate_PhaseViolationFailsEventWithoutHandler(t *testing.T) {
	s, es := newTestEnv(t)
	ctx := context.Background()
	date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	m := phase.NewMachine("d2", 2025, date)
	m.State.Phase = models.PhaseOffseason // GAME not permitted here

	insertEvent(t, ctx, s, es, "d2", &models.Event{StructuredID: "game_1", Date: date, Kind: models.EventGame, InsertionOrder: 1})

	d := New(s, es, testLogger())
	d.Register(models.EventGame, func(ctx context.Context, tx *sql.Tx, dynasty string, ev *models.Event) ([]byte, error) {
		return nil, nil
	})

	outcomes, err := d.RunDate(ctx, m, date)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.EventFailed, outcomes[0].Status)
	assert.Error(t, outcomes[0].Err)
}

func TestRunDate_HandlerFailureRollsBackItsOwnWrites(t *testing.T) {
	s, es := newTestEnv(t)
	ctx := context.Background()
	date := time.Date(2025, 10, 14, 0, 0, 0, 0, time.UTC)

	_, err := s.DB().Exec(`CREATE TABLE side_effects (id INTEGER PRIMARY KEY AUTOINCREMENT, dynasty_id TEXT)`)
	require.NoError(t, err)

	m := phase.NewMachine("d3", 2025, date)
	m.State.Phase = models.PhaseRegularSeason

	insertEvent(t, ctx, s, es, "d3", &models.Event{StructuredID: "game_1", Date: date, Kind: models.EventGame, InsertionOrder: 1})

	d := New(s, es, testLogger())
	d.Register(models.EventGame, func(ctx context.Context, tx *sql.Tx, dynasty string, ev *models.Event) ([]byte, error) {
		if _, err := tx.Exec(`INSERT INTO side_effects (dynasty_id) VALUES (?)`, dynasty); err != nil {
			return nil, err
		}
		return nil, engineerr.New(engineerr.KindSimulatorFailed, "sim crashed")
	})

	outcomes, err := d.RunDate(ctx, m, date)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.EventFailed, outcomes[0].Status)

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM side_effects`).Scan(&count))
	assert.Equal(t, 0, count, "a failed handler's writes must roll back along with the status update")
}
