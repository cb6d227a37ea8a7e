package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nfl-analytics/backend/internal/dispatch"
	"github.com/nfl-analytics/backend/internal/eventstore"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/season"
	"github.com/nfl-analytics/backend/internal/standings"
	"github.com/nfl-analytics/backend/internal/store"
	"github.com/nfl-analytics/backend/pkg/logger"
)

// neverTrigger reports every completion-derived trigger as false, enough to
// exercise a plain AdvanceDay call with no phase transition.
type neverTrigger struct{}

func (neverTrigger) AllRegularGamesDone(ctx context.Context, dynasty string, season int) (bool, error) {
	return false, nil
}
func (neverTrigger) SuperBowlExecuted(ctx context.Context, dynasty string, season int) (bool, error) {
	return false, nil
}
func (neverTrigger) HonorsHooksComplete(ctx context.Context, dynasty string, season int) (bool, error) {
	return false, nil
}
func (neverTrigger) FAWindowClosed(ctx context.Context, dynasty string, season int) (bool, error) {
	return false, nil
}
func (neverTrigger) AllDraftRoundsDone(ctx context.Context, dynasty string, season int) (bool, error) {
	return false, nil
}

func newTestController(t *testing.T, dynasty string) *season.Controller {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "scheduler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.DB().Exec(`
		CREATE TABLE dynasties (
			dynasty_id TEXT PRIMARY KEY, season INTEGER NOT NULL, phase TEXT NOT NULL,
			current_date DATETIME NOT NULL, current_week INTEGER NOT NULL DEFAULT 0, updated_at DATETIME
		);
		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT, dynasty_id TEXT NOT NULL, structured_id TEXT NOT NULL,
			date DATE NOT NULL, kind TEXT NOT NULL, insertion_order INTEGER NOT NULL,
			payload_blob BLOB, status TEXT NOT NULL DEFAULT 'scheduled', result_blob BLOB,
			UNIQUE (dynasty_id, structured_id)
		);
		CREATE TABLE teams (
			dynasty_id TEXT NOT NULL, id INTEGER NOT NULL, name TEXT NOT NULL, abbr TEXT NOT NULL,
			conference TEXT NOT NULL, division TEXT NOT NULL, PRIMARY KEY (dynasty_id, id)
		);
		CREATE TABLE standings (
			dynasty_id TEXT NOT NULL, team_id INTEGER NOT NULL, season INTEGER NOT NULL,
			wins INTEGER NOT NULL DEFAULT 0, losses INTEGER NOT NULL DEFAULT 0, ties INTEGER NOT NULL DEFAULT 0,
			division_wins INTEGER NOT NULL DEFAULT 0, conference_wins INTEGER NOT NULL DEFAULT 0,
			points_for INTEGER NOT NULL DEFAULT 0, points_against INTEGER NOT NULL DEFAULT 0,
			schedule TEXT NOT NULL DEFAULT '[]', PRIMARY KEY (dynasty_id, team_id, season)
		);
	`)
	require.NoError(t, err)

	state := models.DynastyState{
		Dynasty:     dynasty,
		Season:      2030,
		Phase:       models.PhaseRegularSeason,
		CurrentDate: time.Date(2030, time.September, 10, 0, 0, 0, 0, time.UTC),
		CurrentWeek: 1,
	}
	_, err = s.DB().Exec(
		`INSERT INTO dynasties (dynasty_id, season, phase, current_date, current_week, updated_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		state.Dynasty, state.Season, string(state.Phase), state.CurrentDate, state.CurrentWeek, state.CurrentDate,
	)
	require.NoError(t, err)

	es := eventstore.New(s)
	st := standings.New(s)
	log := logger.New(logger.Config{Level: "error", Format: "text"})
	d := dispatch.New(s, es, log)

	return season.New(s, es, d, st, neverTrigger{}, log, state)
}

func TestAdvanceDayJob_RunsUnderlyingController(t *testing.T) {
	ctrl := newTestController(t, "scheduler-test-dynasty")
	job := NewAdvanceDayJob("scheduler-test-dynasty", ctrl)

	require.Equal(t, "advance-day:scheduler-test-dynasty", job.Name())
	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, time.Date(2030, time.September, 11, 0, 0, 0, 0, time.UTC), ctrl.State().CurrentDate)
}
