package season

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfl-analytics/backend/internal/dispatch"
	"github.com/nfl-analytics/backend/internal/eventstore"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/standings"
	"github.com/nfl-analytics/backend/internal/store"
	"github.com/nfl-analytics/backend/pkg/logger"
)

func newTestEnv(t *testing.T) (store.Store, *eventstore.EventStore, *standings.Repository) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "season.db"))
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
	return s, eventstore.New(s), standings.New(s)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "text"})
}

// neverTrigger reports every completion-derived trigger as false; useful
// for tests exercising plain calendar advancement with no phase change.
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

func insertDynastyRow(t *testing.T, s store.Store, state models.DynastyState) {
	t.Helper()
	_, err := s.DB().Exec(
		`INSERT INTO dynasties (dynasty_id, season, phase, current_date, current_week, updated_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		state.Dynasty, state.Season, string(state.Phase), state.CurrentDate, state.CurrentWeek, state.CurrentDate,
	)
	require.NoError(t, err)
}

func TestAdvanceDay_AdvancesDateAndPersistsWithNoEvents(t *testing.T) {
	s, es, st := newTestEnv(t)
	ctx := context.Background()
	log := testLogger()
	d := dispatch.New(s, es, log)

	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	state := models.DynastyState{Dynasty: "d1", Season: 2025, Phase: models.PhaseOffseason, CurrentDate: start}
	insertDynastyRow(t, s, state)

	c := New(s, es, d, st, neverTrigger{}, log, state)
	result, err := c.AdvanceDay(ctx)
	require.NoError(t, err)

	assert.Equal(t, start.AddDate(0, 0, 1), result.Date)
	assert.Zero(t, result.EventsRun)
	assert.False(t, result.PhaseChanged)

	var persistedDate time.Time
	var persistedPhase string
	row := s.DB().QueryRow(`SELECT current_date, phase FROM dynasties WHERE dynasty_id = 'd1'`)
	require.NoError(t, row.Scan(&persistedDate, &persistedPhase))
	assert.True(t, persistedDate.Equal(start.AddDate(0, 0, 1)))
	assert.Equal(t, string(models.PhaseOffseason), persistedPhase)
}

func TestAdvanceDay_TransitionsToPreseasonAtFourWeeksBeforeSeasonStart(t *testing.T) {
	s, es, st := newTestEnv(t)
	ctx := context.Background()
	log := testLogger()
	d := dispatch.New(s, es, log)

	seasonStart := time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC) // first Thursday of Sept 2025
	dayBeforePreseason := seasonStart.AddDate(0, 0, preseasonStartOffsetDays).AddDate(0, 0, -1)
	state := models.DynastyState{Dynasty: "d1", Season: 2025, Phase: models.PhaseOffseason, CurrentDate: dayBeforePreseason}
	insertDynastyRow(t, s, state)

	c := New(s, es, d, st, neverTrigger{}, log, state)
	result, err := c.AdvanceDay(ctx)
	require.NoError(t, err)

	assert.True(t, result.PhaseChanged)
	assert.Equal(t, models.PhaseOffseason, result.FromPhase)
	assert.Equal(t, models.PhasePreseason, result.ToPhase)
}

// regularSeasonDoneTrigger fires AllRegularGamesDone on its Nth call,
// simulating the games finishing after a handful of days of AdvanceDay.
type regularSeasonDoneTrigger struct {
	neverTrigger
	callsUntilDone int
	calls          int
}

func (r *regularSeasonDoneTrigger) AllRegularGamesDone(ctx context.Context, dynasty string, season int) (bool, error) {
	r.calls++
	return r.calls >= r.callsUntilDone, nil
}

func TestAdvanceToEndOfPhase_StopsAssoonAsTriggerFires(t *testing.T) {
	s, es, st := newTestEnv(t)
	ctx := context.Background()
	log := testLogger()
	d := dispatch.New(s, es, log)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	state := models.DynastyState{Dynasty: "d1", Season: 2025, Phase: models.PhaseRegularSeason, CurrentDate: start}
	insertDynastyRow(t, s, state)

	trig := &regularSeasonDoneTrigger{callsUntilDone: 3}
	c := New(s, es, d, st, trig, log, state)

	summary, err := c.AdvanceToEndOfPhase(ctx, nil)
	require.NoError(t, err)
	assert.False(t, summary.HitSafetyCap)
	assert.Len(t, summary.Days, 3)
	assert.Equal(t, models.PhasePlayoffs, summary.ToPhase)
}

func TestAdvanceToEndOfPhase_HitsSafetyCapWhenTriggerNeverFires(t *testing.T) {
	s, es, st := newTestEnv(t)
	ctx := context.Background()
	log := testLogger()
	d := dispatch.New(s, es, log)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	state := models.DynastyState{Dynasty: "d1", Season: 2025, Phase: models.PhaseRegularSeason, CurrentDate: start}
	insertDynastyRow(t, s, state)

	c := New(s, es, d, st, neverTrigger{}, log, state)
	summary, err := c.AdvanceToEndOfPhase(ctx, nil)
	require.NoError(t, err)
	assert.True(t, summary.HitSafetyCap)
	assert.Len(t, summary.Days, DefaultSafetyCap)
}

func TestAdvanceWeek_RunsSevenDaysAndAggregates(t *testing.T) {
	s, es, st := newTestEnv(t)
	ctx := context.Background()
	log := testLogger()
	d := dispatch.New(s, es, log)

	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	state := models.DynastyState{Dynasty: "d1", Season: 2025, Phase: models.PhaseOffseason, CurrentDate: start}
	insertDynastyRow(t, s, state)

	c := New(s, es, d, st, neverTrigger{}, log, state)
	week, err := c.AdvanceWeek(ctx)
	require.NoError(t, err)
	assert.Len(t, week.Days, 7)
	assert.Equal(t, start.AddDate(0, 0, 7), week.Days[6].Date)
}

func TestAdvanceDay_PropagatesPersistenceFailureWithoutMovingCalendar(t *testing.T) {
	s, es, st := newTestEnv(t)
	ctx := context.Background()
	log := testLogger()
	d := dispatch.New(s, es, log)

	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	state := models.DynastyState{Dynasty: "missing-dynasty", Season: 2025, Phase: models.PhaseOffseason, CurrentDate: start}
	// Deliberately do not insert the dynasties row, so the UPDATE affects
	// zero rows and the read-back fails to find anything.

	c := New(s, es, d, st, neverTrigger{}, log, state)
	_, err := c.AdvanceDay(ctx)
	assert.Error(t, err)
	assert.Equal(t, start, c.State().CurrentDate, "calendar must not advance when persistence fails")
}
