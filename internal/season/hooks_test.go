package season

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfl-analytics/backend/internal/draft"
	"github.com/nfl-analytics/backend/internal/eventstore"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/standings"
	"github.com/nfl-analytics/backend/internal/store"
)

func newHooksTestEnv(t *testing.T) (*hooks, store.Store, *eventstore.EventStore) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "hooks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.DB().Exec(`
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
		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT, dynasty_id TEXT NOT NULL, structured_id TEXT NOT NULL,
			date DATE NOT NULL, kind TEXT NOT NULL, insertion_order INTEGER NOT NULL DEFAULT 0,
			payload_blob BLOB NOT NULL DEFAULT '', status TEXT NOT NULL DEFAULT 'scheduled', result_blob BLOB,
			UNIQUE (dynasty_id, structured_id)
		);
		CREATE TABLE playoff_seeds (
			dynasty_id TEXT NOT NULL, season INTEGER NOT NULL, conference TEXT NOT NULL,
			seed INTEGER NOT NULL, team_id INTEGER NOT NULL,
			PRIMARY KEY (dynasty_id, season, conference, seed)
		);
		CREATE TABLE box_scores (
			game_id TEXT PRIMARY KEY, dynasty_id TEXT NOT NULL, season INTEGER NOT NULL,
			season_type TEXT NOT NULL, week INTEGER NOT NULL DEFAULT 0, game_type TEXT NOT NULL,
			home_team_id INTEGER NOT NULL, away_team_id INTEGER NOT NULL,
			home_score INTEGER NOT NULL, away_score INTEGER NOT NULL, overtime_periods INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE rookie_prospects (
			dynasty_id TEXT NOT NULL, season INTEGER NOT NULL, prospect_id INTEGER NOT NULL,
			name TEXT NOT NULL, position TEXT NOT NULL, overall INTEGER NOT NULL,
			age INTEGER NOT NULL DEFAULT 21, drafted BOOLEAN NOT NULL DEFAULT 0,
			PRIMARY KEY (dynasty_id, season, prospect_id)
		);
		CREATE TABLE draft_selections (
			dynasty_id TEXT NOT NULL, season INTEGER NOT NULL, overall_pick INTEGER NOT NULL,
			round INTEGER NOT NULL, pick_in_round INTEGER NOT NULL, team_id INTEGER NOT NULL,
			prospect_id INTEGER, player_id INTEGER, selected_at DATETIME,
			PRIMARY KEY (dynasty_id, season, overall_pick)
		);
	`)
	require.NoError(t, err)

	es := eventstore.New(s)
	st := standings.New(s)
	draftRepo := draft.New(s)
	return newHooks(s, es, st, draftRepo, 224_800_000), s, es
}

func insertTeam(t *testing.T, s store.Store, dynasty string, id int, conf, div string) {
	t.Helper()
	_, err := s.DB().Exec(
		`INSERT INTO teams (dynasty_id, id, name, abbr, conference, division) VALUES ($1,$2,$3,$4,$5,$6)`,
		dynasty, id, "Team", "TM", conf, div,
	)
	require.NoError(t, err)
}

func insertStandingsRow(t *testing.T, s store.Store, dynasty string, season, teamID, wins, losses int) {
	t.Helper()
	_, err := s.DB().Exec(
		`INSERT INTO standings (dynasty_id, team_id, season, wins, losses) VALUES ($1,$2,$3,$4,$5)`,
		dynasty, teamID, season, wins, losses,
	)
	require.NoError(t, err)
}

func eightTeamConference(t *testing.T, s store.Store, dynasty, conf string, base int) {
	t.Helper()
	divs := []string{"North", "South", "East", "West", "North", "South", "East", "West"}
	wins := []int{13, 11, 10, 9, 8, 7, 6, 4}
	for i := 0; i < 8; i++ {
		id := base + i + 1
		insertTeam(t, s, dynasty, id, conf, divs[i])
		insertStandingsRow(t, s, dynasty, 2025, id, wins[i], 17-wins[i])
	}
}

func TestOnTransition_RegularSeasonSeedsFullSchedule(t *testing.T) {
	h, s, es := newHooksTestEnv(t)
	ctx := context.Background()
	for i := 1; i <= 32; i++ {
		insertTeam(t, s, "d1", i, "AFC", "North")
	}

	date := time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC)
	err := h.onTransition(ctx, "d1", 2025, date, models.PhaseRegularSeason)
	require.NoError(t, err)

	evs, err := es.ForStructuredPrefix(ctx, "d1", "game_2025_")
	require.NoError(t, err)
	assert.Len(t, evs, 32*31/2, "single round robin across 32 teams")

	// Re-running on the same season must not duplicate the schedule.
	err = h.onTransition(ctx, "d1", 2025, date, models.PhaseRegularSeason)
	require.NoError(t, err)
	evs, err = es.ForStructuredPrefix(ctx, "d1", "game_2025_")
	require.NoError(t, err)
	assert.Len(t, evs, 32*31/2)
}

func TestOnTransition_PlayoffsSeedsWildCardFromStandings(t *testing.T) {
	h, s, es := newHooksTestEnv(t)
	ctx := context.Background()
	eightTeamConference(t, s, "d1", string(models.ConferenceAFC), 0)
	eightTeamConference(t, s, "d1", string(models.ConferenceNFC), 100)

	date := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	err := h.onTransition(ctx, "d1", 2025, date, models.PhasePlayoffs)
	require.NoError(t, err)

	evs, err := es.ForStructuredPrefix(ctx, "d1", "playoff_2025_wild_card_")
	require.NoError(t, err)
	assert.Len(t, evs, 6)
	assert.True(t, evs[0].Date.After(date), "wild card kicks off after a lead week")

	var seedCount int
	require.NoError(t, s.DB().QueryRow(
		`SELECT COUNT(*) FROM playoff_seeds WHERE dynasty_id = 'd1' AND season = 2025`,
	).Scan(&seedCount))
	assert.Equal(t, 14, seedCount)
}

func TestOnTransition_HonorsSeedsExactlyOneSweepEvent(t *testing.T) {
	h, _, es := newHooksTestEnv(t)
	ctx := context.Background()
	date := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	err := h.onTransition(ctx, "d1", 2025, date, models.PhaseOffseasonHonors)
	require.NoError(t, err)

	evs, err := es.ForStructuredPrefix(ctx, "d1", "honors_2025")
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, models.EventPhaseHook, evs[0].Kind)
}

func TestOnTransition_FAWavesSeedsFourWeeklyTicks(t *testing.T) {
	h, _, es := newHooksTestEnv(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	err := h.onTransition(ctx, "d1", 2025, date, models.PhaseOffseasonFA)
	require.NoError(t, err)

	evs, err := es.ForStructuredPrefix(ctx, "d1", "fa_wave_2025_")
	require.NoError(t, err)
	require.Len(t, evs, 4)
	byID := make(map[string]time.Time)
	for _, ev := range evs {
		byID[ev.StructuredID] = ev.Date
	}
	assert.Equal(t, date, byID["fa_wave_2025_1"])
	assert.Equal(t, date.AddDate(0, 0, 21), byID["fa_wave_2025_4"])

	err = h.onTransition(ctx, "d1", 2025, date, models.PhaseOffseasonFA)
	require.NoError(t, err)
	evs, err = es.ForStructuredPrefix(ctx, "d1", "fa_wave_2025_")
	require.NoError(t, err)
	assert.Len(t, evs, 4, "re-running must not duplicate waves")
}

func TestOnTransition_DraftSeedsClassOrderAndPickEvents(t *testing.T) {
	h, s, es := newHooksTestEnv(t)
	ctx := context.Background()
	eightTeamConference(t, s, "d1", string(models.ConferenceAFC), 0)
	eightTeamConference(t, s, "d1", string(models.ConferenceNFC), 100)

	date := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	err := h.onTransition(ctx, "d1", 2025, date, models.PhaseOffseasonDraft)
	require.NoError(t, err)

	evs, err := es.ForStructuredPrefix(ctx, "d1", "draft_pick_2025_")
	require.NoError(t, err)
	assert.Len(t, evs, 224, "7 rounds of 32 picks")

	var prospectCount int
	require.NoError(t, s.DB().QueryRow(
		`SELECT COUNT(*) FROM rookie_prospects WHERE dynasty_id = 'd1' AND season = 2025`,
	).Scan(&prospectCount))
	assert.Equal(t, 224, prospectCount)

	var pickCount int
	require.NoError(t, s.DB().QueryRow(
		`SELECT COUNT(*) FROM draft_selections WHERE dynasty_id = 'd1' AND season = 2025`,
	).Scan(&pickCount))
	assert.Equal(t, 224, pickCount)
}

func TestProgressPlayoffs_NoOpUntilRoundComplete(t *testing.T) {
	h, s, es := newHooksTestEnv(t)
	ctx := context.Background()
	eightTeamConference(t, s, "d1", string(models.ConferenceAFC), 0)
	eightTeamConference(t, s, "d1", string(models.ConferenceNFC), 100)

	date := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, h.onTransition(ctx, "d1", 2025, date, models.PhasePlayoffs))

	require.NoError(t, h.progressPlayoffs(ctx, "d1", 2025, date))
	evs, err := es.ForStructuredPrefix(ctx, "d1", "playoff_2025_divisional_")
	require.NoError(t, err)
	assert.Empty(t, evs, "divisional round must not be scheduled before wild card finishes")
}
