package playoff

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfl-analytics/backend/internal/eventstore"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/store"
)

func conferenceStandings() []*models.StandingsRow {
	rows := make([]*models.StandingsRow, 0, 8)
	wins := []int{13, 11, 10, 9, 8, 7, 6, 4}
	for i, w := range wins {
		rows = append(rows, &models.StandingsRow{TeamID: i + 1, Wins: w, Losses: 17 - w})
	}
	return rows
}

func divisionOf() map[int]models.Division {
	return map[int]models.Division{
		1: "North", 2: "South", 3: "East", 4: "West",
		5: "North", 6: "South", 7: "East", 8: "West",
	}
}

func TestStandardSeeder_ProducesSevenRankedSeeds(t *testing.T) {
	seeder := StandardSeeder{DivisionOf: divisionOf()}
	seeds, err := seeder.Seed(conferenceStandings())
	require.NoError(t, err)
	require.Len(t, seeds, 7)
	assert.Equal(t, 1, seeds[0].TeamID, "best division winner is seed 1")
}

func TestStandardSeeder_ErrorsWithFewerThanSevenTeams(t *testing.T) {
	seeder := StandardSeeder{DivisionOf: divisionOf()}
	_, err := seeder.Seed(conferenceStandings()[:5])
	assert.Error(t, err)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "playoff.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.DB().Exec(`
		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT, dynasty_id TEXT NOT NULL, structured_id TEXT NOT NULL,
			date DATE NOT NULL, kind TEXT NOT NULL, insertion_order INTEGER NOT NULL DEFAULT 0,
			payload_blob BLOB NOT NULL DEFAULT '', status TEXT NOT NULL DEFAULT 'scheduled', result_blob BLOB,
			UNIQUE(dynasty_id, structured_id)
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
	`)
	require.NoError(t, err)
	return s
}

// recordPlayoffResult marks the event at structuredID executed and writes
// the box score simulation.Handler would have, for any round: the round
// and season are recovered from structuredID itself via eventstore.ParseRound
// rather than threaded through as separate parameters, since a game's
// structured id is already authoritative for both.
func recordPlayoffResult(t *testing.T, s store.Store, es *eventstore.EventStore, dynasty, structuredID string, homeTeamID, awayTeamID, homeScore, awayScore int) {
	t.Helper()
	round, number, ok := eventstore.ParseRound(structuredID)
	require.True(t, ok, "structuredID %q must be a playoff game id", structuredID)
	season, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(structuredID, "playoff_"), fmt.Sprintf("_%s_%d", round, number)))
	require.NoError(t, err)

	ctx := context.Background()
	err = s.WithDynastyTx(ctx, dynasty, func(tx *sql.Tx) error {
		evs, err := es.ForStructuredPrefix(ctx, dynasty, structuredID)
		require.NoError(t, err)
		require.Len(t, evs, 1)
		if err := es.MarkExecuted(ctx, tx, evs[0].ID, models.EventExecuted, []byte(`{}`)); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO box_scores (game_id, dynasty_id, season, season_type, game_type, home_team_id, away_team_id, home_score, away_score)
			 VALUES ($1,$2,$3,'playoffs',$4,$5,$6,$7,$8)`,
			structuredID, dynasty, season, round, homeTeamID, awayTeamID, homeScore, awayScore,
		)
		return err
	})
	require.NoError(t, err)
}

func TestStartWildCard_SchedulesSixGamesAndIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	es := eventstore.New(s)
	seeder := StandardSeeder{DivisionOf: divisionOf()}
	c := NewController(es, seeder, 2025)
	ctx := context.Background()
	date := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	conferences := map[string][]*models.StandingsRow{
		"AFC": conferenceStandings(),
		"NFC": conferenceStandings(),
	}

	err := s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		return c.StartWildCard(ctx, tx, "d1", date, conferences)
	})
	require.NoError(t, err)

	evs, err := es.ForStructuredPrefix(ctx, "d1", "playoff_2025_wild_card_")
	require.NoError(t, err)
	assert.Len(t, evs, 6)

	err = s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		return c.StartWildCard(ctx, tx, "d1", date, conferences)
	})
	require.NoError(t, err)

	evs, err = es.ForStructuredPrefix(ctx, "d1", "playoff_2025_wild_card_")
	require.NoError(t, err)
	assert.Len(t, evs, 6, "re-running StartWildCard must not duplicate games")
}

func TestStartWildCard_PersistsSeeds(t *testing.T) {
	s := newTestStore(t)
	es := eventstore.New(s)
	seeder := StandardSeeder{DivisionOf: divisionOf()}
	c := NewController(es, seeder, 2025)
	ctx := context.Background()
	date := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	conferences := map[string][]*models.StandingsRow{
		"AFC": conferenceStandings(),
		"NFC": conferenceStandings(),
	}
	err := s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		return c.StartWildCard(ctx, tx, "d1", date, conferences)
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, s.DB().QueryRow(
		`SELECT COUNT(*) FROM playoff_seeds WHERE dynasty_id = 'd1' AND season = 2025`,
	).Scan(&count))
	assert.Equal(t, 14, count, "7 seeds per conference across two conferences")

	err = s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		byeSeed, originalSeeds, err := c.LoadSeeds(ctx, tx, "d1")
		require.NoError(t, err)
		assert.Equal(t, 1, byeSeed["AFC"].TeamID)
		assert.Equal(t, 1, byeSeed["NFC"].TeamID)
		assert.Len(t, originalSeeds["AFC"], 7)
		assert.Equal(t, 2, originalSeeds["AFC"][2].Seed)
		return nil
	})
	require.NoError(t, err)
}

func conferenceStandingsWithOffset(offset int) []*models.StandingsRow {
	rows := make([]*models.StandingsRow, 0, 8)
	wins := []int{13, 11, 10, 9, 8, 7, 6, 4}
	for i, w := range wins {
		rows = append(rows, &models.StandingsRow{TeamID: offset + i + 1, Wins: w, Losses: 17 - w})
	}
	return rows
}

func divisionOfWithOffset(offset int) map[int]models.Division {
	return map[int]models.Division{
		offset + 1: "North", offset + 2: "South", offset + 3: "East", offset + 4: "West",
		offset + 5: "North", offset + 6: "South", offset + 7: "East", offset + 8: "West",
	}
}

func TestAdvanceRound_SchedulesDivisionalFromWildCardWinners(t *testing.T) {
	s := newTestStore(t)
	es := eventstore.New(s)

	divisionOf := divisionOfWithOffset(0)
	for teamID, div := range divisionOfWithOffset(10) {
		divisionOf[teamID] = div
	}
	c := NewController(es, StandardSeeder{DivisionOf: divisionOf}, 2025)
	ctx := context.Background()
	date := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	conferences := map[string][]*models.StandingsRow{
		"AFC": conferenceStandingsWithOffset(0),
		"NFC": conferenceStandingsWithOffset(10),
	}
	err := s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		return c.StartWildCard(ctx, tx, "d1", date, conferences)
	})
	require.NoError(t, err)

	// Home team wins every Wild Card game in both conferences: seeds 2, 3,
	// 4 advance alongside each conference's seed-1 bye.
	recordPlayoffResult(t, s, es, "d1", "playoff_2025_wild_card_1", 2, 7, 30, 10)
	recordPlayoffResult(t, s, es, "d1", "playoff_2025_wild_card_2", 3, 6, 24, 17)
	recordPlayoffResult(t, s, es, "d1", "playoff_2025_wild_card_3", 4, 5, 20, 13)
	recordPlayoffResult(t, s, es, "d1", "playoff_2025_wild_card_4", 12, 17, 28, 14)
	recordPlayoffResult(t, s, es, "d1", "playoff_2025_wild_card_5", 13, 16, 21, 20)
	recordPlayoffResult(t, s, es, "d1", "playoff_2025_wild_card_6", 14, 15, 17, 16)

	err = s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		byeSeed, originalSeeds, err := c.LoadSeeds(ctx, tx, "d1")
		require.NoError(t, err)
		return c.AdvanceRound(ctx, tx, "d1", RoundWildCard, date.AddDate(0, 0, 7), byeSeed, originalSeeds, WinnerFromBoxScore)
	})
	require.NoError(t, err)

	evs, err := es.ForStructuredPrefix(ctx, "d1", "playoff_2025_divisional_")
	require.NoError(t, err)
	require.Len(t, evs, 4, "two divisional games per conference")

	// Re-running against the same completed Wild Card round must not
	// duplicate the divisional round it already scheduled.
	err = s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		byeSeed, originalSeeds, err := c.LoadSeeds(ctx, tx, "d1")
		require.NoError(t, err)
		return c.AdvanceRound(ctx, tx, "d1", RoundWildCard, date.AddDate(0, 0, 7), byeSeed, originalSeeds, WinnerFromBoxScore)
	})
	require.NoError(t, err)
	evs, err = es.ForStructuredPrefix(ctx, "d1", "playoff_2025_divisional_")
	require.NoError(t, err)
	assert.Len(t, evs, 4, "re-running AdvanceRound must not duplicate games")
}

func TestAdvanceRound_SchedulesSuperBowlFromConferenceChampions(t *testing.T) {
	s := newTestStore(t)
	es := eventstore.New(s)
	c := NewController(es, nil, 2025)
	ctx := context.Background()
	date := time.Date(2026, 1, 24, 0, 0, 0, 0, time.UTC)

	seedConferenceGame := func(structuredID string, homeTeamID, awayTeamID int) {
		err := s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
			ev := &models.Event{
				Dynasty: "d1", Date: date, Kind: models.EventGame,
				StructuredID: structuredID, Payload: []byte(`{}`), Status: models.EventScheduled,
			}
			_, err := es.Insert(ctx, tx, "d1", ev)
			return err
		})
		require.NoError(t, err)
	}
	seedConferenceGame("playoff_2025_conference_1", 2, 3)
	seedConferenceGame("playoff_2025_conference_2", 12, 13)
	recordPlayoffResult(t, s, es, "d1", "playoff_2025_conference_1", 2, 3, 27, 13)
	recordPlayoffResult(t, s, es, "d1", "playoff_2025_conference_2", 12, 13, 24, 20)

	err := s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		return c.AdvanceRound(ctx, tx, "d1", RoundConference, date.AddDate(0, 0, 14), nil, nil, WinnerFromBoxScore)
	})
	require.NoError(t, err)

	evs, err := es.ForStructuredPrefix(ctx, "d1", "playoff_2025_super_bowl_")
	require.NoError(t, err)
	require.Len(t, evs, 1)
}

func TestWinnerFromBoxScore_ReturnsHigherScoringTeam(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	err := s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO box_scores (game_id, dynasty_id, season, season_type, game_type, home_team_id, away_team_id, home_score, away_score)
			 VALUES ('playoff_2025_wild_card_1', 'd1', 2025, 'playoffs', 'wild_card', 2, 7, 17, 24)`,
		)
		return err
	})
	require.NoError(t, err)

	err = s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		winner, err := WinnerFromBoxScore(ctx, tx, "d1", "playoff_2025_wild_card_1")
		require.NoError(t, err)
		assert.Equal(t, 7, winner, "away team scored more")
		return nil
	})
	require.NoError(t, err)
}

func TestWinnerFromBoxScore_ErrorsOnTie(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	err := s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO box_scores (game_id, dynasty_id, season, season_type, game_type, home_team_id, away_team_id, home_score, away_score)
			 VALUES ('playoff_2025_wild_card_1', 'd1', 2025, 'playoffs', 'wild_card', 2, 7, 20, 20)`,
		)
		return err
	})
	require.NoError(t, err)

	err = s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		_, err := WinnerFromBoxScore(ctx, tx, "d1", "playoff_2025_wild_card_1")
		return err
	})
	assert.Error(t, err)
}
