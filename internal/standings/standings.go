// Package standings maintains per-(dynasty, team, season) win/loss/points
// counters and derives the strength-of-schedule figure draft order uses
// for tiebreaking (§4.6).
package standings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/rediscache"
	"github.com/nfl-analytics/backend/internal/store"
)

// cacheTTL bounds how long a cached standings row can lag its Postgres
// row; every write path below invalidates its key directly, so this is
// only a backstop against a missed invalidation, not the primary
// consistency mechanism.
const cacheTTL = 5 * time.Minute

// Repository is the standings table's repository.
type Repository struct {
	s     store.Store
	cache *rediscache.Cache
}

// New builds a Repository bound to s with no cache. Use WithCache to
// attach one.
func New(s store.Store) *Repository {
	return &Repository{s: s}
}

// WithCache attaches a read-through cache for Get; RecordResult
// invalidates the affected keys on every write. Returns r for chaining.
func (r *Repository) WithCache(c *rediscache.Cache) *Repository {
	r.cache = c
	return r
}

func standingsCacheKey(dynasty string, teamID, season int) string {
	return fmt.Sprintf("standings:%s:%d:%d", dynasty, teamID, season)
}

// Get returns a team's standings row for a season, or a zero-valued row if
// none exists yet (the team's first game of the season creates it).
func (r *Repository) Get(ctx context.Context, dynasty string, teamID, season int) (*models.StandingsRow, error) {
	key := standingsCacheKey(dynasty, teamID, season)
	var cached models.StandingsRow
	if r.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	row := &models.StandingsRow{Dynasty: dynasty, TeamID: teamID, Season: season}
	var scheduleJSON []byte
	err := r.s.DB().QueryRowContext(ctx,
		`SELECT wins, losses, ties, division_wins, conference_wins, points_for, points_against, schedule
		 FROM standings WHERE dynasty_id = $1 AND team_id = $2 AND season = $3`,
		dynasty, teamID, season,
	).Scan(&row.Wins, &row.Losses, &row.Ties, &row.DivisionWins, &row.ConferenceWins,
		&row.PointsFor, &row.PointsAgainst, &scheduleJSON)
	if err == sql.ErrNoRows {
		return row, nil
	}
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "load standings row", err)
	}
	row.Schedule = decodeIntArray(scheduleJSON)
	r.cache.Set(ctx, key, row, cacheTTL)
	return row, nil
}

// ForSeason returns every team's standings row for a season.
func (r *Repository) ForSeason(ctx context.Context, dynasty string, season int) ([]*models.StandingsRow, error) {
	rows, err := r.s.DB().QueryContext(ctx,
		`SELECT team_id, wins, losses, ties, division_wins, conference_wins, points_for, points_against, schedule
		 FROM standings WHERE dynasty_id = $1 AND season = $2`,
		dynasty, season,
	)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "query season standings", err)
	}
	defer rows.Close()

	var out []*models.StandingsRow
	for rows.Next() {
		row := &models.StandingsRow{Dynasty: dynasty, Season: season}
		var scheduleJSON []byte
		if err := rows.Scan(&row.TeamID, &row.Wins, &row.Losses, &row.Ties, &row.DivisionWins,
			&row.ConferenceWins, &row.PointsFor, &row.PointsAgainst, &scheduleJSON); err != nil {
			return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "scan standings row", err)
		}
		row.Schedule = decodeIntArray(scheduleJSON)
		out = append(out, row)
	}
	return out, rows.Err()
}

// RecordResult updates both teams' StandingsRow from a completed regular
// season game within tx, upserting the row on first contact. Playoff games
// never call this (§4.5: "regular season only").
func (r *Repository) RecordResult(ctx context.Context, tx *sql.Tx, dynasty string, season int, home, away models.Team, homeScore, awayScore int) error {
	if err := r.applyResult(ctx, tx, dynasty, season, home.ID, away.ID, homeScore, awayScore, home.Division == away.Division, home.Conference == away.Conference); err != nil {
		return err
	}
	return r.applyResult(ctx, tx, dynasty, season, away.ID, home.ID, awayScore, homeScore, home.Division == away.Division, home.Conference == away.Conference)
}

func (r *Repository) applyResult(ctx context.Context, tx *sql.Tx, dynasty string, season, teamID, oppID, scored, allowed int, sameDivision, sameConference bool) error {
	row, err := r.getForUpdate(ctx, tx, dynasty, teamID, season)
	if err != nil {
		return err
	}

	switch {
	case scored > allowed:
		row.Wins++
		if sameDivision {
			row.DivisionWins++
		}
		if sameConference {
			row.ConferenceWins++
		}
	case scored < allowed:
		row.Losses++
	default:
		row.Ties++
	}
	row.PointsFor += scored
	row.PointsAgainst += allowed
	row.Schedule = append(row.Schedule, oppID)

	return r.upsert(ctx, tx, row)
}

func (r *Repository) getForUpdate(ctx context.Context, tx *sql.Tx, dynasty string, teamID, season int) (*models.StandingsRow, error) {
	row := &models.StandingsRow{Dynasty: dynasty, TeamID: teamID, Season: season}
	var scheduleJSON []byte
	err := tx.QueryRowContext(ctx,
		`SELECT wins, losses, ties, division_wins, conference_wins, points_for, points_against, schedule
		 FROM standings WHERE dynasty_id = $1 AND team_id = $2 AND season = $3`,
		dynasty, teamID, season,
	).Scan(&row.Wins, &row.Losses, &row.Ties, &row.DivisionWins, &row.ConferenceWins,
		&row.PointsFor, &row.PointsAgainst, &scheduleJSON)
	if err == sql.ErrNoRows {
		return row, nil
	}
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "load standings row for update", err)
	}
	row.Schedule = decodeIntArray(scheduleJSON)
	return row, nil
}

func (r *Repository) upsert(ctx context.Context, tx *sql.Tx, row *models.StandingsRow) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO standings (dynasty_id, team_id, season, wins, losses, ties, division_wins, conference_wins, points_for, points_against, schedule)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (dynasty_id, team_id, season) DO UPDATE SET
		   wins = EXCLUDED.wins, losses = EXCLUDED.losses, ties = EXCLUDED.ties,
		   division_wins = EXCLUDED.division_wins, conference_wins = EXCLUDED.conference_wins,
		   points_for = EXCLUDED.points_for, points_against = EXCLUDED.points_against,
		   schedule = EXCLUDED.schedule`,
		row.Dynasty, row.TeamID, row.Season, row.Wins, row.Losses, row.Ties,
		row.DivisionWins, row.ConferenceWins, row.PointsFor, row.PointsAgainst, encodeIntArray(row.Schedule),
	)
	if err != nil {
		return engineerr.Wrap(engineerr.KindPersistenceFailed, "upsert standings row", err)
	}
	r.cache.Invalidate(ctx, standingsCacheKey(row.Dynasty, row.TeamID, row.Season))
	return nil
}

// StrengthOfSchedule is sum(opponent_win_pct)/17 per §4.6, used only for
// draft-order tiebreaking. opponentWinPct must already reflect the
// opponent's standings at the time of the lookup.
func StrengthOfSchedule(row *models.StandingsRow, opponentWinPct map[int]float64) float64 {
	if len(row.Schedule) == 0 {
		return 0
	}
	sum := 0.0
	for _, oppID := range row.Schedule {
		sum += opponentWinPct[oppID]
	}
	return sum / 17.0
}
