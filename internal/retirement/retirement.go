// Package retirement implements the Retirement & Career Summary
// component (§4 table, row 14): per-player retirement probability driven
// by age and position, and the career stat rollup (including Hall of
// Fame score) written once a player retires.
//
// No original-language source survived distillation for this component
// (see DESIGN.md), so the retirement curve and HoF scoring formula below
// are decided fresh here rather than ported from anywhere.
package retirement

import (
	"context"
	"database/sql"
	"math"
	"math/rand"

	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/store"
)

// retirementMidpoint is the age at which a position's retirement
// probability crosses 50%; running backs and other high-contact
// positions decline earliest, quarterbacks and linemen latest.
var retirementMidpoint = map[string]float64{
	"RB":  30,
	"WR":  32,
	"CB":  32,
	"TE":  33,
	"LB":  33,
	"S":   33,
	"DT":  34,
	"EDGE": 34,
	"OT":  35,
	"IOL": 35,
	"QB":  38,
	"K":   40,
	"P":   40,
}

const defaultRetirementMidpoint = 33.0

// retirementSteepness controls how sharply probability rises around the
// midpoint; higher means a more sudden cliff.
const retirementSteepness = 0.6

// RetirementProbability is a logistic curve in age, centered on the
// position's typical decline age: effectively zero a decade before
// midpoint, approaching 1 a decade after. Years-pro nudges the curve
// since two players of the same age with very different experience
// still retire at different rates in practice (a 34-year-old rookie
// free agent is not the same risk as a 34-year-old 12-year veteran);
// the nudge is capped so it can never dominate the age term.
func RetirementProbability(position string, age, yearsPro int) float64 {
	midpoint, ok := retirementMidpoint[position]
	if !ok {
		midpoint = defaultRetirementMidpoint
	}
	experienceNudge := math.Min(float64(yearsPro)*0.15, 3.0)
	x := float64(age) - midpoint + experienceNudge
	return 1.0 / (1.0 + math.Exp(-retirementSteepness*x))
}

// Decide samples RetirementProbability with rng and reports whether the
// player retires this offseason.
func Decide(rng *rand.Rand, position string, age, yearsPro int) bool {
	return rng.Float64() < RetirementProbability(position, age, yearsPro)
}

// hofWeights scales each career accolade's contribution to the Hall of
// Fame score; statistical production contributes through yardsPerPoint
// and touchdownWeight instead of a position-specific stat table, since
// comparing raw yardage across positions (a quarterback's passing yards
// against a linebacker's tackles) has no natural common unit otherwise.
const (
	proBowlWeight     = 15.0
	allProWeight      = 25.0
	championshipWeight = 20.0
	yardsPerPoint     = 100.0
	touchdownWeight    = 2.0
)

// ComputeHOFScore combines career accolades and aggregate statistical
// production into a single comparable score. totalYards and totalTDs are
// summed across every offensive category (passing + rushing +
// receiving) by the caller; the score has no fixed ceiling, it is a
// ranking figure, not a percentage.
func ComputeHOFScore(summary models.CareerSummary, totalYards, totalTDs int) float64 {
	return float64(summary.ProBowls)*proBowlWeight +
		float64(summary.AllPros)*allProWeight +
		float64(summary.Championships)*championshipWeight +
		float64(totalYards)/yardsPerPoint +
		float64(totalTDs)*touchdownWeight
}

// AggregateCareer builds a CareerSummary from per-game stat lines plus
// accolade counts the caller has already tallied (pro bowls, all-pros,
// and championships are awarded elsewhere and are not derivable from raw
// per-game stats).
func AggregateCareer(dynasty string, playerID, seasonsPlayed, proBowls, allPros, championships int, gameStats []models.PlayerGameStat) models.CareerSummary {
	summary := models.CareerSummary{
		Dynasty: dynasty, PlayerID: playerID,
		SeasonsPlayed: seasonsPlayed, GamesPlayed: len(gameStats),
		ProBowls: proBowls, AllPros: allPros, Championships: championships,
	}
	totalYards, totalTDs := 0, 0
	for _, g := range gameStats {
		totalYards += g.PassYards + g.RushYards + g.RecYards
		totalTDs += g.PassTDs + g.RushTDs + g.RecTDs
	}
	summary.HOFScore = ComputeHOFScore(summary, totalYards, totalTDs)
	return summary
}

// Repository persists retirements and career summaries.
type Repository struct {
	s store.Store
}

// New builds a Repository bound to s.
func New(s store.Store) *Repository {
	return &Repository{s: s}
}

// Retire appends a RetiredPlayer row and clears the player's active team
// assignment within tx. Retired players are never re-signed (§3); callers
// enforce that at the validator layer (validator.validateSigning checks
// RetiredPlayers).
func (r *Repository) Retire(ctx context.Context, tx *sql.Tx, dynasty string, playerID, season int, reason string, finalTeamID *int) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO retired_players (dynasty_id, player_id, season, reason, final_team_id)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (dynasty_id, player_id) DO NOTHING`,
		dynasty, playerID, season, reason, finalTeamID,
	)
	if err != nil {
		return engineerr.Wrap(engineerr.KindPersistenceFailed, "insert retired player", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE players SET retired = TRUE, team_id = NULL WHERE dynasty_id = $1 AND player_id = $2`,
		dynasty, playerID,
	)
	if err != nil {
		return engineerr.Wrap(engineerr.KindPersistenceFailed, "mark player retired", err)
	}
	return nil
}

// SaveCareerSummary upserts a player's career rollup.
func (r *Repository) SaveCareerSummary(ctx context.Context, tx *sql.Tx, summary models.CareerSummary) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO career_summaries (dynasty_id, player_id, seasons_played, games_played, pro_bowls, all_pros, championships, hof_score)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (dynasty_id, player_id) DO UPDATE SET
		   seasons_played = EXCLUDED.seasons_played, games_played = EXCLUDED.games_played,
		   pro_bowls = EXCLUDED.pro_bowls, all_pros = EXCLUDED.all_pros,
		   championships = EXCLUDED.championships, hof_score = EXCLUDED.hof_score`,
		summary.Dynasty, summary.PlayerID, summary.SeasonsPlayed, summary.GamesPlayed,
		summary.ProBowls, summary.AllPros, summary.Championships, summary.HOFScore,
	)
	if err != nil {
		return engineerr.Wrap(engineerr.KindPersistenceFailed, "upsert career summary", err)
	}
	return nil
}

// GameStatsForPlayer loads every stat line a player has accumulated,
// across all games, for use by AggregateCareer.
func (r *Repository) GameStatsForPlayer(ctx context.Context, dynasty string, playerID int) ([]models.PlayerGameStat, error) {
	rows, err := r.s.DB().QueryContext(ctx,
		`SELECT dynasty_id, game_id, season_type, player_id, team_id, pass_yards, pass_tds, rush_yards, rush_tds, rec_yards, rec_tds, tackles, sacks, interceptions
		 FROM player_game_stats WHERE dynasty_id = $1 AND player_id = $2`,
		dynasty, playerID,
	)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "query player game stats", err)
	}
	defer rows.Close()

	var out []models.PlayerGameStat
	for rows.Next() {
		var g models.PlayerGameStat
		if err := rows.Scan(&g.Dynasty, &g.GameID, &g.SeasonType, &g.PlayerID, &g.TeamID,
			&g.PassYards, &g.PassTDs, &g.RushYards, &g.RushTDs, &g.RecYards, &g.RecTDs,
			&g.Tackles, &g.Sacks, &g.Interceptions); err != nil {
			return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "scan player game stat", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
