package simulation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/standings"
)

// GamePayload is the Event.Payload contents for a GAME event: which teams
// play and what kind of game it is (regular season vs a named playoff
// round).
type GamePayload struct {
	Season     int    `json:"season"`
	Week       int    `json:"week"`
	SeasonType string `json:"season_type"` // regular_season, playoffs
	GameType   string `json:"game_type"`   // regular, wild_card, divisional, conference, super_bowl
	HomeTeamID int    `json:"home_team_id"`
	AwayTeamID int    `json:"away_team_id"`
}

// RosterReader loads the active, non-retired roster for a team. Backed by
// the players table; kept as an interface so the handler doesn't couple
// directly to a concrete repository type.
type RosterReader interface {
	Roster(ctx context.Context, tx *sql.Tx, dynasty string, teamID int) ([]models.Player, error)
}

// Handler implements the Game Event Handler (§4.5): delegate to
// GameSimulator, then append box score, player stats, and standings
// updates, all inside the one transaction the dispatcher already opened.
type Handler struct {
	sim     GameSimulator
	rosters RosterReader
	standings *standings.Repository
}

// NewHandler builds a Game Event Handler.
func NewHandler(sim GameSimulator, rosters RosterReader, st *standings.Repository) *Handler {
	return &Handler{sim: sim, rosters: rosters, standings: st}
}

// Handle is a dispatch.Handler: reads both rosters, simulates, and writes
// the box score, per-player stat lines, and (regular season only)
// standings updates as one unit. The dispatcher commits or rolls back the
// whole transaction around this call, so "3 of 4 steps landed" can never
// happen (§4.5).
func (h *Handler) Handle(ctx context.Context, tx *sql.Tx, dynasty string, ev *models.Event) ([]byte, error) {
	var payload GamePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return nil, engineerr.Wrap(engineerr.KindInvalidTx, "decode game payload", err)
	}

	homeRoster, err := h.rosters.Roster(ctx, tx, dynasty, payload.HomeTeamID)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "load home roster", err)
	}
	awayRoster, err := h.rosters.Roster(ctx, tx, dynasty, payload.AwayTeamID)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "load away roster", err)
	}

	result, err := h.sim.Simulate(ctx, payload.HomeTeamID, payload.AwayTeamID, homeRoster, awayRoster, int64(ev.InsertionOrder))
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindSimulatorFailed, "simulate game", err)
	}

	gameID := ev.StructuredID
	if gameID == "" {
		gameID = uuid.NewString()
	}

	if err := h.insertBoxScore(ctx, tx, dynasty, gameID, payload, result); err != nil {
		return nil, err
	}
	if err := h.insertPlayerStats(ctx, tx, dynasty, gameID, payload.SeasonType, result); err != nil {
		return nil, err
	}
	if payload.SeasonType == "regular_season" {
		home := models.Team{ID: payload.HomeTeamID}
		away := models.Team{ID: payload.AwayTeamID}
		if err := h.loadTeamMeta(ctx, tx, dynasty, &home, &away); err != nil {
			return nil, err
		}
		if err := h.standings.RecordResult(ctx, tx, dynasty, payload.Season, home, away, result.HomeScore, result.AwayScore); err != nil {
			return nil, err
		}
	}

	resultJSON, _ := json.Marshal(result)
	return resultJSON, nil
}

func (h *Handler) insertBoxScore(ctx context.Context, tx *sql.Tx, dynasty, gameID string, payload GamePayload, result *Result) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO box_scores (game_id, dynasty_id, season, season_type, week, game_type, home_team_id, away_team_id, home_score, away_score, overtime_periods)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (game_id) DO NOTHING`,
		gameID, dynasty, payload.Season, payload.SeasonType, payload.Week, payload.GameType,
		payload.HomeTeamID, payload.AwayTeamID, result.HomeScore, result.AwayScore, result.OvertimePeriods,
	)
	if err != nil {
		return engineerr.Wrap(engineerr.KindPersistenceFailed, "insert box score", err)
	}
	return nil
}

func (h *Handler) insertPlayerStats(ctx context.Context, tx *sql.Tx, dynasty, gameID, seasonType string, result *Result) error {
	for _, line := range result.PlayerStats {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO player_game_stats (dynasty_id, game_id, season_type, player_id, team_id, pass_yards, pass_tds, rush_yards, rush_tds, rec_yards, rec_tds, tackles, sacks, interceptions)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			 ON CONFLICT (dynasty_id, game_id, player_id) DO NOTHING`,
			dynasty, gameID, seasonType, line.PlayerID, line.TeamID, line.PassYards, line.PassTDs,
			line.RushYards, line.RushTDs, line.RecYards, line.RecTDs, line.Tackles, line.Sacks, line.Interceptions,
		)
		if err != nil {
			return engineerr.Wrap(engineerr.KindPersistenceFailed, fmt.Sprintf("insert stat line for player %d", line.PlayerID), err)
		}
	}
	return nil
}

func (h *Handler) loadTeamMeta(ctx context.Context, tx *sql.Tx, dynasty string, home, away *models.Team) error {
	for _, t := range []*models.Team{home, away} {
		var conf, div string
		err := tx.QueryRowContext(ctx,
			`SELECT conference, division FROM teams WHERE dynasty_id = $1 AND id = $2`,
			dynasty, t.ID,
		).Scan(&conf, &div)
		if err != nil {
			return engineerr.Wrap(engineerr.KindPersistenceFailed, fmt.Sprintf("load team %d metadata", t.ID), err)
		}
		t.Conference = models.Conference(conf)
		t.Division = models.Division(div)
	}
	return nil
}
