package retirement

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"

	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/models"
)

// RetirementCheckPayload is the Event.Payload contents for a
// RETIREMENT_CHECK event: one player's age/experience facts plus the
// accolade counts tallied elsewhere (pro bowls, all-pros, championships
// are not derivable from per-game stats).
type RetirementCheckPayload struct {
	PlayerID      int    `json:"player_id"`
	Position      string `json:"position"`
	Age           int    `json:"age"`
	YearsPro      int    `json:"years_pro"`
	Season        int    `json:"season"`
	SeasonsPlayed int    `json:"seasons_played"`
	ProBowls      int    `json:"pro_bowls"`
	AllPros       int    `json:"all_pros"`
	Championships int     `json:"championships"`
	FinalTeamID   *int    `json:"final_team_id,omitempty"`
	Seed          int64   `json:"seed"`
}

// CheckHandler implements dispatch.Handler for RETIREMENT_CHECK events:
// sample the retirement curve for one player and, on retirement, write
// the retired_players row and career summary rollup.
type CheckHandler struct {
	repo *Repository
}

// NewCheckHandler builds the RETIREMENT_CHECK handler.
func NewCheckHandler(repo *Repository) *CheckHandler {
	return &CheckHandler{repo: repo}
}

func (h *CheckHandler) Handle(ctx context.Context, tx *sql.Tx, dynasty string, ev *models.Event) ([]byte, error) {
	var payload RetirementCheckPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return nil, engineerr.Wrap(engineerr.KindInvalidTx, "decode retirement check payload", err)
	}

	rng := rand.New(rand.NewSource(payload.Seed))
	if !Decide(rng, payload.Position, payload.Age, payload.YearsPro) {
		return json.Marshal(map[string]bool{"retired": false})
	}

	if err := h.repo.Retire(ctx, tx, dynasty, payload.PlayerID, payload.Season, "age/performance decline", payload.FinalTeamID); err != nil {
		return nil, err
	}

	gameStats, err := h.repo.GameStatsForPlayer(ctx, dynasty, payload.PlayerID)
	if err != nil {
		return nil, err
	}
	summary := AggregateCareer(dynasty, payload.PlayerID, payload.SeasonsPlayed, payload.ProBowls, payload.AllPros, payload.Championships, gameStats)
	if err := h.repo.SaveCareerSummary(ctx, tx, summary); err != nil {
		return nil, err
	}

	return json.Marshal(map[string]interface{}{"retired": true, "hof_score": summary.HOFScore})
}

// SweepPayload is the Event.Payload contents for a PHASE_HOOK event
// during OFFSEASON_HONORS: run a retirement check across every active
// player in the dynasty rather than one player at a time. Pro Bowl/
// All-Pro/championship accolades have no awards subsystem anywhere in
// this engine (nothing in the retired NFL source survived to ground
// one), so SweepHandler retires players and rolls up career stats but
// always passes zero for those three counts.
type SweepPayload struct {
	Season int   `json:"season"`
	Seed   int64 `json:"seed"`
}

type activePlayer struct {
	id       int
	position string
	age      int
	yearsPro int
}

// SweepHandler implements dispatch.Handler for the honors-phase
// PHASE_HOOK event: it is CheckHandler applied to the whole active
// roster in one transaction instead of one event per player.
type SweepHandler struct {
	repo *Repository
}

// NewSweepHandler builds the honors-phase PHASE_HOOK handler.
func NewSweepHandler(repo *Repository) *SweepHandler {
	return &SweepHandler{repo: repo}
}

func (h *SweepHandler) Handle(ctx context.Context, tx *sql.Tx, dynasty string, ev *models.Event) ([]byte, error) {
	var payload SweepPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return nil, engineerr.Wrap(engineerr.KindInvalidTx, "decode honors sweep payload", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT player_id, position, age, years_pro FROM players WHERE dynasty_id = $1 AND retired = false`,
		dynasty,
	)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "query active roster for honors sweep", err)
	}
	var active []activePlayer
	for rows.Next() {
		var p activePlayer
		if err := rows.Scan(&p.id, &p.position, &p.age, &p.yearsPro); err != nil {
			rows.Close()
			return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "scan active player for honors sweep", err)
		}
		active = append(active, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "iterate active roster for honors sweep", err)
	}
	rows.Close()

	rng := rand.New(rand.NewSource(payload.Seed))
	retiredCount := 0
	for _, p := range active {
		if !Decide(rng, p.position, p.age, p.yearsPro) {
			continue
		}
		if err := h.repo.Retire(ctx, tx, dynasty, p.id, payload.Season, "age/performance decline", nil); err != nil {
			return nil, err
		}
		gameStats, err := h.repo.GameStatsForPlayer(ctx, dynasty, p.id)
		if err != nil {
			return nil, err
		}
		summary := AggregateCareer(dynasty, p.id, p.yearsPro, 0, 0, 0, gameStats)
		if err := h.repo.SaveCareerSummary(ctx, tx, summary); err != nil {
			return nil, err
		}
		retiredCount++
	}

	return json.Marshal(map[string]int{"retired_count": retiredCount})
}
