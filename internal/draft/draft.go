// Package draft implements the rookie draft conducted during
// PhaseOffseasonDraft: a fresh prospect class is generated each season,
// teams select in the order DraftOrderService computes, and each
// selection turns a RookieProspect into a real Player under a rookie
// wage-scale Contract signed through the cap ledger.
package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/nfl-analytics/backend/internal/cap"
	"github.com/nfl-analytics/backend/internal/draftorder"
	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/store"
)

// prospectPositions is the pool of positions a generated class draws
// from, weighted the way an NFL draft class actually skews: offensive
// and defensive line and skill positions dominate, specialists are rare.
var prospectPositions = []string{
	"QB", "RB", "RB", "WR", "WR", "WR", "TE",
	"OT", "OT", "IOL", "IOL",
	"EDGE", "EDGE", "DT", "DT", "LB", "LB",
	"CB", "CB", "CB", "S", "S",
	"K", "P",
}

// Repository persists prospects and selections.
type Repository struct {
	s store.Store
}

// New builds a Repository bound to s.
func New(s store.Store) *Repository {
	return &Repository{s: s}
}

// GenerateClass creates a fresh season's prospect pool. Overall ratings
// follow a rough bell curve (mean 65, floor 40, ceiling 95) biased
// slightly downward since most rookies are not immediate starters.
func GenerateClass(rng *rand.Rand, season, count int) []models.RookieProspect {
	prospects := make([]models.RookieProspect, 0, count)
	for i := 0; i < count; i++ {
		position := prospectPositions[rng.Intn(len(prospectPositions))]
		overall := 40 + rng.Intn(36) + rng.Intn(20) // two dice biases the mode toward the middle
		if overall > 95 {
			overall = 95
		}
		prospects = append(prospects, models.RookieProspect{
			Season:     season,
			ProspectID: i + 1,
			Name:       fmt.Sprintf("Prospect %d", i+1),
			Position:   position,
			Overall:    overall,
			Age:        21,
		})
	}
	return prospects
}

// SaveClass persists a generated prospect class.
func (r *Repository) SaveClass(ctx context.Context, tx *sql.Tx, dynasty string, prospects []models.RookieProspect) error {
	for _, p := range prospects {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO rookie_prospects (dynasty_id, season, prospect_id, name, position, overall, age, drafted)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,false)
			 ON CONFLICT (dynasty_id, season, prospect_id) DO NOTHING`,
			dynasty, p.Season, p.ProspectID, p.Name, p.Position, p.Overall, p.Age,
		)
		if err != nil {
			return engineerr.Wrap(engineerr.KindPersistenceFailed, "insert rookie prospect", err)
		}
	}
	return nil
}

// AvailableProspects returns the undrafted pool for a season, best
// overall first.
func (r *Repository) AvailableProspects(ctx context.Context, dynasty string, season int) ([]models.RookieProspect, error) {
	rows, err := r.s.DB().QueryContext(ctx,
		`SELECT dynasty_id, season, prospect_id, name, position, overall, age, drafted
		 FROM rookie_prospects WHERE dynasty_id = $1 AND season = $2 AND drafted = false
		 ORDER BY overall DESC`,
		dynasty, season,
	)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "query available prospects", err)
	}
	defer rows.Close()

	var out []models.RookieProspect
	for rows.Next() {
		var p models.RookieProspect
		if err := rows.Scan(&p.Dynasty, &p.Season, &p.ProspectID, &p.Name, &p.Position, &p.Overall, &p.Age, &p.Drafted); err != nil {
			return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "scan rookie prospect", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// BuildOrder computes the full draft order via draftorder.ComputeDraftOrder
// and persists one pending draft_selections row per pick.
func (r *Repository) BuildOrder(ctx context.Context, tx *sql.Tx, dynasty string, season int, standings []*models.StandingsRow, playoffResults []draftorder.PlayoffResult, roundCount, picksPerRound int) error {
	picks := draftorder.ComputeDraftOrder(standings, playoffResults, roundCount, picksPerRound)
	for _, p := range picks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO draft_selections (dynasty_id, season, overall_pick, round, pick_in_round, team_id)
			 VALUES ($1,$2,$3,$4,$5,$6)
			 ON CONFLICT (dynasty_id, season, overall_pick) DO NOTHING`,
			dynasty, season, p.Overall, p.Round, p.PickInRound, p.TeamID,
		)
		if err != nil {
			return engineerr.Wrap(engineerr.KindPersistenceFailed, "insert draft selection", err)
		}
	}
	return nil
}

// NextOnTheClock returns the lowest-numbered unfilled selection for a
// season, or nil if the draft is complete.
func (r *Repository) NextOnTheClock(ctx context.Context, dynasty string, season int) (*models.DraftSelection, error) {
	row := r.s.DB().QueryRowContext(ctx,
		`SELECT dynasty_id, season, overall_pick, round, pick_in_round, team_id, prospect_id, player_id, selected_at
		 FROM draft_selections WHERE dynasty_id = $1 AND season = $2 AND selected_at IS NULL
		 ORDER BY overall_pick ASC LIMIT 1`,
		dynasty, season,
	)
	var sel models.DraftSelection
	if err := row.Scan(&sel.Dynasty, &sel.Season, &sel.OverallPick, &sel.Round, &sel.PickInRound,
		&sel.TeamID, &sel.ProspectID, &sel.PlayerID, &sel.SelectedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "query next on the clock", err)
	}
	return &sel, nil
}

// rookieWageYears and the base salary curve below approximate a flat,
// team-friendly rookie scale rather than the real slotted CBA table: four
// years, signing bonus scaled down the later the pick, no options.
const rookieContractYears = 4

func rookieContract(playerID, teamID, overallPick int, signedAt time.Time) *models.Contract {
	signingBonus := 8_000_000 - (overallPick-1)*230_000
	if signingBonus < 300_000 {
		signingBonus = 300_000
	}
	proration := cap.Proration(signingBonus, rookieContractYears)
	base := make([]int, rookieContractYears)
	roster := make([]int, rookieContractYears)
	guarantees := make([]int, rookieContractYears)
	for i := range base {
		base[i] = 750_000 + i*150_000
	}
	return &models.Contract{
		PlayerID:     playerID,
		TeamID:       teamID,
		Years:        rookieContractYears,
		SigningBonus: signingBonus,
		BaseSalary:   base,
		Proration:    proration,
		Guarantees:   guarantees,
		RosterBonus:  roster,
		Status:       "active",
		SignedAt:     signedAt,
	}
}

// MakeSelection fills the next pending selection with prospectID,
// creating the resulting Player row and signing its rookie contract
// through the cap ledger, all within tx. It rejects a pick for a
// prospect who is not on this selection's board or is no longer
// available.
func (r *Repository) MakeSelection(ctx context.Context, tx *sql.Tx, ledger *cap.Ledger, dynasty string, season, defaultCapLimit int, sel models.DraftSelection, prospectID int, playerIDFactory func() int, date time.Time) (int, error) {
	var drafted bool
	var name, position string
	var overall, age int
	err := tx.QueryRowContext(ctx,
		`SELECT name, position, overall, age, drafted FROM rookie_prospects
		 WHERE dynasty_id = $1 AND season = $2 AND prospect_id = $3`,
		dynasty, season, prospectID,
	).Scan(&name, &position, &overall, &age, &drafted)
	if err == sql.ErrNoRows {
		return 0, engineerr.New(engineerr.KindInvalidTx, "prospect not found in this season's class")
	}
	if err != nil {
		return 0, engineerr.Wrap(engineerr.KindPersistenceFailed, "query prospect", err)
	}
	if drafted {
		return 0, engineerr.New(engineerr.KindInvalidTx, "prospect already drafted")
	}

	playerID := playerIDFactory()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO players (dynasty_id, player_id, name, position, overall, age, years_pro, team_id, retired)
		 VALUES ($1,$2,$3,$4,$5,$6,0,$7,false)`,
		dynasty, playerID, name, position, overall, age, sel.TeamID,
	)
	if err != nil {
		return 0, engineerr.Wrap(engineerr.KindPersistenceFailed, "insert drafted player", err)
	}

	contract := rookieContract(playerID, sel.TeamID, sel.OverallPick, date)
	if err := r.saveContract(ctx, tx, dynasty, contract); err != nil {
		return 0, err
	}
	if err := ledger.Sign(ctx, tx, dynasty, sel.TeamID, season, defaultCapLimit, date, contract); err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE rookie_prospects SET drafted = true WHERE dynasty_id = $1 AND season = $2 AND prospect_id = $3`,
		dynasty, season, prospectID,
	); err != nil {
		return 0, engineerr.Wrap(engineerr.KindPersistenceFailed, "mark prospect drafted", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE draft_selections SET prospect_id = $1, player_id = $2, selected_at = $3
		 WHERE dynasty_id = $4 AND season = $5 AND overall_pick = $6`,
		prospectID, playerID, date, dynasty, season, sel.OverallPick,
	); err != nil {
		return 0, engineerr.Wrap(engineerr.KindPersistenceFailed, "fill draft selection", err)
	}

	return playerID, nil
}

// saveContract inserts a signed contract row; contracts are otherwise
// read-modeled from events rather than owned by any one package, so the
// draft is responsible for writing the row it creates.
func (r *Repository) saveContract(ctx context.Context, tx *sql.Tx, dynasty string, c *models.Contract) error {
	base, err := json.Marshal(c.BaseSalary)
	if err != nil {
		return engineerr.Wrap(engineerr.KindInvalidTx, "marshal base salary", err)
	}
	proration, err := json.Marshal(c.Proration)
	if err != nil {
		return engineerr.Wrap(engineerr.KindInvalidTx, "marshal proration", err)
	}
	guarantees, err := json.Marshal(c.Guarantees)
	if err != nil {
		return engineerr.Wrap(engineerr.KindInvalidTx, "marshal guarantees", err)
	}
	roster, err := json.Marshal(c.RosterBonus)
	if err != nil {
		return engineerr.Wrap(engineerr.KindInvalidTx, "marshal roster bonus", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO contracts (dynasty_id, player_id, team_id, years, signing_bonus, base_salary, proration, guarantees, roster_bonus, void_years, status, signed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		dynasty, c.PlayerID, c.TeamID, c.Years, c.SigningBonus, base, proration, guarantees, roster, c.VoidYears, c.Status, c.SignedAt,
	)
	if err != nil {
		return engineerr.Wrap(engineerr.KindPersistenceFailed, "insert contract", err)
	}
	return nil
}

// BestAvailable recommends the top prospects remaining for a team,
// ranked by a blend of raw overall rating and positional need: a team
// thin at a position gets that position's prospects ranked above their
// raw-talent order would otherwise place them.
func BestAvailable(available []models.RookieProspect, needWeight func(position string) float64, count int) []models.RookieProspect {
	scored := make([]models.RookieProspect, len(available))
	copy(scored, available)
	sort.SliceStable(scored, func(i, j int) bool {
		si := float64(scored[i].Overall) * needWeight(scored[i].Position)
		sj := float64(scored[j].Overall) * needWeight(scored[j].Position)
		return si > sj
	})
	if count < len(scored) {
		scored = scored[:count]
	}
	return scored
}
