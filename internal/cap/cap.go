// Package cap is the authoritative Salary-Cap Ledger (§4.7): signing-bonus
// proration, dead money, prorated-bonus acceleration, carryover, and the
// cap transaction log every mutation emits.
package cap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/store"
)

// MaxProrationYears is the league-constant ceiling on signing-bonus
// proration: a bonus is spread evenly over min(contract years, 5) years.
const MaxProrationYears = 5

// Proration spreads signingBonus evenly across min(years, MaxProrationYears)
// years, front-loading any remainder cent onto the earliest years so the
// per-year slice sums exactly to signingBonus — invariant 1 of §4.7
// depends on this summing exactly, not approximately.
func Proration(signingBonus, years int) []int {
	if years <= 0 {
		return nil
	}
	prorationYears := years
	if prorationYears > MaxProrationYears {
		prorationYears = MaxProrationYears
	}

	out := make([]int, years)
	base := signingBonus / prorationYears
	remainder := signingBonus % prorationYears
	for i := 0; i < prorationYears; i++ {
		out[i] = base
		if i < remainder {
			out[i]++
		}
	}
	return out
}

// Ledger is the repository + pure-math surface over salary_cap_records and
// cap_transactions.
type Ledger struct {
	s store.Store
}

// New builds a Ledger bound to s.
func New(s store.Store) *Ledger {
	return &Ledger{s: s}
}

// Get loads a team's cap record for a season, defaulting CapLimit to
// capLimit if no row exists yet.
func (l *Ledger) Get(ctx context.Context, tx *sql.Tx, dynasty string, teamID, season, defaultCapLimit int) (*models.SalaryCapRecord, error) {
	rec := &models.SalaryCapRecord{Dynasty: dynasty, TeamID: teamID, Season: season, CapLimit: defaultCapLimit}
	err := tx.QueryRowContext(ctx,
		`SELECT cap_limit, active_hits, dead_money, carryover FROM salary_cap_records
		 WHERE dynasty_id = $1 AND team_id = $2 AND season = $3`,
		dynasty, teamID, season,
	).Scan(&rec.CapLimit, &rec.ActiveHits, &rec.DeadMoney, &rec.Carryover)
	if err == sql.ErrNoRows {
		return rec, nil
	}
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "load cap record", err)
	}
	return rec, nil
}

func (l *Ledger) save(ctx context.Context, tx *sql.Tx, rec *models.SalaryCapRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO salary_cap_records (dynasty_id, team_id, season, cap_limit, active_hits, dead_money, carryover)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (dynasty_id, team_id, season) DO UPDATE SET
		   cap_limit = EXCLUDED.cap_limit, active_hits = EXCLUDED.active_hits,
		   dead_money = EXCLUDED.dead_money, carryover = EXCLUDED.carryover`,
		rec.Dynasty, rec.TeamID, rec.Season, rec.CapLimit, rec.ActiveHits, rec.DeadMoney, rec.Carryover,
	)
	if err != nil {
		return engineerr.Wrap(engineerr.KindPersistenceFailed, "save cap record", err)
	}
	return nil
}

// logTransaction appends the invariant-3 audit row every cap mutation must
// emit (§4.7).
func (l *Ledger) logTransaction(ctx context.Context, tx *sql.Tx, dynasty string, teamID int, date time.Time, kind string, impactCurrent, impactFuture int, description string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO cap_transactions (dynasty_id, team_id, date, transaction_type, cap_impact_current, cap_impact_future, description)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		dynasty, teamID, date, kind, impactCurrent, impactFuture, description,
	)
	if err != nil {
		return engineerr.Wrap(engineerr.KindPersistenceFailed, "log cap transaction", err)
	}
	return nil
}

// Sign applies a new contract's first-year cap hit to the team's active
// record and logs the transaction. Proration for future years is carried
// on the Contract itself, applied as those years arrive via AdvanceSeason.
func (l *Ledger) Sign(ctx context.Context, tx *sql.Tx, dynasty string, teamID, season, defaultCapLimit int, date time.Time, contract *models.Contract) error {
	rec, err := l.Get(ctx, tx, dynasty, teamID, season, defaultCapLimit)
	if err != nil {
		return err
	}
	hit := contract.CapHitForYear(0)
	rec.ActiveHits += hit
	if err := l.save(ctx, tx, rec); err != nil {
		return err
	}
	futureHit := 0
	for y := 1; y < contract.Years; y++ {
		futureHit += contract.CapHitForYear(y)
	}
	return l.logTransaction(ctx, tx, dynasty, teamID, date, "sign", hit, futureHit,
		fmt.Sprintf("signed player %d to %d-year contract", contract.PlayerID, contract.Years))
}

// ReleaseDesignation controls which year absorbs a released player's
// remaining prorated bonus: the standard designation charges it all to
// the current season; a post-June-1 designation splits it across the
// current and next season (§4.7 "prorated-bonus acceleration").
type ReleaseDesignation int

const (
	DesignationStandard ReleaseDesignation = iota
	DesignationPostJune1
)

// Release cuts a player: accelerates remaining future proration into dead
// money for the current (and, for a post-June-1 designation, next)
// season, and removes the player's current-year active cap hit.
func (l *Ledger) Release(ctx context.Context, tx *sql.Tx, dynasty string, teamID, season, defaultCapLimit int, date time.Time, contract *models.Contract, yearIndex int, designation ReleaseDesignation) error {
	rec, err := l.Get(ctx, tx, dynasty, teamID, season, defaultCapLimit)
	if err != nil {
		return err
	}

	currentHit := contract.CapHitForYear(yearIndex)
	rec.ActiveHits -= currentHit

	remainingProration := 0
	for y := yearIndex + 1; y < len(contract.Proration) && y < contract.Years; y++ {
		remainingProration += contract.Proration[y]
	}

	var currentDead, futureDead int
	switch designation {
	case DesignationPostJune1:
		currentDead = firstYearProration(contract, yearIndex)
		futureDead = remainingProration - currentDead
	default:
		currentDead = remainingProration
		futureDead = 0
	}

	rec.DeadMoney += currentDead
	if err := l.save(ctx, tx, rec); err != nil {
		return err
	}

	if err := l.logTransaction(ctx, tx, dynasty, teamID, date, "release", currentDead-currentHit, futureDead,
		fmt.Sprintf("released player %d, dead money %d", contract.PlayerID, currentDead)); err != nil {
		return err
	}

	if futureDead > 0 {
		nextRec, err := l.Get(ctx, tx, dynasty, teamID, season+1, defaultCapLimit)
		if err != nil {
			return err
		}
		nextRec.DeadMoney += futureDead
		if err := l.save(ctx, tx, nextRec); err != nil {
			return err
		}
	}
	return nil
}

// firstYearProration is the single next year's proration slice, the
// portion a post-June-1 designation keeps on the current season.
func firstYearProration(contract *models.Contract, yearIndex int) int {
	next := yearIndex + 1
	if next < len(contract.Proration) && next < contract.Years {
		return contract.Proration[next]
	}
	return 0
}

// Trade moves a contract's remaining cap obligations from fromTeam to
// toTeam: unlike a release, no dead money is created for guaranteed-free
// proration (the acquiring team assumes the remaining schedule); any
// portion the prior team had already guaranteed and cannot transfer is
// passed in as forcedDeadMoney by the caller (the Transaction Validator
// decides this before the ledger ever sees the trade).
func (l *Ledger) Trade(ctx context.Context, tx *sql.Tx, dynasty string, fromTeam, toTeam, season, defaultCapLimit int, date time.Time, contract *models.Contract, yearIndex, forcedDeadMoney int) error {
	fromRec, err := l.Get(ctx, tx, dynasty, fromTeam, season, defaultCapLimit)
	if err != nil {
		return err
	}
	currentHit := contract.CapHitForYear(yearIndex)
	fromRec.ActiveHits -= currentHit
	fromRec.DeadMoney += forcedDeadMoney
	if err := l.save(ctx, tx, fromRec); err != nil {
		return err
	}
	if err := l.logTransaction(ctx, tx, dynasty, fromTeam, date, "trade_out", forcedDeadMoney-currentHit, 0,
		fmt.Sprintf("traded away player %d", contract.PlayerID)); err != nil {
		return err
	}

	toRec, err := l.Get(ctx, tx, dynasty, toTeam, season, defaultCapLimit)
	if err != nil {
		return err
	}
	toRec.ActiveHits += currentHit
	if err := l.save(ctx, tx, toRec); err != nil {
		return err
	}
	futureHit := 0
	for y := yearIndex + 1; y < contract.Years; y++ {
		futureHit += contract.CapHitForYear(y)
	}
	return l.logTransaction(ctx, tx, dynasty, toTeam, date, "trade_in", currentHit, futureHit,
		fmt.Sprintf("acquired player %d by trade", contract.PlayerID))
}

// CarryOver rolls a team's unused cap space from one season into the
// next season's limit (§4.7 "carryover").
func (l *Ledger) CarryOver(ctx context.Context, tx *sql.Tx, dynasty string, teamID, fromSeason, toSeason, defaultCapLimit int) error {
	from, err := l.Get(ctx, tx, dynasty, teamID, fromSeason, defaultCapLimit)
	if err != nil {
		return err
	}
	space := from.CapSpace()
	if space <= 0 {
		return nil
	}
	to, err := l.Get(ctx, tx, dynasty, teamID, toSeason, defaultCapLimit)
	if err != nil {
		return err
	}
	to.Carryover += space
	return l.save(ctx, tx, to)
}

// CheckCompliance is invariant 2 of §4.7: at the final-roster deadline,
// every team must have (active hits + dead money - carryover) <= cap
// limit. A violation returns a CapViolation error that the caller (the
// Season Controller) must treat as blocking further dispatch until the
// team resolves it.
func (l *Ledger) CheckCompliance(ctx context.Context, tx *sql.Tx, dynasty string, teamID, season, defaultCapLimit int) error {
	rec, err := l.Get(ctx, tx, dynasty, teamID, season, defaultCapLimit)
	if err != nil {
		return err
	}
	used := rec.ActiveHits + rec.DeadMoney - rec.Carryover
	if used > rec.CapLimit {
		return engineerr.New(engineerr.KindCapViolation,
			fmt.Sprintf("team %d over cap by %d at final-roster deadline", teamID, used-rec.CapLimit))
	}
	return nil
}
