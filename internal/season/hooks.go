package season

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/nfl-analytics/backend/internal/draft"
	"github.com/nfl-analytics/backend/internal/draftorder"
	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/eventstore"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/playoff"
	"github.com/nfl-analytics/backend/internal/retirement"
	"github.com/nfl-analytics/backend/internal/schedule"
	"github.com/nfl-analytics/backend/internal/standings"
	"github.com/nfl-analytics/backend/internal/store"
)

// rookieClassSize, draftRounds and picksPerRound size the rookie draft
// seedDraft generates: a full 32-team, 7-round class.
const (
	rookieClassSize  = 224
	draftRounds      = 7
	picksPerRound    = 32
	faWaveCount      = 4
	wildCardLeadDays = 7
	roundAdvanceDays = 7
)

// hooks seeds whatever the Season Controller's newly entered phase needs:
// the schedule package's round robin on PRESEASON->REGULAR_SEASON, the
// Playoff Controller's Wild Card round on REGULAR_SEASON->PLAYOFFS (and
// each later round as the prior one finishes, via progressPlayoffs), the
// honors sweep's PHASE_HOOK event on PLAYOFFS->OFFSEASON_HONORS, the free
// agency window's FA_WAVE_TICK events on OFFSEASON_HONORS->OFFSEASON_FA,
// and the rookie class/draft order/DRAFT_PICK events on
// OFFSEASON_FA->OFFSEASON_DRAFT. None of schedule, playoff, retirement or
// draft reach into the phase machine themselves; this is their only
// caller that does.
type hooks struct {
	s               store.Store
	es              *eventstore.EventStore
	standings       *standings.Repository
	draftRepo       *draft.Repository
	defaultCapLimit int
}

// newHooks builds a hooks bound to the given dependencies.
func newHooks(s store.Store, es *eventstore.EventStore, st *standings.Repository, draftRepo *draft.Repository, defaultCapLimit int) *hooks {
	return &hooks{s: s, es: es, standings: st, draftRepo: draftRepo, defaultCapLimit: defaultCapLimit}
}

// onTransition seeds whatever the entered phase `to` needs. date is the
// day the transition was observed on; every phase's first seeded event is
// dated from it, directly or with a lead time.
func (h *hooks) onTransition(ctx context.Context, dynasty string, season int, date time.Time, to models.Phase) error {
	switch to {
	case models.PhaseRegularSeason:
		return h.seedRegularSeasonSchedule(ctx, dynasty, season)
	case models.PhasePlayoffs:
		return h.seedWildCard(ctx, dynasty, season, date)
	case models.PhaseOffseasonHonors:
		return h.seedHonorsHook(ctx, dynasty, season, date)
	case models.PhaseOffseasonFA:
		return h.seedFAWaves(ctx, dynasty, season, date)
	case models.PhaseOffseasonDraft:
		return h.seedDraft(ctx, dynasty, season, date)
	default:
		return nil
	}
}

// seedRegularSeasonSchedule seeds the 272-game regular season schedule
// exactly once per season, detected via the Event Store's structured-id
// prefix (the same idempotency the Playoff Controller uses).
func (h *hooks) seedRegularSeasonSchedule(ctx context.Context, dynasty string, season int) error {
	existing, err := h.es.ForStructuredPrefix(ctx, dynasty, fmt.Sprintf("%s%d_", schedule.StructuredIDPrefix, season))
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	teamIDs, err := h.teamIDs(ctx, dynasty)
	if err != nil {
		return err
	}
	matchups, err := schedule.RoundRobin(teamIDs)
	if err != nil {
		return err
	}

	seeder := schedule.NewSeeder(h.es)
	return h.s.WithDynastyTx(ctx, dynasty, func(tx *sql.Tx) error {
		return seeder.Seed(ctx, tx, dynasty, season, matchups)
	})
}

// seedWildCard builds this season's conference standings and division map
// and asks the Playoff Controller to seed the Wild Card round, a week
// after the regular season's last game.
func (h *hooks) seedWildCard(ctx context.Context, dynasty string, season int, date time.Time) error {
	conferences, divisionOf, err := h.conferenceStandings(ctx, dynasty, season)
	if err != nil {
		return err
	}

	ctrl := playoff.NewController(h.es, playoff.StandardSeeder{DivisionOf: divisionOf}, season)
	wildCardDate := date.AddDate(0, 0, wildCardLeadDays)
	return h.s.WithDynastyTx(ctx, dynasty, func(tx *sql.Tx) error {
		return ctrl.StartWildCard(ctx, tx, dynasty, wildCardDate, conferences)
	})
}

// progressPlayoffs checks whether the most recently seeded playoff round
// has finished and, if so, advances the bracket to the next one. Called
// every day the Season Controller is in PhasePlayoffs; it is a no-op once
// the Super Bowl round itself has been scheduled, since SuperBowlExecuted
// is what moves the phase FSM on from there, not this.
func (h *hooks) progressPlayoffs(ctx context.Context, dynasty string, season int, date time.Time) error {
	activeRound, err := h.currentRound(ctx, dynasty, season)
	if err != nil {
		return err
	}
	if activeRound == "" || activeRound == playoff.RoundSuperBowl {
		return nil
	}

	done, err := h.roundComplete(ctx, dynasty, season, activeRound)
	if err != nil {
		return err
	}
	if !done {
		return nil
	}

	ctrl := playoff.NewController(h.es, nil, season)
	nextDate := date.AddDate(0, 0, roundAdvanceDays)
	return h.s.WithDynastyTx(ctx, dynasty, func(tx *sql.Tx) error {
		byeSeed, originalSeeds, err := ctrl.LoadSeeds(ctx, tx, dynasty)
		if err != nil {
			return err
		}
		return ctrl.AdvanceRound(ctx, tx, dynasty, activeRound, nextDate, byeSeed, originalSeeds, playoff.WinnerFromBoxScore)
	})
}

// currentRound reports the furthest-along playoff round with any events
// scheduled this season, or "" before Wild Card has been seeded.
func (h *hooks) currentRound(ctx context.Context, dynasty string, season int) (string, error) {
	for _, round := range []string{playoff.RoundSuperBowl, playoff.RoundConference, playoff.RoundDivisional, playoff.RoundWildCard} {
		evs, err := h.es.ForStructuredPrefix(ctx, dynasty, fmt.Sprintf("playoff_%d_%s_", season, round))
		if err != nil {
			return "", err
		}
		if len(evs) > 0 {
			return round, nil
		}
	}
	return "", nil
}

// roundComplete reports whether every event scheduled for round has left
// EventScheduled. An unseeded round is not complete.
func (h *hooks) roundComplete(ctx context.Context, dynasty string, season int, round string) (bool, error) {
	evs, err := h.es.ForStructuredPrefix(ctx, dynasty, fmt.Sprintf("playoff_%d_%s_", season, round))
	if err != nil {
		return false, err
	}
	if len(evs) == 0 {
		return false, nil
	}
	for _, ev := range evs {
		if ev.Status == models.EventScheduled {
			return false, nil
		}
	}
	return true, nil
}

// seedHonorsHook schedules exactly one PHASE_HOOK event per season, the
// trigger retirement.SweepHandler runs against the whole active roster.
// The RNG seed is derived from the season number rather than wall-clock
// time so a given dynasty's honors sweep is reproducible from its stored
// events alone.
func (h *hooks) seedHonorsHook(ctx context.Context, dynasty string, season int, date time.Time) error {
	payload, err := json.Marshal(retirement.SweepPayload{Season: season, Seed: int64(season)})
	if err != nil {
		return engineerr.Wrap(engineerr.KindInvalidTx, "marshal honors sweep payload", err)
	}
	ev := &models.Event{
		Dynasty:      dynasty,
		Date:         date,
		Kind:         models.EventPhaseHook,
		StructuredID: fmt.Sprintf("honors_%d", season),
		Payload:      payload,
		Status:       models.EventScheduled,
	}
	return h.s.WithDynastyTx(ctx, dynasty, func(tx *sql.Tx) error {
		_, err := h.es.Insert(ctx, tx, dynasty, ev)
		return err
	})
}

// seedFAWaves schedules faWaveCount FA_WAVE_TICK events, one per week,
// starting the day the offseason free agency window opens. §5 leaves the
// wave cadence unspecified beyond "ticks through the offseason", so this
// fixes it at one wave per week for a month.
func (h *hooks) seedFAWaves(ctx context.Context, dynasty string, season int, date time.Time) error {
	existing, err := h.es.ForStructuredPrefix(ctx, dynasty, fmt.Sprintf("fa_wave_%d_", season))
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	return h.s.WithDynastyTx(ctx, dynasty, func(tx *sql.Tx) error {
		for i := 0; i < faWaveCount; i++ {
			ev := &models.Event{
				Dynasty:      dynasty,
				Date:         date.AddDate(0, 0, i*7),
				Kind:         models.EventFAWaveTick,
				StructuredID: fmt.Sprintf("fa_wave_%d_%d", season, i+1),
				Payload:      []byte(`{}`),
				Status:       models.EventScheduled,
			}
			if _, err := h.es.Insert(ctx, tx, dynasty, ev); err != nil {
				return err
			}
		}
		return nil
	})
}

// seedDraft generates this season's rookie class, computes the draft
// order from final standings and playoff results, and schedules one
// DRAFT_PICK event per overall pick, a day apart.
func (h *hooks) seedDraft(ctx context.Context, dynasty string, season int, date time.Time) error {
	existing, err := h.es.ForStructuredPrefix(ctx, dynasty, fmt.Sprintf("draft_pick_%d_", season))
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	rows, err := h.standings.ForSeason(ctx, dynasty, season)
	if err != nil {
		return err
	}

	pickPayload, err := json.Marshal(draft.DraftPickPayload{Season: season, DefaultCapLimit: h.defaultCapLimit})
	if err != nil {
		return engineerr.Wrap(engineerr.KindInvalidTx, "marshal draft pick payload", err)
	}

	return h.s.WithDynastyTx(ctx, dynasty, func(tx *sql.Tx) error {
		playoffResults, err := h.derivePlayoffResults(ctx, tx, dynasty, season)
		if err != nil {
			return err
		}

		rng := rand.New(rand.NewSource(int64(season)))
		class := draft.GenerateClass(rng, season, rookieClassSize)
		if err := h.draftRepo.SaveClass(ctx, tx, dynasty, class); err != nil {
			return err
		}
		if err := h.draftRepo.BuildOrder(ctx, tx, dynasty, season, rows, playoffResults, draftRounds, picksPerRound); err != nil {
			return err
		}

		total := draftRounds * picksPerRound
		for i := 0; i < total; i++ {
			ev := &models.Event{
				Dynasty:      dynasty,
				Date:         date.AddDate(0, 0, i),
				Kind:         models.EventDraftPick,
				StructuredID: fmt.Sprintf("draft_pick_%d_%d", season, i+1),
				Payload:      pickPayload,
				Status:       models.EventScheduled,
			}
			if _, err := h.es.Insert(ctx, tx, dynasty, ev); err != nil {
				return err
			}
		}
		return nil
	})
}

// derivePlayoffResults reconstructs draftorder.PlayoffResult for every
// team that made the playoffs this season from the playoff_seeds rows the
// Playoff Controller persisted and the box_scores its games wrote: rounds
// won is a tally of playoff game wins, and the Super Bowl winner is the
// one whose winning game's structured id ends in the Super Bowl round
// suffix. Teams that never made the bracket are simply absent, which
// draftorder.ComputeDraftOrder treats as "order by regular season record"
// for everyone else.
func (h *hooks) derivePlayoffResults(ctx context.Context, tx *sql.Tx, dynasty string, season int) ([]draftorder.PlayoffResult, error) {
	participantRows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT team_id FROM playoff_seeds WHERE dynasty_id = $1 AND season = $2`,
		dynasty, season,
	)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "query playoff participants", err)
	}
	results := make(map[int]*draftorder.PlayoffResult)
	for participantRows.Next() {
		var teamID int
		if err := participantRows.Scan(&teamID); err != nil {
			participantRows.Close()
			return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "scan playoff participant", err)
		}
		results[teamID] = &draftorder.PlayoffResult{TeamID: teamID}
	}
	if err := participantRows.Err(); err != nil {
		participantRows.Close()
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "iterate playoff participants", err)
	}
	participantRows.Close()

	gameRows, err := tx.QueryContext(ctx,
		`SELECT game_id, home_team_id, away_team_id, home_score, away_score FROM box_scores
		 WHERE dynasty_id = $1 AND game_id LIKE $2`,
		dynasty, fmt.Sprintf("playoff_%d_%%", season),
	)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "query playoff box scores", err)
	}
	defer gameRows.Close()
	for gameRows.Next() {
		var gameID string
		var home, away, homeScore, awayScore int
		if err := gameRows.Scan(&gameID, &home, &away, &homeScore, &awayScore); err != nil {
			return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "scan playoff box score", err)
		}
		winner := home
		if awayScore > homeScore {
			winner = away
		}
		pr, ok := results[winner]
		if !ok {
			continue
		}
		pr.RoundsWon++
		if round, _, ok := eventstore.ParseRound(gameID); ok && round == playoff.RoundSuperBowl {
			pr.WonSuperBowl = true
		}
	}
	if err := gameRows.Err(); err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "iterate playoff box scores", err)
	}

	out := make([]draftorder.PlayoffResult, 0, len(results))
	for _, pr := range results {
		out = append(out, *pr)
	}
	return out, nil
}

// conferenceStandings groups this season's standings by conference using
// the teams table, and returns the division-of-team map the Standard
// Seeder needs to find division winners.
func (h *hooks) conferenceStandings(ctx context.Context, dynasty string, season int) (map[string][]*models.StandingsRow, map[int]models.Division, error) {
	rows, err := h.standings.ForSeason(ctx, dynasty, season)
	if err != nil {
		return nil, nil, err
	}

	teamConf, teamDiv, err := h.teamMeta(ctx, dynasty)
	if err != nil {
		return nil, nil, err
	}

	out := map[string][]*models.StandingsRow{
		string(models.ConferenceAFC): {},
		string(models.ConferenceNFC): {},
	}
	for _, row := range rows {
		conf := teamConf[row.TeamID]
		out[conf] = append(out[conf], row)
	}
	return out, teamDiv, nil
}

// teamIDs returns every team id in the league, ordered, for RoundRobin.
func (h *hooks) teamIDs(ctx context.Context, dynasty string) ([]int, error) {
	rows, err := h.s.DB().QueryContext(ctx, `SELECT id FROM teams WHERE dynasty_id = $1 ORDER BY id`, dynasty)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "query team ids", err)
	}
	defer rows.Close()
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "scan team id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// teamMeta returns each team's conference (keyed as a plain string so
// callers can index the conferenceStandings map directly) and division.
func (h *hooks) teamMeta(ctx context.Context, dynasty string) (map[int]string, map[int]models.Division, error) {
	rows, err := h.s.DB().QueryContext(ctx, `SELECT id, conference, division FROM teams WHERE dynasty_id = $1`, dynasty)
	if err != nil {
		return nil, nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "query team conference/division", err)
	}
	defer rows.Close()
	conf := make(map[int]string)
	div := make(map[int]models.Division)
	for rows.Next() {
		var id int
		var c string
		var d models.Division
		if err := rows.Scan(&id, &c, &d); err != nil {
			return nil, nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "scan team conference/division", err)
		}
		conf[id] = c
		div[id] = d
	}
	return conf, div, rows.Err()
}
