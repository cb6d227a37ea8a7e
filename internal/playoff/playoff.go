// Package playoff implements the Playoff Controller (§4.11): seeds the
// bracket from final standings, schedules rounds progressively, and
// re-seeds after Wild Card (highest remaining seed vs lowest remaining
// seed) rather than following a pre-drawn bracket.
package playoff

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/eventstore"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/simulation"
)

// Seed is one conference seed, 1 (best) through 7 (worst qualifying).
type Seed struct {
	Seed   int
	TeamID int
}

// SeedingService is the PlayoffSeedingService external contract of §6:
// conference standings in, 7 ranked seeds out.
type SeedingService interface {
	Seed(conferenceStandings []*models.StandingsRow) ([]Seed, error)
}

// StandardSeeder implements the conventional NFL seeding rule: the four
// division winners take seeds 1-4 ranked by win percentage, the three
// next-best remaining records take seeds 5-7 (the wild cards).
type StandardSeeder struct {
	// DivisionOf resolves a team id to its division, needed to identify
	// division winners. Supplied by the caller since StandardSeeder has
	// no store access of its own (kept a pure function like the Transaction
	// Validator).
	DivisionOf map[int]models.Division
}

// Seed implements SeedingService.
func (s StandardSeeder) Seed(conferenceStandings []*models.StandingsRow) ([]Seed, error) {
	if len(conferenceStandings) < 7 {
		return nil, engineerr.New(engineerr.KindInvalidTx, "fewer than 7 teams in conference standings")
	}

	bestInDivision := make(map[models.Division]*models.StandingsRow)
	for _, row := range conferenceStandings {
		div := s.DivisionOf[row.TeamID]
		if cur, ok := bestInDivision[div]; !ok || row.WinPct() > cur.WinPct() {
			bestInDivision[div] = row
		}
	}

	winners := make([]*models.StandingsRow, 0, len(bestInDivision))
	isWinner := make(map[int]bool)
	for _, row := range bestInDivision {
		winners = append(winners, row)
		isWinner[row.TeamID] = true
	}
	sort.SliceStable(winners, func(i, j int) bool { return winners[i].WinPct() > winners[j].WinPct() })

	var wildcards []*models.StandingsRow
	for _, row := range conferenceStandings {
		if !isWinner[row.TeamID] {
			wildcards = append(wildcards, row)
		}
	}
	sort.SliceStable(wildcards, func(i, j int) bool { return wildcards[i].WinPct() > wildcards[j].WinPct() })

	seeds := make([]Seed, 0, 7)
	for i, row := range winners {
		if i >= 4 {
			break
		}
		seeds = append(seeds, Seed{Seed: i + 1, TeamID: row.TeamID})
	}
	for i, row := range wildcards {
		if i >= 3 {
			break
		}
		seeds = append(seeds, Seed{Seed: len(seeds) + 1, TeamID: row.TeamID})
	}
	if len(seeds) != 7 {
		return nil, engineerr.New(engineerr.KindInvalidTx, fmt.Sprintf("seeding produced %d seeds, expected 7", len(seeds)))
	}
	return seeds, nil
}

// Round names, used both as the GameType payload field and as the
// structured-id round suffix eventstore.ParseRound recognizes.
const (
	RoundWildCard   = "wild_card"
	RoundDivisional = "divisional"
	RoundConference = "conference"
	RoundSuperBowl  = "super_bowl"
)

// Controller drives one dynasty's playoff bracket for one season.
type Controller struct {
	events  *eventstore.EventStore
	seeder  SeedingService
	season  int
}

// NewController builds a Playoff Controller bound to the event store and
// seeding service for one season.
func NewController(events *eventstore.EventStore, seeder SeedingService, season int) *Controller {
	return &Controller{events: events, seeder: seeder, season: season}
}

// StartWildCard seeds both conferences and schedules the 6 Wild Card
// games (§4.11: seed 1 byes, 2v7, 3v6, 4v5 in each conference).
// Idempotent: if Wild Card games already exist for this season (detected
// via the Event Store's structured-id prefix query), scheduling is
// skipped entirely.
func (c *Controller) StartWildCard(ctx context.Context, tx *sql.Tx, dynasty string, date time.Time, conferences map[string][]*models.StandingsRow) error {
	existing, err := c.events.ForStructuredPrefix(ctx, dynasty, fmt.Sprintf("playoff_%d_%s_", c.season, RoundWildCard))
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	n := 0
	for _, conf := range orderedConferences(conferences) {
		seeds, err := c.seeder.Seed(conferences[conf])
		if err != nil {
			return err
		}
		sort.Slice(seeds, func(i, j int) bool { return seeds[i].Seed < seeds[j].Seed })

		if err := c.saveSeeds(ctx, tx, dynasty, conf, seeds); err != nil {
			return err
		}

		matchups := [][2]int{{1, 6}, {2, 5}, {3, 4}} // index into seeds[1:7]: seeds 2v7,3v6,4v5
		for _, m := range matchups {
			n++
			home := seeds[m[0]]
			away := seeds[m[1]]
			if err := c.scheduleGame(ctx, tx, dynasty, RoundWildCard, n, date, home.TeamID, away.TeamID); err != nil {
				return err
			}
		}
	}
	return nil
}

// AdvanceRound reads the just-completed round's results, re-seeds the
// remaining teams (highest remaining seed vs lowest remaining seed, not
// a pre-drawn bracket), and schedules the next round. completedRound must
// be one of RoundWildCard, RoundDivisional, or RoundConference; calling it
// after RoundSuperBowl is a caller error since there is no round after it.
func (c *Controller) AdvanceRound(ctx context.Context, tx *sql.Tx, dynasty, completedRound string, date time.Time, byeSeed map[string]Seed, originalSeeds map[string]map[int]Seed, winnerLookup func(ctx context.Context, tx *sql.Tx, dynasty, structuredID string) (int, error)) error {
	nextRound, err := nextRoundAfter(completedRound)
	if err != nil {
		return err
	}

	existing, err := c.events.ForStructuredPrefix(ctx, dynasty, fmt.Sprintf("playoff_%d_%s_", c.season, nextRound))
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	completed, err := c.events.ForStructuredPrefix(ctx, dynasty, fmt.Sprintf("playoff_%d_%s_", c.season, completedRound))
	if err != nil {
		return err
	}

	n := 0
	for _, conf := range []string{"AFC", "NFC"} {
		var remaining []Seed
		if completedRound == RoundWildCard {
			remaining = append(remaining, byeSeed[conf])
		}
		for _, ev := range completed {
			teamID, err := winnerLookup(ctx, tx, dynasty, ev.StructuredID)
			if err != nil {
				return err
			}
			seed, ok := originalSeeds[conf][teamID]
			if !ok {
				continue
			}
			remaining = append(remaining, seed)
		}
		if len(remaining) < 2 {
			continue
		}
		sort.Slice(remaining, func(i, j int) bool { return remaining[i].Seed < remaining[j].Seed })

		if nextRound == RoundSuperBowl {
			continue // Super Bowl is scheduled separately, across conferences.
		}
		for lo, hi := 0, len(remaining)-1; lo < hi; lo, hi = lo+1, hi-1 {
			n++
			if err := c.scheduleGame(ctx, tx, dynasty, nextRound, n, date, remaining[lo].TeamID, remaining[hi].TeamID); err != nil {
				return err
			}
		}
	}

	if nextRound == RoundSuperBowl {
		var champions []int
		for _, ev := range completed {
			teamID, err := winnerLookup(ctx, tx, dynasty, ev.StructuredID)
			if err != nil {
				return err
			}
			champions = append(champions, teamID)
		}
		if len(champions) == 2 {
			if err := c.scheduleGame(ctx, tx, dynasty, RoundSuperBowl, 1, date, champions[0], champions[1]); err != nil {
				return err
			}
		}
	}
	return nil
}

// saveSeeds persists one conference's seed assignments so a later
// AdvanceRound call — possibly days later, after the controller has been
// rebuilt from a fresh DynastyState load — can reconstruct byeSeed and
// originalSeeds without the caller re-running the seeding service.
func (c *Controller) saveSeeds(ctx context.Context, tx *sql.Tx, dynasty, conf string, seeds []Seed) error {
	for _, s := range seeds {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO playoff_seeds (dynasty_id, season, conference, seed, team_id)
			 VALUES ($1,$2,$3,$4,$5)
			 ON CONFLICT (dynasty_id, season, conference, seed) DO NOTHING`,
			dynasty, c.season, conf, s.Seed, s.TeamID,
		)
		if err != nil {
			return engineerr.Wrap(engineerr.KindPersistenceFailed, "insert playoff seed", err)
		}
	}
	return nil
}

// LoadSeeds reconstructs the bye seed and full seed-by-team map per
// conference from the playoff_seeds rows StartWildCard persisted: the
// exact inputs AdvanceRound needs, without requiring its caller to keep
// its own copy of the bracket across days.
func (c *Controller) LoadSeeds(ctx context.Context, tx *sql.Tx, dynasty string) (byeSeed map[string]Seed, originalSeeds map[string]map[int]Seed, err error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT conference, seed, team_id FROM playoff_seeds WHERE dynasty_id = $1 AND season = $2`,
		dynasty, c.season,
	)
	if err != nil {
		return nil, nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "query playoff seeds", err)
	}
	defer rows.Close()

	byeSeed = make(map[string]Seed)
	originalSeeds = make(map[string]map[int]Seed)
	for rows.Next() {
		var conf string
		var s Seed
		if err := rows.Scan(&conf, &s.Seed, &s.TeamID); err != nil {
			return nil, nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "scan playoff seed", err)
		}
		if originalSeeds[conf] == nil {
			originalSeeds[conf] = make(map[int]Seed)
		}
		originalSeeds[conf][s.TeamID] = s
		if s.Seed == 1 {
			byeSeed[conf] = s
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "iterate playoff seeds", err)
	}
	return byeSeed, originalSeeds, nil
}

// WinnerFromBoxScore looks up the box score simulation.Handler wrote under
// structuredID and returns the winning team id, the winnerLookup AdvanceRound
// needs and the only place in this package that reads game results back.
func WinnerFromBoxScore(ctx context.Context, tx *sql.Tx, dynasty, structuredID string) (int, error) {
	var homeTeamID, awayTeamID, homeScore, awayScore int
	err := tx.QueryRowContext(ctx,
		`SELECT home_team_id, away_team_id, home_score, away_score FROM box_scores
		 WHERE dynasty_id = $1 AND game_id = $2`,
		dynasty, structuredID,
	).Scan(&homeTeamID, &awayTeamID, &homeScore, &awayScore)
	if err != nil {
		return 0, engineerr.Wrap(engineerr.KindPersistenceFailed, "query playoff box score", err)
	}
	if homeScore == awayScore {
		return 0, engineerr.New(engineerr.KindInvalidTx, fmt.Sprintf("playoff game %s ended in a tie", structuredID))
	}
	if homeScore > awayScore {
		return homeTeamID, nil
	}
	return awayTeamID, nil
}

func nextRoundAfter(round string) (string, error) {
	switch round {
	case RoundWildCard:
		return RoundDivisional, nil
	case RoundDivisional:
		return RoundConference, nil
	case RoundConference:
		return RoundSuperBowl, nil
	default:
		return "", engineerr.New(engineerr.KindInvalidTx, fmt.Sprintf("no round follows %q", round))
	}
}

func (c *Controller) scheduleGame(ctx context.Context, tx *sql.Tx, dynasty, round string, n int, date time.Time, homeTeamID, awayTeamID int) error {
	structuredID := fmt.Sprintf("playoff_%d_%s_%d", c.season, round, n)
	payload := simulation.GamePayload{
		Season: c.season, SeasonType: "playoffs", GameType: round,
		HomeTeamID: homeTeamID, AwayTeamID: awayTeamID,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return engineerr.Wrap(engineerr.KindInvalidTx, "marshal playoff game payload", err)
	}
	ev := &models.Event{
		Dynasty:      dynasty,
		Date:         date,
		Kind:         models.EventGame,
		StructuredID: structuredID,
		Payload:      payloadJSON,
		Status:       models.EventScheduled,
	}
	_, err = c.events.Insert(ctx, tx, dynasty, ev)
	return err
}

func orderedConferences(conferences map[string][]*models.StandingsRow) []string {
	out := make([]string, 0, len(conferences))
	for k := range conferences {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
