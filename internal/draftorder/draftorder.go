// Package draftorder implements the DraftOrderService external
// collaborator named in §6: turning a season's final standings (plus
// playoff results) into a ranked draft pick order, tiebroken by
// strength-of-schedule as specified in §4.6.
package draftorder

import (
	"sort"

	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/standings"
)

// Pick is one slot in the draft order.
type Pick struct {
	Overall     int
	Round       int
	PickInRound int
	TeamID      int
	Reason      string
}

// Service computes a full draft order from a season's final StandingsRow
// set. The non-playoff teams are ordered worst-record-first (most wins at
// the end), tiebroken by strength-of-schedule (lower SoS picks higher,
// §4.6); playoff qualifiers are ordered after all non-playoff teams,
// worst-performing-playoff-team first, with the Super Bowl winner
// picking last overall.
type Service struct{}

// NewService builds a draft order service. It holds no state; every call
// is computed fresh from the standings passed in.
func NewService() *Service {
	return &Service{}
}

// PlayoffResult records how far a team advanced, used to order playoff
// qualifiers relative to one another for the final block of picks.
type PlayoffResult struct {
	TeamID       int
	RoundsWon    int // 0 = lost Wild Card, ... 4 = won Super Bowl
	WonSuperBowl bool
}

// ComputeDraftOrder implements the DraftOrderService contract of §6:
// standings, playoff results, and a team's full-season schedule (via each
// StandingsRow) combine into one ranked pick list for roundCount rounds
// of picksPerRound picks each.
func ComputeDraftOrder(rows []*models.StandingsRow, playoffResults []PlayoffResult, roundCount, picksPerRound int) []Pick {
	winPct := make(map[int]float64, len(rows))
	for _, r := range rows {
		winPct[r.TeamID] = r.WinPct()
	}

	inPlayoffs := make(map[int]bool, len(playoffResults))
	resultByTeam := make(map[int]PlayoffResult, len(playoffResults))
	for _, pr := range playoffResults {
		inPlayoffs[pr.TeamID] = true
		resultByTeam[pr.TeamID] = pr
	}

	var nonPlayoff, playoff []*models.StandingsRow
	for _, r := range rows {
		if inPlayoffs[r.TeamID] {
			playoff = append(playoff, r)
		} else {
			nonPlayoff = append(nonPlayoff, r)
		}
	}

	sortByRecordThenSoS(nonPlayoff, winPct)
	sort.SliceStable(playoff, func(i, j int) bool {
		ri, rj := resultByTeam[playoff[i].TeamID], resultByTeam[playoff[j].TeamID]
		if ri.RoundsWon != rj.RoundsWon {
			return ri.RoundsWon < rj.RoundsWon
		}
		return StrengthOfSchedule(playoff[i], winPct) < StrengthOfSchedule(playoff[j], winPct)
	})

	ordered := make([]int, 0, len(rows))
	for _, r := range nonPlayoff {
		ordered = append(ordered, r.TeamID)
	}
	for _, r := range playoff {
		ordered = append(ordered, r.TeamID)
	}

	total := roundCount * picksPerRound
	picks := make([]Pick, 0, total)
	for i := 0; i < total && i < len(ordered)*roundCount; i++ {
		teamIdx := i % len(ordered)
		round := i/picksPerRound + 1
		pickInRound := i%picksPerRound + 1
		picks = append(picks, Pick{
			Overall:     i + 1,
			Round:       round,
			PickInRound: pickInRound,
			TeamID:      ordered[teamIdx],
			Reason:      reasonFor(ordered[teamIdx], inPlayoffs, resultByTeam),
		})
	}
	return picks
}

// sortByRecordThenSoS orders worst-record-first, tiebroken by lower
// strength-of-schedule picking higher per §4.6.
func sortByRecordThenSoS(rows []*models.StandingsRow, winPct map[int]float64) {
	sort.SliceStable(rows, func(i, j int) bool {
		wi, wj := rows[i].WinPct(), rows[j].WinPct()
		if wi != wj {
			return wi < wj
		}
		return StrengthOfSchedule(rows[i], winPct) < StrengthOfSchedule(rows[j], winPct)
	})
}

// StrengthOfSchedule delegates to standings.StrengthOfSchedule; exported
// here too since the DraftOrderService contract (§6) names
// strength-of-schedule as its own tiebreak rule, independent of the
// standings package's internal bookkeeping use of the same figure.
func StrengthOfSchedule(row *models.StandingsRow, opponentWinPct map[int]float64) float64 {
	return standings.StrengthOfSchedule(row, opponentWinPct)
}

func reasonFor(teamID int, inPlayoffs map[int]bool, results map[int]PlayoffResult) string {
	if !inPlayoffs[teamID] {
		return "non-playoff record, tiebroken by strength of schedule"
	}
	r := results[teamID]
	if r.WonSuperBowl {
		return "won Super Bowl, picks last"
	}
	return "eliminated in playoffs, tiebroken by rounds won then strength of schedule"
}
