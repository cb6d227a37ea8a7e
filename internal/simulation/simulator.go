// Package simulation defines the external GameSimulator contract (§6) and
// the Game Event Handler that drives it, plus a deterministic reference
// implementation for tests and the `leaguectl` demo mode.
package simulation

import (
	"context"
	"math/rand"

	"github.com/nfl-analytics/backend/internal/models"
)

// PlayerStatLine is one player's contribution to a simulated game.
type PlayerStatLine struct {
	PlayerID  int
	TeamID    int
	PassYards int
	PassTDs   int
	RushYards int
	RushTDs   int
	RecYards  int
	RecTDs    int
	Tackles   int
	Sacks     float64
	Interceptions int
}

// Result is the GameSimulator's full output for one game (§6).
type Result struct {
	HomeScore       int
	AwayScore       int
	OvertimePeriods int
	DurationMinutes int
	PlayerStats     []PlayerStatLine
}

// GameSimulator is the external collaborator contract: the engine never
// computes play-by-play outcomes itself, only final scores and stat lines
// (§1 "deliberately out of scope", §6).
type GameSimulator interface {
	Simulate(ctx context.Context, homeTeamID, awayTeamID int, homeRoster, awayRoster []models.Player, seed int64) (*Result, error)
}

// DeterministicSimulator is a reference GameSimulator seeded purely from
// roster overall ratings, used by tests and the CLI demo mode where no
// real play-by-play engine is wired in. It is intentionally simple: a
// team's expected score is a function of average roster overall plus a
// seeded random swing, matching the reference reach of the teacher's own
// mock collaborators (e.g. `internal/draft/recommendations.go`'s
// heuristic scoring) rather than attempting anything resembling a physics
// model.
type DeterministicSimulator struct{}

// NewDeterministicSimulator builds the reference simulator.
func NewDeterministicSimulator() *DeterministicSimulator {
	return &DeterministicSimulator{}
}

func (d *DeterministicSimulator) Simulate(ctx context.Context, homeTeamID, awayTeamID int, homeRoster, awayRoster []models.Player, seed int64) (*Result, error) {
	rng := rand.New(rand.NewSource(seed))

	homeBase := averageOverall(homeRoster)
	awayBase := averageOverall(awayRoster)

	// Home field advantage: a flat +1.5 points of expected scoring, applied
	// before the random swing.
	homeScore := clampScore(int(homeBase/3) + 3 + rng.Intn(15))
	awayScore := clampScore(int(awayBase/3) + rng.Intn(15))

	overtimePeriods := 0
	if homeScore == awayScore {
		overtimePeriods = 1
		if rng.Intn(2) == 0 {
			homeScore += 3
		} else {
			awayScore += 3
		}
	}

	stats := make([]PlayerStatLine, 0, len(homeRoster)+len(awayRoster))
	stats = append(stats, statLinesFor(homeRoster, homeTeamID, homeScore, rng)...)
	stats = append(stats, statLinesFor(awayRoster, awayTeamID, awayScore, rng)...)

	return &Result{
		HomeScore:       homeScore,
		AwayScore:       awayScore,
		OvertimePeriods: overtimePeriods,
		DurationMinutes: 180,
		PlayerStats:     stats,
	}, nil
}

func averageOverall(roster []models.Player) float64 {
	if len(roster) == 0 {
		return 60
	}
	sum := 0
	for _, p := range roster {
		sum += p.Overall
	}
	return float64(sum) / float64(len(roster))
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 70 {
		return 70
	}
	return s
}

// statLinesFor distributes a team's scoring across its skill-position
// players roughly proportional to overall rating; defensive players get
// tackle/sack lines independent of score.
func statLinesFor(roster []models.Player, teamID, teamScore int, rng *rand.Rand) []PlayerStatLine {
	lines := make([]PlayerStatLine, 0, len(roster))
	remainingTDs := teamScore / 7
	for _, p := range roster {
		line := PlayerStatLine{PlayerID: p.ID, TeamID: teamID}
		switch p.Position {
		case "QB":
			line.PassYards = 150 + rng.Intn(200)
			if remainingTDs > 0 {
				line.PassTDs = 1 + rng.Intn(2)
				remainingTDs -= line.PassTDs
			}
		case "RB":
			line.RushYards = 20 + rng.Intn(100)
			if remainingTDs > 0 && rng.Intn(2) == 0 {
				line.RushTDs = 1
				remainingTDs--
			}
		case "WR", "TE":
			line.RecYards = 10 + rng.Intn(90)
			if remainingTDs > 0 && rng.Intn(3) == 0 {
				line.RecTDs = 1
				remainingTDs--
			}
		default:
			line.Tackles = rng.Intn(8)
			if rng.Intn(5) == 0 {
				line.Sacks = 1.0
			}
			if rng.Intn(10) == 0 {
				line.Interceptions = 1
			}
		}
		lines = append(lines, line)
	}
	return lines
}
