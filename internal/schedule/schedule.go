// Package schedule builds and seeds the regular season's GAME events.
// Nothing in the retired NFL source survived distillation for real
// opponent scheduling (interconference/intraconference balance, bye
// weeks, prime-time slotting), so this is a simple circle-method
// round robin: good enough to exercise the Event Dispatcher and Game
// Event Handler for a full season, not a claim of real NFL scheduling
// fidelity.
package schedule

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nfl-analytics/backend/internal/calendar"
	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/eventstore"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/simulation"
)

// StructuredIDPrefix is the common prefix every regular season GAME
// event's structured id starts with; TriggerSource implementations use
// it to tell regular season games apart from playoff games ("playoff_").
const StructuredIDPrefix = "game_"

// Matchup is one week's game between two teams.
type Matchup struct {
	Week       int
	HomeTeamID int
	AwayTeamID int
}

// RoundRobin builds a single round robin across teamIDs: len(teamIDs)-1
// weeks (teamIDs must have even length), each team playing once per
// week. Home/away alternates by week parity so no team is permanently
// the visitor.
func RoundRobin(teamIDs []int) ([]Matchup, error) {
	n := len(teamIDs)
	if n < 2 || n%2 != 0 {
		return nil, engineerr.New(engineerr.KindInvalidTx, "round robin requires an even number of teams")
	}

	rotation := make([]int, n)
	copy(rotation, teamIDs)

	var matchups []Matchup
	weeks := n - 1
	for week := 1; week <= weeks; week++ {
		for i := 0; i < n/2; i++ {
			home, away := rotation[i], rotation[n-1-i]
			if week%2 == 0 {
				home, away = away, home
			}
			matchups = append(matchups, Matchup{Week: week, HomeTeamID: home, AwayTeamID: away})
		}
		// Fix rotation[0], rotate the rest.
		last := rotation[n-1]
		copy(rotation[2:], rotation[1:n-1])
		rotation[1] = last
	}
	return matchups, nil
}

// Seeder inserts the matchups a schedule produces as scheduled GAME
// events on the appropriate calendar date.
type Seeder struct {
	events *eventstore.EventStore
}

// NewSeeder builds a Seeder bound to es.
func NewSeeder(events *eventstore.EventStore) *Seeder {
	return &Seeder{events: events}
}

// Seed writes one GAME event per matchup, dated to the Sunday of its
// week (week N's Sunday is three days after that week's anchor
// Thursday).
func (s *Seeder) Seed(ctx context.Context, tx *sql.Tx, dynasty string, season int, matchups []Matchup) error {
	seasonStart := calendar.SeasonStartThursday(season)
	for n, m := range matchups {
		date := seasonStart.AddDate(0, 0, (m.Week-1)*7+3)
		payload := simulation.GamePayload{
			Season: season, Week: m.Week, SeasonType: "regular_season", GameType: "regular",
			HomeTeamID: m.HomeTeamID, AwayTeamID: m.AwayTeamID,
		}
		payloadJSON, err := json.Marshal(payload)
		if err != nil {
			return engineerr.Wrap(engineerr.KindInvalidTx, "marshal regular season game payload", err)
		}
		ev := &models.Event{
			Dynasty:      dynasty,
			Date:         date,
			Kind:         models.EventGame,
			StructuredID: fmt.Sprintf("%s%d_w%d_%d", StructuredIDPrefix, season, m.Week, n),
			Payload:      payloadJSON,
			Status:       models.EventScheduled,
		}
		if _, err := s.events.Insert(ctx, tx, dynasty, ev); err != nil {
			return err
		}
	}
	return nil
}
