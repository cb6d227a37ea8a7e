// Package gm implements the GM Proposal Engine (§4.10): per-team,
// archetype-driven generation of trade, signing, cut, and restructure
// candidates, scored against the trade-value model and submitted to the
// Transaction Validator.
package gm

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/nfl-analytics/backend/internal/cap"
	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/eventstore"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/phase"
	"github.com/nfl-analytics/backend/internal/tradevalue"
	"github.com/nfl-analytics/backend/internal/validator"
)

// Archetype is the closed set of GM personalities named in §4.10. Each
// weighs candidate kinds and the acceptance threshold differently.
type Archetype string

const (
	ArchetypeConservative Archetype = "conservative"
	ArchetypeBalanced     Archetype = "balanced"
	ArchetypeAggressive   Archetype = "aggressive"
	ArchetypeStarChaser   Archetype = "star_chaser"
	ArchetypeWinNow       Archetype = "win_now"
	ArchetypeRebuilding   Archetype = "rebuilding"
)

// weights scales a raw candidate score by how much this archetype favors
// the candidate's kind; acceptThreshold is the minimum scaled score a
// candidate must clear to be submitted at all.
type profile struct {
	tradeWeight       float64
	signingWeight     float64
	cutWeight         float64
	restructureWeight float64
	acceptThreshold   float64
	tradeFrequency    float64 // probability a trade is even considered today
}

var profiles = map[Archetype]profile{
	ArchetypeConservative: {tradeWeight: 0.6, signingWeight: 0.8, cutWeight: 0.5, restructureWeight: 0.4, acceptThreshold: 0.85, tradeFrequency: 0.05},
	ArchetypeBalanced:     {tradeWeight: 1.0, signingWeight: 1.0, cutWeight: 1.0, restructureWeight: 1.0, acceptThreshold: 0.75, tradeFrequency: 0.1},
	ArchetypeAggressive:   {tradeWeight: 1.4, signingWeight: 1.2, cutWeight: 0.7, restructureWeight: 1.3, acceptThreshold: 0.65, tradeFrequency: 0.2},
	ArchetypeStarChaser:   {tradeWeight: 1.6, signingWeight: 1.5, cutWeight: 0.4, restructureWeight: 1.1, acceptThreshold: 0.6, tradeFrequency: 0.25},
	ArchetypeWinNow:       {tradeWeight: 1.3, signingWeight: 1.3, cutWeight: 0.6, restructureWeight: 1.4, acceptThreshold: 0.7, tradeFrequency: 0.18},
	ArchetypeRebuilding:   {tradeWeight: 0.9, signingWeight: 0.5, cutWeight: 1.3, restructureWeight: 0.3, acceptThreshold: 0.8, tradeFrequency: 0.08},
}

func profileFor(a Archetype) profile {
	if p, ok := profiles[a]; ok {
		return p
	}
	return profiles[ArchetypeBalanced]
}

// Need identifies a team's weakest position group, ranked by depth-weighted
// average overall (starter counted fully, each backup at a diminishing
// weight, modeling that a thin position group is weaker than its top
// player alone suggests).
type Need struct {
	Position string
	Score    float64
}

// TeamNeed ranks roster by depth-weighted rating per position group and
// returns the weakest one. Positions with no players rostered are never
// returned; an empty roster returns a zero Need.
func TeamNeed(roster []models.Player) Need {
	byPosition := make(map[string][]int)
	for _, p := range roster {
		if p.Retired {
			continue
		}
		byPosition[p.Position] = append(byPosition[p.Position], p.Overall)
	}

	var worst Need
	first := true
	for pos, overalls := range byPosition {
		sort.Sort(sort.Reverse(sort.IntSlice(overalls)))
		score := 0.0
		weight := 1.0
		for _, o := range overalls {
			score += float64(o) * weight
			weight *= 0.6
		}
		score /= float64(len(overalls))
		if first || score < worst.Score {
			worst = Need{Position: pos, Score: score}
			first = false
		}
	}
	return worst
}

// Candidate is a scored transaction proposal awaiting validation.
type Candidate struct {
	Kind       validator.Kind
	Proposed   validator.Proposed
	RawValue   float64
	Score      float64
	Rationale  string
}

// Engine generates and submits GM proposals for one team on one day.
type Engine struct {
	cap            *cap.Ledger
	events         *eventstore.EventStore
	rng            *rand.Rand
	defaultCapLimit int
}

// NewEngine builds a proposal engine backed by the cap ledger and event
// store every submitted candidate is checked and recorded against.
// defaultCapLimit seeds a team's cap record the first time it is touched
// (mirrors cap.Ledger.Get's own default-seeding parameter).
func NewEngine(capLedger *cap.Ledger, events *eventstore.EventStore, defaultCapLimit int, seed int64) *Engine {
	return &Engine{cap: capLedger, events: events, defaultCapLimit: defaultCapLimit, rng: rand.New(rand.NewSource(seed))}
}

// RosterSnapshot is the read-only roster/ledger context one team's GM
// reasons about; the caller assembles it from the store before calling
// Propose so the engine itself never issues queries (kept symmetric with
// the Transaction Validator's pure-function design).
type RosterSnapshot struct {
	TeamID       int
	Archetype    Archetype
	Roster       []models.Player
	Contracts    map[int]*models.Contract // by player id
	MarketAPY    map[string]int           // by position, a league-average going rate
	OtherTeams   map[int][]models.Player  // candidate trade partners' rosters, by team id
	OtherTeamContracts map[int]map[int]*models.Contract
	Retired      map[int]bool
	Ledger       validator.LedgerState
}

// Propose runs the three-step algorithm of §4.10: identify the team's top
// need, enumerate and score candidates, and return the single best
// candidate above the archetype's acceptance threshold. A nil return
// means no candidate cleared the bar today.
func (e *Engine) Propose(snapshot RosterSnapshot) *Candidate {
	prof := profileFor(snapshot.Archetype)
	need := TeamNeed(snapshot.Roster)

	var candidates []Candidate
	candidates = append(candidates, e.cutCandidates(snapshot, prof)...)
	candidates = append(candidates, e.restructureCandidates(snapshot, prof)...)
	if e.rng.Float64() < prof.tradeFrequency {
		candidates = append(candidates, e.tradeCandidates(snapshot, need, prof)...)
	}

	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	best := candidates[0]
	if best.Score < prof.acceptThreshold {
		return nil
	}
	return &best
}

// cutCandidates proposes releasing the weakest player occupying the
// team's surplus depth at a position that is not the team's top need,
// scored by how much cap space the cut frees relative to the player's
// trade value lost.
func (e *Engine) cutCandidates(s RosterSnapshot, prof profile) []Candidate {
	var out []Candidate
	for _, p := range s.Roster {
		if p.Retired || p.TeamID == nil || *p.TeamID != s.TeamID {
			continue
		}
		contract, ok := s.Contracts[p.ID]
		if !ok {
			continue
		}
		value := tradevalue.PlayerValue(p, contract.CapHitForYear(0), s.MarketAPY[p.Position])
		if value > 400 {
			continue // still a core contributor, not a cut candidate
		}
		rawScore := float64(contract.CapHitForYear(0)) / 1_000_000.0
		out = append(out, Candidate{
			Kind: validator.KindCut,
			Proposed: validator.Proposed{
				Kind: validator.KindCut, Date: time.Now(), TeamID: s.TeamID, PlayerID: p.ID,
			},
			RawValue:  rawScore,
			Score:     rawScore * prof.cutWeight / 10.0,
			Rationale: fmt.Sprintf("cut player %d to clear cap space, marginal trade value %.1f", p.ID, value),
		})
	}
	return out
}

// restructureCandidates proposes converting base salary to bonus for the
// team's highest-cap-hit player when the team's need score suggests it is
// chasing a short-term cap crunch (modeled here as any restructure being
// scored proportional to the cap relief it would create).
func (e *Engine) restructureCandidates(s RosterSnapshot, prof profile) []Candidate {
	var out []Candidate
	for _, p := range s.Roster {
		if p.Retired || p.TeamID == nil || *p.TeamID != s.TeamID {
			continue
		}
		contract, ok := s.Contracts[p.ID]
		if !ok || contract.Years < 2 {
			continue
		}
		hit := contract.CapHitForYear(0)
		if hit < 5_000_000 {
			continue
		}
		rawScore := float64(hit) / 1_000_000.0
		out = append(out, Candidate{
			Kind: validator.KindRestructure,
			Proposed: validator.Proposed{
				Kind: validator.KindRestructure, Date: time.Now(), TeamID: s.TeamID, PlayerID: p.ID,
			},
			RawValue:  rawScore,
			Score:     rawScore * prof.restructureWeight / 15.0,
			Rationale: fmt.Sprintf("restructure player %d, current hit %d", p.ID, hit),
		})
	}
	return out
}

// tradeCandidates looks across known trade partners for a player at the
// team's need position whose trade value roughly matches a surplus
// player this team could offer, and scores the resulting proposal by
// fairness times the archetype's trade weight.
func (e *Engine) tradeCandidates(s RosterSnapshot, need Need, prof profile) []Candidate {
	var offer *models.Player
	offerValue := -1.0
	for i := range s.Roster {
		p := s.Roster[i]
		if p.Retired || p.TeamID == nil || *p.TeamID != s.TeamID || p.Position == need.Position {
			continue
		}
		contract := s.Contracts[p.ID]
		var hit int
		if contract != nil {
			hit = contract.CapHitForYear(0)
		}
		v := tradevalue.PlayerValue(p, hit, s.MarketAPY[p.Position])
		if v > offerValue {
			offerValue = v
			offer = &s.Roster[i]
		}
	}
	if offer == nil {
		return nil
	}

	var out []Candidate
	for teamID, roster := range s.OtherTeams {
		var target *models.Player
		targetValue := -1.0
		for i := range roster {
			p := roster[i]
			if p.Retired || p.Position != need.Position {
				continue
			}
			contracts := s.OtherTeamContracts[teamID]
			var hit int
			if contracts != nil && contracts[p.ID] != nil {
				hit = contracts[p.ID].CapHitForYear(0)
			}
			v := tradevalue.PlayerValue(p, hit, s.MarketAPY[p.Position])
			if v > targetValue {
				targetValue = v
				target = &roster[i]
			}
		}
		if target == nil {
			continue
		}
		fairness := tradevalue.Fairness(offerValue, targetValue)
		if tradevalue.Classify(fairness) == tradevalue.TierReject {
			continue
		}
		out = append(out, Candidate{
			Kind: validator.KindTrade,
			Proposed: validator.Proposed{
				Kind: validator.KindTrade, Date: time.Now(),
				TeamA: s.TeamID, TeamB: teamID,
				PlayersA: []int{offer.ID}, PlayersB: []int{target.ID},
			},
			RawValue:  fairness,
			Score:     fairness * prof.tradeWeight,
			Rationale: fmt.Sprintf("offer player %d for player %d at need position %s, fairness %.2f", offer.ID, target.ID, need.Position, fairness),
		})
	}
	return out
}

// Submit validates candidate against the current phase and ledger state
// and, if valid, persists it: a trade is appended to the Event Store for
// dispatch on today's date; a cut, restructure, or signing is applied
// directly to the cap ledger within the same transaction, since those
// kinds have no dedicated EventKind of their own (§4.3 lists only TRADE
// among the transaction-band kinds). Rejected candidates are discarded;
// §4.10 specifies no retry queue.
func (e *Engine) Submit(ctx context.Context, tx *sql.Tx, dynasty string, m *phase.Machine, c Candidate, ledger validator.LedgerState) (bool, error) {
	if err := validator.Validate(c.Proposed, ledger, m); err != nil {
		return false, nil
	}

	switch c.Kind {
	case validator.KindTrade:
		payload, err := json.Marshal(c.Proposed)
		if err != nil {
			return false, engineerr.Wrap(engineerr.KindInvalidTx, "marshal trade payload", err)
		}
		structuredID := fmt.Sprintf("trade_%d_%d_%d_%d", m.State.Season, c.Proposed.TeamA, c.Proposed.TeamB, c.Proposed.PlayersA[0])
		ev := &models.Event{
			Dynasty:      dynasty,
			Date:         m.State.CurrentDate,
			Kind:         models.EventTrade,
			StructuredID: structuredID,
			Payload:      payload,
			Status:       models.EventScheduled,
		}
		if _, err := e.events.Insert(ctx, tx, dynasty, ev); err != nil {
			return false, err
		}
		return true, nil

	case validator.KindCut:
		season := m.State.Season
		contract := ledger.ContractByPlayer[c.Proposed.PlayerID]
		if contract == nil {
			return false, nil
		}
		if err := e.cap.Release(ctx, tx, dynasty, c.Proposed.TeamID, season, e.defaultCapLimit, m.State.CurrentDate, contract, 0, cap.DesignationStandard); err != nil {
			return false, err
		}
		return true, nil

	case validator.KindRestructure:
		season := m.State.Season
		contract := ledger.ContractByPlayer[c.Proposed.PlayerID]
		if contract == nil {
			return false, nil
		}
		if err := e.cap.Release(ctx, tx, dynasty, c.Proposed.TeamID, season, e.defaultCapLimit, m.State.CurrentDate, contract, 0, cap.DesignationPostJune1); err != nil {
			return false, err
		}
		if err := e.cap.Sign(ctx, tx, dynasty, c.Proposed.TeamID, season, e.defaultCapLimit, m.State.CurrentDate, contract); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}
