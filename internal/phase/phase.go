// Package phase implements the league phase state machine (§4.4): which
// event kinds are permitted in which phase, and the transition triggers
// between phases.
package phase

import (
	"fmt"
	"time"

	"github.com/nfl-analytics/backend/internal/calendar"
	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/models"
)

// TotalRegularSeasonGames is the league-constant schedule size (§4.4).
const TotalRegularSeasonGames = 272

// TradeDeadlineWeek is the week whose Tuesday ends the trade window.
const TradeDeadlineWeek = 9

// permitted maps each phase to the event kinds it allows.
var permitted = map[models.Phase]map[models.EventKind]bool{
	models.PhaseOffseason: {
		models.EventFAWaveTick:      true,
		models.EventDeadline:        true,
		models.EventRetirementCheck: true,
	},
	models.PhasePreseason: {
		models.EventGame:     true,
		models.EventDeadline: true,
	},
	models.PhaseRegularSeason: {
		models.EventGame:       true,
		models.EventTrade:      true,
		models.EventDeadline:   true,
		models.EventFAWaveTick: true,
	},
	models.PhasePlayoffs: {
		models.EventGame:            true,
		models.EventRetirementCheck: true, // only after Super Bowl, checked separately
	},
	models.PhaseOffseasonHonors: {
		models.EventPhaseHook: true,
	},
	models.PhaseOffseasonFA: {
		models.EventFAWaveTick: true,
		models.EventTrade:      true,
		models.EventDeadline:   true,
	},
	models.PhaseOffseasonDraft: {
		models.EventDraftPick: true,
	},
}

// Machine tracks the current phase/date/week/season for one dynasty.
type Machine struct {
	Dynasty string
	State   models.DynastyState
}

// NewMachine builds a phase machine seeded at dynasty creation.
func NewMachine(dynasty string, season int, start time.Time) *Machine {
	return &Machine{
		Dynasty: dynasty,
		State: models.DynastyState{
			Dynasty:     dynasty,
			Season:      season,
			Phase:       models.PhaseOffseason,
			CurrentDate: start,
			CurrentWeek: 0,
		},
	}
}

// Permitted reports whether kind may execute while in phase.
func Permitted(ph models.Phase, kind models.EventKind) bool {
	kinds, ok := permitted[ph]
	if !ok {
		return false
	}
	return kinds[kind]
}

// CheckPermitted returns a PhaseViolation engineerr.Error if kind is not
// allowed in the machine's current phase.
func (m *Machine) CheckPermitted(kind models.EventKind) error {
	if !Permitted(m.State.Phase, kind) {
		return engineerr.New(engineerr.KindPhaseViolation,
			fmt.Sprintf("event kind %s not permitted in phase %s", kind, m.State.Phase))
	}
	return nil
}

// TradeDeadline returns week-9 Tuesday of the machine's season, the
// boundary in the trade-deadline rule (§4.4): trades are permitted only
// when phase == REGULAR_SEASON and current_date < this date.
func (m *Machine) TradeDeadline() time.Time {
	return calendar.TuesdayOfWeek(m.State.Season, TradeDeadlineWeek)
}

// CheckTradePermitted evaluates both conditions of the trade-deadline rule
// at dispatch time, on the event's scheduled date.
func (m *Machine) CheckTradePermitted(scheduledDate time.Time) error {
	if m.State.Phase != models.PhaseRegularSeason && m.State.Phase != models.PhaseOffseasonFA {
		return engineerr.New(engineerr.KindPhaseViolation,
			fmt.Sprintf("trades not permitted in phase %s", m.State.Phase))
	}
	if m.State.Phase == models.PhaseRegularSeason && !scheduledDate.Before(m.TradeDeadline()) {
		return engineerr.New(engineerr.KindPhaseViolation,
			fmt.Sprintf("trade scheduled on %s is past the week-%d deadline of %s",
				scheduledDate.Format("2006-01-02"), TradeDeadlineWeek, m.TradeDeadline().Format("2006-01-02")))
	}
	return nil
}

// TransitionResult describes a phase change produced by evaluating
// transition triggers against external facts (games executed, rounds
// complete, etc.) supplied by the caller (Season Controller).
type TransitionResult struct {
	Changed  bool
	From     models.Phase
	To       models.Phase
}

// Triggers bundles the facts the Season Controller gathers each day to
// decide whether a transition has fired. Each bool corresponds to exactly
// one row of the §4.4 table.
type Triggers struct {
	ReachedPreseasonStart bool
	ReachedSeasonStart    bool
	AllRegularGamesDone   bool
	SuperBowlExecuted     bool
	HonorsHooksComplete   bool
	FAWindowClosed        bool
	AllDraftRoundsDone    bool
}

// Evaluate applies the transition table in §4.4 and advances m.State.Phase
// in place when a trigger fires. At most one transition fires per call;
// the Season Controller calls this once per AdvanceDay tick after running
// the day's events.
func (m *Machine) Evaluate(t Triggers) TransitionResult {
	from := m.State.Phase
	to := from

	switch from {
	case models.PhaseOffseason:
		if t.ReachedPreseasonStart {
			to = models.PhasePreseason
		}
	case models.PhasePreseason:
		if t.ReachedSeasonStart {
			to = models.PhaseRegularSeason
		}
	case models.PhaseRegularSeason:
		if t.AllRegularGamesDone {
			to = models.PhasePlayoffs
		}
	case models.PhasePlayoffs:
		if t.SuperBowlExecuted {
			to = models.PhaseOffseasonHonors
		}
	case models.PhaseOffseasonHonors:
		if t.HonorsHooksComplete {
			to = models.PhaseOffseasonFA
		}
	case models.PhaseOffseasonFA:
		if t.FAWindowClosed {
			to = models.PhaseOffseasonDraft
		}
	case models.PhaseOffseasonDraft:
		if t.AllDraftRoundsDone {
			to = models.PhaseOffseason
			m.State.Season++
		}
	}

	if to == from {
		return TransitionResult{Changed: false, From: from, To: from}
	}
	m.State.Phase = to
	return TransitionResult{Changed: true, From: from, To: to}
}
