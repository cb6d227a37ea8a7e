// Package validator implements the Transaction Validator (§4.8): a pure
// function from a proposed transaction, the current ledger state, and the
// league phase to either a valid verdict or a list of rejection reasons.
package validator

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/phase"
)

// InSeasonCapGrace is the league constant: a trade may leave a team this
// far over the cap without being rejected (the team must true up by the
// next deadline, enforced separately by cap.CheckCompliance).
const InSeasonCapGrace = 500_000

// TagWindowStartWeek and TagWindowEndWeek bound when a franchise tag may
// be applied; outside this window a tag proposal is rejected regardless of
// cap room.
const (
	TagWindowStartWeek = 0 // offseason, pre-free-agency
	TagWindowEndWeek   = 3
)

// Kind is the closed set of proposable transaction kinds.
type Kind string

const (
	KindTrade        Kind = "trade"
	KindSigning      Kind = "signing"
	KindCut          Kind = "cut"
	KindRestructure  Kind = "restructure"
	KindFranchiseTag Kind = "franchise_tag"
)

// Proposed is the transaction under review. Not every field applies to
// every Kind; which fields are read depends on Kind.
type Proposed struct {
	Kind Kind
	Date time.Time

	// Trade fields.
	TeamA, TeamB           int
	PlayersA, PlayersB     []int // player ids offered by each side

	// Signing/cut/restructure/tag fields.
	TeamID   int
	PlayerID int
}

// LedgerState is the subset of ledger + roster facts the validator needs,
// gathered by the caller (GM Proposal Engine or an HTTP handler) before
// submission. The validator never queries the store itself — it is a pure
// function (§4.8).
type LedgerState struct {
	CapSpaceByTeam   map[int]int         // team id -> current cap space (can be negative)
	ContractByPlayer map[int]*models.Contract
	RetiredPlayers   map[int]bool
	CurrentWeek      int
}

// Validate runs every applicable rejection check for p and aggregates all
// failures (not just the first) using hashicorp/go-multierror. A nil
// return means Valid; a non-nil return is always an *engineerr.Error of
// KindInvalidTx carrying every rejection reason (§4.8's Valid|Reasons[]).
func Validate(p Proposed, ledger LedgerState, m *phase.Machine) error {
	var errs *multierror.Error

	switch p.Kind {
	case KindTrade:
		errs = multierror.Append(errs, validateTrade(p, ledger, m)...)
	case KindSigning:
		errs = multierror.Append(errs, validateSigning(p, ledger)...)
	case KindCut:
		errs = multierror.Append(errs, validateCut(p, ledger)...)
	case KindRestructure:
		errs = multierror.Append(errs, validateRestructure(p, ledger)...)
	case KindFranchiseTag:
		errs = multierror.Append(errs, validateFranchiseTag(p, ledger)...)
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown transaction kind %q", p.Kind))
	}

	if errs == nil || errs.Len() == 0 {
		return nil
	}
	reasons := make([]string, 0, errs.Len())
	for _, e := range errs.Errors {
		reasons = append(reasons, e.Error())
	}
	return engineerr.WithReasons(engineerr.KindInvalidTx, fmt.Sprintf("%s rejected", p.Kind), reasons)
}

func validateTrade(p Proposed, ledger LedgerState, m *phase.Machine) []error {
	var errs []error

	if err := m.CheckTradePermitted(p.Date); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[int]bool)
	for _, pid := range p.PlayersA {
		seen[pid] = true
	}
	for _, pid := range p.PlayersB {
		if seen[pid] {
			errs = append(errs, fmt.Errorf("player %d appears on both sides of the trade", pid))
		}
	}

	for _, pid := range append(append([]int{}, p.PlayersA...), p.PlayersB...) {
		if ledger.RetiredPlayers[pid] {
			errs = append(errs, fmt.Errorf("player %d is retired and cannot be traded", pid))
		}
	}

	if space, ok := ledger.CapSpaceByTeam[p.TeamA]; ok && space < -InSeasonCapGrace {
		errs = append(errs, fmt.Errorf("team %d would exceed in-season cap grace of %d", p.TeamA, InSeasonCapGrace))
	}
	if space, ok := ledger.CapSpaceByTeam[p.TeamB]; ok && space < -InSeasonCapGrace {
		errs = append(errs, fmt.Errorf("team %d would exceed in-season cap grace of %d", p.TeamB, InSeasonCapGrace))
	}

	return errs
}

func validateSigning(p Proposed, ledger LedgerState) []error {
	var errs []error
	if ledger.RetiredPlayers[p.PlayerID] {
		errs = append(errs, fmt.Errorf("player %d is retired and cannot be signed", p.PlayerID))
	}
	if space, ok := ledger.CapSpaceByTeam[p.TeamID]; ok && space < 0 {
		errs = append(errs, fmt.Errorf("team %d has no cap space to sign player %d", p.TeamID, p.PlayerID))
	}
	return errs
}

func validateCut(p Proposed, ledger LedgerState) []error {
	var errs []error
	contract, ok := ledger.ContractByPlayer[p.PlayerID]
	if !ok || contract.TeamID != p.TeamID {
		errs = append(errs, fmt.Errorf("player %d is not under contract to team %d", p.PlayerID, p.TeamID))
	}
	return errs
}

func validateRestructure(p Proposed, ledger LedgerState) []error {
	var errs []error
	contract, ok := ledger.ContractByPlayer[p.PlayerID]
	if !ok || contract.TeamID != p.TeamID {
		errs = append(errs, fmt.Errorf("player %d is not under contract to team %d", p.PlayerID, p.TeamID))
	}
	return errs
}

func validateFranchiseTag(p Proposed, ledger LedgerState) []error {
	var errs []error
	if ledger.CurrentWeek < TagWindowStartWeek || ledger.CurrentWeek > TagWindowEndWeek {
		errs = append(errs, fmt.Errorf("franchise tag used outside the tag window (week %d)", ledger.CurrentWeek))
	}
	if ledger.RetiredPlayers[p.PlayerID] {
		errs = append(errs, fmt.Errorf("player %d is retired and cannot be tagged", p.PlayerID))
	}
	return errs
}
