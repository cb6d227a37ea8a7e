package models

import "time"

// Conference and Division are small closed enumerations; teams never move
// between them mid-dynasty.
type Conference string

const (
	ConferenceAFC Conference = "AFC"
	ConferenceNFC Conference = "NFC"
)

type Division string

const (
	DivisionEast  Division = "EAST"
	DivisionNorth Division = "NORTH"
	DivisionSouth Division = "SOUTH"
	DivisionWest  Division = "WEST"
)

// Team is league-wide, immutable for the lifetime of the league (32 teams,
// ids 1..32). Mutable per-season state lives in StandingsRow and
// SalaryCapRecord, both dynasty-scoped.
type Team struct {
	ID         int        `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Abbr       string     `json:"abbr" db:"abbr"`
	Conference Conference `json:"conference" db:"conference"`
	Division   Division   `json:"division" db:"division"`
}

// Player is scoped to (dynasty, player): the same integer id in two
// dynasties refers to unrelated rows.
type Player struct {
	Dynasty  string `json:"dynasty" db:"dynasty_id"`
	ID       int    `json:"id" db:"player_id"`
	Name     string `json:"name" db:"name"`
	Position string `json:"position" db:"position"`
	Overall  int    `json:"overall" db:"overall"` // [40, 99]
	Age      int    `json:"age" db:"age"`
	YearsPro int    `json:"years_pro" db:"years_pro"`
	TeamID   *int   `json:"team_id,omitempty" db:"team_id"` // nil while free agent or retired
	Retired  bool   `json:"retired" db:"retired"`
}

// Contract references one player on one team. Invariant: the sum of
// per-year prorated bonus equals SigningBonus (validated by cap.Proration).
type Contract struct {
	Dynasty      string    `json:"dynasty" db:"dynasty_id"`
	ID           int       `json:"id" db:"contract_id"`
	PlayerID     int       `json:"player_id" db:"player_id"`
	TeamID       int       `json:"team_id" db:"team_id"`
	Years        int       `json:"years" db:"years"` // 1..7
	SigningBonus int       `json:"signing_bonus" db:"signing_bonus"`
	BaseSalary   []int     `json:"base_salary" db:"base_salary"`   // len == Years
	Proration    []int     `json:"proration" db:"proration"`       // len == Years, prorated over min(Years,5)
	Guarantees   []int     `json:"guarantees" db:"guarantees"`     // len == Years
	RosterBonus  []int     `json:"roster_bonus" db:"roster_bonus"` // len == Years
	VoidYears    int       `json:"void_years" db:"void_years"`
	Status       string    `json:"status" db:"status"` // active, released, traded, expired
	SignedAt     time.Time `json:"signed_at" db:"signed_at"`
}

// TotalValue is the sum of base + proration + roster bonus across every
// contract year, the figure the §8 round-trip property checks against.
func (c *Contract) TotalValue() int {
	total := c.SigningBonus
	for i := 0; i < c.Years; i++ {
		if i < len(c.BaseSalary) {
			total += c.BaseSalary[i]
		}
		if i < len(c.RosterBonus) {
			total += c.RosterBonus[i]
		}
	}
	return total
}

// CapHitForYear returns the accounting cap charge for a 0-indexed contract
// year (base + proration + roster bonus for that year only).
func (c *Contract) CapHitForYear(yearIndex int) int {
	hit := 0
	if yearIndex < len(c.BaseSalary) {
		hit += c.BaseSalary[yearIndex]
	}
	if yearIndex < len(c.Proration) {
		hit += c.Proration[yearIndex]
	}
	if yearIndex < len(c.RosterBonus) {
		hit += c.RosterBonus[yearIndex]
	}
	return hit
}

// SalaryCapRecord is the per (dynasty, team, season) cap accounting ledger.
type SalaryCapRecord struct {
	Dynasty    string `json:"dynasty" db:"dynasty_id"`
	TeamID     int    `json:"team_id" db:"team_id"`
	Season     int    `json:"season" db:"season"`
	CapLimit   int    `json:"cap_limit" db:"cap_limit"`
	ActiveHits int    `json:"active_hits" db:"active_hits"`
	DeadMoney  int    `json:"dead_money" db:"dead_money"`
	Carryover  int    `json:"carryover" db:"carryover"`
}

// CapSpace is the headroom against CapLimit+Carryover, negative when over.
func (s *SalaryCapRecord) CapSpace() int {
	return s.CapLimit + s.Carryover - s.ActiveHits - s.DeadMoney
}

// CapTransaction is an immutable audit row emitted by every cap mutation.
type CapTransaction struct {
	ID               int       `json:"id" db:"id"`
	Dynasty          string    `json:"dynasty" db:"dynasty_id"`
	TeamID           int       `json:"team_id" db:"team_id"`
	Date             time.Time `json:"date" db:"date"`
	Kind             string    `json:"kind" db:"transaction_type"`
	CapImpactCurrent int       `json:"cap_impact_current" db:"cap_impact_current"`
	CapImpactFuture  int       `json:"cap_impact_future" db:"cap_impact_future"`
	Description      string    `json:"description" db:"description"`
}

// StandingsRow is per (dynasty, team, season).
type StandingsRow struct {
	Dynasty        string `json:"dynasty" db:"dynasty_id"`
	TeamID         int    `json:"team_id" db:"team_id"`
	Season         int    `json:"season" db:"season"`
	Wins           int    `json:"wins" db:"wins"`
	Losses         int    `json:"losses" db:"losses"`
	Ties           int    `json:"ties" db:"ties"`
	DivisionWins   int    `json:"division_wins" db:"division_wins"`
	ConferenceWins int    `json:"conference_wins" db:"conference_wins"`
	PointsFor      int    `json:"points_for" db:"points_for"`
	PointsAgainst  int    `json:"points_against" db:"points_against"`
	Schedule       []int  `json:"schedule" db:"schedule"` // ordered opponent team ids
}

// GamesPlayed is the invariant §8.1 checks: wins+losses+ties.
func (s *StandingsRow) GamesPlayed() int {
	return s.Wins + s.Losses + s.Ties
}

// WinPct is used by strength-of-schedule.
func (s *StandingsRow) WinPct() float64 {
	gp := s.GamesPlayed()
	if gp == 0 {
		return 0
	}
	return (float64(s.Wins) + 0.5*float64(s.Ties)) / float64(gp)
}

// EventKind is the closed, tagged-union set of event kinds the dispatcher
// understands. Dispatch is a switch on Kind, never duck-typed discovery.
type EventKind string

const (
	EventGame            EventKind = "GAME"
	EventDeadline        EventKind = "DEADLINE"
	EventFAWaveTick      EventKind = "FA_WAVE_TICK"
	EventDraftPick       EventKind = "DRAFT_PICK"
	EventRetirementCheck EventKind = "RETIREMENT_CHECK"
	EventPhaseHook       EventKind = "PHASE_HOOK"
	EventTrade           EventKind = "TRADE"
)

// Priority returns the dispatch-ordering priority for the kind per §4.3:
// DEADLINE, then TRADE (transactions), then GAME, then PHASE_HOOK last.
// FA_WAVE_TICK, DRAFT_PICK and RETIREMENT_CHECK are off-calendar phases
// (OFFSEASON/DRAFT) where only one kind is live per day, so they share the
// transaction priority band.
func (k EventKind) Priority() int {
	switch k {
	case EventDeadline:
		return 0
	case EventTrade, EventFAWaveTick, EventDraftPick:
		return 1
	case EventGame:
		return 2
	case EventRetirementCheck:
		return 3
	case EventPhaseHook:
		return 4
	default:
		return 99
	}
}

// EventStatus is the lifecycle of an Event row.
type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventExecuted  EventStatus = "executed"
	EventFailed    EventStatus = "failed"
)

// Event is `(event_id, dynasty, date, kind, payload, status, result)` from
// §3. StructuredID is the stable, human-readable id used for idempotent
// inserts; ID is the store's internal primary key and is never compared
// for duplicate detection.
type Event struct {
	ID             int64       `json:"id" db:"id"`
	Dynasty        string      `json:"dynasty" db:"dynasty_id"`
	Date           time.Time   `json:"date" db:"date"`
	Kind           EventKind   `json:"kind" db:"kind"`
	StructuredID   string      `json:"structured_id" db:"structured_id"`
	InsertionOrder int64       `json:"insertion_order" db:"insertion_order"`
	Payload        []byte      `json:"payload" db:"payload_blob"`
	Status         EventStatus `json:"status" db:"status"`
	Result         []byte      `json:"result,omitempty" db:"result_blob"`
}

// Phase is the league calendar phase from §3/§4.4.
type Phase string

const (
	PhaseOffseason       Phase = "OFFSEASON"
	PhasePreseason       Phase = "PRESEASON"
	PhaseRegularSeason   Phase = "REGULAR_SEASON"
	PhasePlayoffs        Phase = "PLAYOFFS"
	PhaseOffseasonHonors Phase = "OFFSEASON_HONORS"
	PhaseOffseasonFA     Phase = "OFFSEASON_FA"
	PhaseOffseasonDraft  Phase = "OFFSEASON_DRAFT"
)

// DynastyState is the single "dynasty state" row from §4.12/§6, updated
// atomically with every calendar advance.
type DynastyState struct {
	Dynasty     string    `json:"dynasty" db:"dynasty_id"`
	Season      int       `json:"season" db:"season"`
	Phase       Phase     `json:"phase" db:"phase"`
	CurrentDate time.Time `json:"current_date" db:"current_date"`
	CurrentWeek int       `json:"current_week" db:"current_week"`
}

// TradeProposal is two teams each offering players and draft picks.
type TradeProposal struct {
	Dynasty  string           `json:"dynasty"`
	TeamA    int              `json:"team_a"`
	TeamB    int              `json:"team_b"`
	PlayersA []int            `json:"players_a"`
	PlayersB []int            `json:"players_b"`
	PicksA   []DraftPickAsset `json:"picks_a"`
	PicksB   []DraftPickAsset `json:"picks_b"`
	ValueA   float64          `json:"value_a"`
	ValueB   float64          `json:"value_b"`
	Fairness float64          `json:"fairness"` // min(v1,v2)/max(v1,v2)
}

// DraftPickAsset is a single future or current draft pick, owned and
// originated possibly by different teams after trades.
type DraftPickAsset struct {
	Season       int `json:"season"`
	Round        int `json:"round"` // 1..7
	PickInRound  int `json:"pick_in_round"`
	OwningTeamID int `json:"owning_team_id"`
	OriginTeamID int `json:"origin_team_id"`
}

// RetiredPlayer is an append-only record: `retired_players` from §6.
type RetiredPlayer struct {
	Dynasty     string `json:"dynasty" db:"dynasty_id"`
	PlayerID    int    `json:"player_id" db:"player_id"`
	Season      int    `json:"season" db:"season"`
	Reason      string `json:"reason" db:"reason"`
	FinalTeamID *int   `json:"final_team_id,omitempty" db:"final_team_id"`
}

// CareerSummary is the per-player career rollup from §6.
type CareerSummary struct {
	Dynasty       string  `json:"dynasty" db:"dynasty_id"`
	PlayerID      int     `json:"player_id" db:"player_id"`
	SeasonsPlayed int     `json:"seasons_played" db:"seasons_played"`
	GamesPlayed   int     `json:"games_played" db:"games_played"`
	ProBowls      int     `json:"pro_bowls" db:"pro_bowls"`
	AllPros       int     `json:"all_pros" db:"all_pros"`
	Championships int     `json:"championships" db:"championships"`
	HOFScore      float64 `json:"hof_score" db:"hof_score"`
}

// BoxScore is the `games` row from §6.
type BoxScore struct {
	GameID          string    `json:"game_id" db:"game_id"`
	Dynasty         string    `json:"dynasty" db:"dynasty_id"`
	Season          int       `json:"season" db:"season"`
	SeasonType      string    `json:"season_type" db:"season_type"` // regular_season, playoffs
	Week            int       `json:"week" db:"week"`
	GameType        string    `json:"game_type" db:"game_type"` // regular, wild_card, divisional, conference, super_bowl
	HomeTeamID      int       `json:"home_team_id" db:"home_team_id"`
	AwayTeamID      int       `json:"away_team_id" db:"away_team_id"`
	HomeScore       int       `json:"home_score" db:"home_score"`
	AwayScore       int       `json:"away_score" db:"away_score"`
	OvertimePeriods int       `json:"overtime_periods" db:"overtime_periods"`
	PlayedAt        time.Time `json:"played_at" db:"played_at"`
}

// Winner returns the winning team id, or 0 on a tie.
func (b *BoxScore) Winner() int {
	if b.HomeScore > b.AwayScore {
		return b.HomeTeamID
	}
	if b.AwayScore > b.HomeScore {
		return b.AwayTeamID
	}
	return 0
}

// PlayerGameStat is a per-player per-game stat line tagged by season type.
type PlayerGameStat struct {
	Dynasty    string  `json:"dynasty" db:"dynasty_id"`
	GameID     string  `json:"game_id" db:"game_id"`
	SeasonType string  `json:"season_type" db:"season_type"`
	PlayerID   int     `json:"player_id" db:"player_id"`
	TeamID     int     `json:"team_id" db:"team_id"`
	PassYards  int     `json:"pass_yards" db:"pass_yards"`
	PassTDs    int     `json:"pass_tds" db:"pass_tds"`
	RushYards  int     `json:"rush_yards" db:"rush_yards"`
	RushTDs    int     `json:"rush_tds" db:"rush_tds"`
	RecYards   int     `json:"rec_yards" db:"rec_yards"`
	RecTDs     int     `json:"rec_tds" db:"rec_tds"`
	Tackles    int     `json:"tackles" db:"tackles"`
	Sacks      float64 `json:"sacks" db:"sacks"`
	Interceptions int  `json:"interceptions" db:"interceptions"`
}

// RookieProspect is one draftable player in a season's incoming class,
// generated fresh each offseason and consumed by the rookie draft.
type RookieProspect struct {
	Dynasty    string `json:"dynasty" db:"dynasty_id"`
	Season     int    `json:"season" db:"season"`
	ProspectID int    `json:"prospect_id" db:"prospect_id"`
	Name       string `json:"name" db:"name"`
	Position   string `json:"position" db:"position"`
	Overall    int    `json:"overall" db:"overall"`
	Age        int    `json:"age" db:"age"`
	Drafted    bool   `json:"drafted" db:"drafted"`
}

// DraftSelection is one slot in the rookie draft order, filled in as
// teams make their picks; OverallPick is 1-based across the whole draft
// regardless of round.
type DraftSelection struct {
	Dynasty      string     `json:"dynasty" db:"dynasty_id"`
	Season       int        `json:"season" db:"season"`
	OverallPick  int        `json:"overall_pick" db:"overall_pick"`
	Round        int        `json:"round" db:"round"`
	PickInRound  int        `json:"pick_in_round" db:"pick_in_round"`
	TeamID       int        `json:"team_id" db:"team_id"`
	ProspectID   *int       `json:"prospect_id,omitempty" db:"prospect_id"`
	PlayerID     *int       `json:"player_id,omitempty" db:"player_id"`
	SelectedAt   *time.Time `json:"selected_at,omitempty" db:"selected_at"`
}

// IsOnTheClock reports whether this selection is still waiting for a pick.
func (d *DraftSelection) IsOnTheClock() bool {
	return d.SelectedAt == nil
}
