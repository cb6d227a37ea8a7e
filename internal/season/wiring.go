package season

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nfl-analytics/backend/internal/cap"
	"github.com/nfl-analytics/backend/internal/dispatch"
	"github.com/nfl-analytics/backend/internal/draft"
	"github.com/nfl-analytics/backend/internal/eventstore"
	"github.com/nfl-analytics/backend/internal/gm"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/rediscache"
	"github.com/nfl-analytics/backend/internal/retirement"
	"github.com/nfl-analytics/backend/internal/simulation"
	"github.com/nfl-analytics/backend/internal/standings"
	"github.com/nfl-analytics/backend/internal/store"
	"github.com/nfl-analytics/backend/pkg/logger"
)

// NextPlayerIDFactory mints a fresh player id from the current maximum
// in the players table. Shared by every caller that needs to wire a
// draft pick handler.
func NextPlayerIDFactory(s store.Store) func() int {
	return func() int {
		var maxID sql.NullInt64
		_ = s.DB().QueryRow(`SELECT MAX(player_id) FROM players`).Scan(&maxID)
		return int(maxID.Int64) + 1
	}
}

// NewDefaultController builds a Controller with every event kind this
// engine has a handler for registered against its Dispatcher: the full
// wiring both cmd/leaguectl and cmd/api's HTTP surface need, factored
// here so the two entry points cannot drift out of sync with each
// other's handler registry.
func NewDefaultController(ctx context.Context, s store.Store, log *logger.Logger, cache *rediscache.Cache, dynastyID string, defaultCapLimit int) (*Controller, error) {
	state, err := LoadDynastyState(ctx, s, dynastyID)
	if err != nil {
		return nil, fmt.Errorf("load dynasty state: %w", err)
	}

	es := eventstore.New(s)
	st := standings.New(s).WithCache(cache)
	capLedger := cap.New(s)
	draftRepo := draft.New(s)
	retireRepo := retirement.New(s)

	d := dispatch.New(s, es, log)
	d.Register(models.EventGame, simulation.NewHandler(simulation.NewDeterministicSimulator(), simulation.NewSQLRosterReader(), st).Handle)
	d.Register(models.EventTrade, gm.NewTradeHandler().Handle)
	d.Register(models.EventDraftPick, draft.NewDraftPickHandler(draftRepo, capLedger, NextPlayerIDFactory(s)).Handle)
	d.Register(models.EventRetirementCheck, retirement.NewCheckHandler(retireRepo).Handle)
	d.Register(models.EventPhaseHook, retirement.NewSweepHandler(retireRepo).Handle)
	d.Register(models.EventDeadline, dispatch.MarkerHandler)
	d.Register(models.EventFAWaveTick, dispatch.MarkerHandler)

	triggers := NewStoreTriggerSource(es)
	h := newHooks(s, es, st, draftRepo, defaultCapLimit)
	return New(s, es, d, st, triggers, log, state).WithHooks(h), nil
}

// LoadDynastyState reads the single dynasties row NewDefaultController
// needs to seed a Controller's starting (date, phase, week, season).
func LoadDynastyState(ctx context.Context, s store.Store, dynastyID string) (models.DynastyState, error) {
	var state models.DynastyState
	row := s.DB().QueryRowContext(ctx,
		`SELECT dynasty_id, season, phase, current_date, current_week FROM dynasties WHERE dynasty_id = $1`,
		dynastyID,
	)
	err := row.Scan(&state.Dynasty, &state.Season, &state.Phase, &state.CurrentDate, &state.CurrentWeek)
	return state, err
}
