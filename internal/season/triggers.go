package season

import (
	"context"
	"fmt"

	"github.com/nfl-analytics/backend/internal/eventstore"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/playoff"
	"github.com/nfl-analytics/backend/internal/schedule"
)

// StoreTriggerSource answers the Season Controller's completion-derived
// facts by inspecting the Event Store directly: a phase is done when
// every event of the kind that phase is waiting on has left "scheduled".
// It never inspects box scores or standings itself; RecordResult already
// keeps the event row's terminal status authoritative.
type StoreTriggerSource struct {
	events *eventstore.EventStore
}

// NewStoreTriggerSource builds a StoreTriggerSource bound to es.
func NewStoreTriggerSource(es *eventstore.EventStore) *StoreTriggerSource {
	return &StoreTriggerSource{events: es}
}

func (t *StoreTriggerSource) AllRegularGamesDone(ctx context.Context, dynasty string, season int) (bool, error) {
	return t.nonePending(ctx, dynasty, fmt.Sprintf("%s%d_", schedule.StructuredIDPrefix, season))
}

func (t *StoreTriggerSource) SuperBowlExecuted(ctx context.Context, dynasty string, season int) (bool, error) {
	return t.nonePending(ctx, dynasty, fmt.Sprintf("playoff_%d_%s_", season, playoff.RoundSuperBowl))
}

// HonorsHooksComplete is true once this season's honors-phase PHASE_HOOK
// sweep has executed; the Season Controller's transition hook schedules
// exactly one such event per season, on entering PhaseOffseasonHonors.
func (t *StoreTriggerSource) HonorsHooksComplete(ctx context.Context, dynasty string, season int) (bool, error) {
	return t.nonePending(ctx, dynasty, fmt.Sprintf("honors_%d", season))
}

// FAWindowClosed is true once every FA_WAVE_TICK event scheduled for this
// season has executed.
func (t *StoreTriggerSource) FAWindowClosed(ctx context.Context, dynasty string, season int) (bool, error) {
	return t.nonePending(ctx, dynasty, fmt.Sprintf("fa_wave_%d_", season))
}

// AllDraftRoundsDone is true once every DRAFT_PICK event scheduled for
// this season's class has executed.
func (t *StoreTriggerSource) AllDraftRoundsDone(ctx context.Context, dynasty string, season int) (bool, error) {
	return t.nonePending(ctx, dynasty, fmt.Sprintf("draft_pick_%d_", season))
}

// nonePending reports whether at least one event with the given
// structured-id prefix was ever scheduled, and none of them are still
// status=scheduled. An empty set (nothing scheduled yet) is never "done":
// it means the phase's events have not been seeded, not that they
// finished.
func (t *StoreTriggerSource) nonePending(ctx context.Context, dynasty, prefix string) (bool, error) {
	evs, err := t.events.ForStructuredPrefix(ctx, dynasty, prefix)
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
