// Package dispatch runs one calendar day's due events in order (§4.3):
// DEADLINE, then TRANSACTION-band events (trade/FA/draft pick), then GAME,
// then PHASE_HOOK last, with each event's handler running inside its own
// persistence transaction so a failure never corrupts prior events of the
// same day.
package dispatch

import (
	"context"
	"database/sql"
	"time"

	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/eventstore"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/phase"
	"github.com/nfl-analytics/backend/internal/store"
	"github.com/nfl-analytics/backend/pkg/logger"
)

// Handler executes one event's effect inside tx and returns a serialized
// result to persist alongside the event's terminal status. A returned
// error rolls back everything the handler did, including any writes
// already made this transaction.
type Handler func(ctx context.Context, tx *sql.Tx, dynasty string, ev *models.Event) ([]byte, error)

// softDeadline is the per-event time budget named in §4.3's design intent;
// it is logged, never enforced, since no handler in this engine performs
// network I/O that could hang indefinitely.
const softDeadline = 60 * time.Second

// Dispatcher runs one day's events against a registry of per-kind
// handlers.
type Dispatcher struct {
	s        store.Store
	es       *eventstore.EventStore
	handlers map[models.EventKind]Handler
	log      *logger.Logger
}

// New builds a Dispatcher with an empty handler registry.
func New(s store.Store, es *eventstore.EventStore, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		s:        s,
		es:       es,
		handlers: make(map[models.EventKind]Handler),
		log:      log,
	}
}

// Register binds a handler to an event kind. Dispatch is a map lookup on a
// closed tagged union, never reflection-based plugin discovery.
func (d *Dispatcher) Register(kind models.EventKind, h Handler) {
	d.handlers[kind] = h
}

// Outcome is one event's dispatch result, returned for the caller (the
// Season Controller) to aggregate per day.
type Outcome struct {
	Event  *models.Event
	Status models.EventStatus
	Err    error
}

// RunDate dispatches every due event for date, in §4.3 order, continuing
// past individual failures. It only returns a non-nil error for a failure
// in the dispatch machinery itself (e.g. the event store query failed);
// individual handler failures are reported per-event in the returned
// Outcome slice.
func (d *Dispatcher) RunDate(ctx context.Context, m *phase.Machine, date time.Time) ([]Outcome, error) {
	due, err := d.es.ForDate(ctx, m.Dynasty, date)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(due))
	for _, ev := range due {
		if ev.Status != models.EventScheduled {
			continue
		}
		outcomes = append(outcomes, d.runOne(ctx, m, ev))
	}
	return outcomes, nil
}

func (d *Dispatcher) runOne(ctx context.Context, m *phase.Machine, ev *models.Event) Outcome {
	start := time.Now()

	if err := checkPermitted(m, ev); err != nil {
		d.markFailed(ctx, m.Dynasty, ev, err)
		return Outcome{Event: ev, Status: models.EventFailed, Err: err}
	}

	handler, ok := d.handlers[ev.Kind]
	if !ok {
		err := engineerr.New(engineerr.KindPhaseViolation, "no handler registered for event kind "+string(ev.Kind))
		d.markFailed(ctx, m.Dynasty, ev, err)
		return Outcome{Event: ev, Status: models.EventFailed, Err: err}
	}

	result, handlerErr := d.runInTx(ctx, m.Dynasty, ev, handler)

	if elapsed := time.Since(start); elapsed > softDeadline {
		d.log.Warn("event exceeded soft deadline", "event_id", ev.StructuredID, "elapsed_ms", elapsed.Milliseconds())
	}

	if handlerErr != nil {
		d.log.Error("event dispatch failed", "event_id", ev.StructuredID, "kind", string(ev.Kind), "error", handlerErr.Error())
		return Outcome{Event: ev, Status: models.EventFailed, Err: handlerErr}
	}
	ev.Status = models.EventExecuted
	ev.Result = result
	d.log.Info("event dispatched", "event_id", ev.StructuredID, "kind", string(ev.Kind))
	return Outcome{Event: ev, Status: models.EventExecuted}
}

func checkPermitted(m *phase.Machine, ev *models.Event) error {
	if ev.Kind == models.EventTrade {
		return m.CheckTradePermitted(ev.Date)
	}
	return m.CheckPermitted(ev.Kind)
}

// runInTx executes handler and records its terminal status in the same
// transaction, so a crash between "handler ran" and "event marked
// executed" is impossible: either both happen, or (on rollback) neither
// does and the event stays "scheduled" for the next dispatch attempt.
func (d *Dispatcher) runInTx(ctx context.Context, dynasty string, ev *models.Event, handler Handler) ([]byte, error) {
	var result []byte
	err := d.s.WithDynastyTx(ctx, dynasty, func(tx *sql.Tx) error {
		var handlerErr error
		result, handlerErr = handler(ctx, tx, dynasty, ev)
		if handlerErr != nil {
			return handlerErr
		}
		return d.es.MarkExecuted(ctx, tx, ev.ID, models.EventExecuted, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// markFailed records a failure for an event that never reached a handler
// (phase violation, missing handler) in its own short transaction, since
// runInTx was never entered for it.
func (d *Dispatcher) markFailed(ctx context.Context, dynasty string, ev *models.Event, cause error) {
	err := d.s.WithDynastyTx(ctx, dynasty, func(tx *sql.Tx) error {
		return d.es.MarkExecuted(ctx, tx, ev.ID, models.EventFailed, []byte(cause.Error()))
	})
	if err != nil {
		d.log.Error("failed to persist event failure", "event_id", ev.StructuredID, "error", err.Error())
	}
}
