// Package eventstore is the append-only Event Store (§4.2): every event the
// league schedules or executes is a row keyed by (dynasty, date), inserted
// idempotently by structured id and never by the store's internal primary
// key.
package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/store"
)

// EventStore is the repository over the events table. Every method takes
// the dynasty id explicitly so no query can accidentally span dynasties.
type EventStore struct {
	s store.Store
}

// New builds an EventStore bound to the given backing Store.
func New(s store.Store) *EventStore {
	return &EventStore{s: s}
}

const eventColumns = `id, dynasty_id, structured_id, date, kind, insertion_order, payload_blob, status, result_blob`

// Insert writes ev inside tx, idempotent on (dynasty_id, structured_id). If
// a row with the same structured id already exists it is left untouched
// and the prior row's internal id is returned; this is the playoff
// reschedule-on-reload contract (§4.2, §4.11, §8.5).
func (es *EventStore) Insert(ctx context.Context, tx *sql.Tx, dynasty string, ev *models.Event) (int64, error) {
	var existingID int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM events WHERE dynasty_id = $1 AND structured_id = $2`,
		dynasty, ev.StructuredID,
	).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if err != sql.ErrNoRows {
		return 0, engineerr.Wrap(engineerr.KindPersistenceFailed, "check existing event", err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO events (dynasty_id, structured_id, date, kind, insertion_order, payload_blob, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		dynasty, ev.StructuredID, ev.Date, string(ev.Kind), ev.InsertionOrder, ev.Payload, string(models.EventScheduled),
	).Scan(&existingID)
	if err != nil {
		return 0, engineerr.Wrap(engineerr.KindPersistenceFailed, "insert event", err)
	}
	return existingID, nil
}

// ForDate returns events scheduled for exactly one date, ordered by
// dispatch priority then insertion order (§4.2, §4.3).
func (es *EventStore) ForDate(ctx context.Context, dynasty string, date time.Time) ([]*models.Event, error) {
	rows, err := es.s.DB().QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE dynasty_id = $1 AND date = $2`,
		dynasty, date,
	)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "query events for date", err)
	}
	evs, err := rowsToEvents(rows)
	if err != nil {
		return nil, err
	}
	sortByPriority(evs)
	return evs, nil
}

// ForDateRange returns events with date in [from, to], ordered by date then
// dispatch priority then insertion order.
func (es *EventStore) ForDateRange(ctx context.Context, dynasty string, from, to time.Time) ([]*models.Event, error) {
	rows, err := es.s.DB().QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE dynasty_id = $1 AND date BETWEEN $2 AND $3`,
		dynasty, from, to,
	)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "query events for date range", err)
	}
	evs, err := rowsToEvents(rows)
	if err != nil {
		return nil, err
	}
	sortByDateThenPriority(evs)
	return evs, nil
}

// ForStructuredPrefix returns every event whose structured id begins with
// prefix, used by the Playoff Controller on reconstruction to discover
// which rounds already have games scheduled (§4.11, §9).
func (es *EventStore) ForStructuredPrefix(ctx context.Context, dynasty, prefix string) ([]*models.Event, error) {
	rows, err := es.s.DB().QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE dynasty_id = $1 AND structured_id LIKE $2`,
		dynasty, prefix+"%",
	)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "query events by structured prefix", err)
	}
	return rowsToEvents(rows)
}

// MarkExecuted records the terminal outcome of a dispatched event: status
// becomes "executed" or "failed", and result carries the handler's
// serialized result (or failure description).
func (es *EventStore) MarkExecuted(ctx context.Context, tx *sql.Tx, eventID int64, status models.EventStatus, result []byte) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE events SET status = $1, result_blob = $2 WHERE id = $3`,
		string(status), result, eventID,
	)
	if err != nil {
		return engineerr.Wrap(engineerr.KindPersistenceFailed, "mark event executed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return engineerr.Wrap(engineerr.KindPersistenceFailed, "read rows affected", err)
	}
	if n == 0 {
		return engineerr.New(engineerr.KindNotFound, fmt.Sprintf("event %d not found", eventID))
	}
	return nil
}

// roundSuffix matches the trailing "_{round}_{n}" segment of a playoff
// structured id, anchored at the end of the string so dynasty ids
// containing underscores never confuse the parse (§9 "Round parsing with
// underscores in dynasty ids").
var roundSuffix = regexp.MustCompile(`_(wild_card|divisional|conference|super_bowl)_(\d+)$`)

// ParseRound extracts the playoff round name and game number from a
// structured id like "playoff_2025_wild_card_3". Returns ok=false if
// structuredID does not end in a recognized round suffix.
func ParseRound(structuredID string) (round string, number int, ok bool) {
	m := roundSuffix.FindStringSubmatch(structuredID)
	if m == nil {
		return "", 0, false
	}
	var n int
	if _, err := fmt.Sscanf(m[2], "%d", &n); err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// rowsToEvents scans the standard events column set.
func rowsToEvents(rows *sql.Rows) ([]*models.Event, error) {
	defer rows.Close()
	var out []*models.Event
	for rows.Next() {
		ev := &models.Event{}
		var kind, status string
		if err := rows.Scan(&ev.ID, &ev.Dynasty, &ev.StructuredID, &ev.Date, &kind,
			&ev.InsertionOrder, &ev.Payload, &status, &ev.Result); err != nil {
			return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "scan event row", err)
		}
		ev.Kind = models.EventKind(kind)
		ev.Status = models.EventStatus(status)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, engineerr.Wrap(engineerr.KindPersistenceFailed, "iterate event rows", err)
	}
	return out, nil
}

func sortByPriority(evs []*models.Event) {
	sort.SliceStable(evs, func(i, j int) bool { return less(evs[i], evs[j]) })
}

func sortByDateThenPriority(evs []*models.Event) {
	sort.SliceStable(evs, func(i, j int) bool { return lessDateFirst(evs[i], evs[j]) })
}

func less(a, b *models.Event) bool {
	if a.Kind.Priority() != b.Kind.Priority() {
		return a.Kind.Priority() < b.Kind.Priority()
	}
	return a.InsertionOrder < b.InsertionOrder
}

func lessDateFirst(a, b *models.Event) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	return less(a, b)
}
