package dispatch

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/nfl-analytics/backend/internal/models"
)

// MarkerHandler implements Handler for event kinds whose entire purpose
// is enforcing the phase FSM's permitted-kind gate and the day's
// ordering rule, not performing domain work of their own: DEADLINE
// (trade deadline flip, roster-cut deadline) and FA_WAVE_TICK whose
// waves have no bidding engine in this codebase to drive them. Marking
// it executed is the whole effect.
func MarkerHandler(ctx context.Context, tx *sql.Tx, dynasty string, ev *models.Event) ([]byte, error) {
	return json.Marshal(map[string]string{"kind": string(ev.Kind), "status": "acknowledged"})
}
