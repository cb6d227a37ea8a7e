package gm

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/validator"
)

// TradeHandler implements dispatch.Handler for TRADE events. Submit only
// ever appends a trade to the Event Store once it has already passed
// validator.Validate; the handler's job is to apply it, not re-check it.
type TradeHandler struct{}

// NewTradeHandler builds the TRADE event handler.
func NewTradeHandler() *TradeHandler {
	return &TradeHandler{}
}

func (h *TradeHandler) Handle(ctx context.Context, tx *sql.Tx, dynasty string, ev *models.Event) ([]byte, error) {
	var proposed validator.Proposed
	if err := json.Unmarshal(ev.Payload, &proposed); err != nil {
		return nil, engineerr.Wrap(engineerr.KindInvalidTx, "decode trade payload", err)
	}

	for _, playerID := range proposed.PlayersA {
		if err := reassignTeam(ctx, tx, dynasty, playerID, proposed.TeamB); err != nil {
			return nil, err
		}
	}
	for _, playerID := range proposed.PlayersB {
		if err := reassignTeam(ctx, tx, dynasty, playerID, proposed.TeamA); err != nil {
			return nil, err
		}
	}

	return json.Marshal(proposed)
}

func reassignTeam(ctx context.Context, tx *sql.Tx, dynasty string, playerID, teamID int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE players SET team_id = $1 WHERE dynasty_id = $2 AND player_id = $3`,
		teamID, dynasty, playerID,
	)
	if err != nil {
		return engineerr.Wrap(engineerr.KindPersistenceFailed, fmt.Sprintf("reassign traded player %d", playerID), err)
	}
	return nil
}
