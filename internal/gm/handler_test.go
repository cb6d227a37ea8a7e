package gm

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/store"
	"github.com/nfl-analytics/backend/internal/validator"
)

func newHandlerTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "gm_handler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.DB().Exec(`
		CREATE TABLE players (
			dynasty_id TEXT NOT NULL, player_id INTEGER NOT NULL, team_id INTEGER,
			PRIMARY KEY (dynasty_id, player_id)
		);
	`)
	require.NoError(t, err)
	return s
}

func TestTradeHandler_Handle_SwapsTeamsOnBothSides(t *testing.T) {
	s := newHandlerTestStore(t)
	ctx := context.Background()

	_, err := s.DB().Exec(`INSERT INTO players (dynasty_id, player_id, team_id) VALUES
		('d1', 1, 10), ('d1', 2, 20)`)
	require.NoError(t, err)

	proposed := validator.Proposed{
		Kind: validator.KindTrade, TeamA: 10, TeamB: 20,
		PlayersA: []int{1}, PlayersB: []int{2},
	}
	payload, err := json.Marshal(proposed)
	require.NoError(t, err)
	ev := &models.Event{Dynasty: "d1", Kind: models.EventTrade, Payload: payload}

	h := NewTradeHandler()
	err = s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		_, err := h.Handle(ctx, tx, "d1", ev)
		return err
	})
	require.NoError(t, err)

	var teamOfPlayer1, teamOfPlayer2 int
	require.NoError(t, s.DB().QueryRow(`SELECT team_id FROM players WHERE dynasty_id = 'd1' AND player_id = 1`).Scan(&teamOfPlayer1))
	require.NoError(t, s.DB().QueryRow(`SELECT team_id FROM players WHERE dynasty_id = 'd1' AND player_id = 2`).Scan(&teamOfPlayer2))
	assert.Equal(t, 20, teamOfPlayer1, "player traded from team A lands on team B")
	assert.Equal(t, 10, teamOfPlayer2, "player traded from team B lands on team A")
}

func TestTradeHandler_Handle_InvalidPayloadReturnsError(t *testing.T) {
	s := newHandlerTestStore(t)
	ctx := context.Background()
	h := NewTradeHandler()
	ev := &models.Event{Dynasty: "d1", Kind: models.EventTrade, Payload: []byte("not json")}

	err := s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		_, err := h.Handle(ctx, tx, "d1", ev)
		return err
	})
	assert.Error(t, err)
}
