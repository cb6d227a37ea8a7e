package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfl-analytics/backend/internal/cap"
	"github.com/nfl-analytics/backend/internal/models"
)

func TestDraftPickHandler_Handle_SelectsBestAvailableForTeamOnClock(t *testing.T) {
	s := newTestStore(t)
	r := New(s)
	ledger := cap.New(s)
	ctx := context.Background()

	_, err := s.DB().Exec(`INSERT INTO teams (dynasty_id, id) VALUES ('d1', 1), ('d1', 2)`)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	class := GenerateClass(rng, 2030, 10)
	standings := []*models.StandingsRow{
		{TeamID: 1, Wins: 2, Losses: 15},
		{TeamID: 2, Wins: 14, Losses: 3},
	}
	err = s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		if err := r.SaveClass(ctx, tx, "d1", class); err != nil {
			return err
		}
		return r.BuildOrder(ctx, tx, "d1", 2030, standings, nil, 1, 2)
	})
	require.NoError(t, err)

	nextID := 500
	h := NewDraftPickHandler(r, ledger, func() int { return nextID })

	payload, err := json.Marshal(DraftPickPayload{Season: 2030, DefaultCapLimit: 200_000_000})
	require.NoError(t, err)
	ev := &models.Event{
		Dynasty: "d1",
		Date:    time.Date(2030, 4, 25, 0, 0, 0, 0, time.UTC),
		Kind:    models.EventDraftPick,
		Payload: payload,
	}

	var result []byte
	err = s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		var err error
		result, err = h.Handle(ctx, tx, "d1", ev)
		return err
	})
	require.NoError(t, err)
	assert.Contains(t, string(result), `"player_id":500`)

	var playerCount int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM players WHERE dynasty_id = 'd1'`).Scan(&playerCount))
	assert.Equal(t, 1, playerCount)

	var teamID int
	require.NoError(t, s.DB().QueryRow(`SELECT team_id FROM draft_selections WHERE dynasty_id = 'd1' AND season = 2030 AND overall_pick = 1`).Scan(&teamID))
	assert.Equal(t, 1, teamID, "the team with the worst record picks first")
}

func TestDraftPickHandler_Handle_DraftCompleteWhenNoPickRemains(t *testing.T) {
	s := newTestStore(t)
	r := New(s)
	ledger := cap.New(s)
	ctx := context.Background()

	h := NewDraftPickHandler(r, ledger, func() int { return 1 })
	payload, err := json.Marshal(DraftPickPayload{Season: 2030, DefaultCapLimit: 200_000_000})
	require.NoError(t, err)
	ev := &models.Event{Dynasty: "d1", Kind: models.EventDraftPick, Payload: payload}

	var result []byte
	err = s.WithDynastyTx(ctx, "d1", func(tx *sql.Tx) error {
		var err error
		result, err = h.Handle(ctx, tx, "d1", ev)
		return err
	})
	require.NoError(t, err)
	assert.Contains(t, string(result), "draft complete")
}
