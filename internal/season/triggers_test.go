package season

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfl-analytics/backend/internal/models"
)

func seedEvents(t *testing.T, s interface {
	WithDynastyTx(ctx context.Context, dynasty string, fn func(*sql.Tx) error) error
}, es interface {
	Insert(ctx context.Context, tx *sql.Tx, dynasty string, ev *models.Event) (int64, error)
}, dynasty string, structuredIDs []string) {
	t.Helper()
	err := s.WithDynastyTx(context.Background(), dynasty, func(tx *sql.Tx) error {
		for i, id := range structuredIDs {
			ev := &models.Event{
				Dynasty: dynasty, Date: time.Now(), Kind: models.EventGame,
				StructuredID: id, InsertionOrder: int64(i), Payload: []byte(`{}`),
			}
			if _, err := es.Insert(context.Background(), tx, dynasty, ev); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestStoreTriggerSource_AllRegularGamesDone_FalseWhenNoneSeeded(t *testing.T) {
	_, es, _ := newTestEnv(t)
	src := NewStoreTriggerSource(es)

	done, err := src.AllRegularGamesDone(context.Background(), "d1", 2030)
	require.NoError(t, err)
	assert.False(t, done, "a phase with no seeded events is never done, it just hasn't started")
}

func TestStoreTriggerSource_AllRegularGamesDone_FalseWhileAnyEventStillScheduled(t *testing.T) {
	s, es, _ := newTestEnv(t)
	src := NewStoreTriggerSource(es)
	seedEvents(t, s, es, "d1", []string{"game_2030_w1_0", "game_2030_w1_1"})

	done, err := src.AllRegularGamesDone(context.Background(), "d1", 2030)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestStoreTriggerSource_AllRegularGamesDone_TrueOnceEveryGameLeavesScheduled(t *testing.T) {
	s, es, _ := newTestEnv(t)
	src := NewStoreTriggerSource(es)
	seedEvents(t, s, es, "d1", []string{"game_2030_w1_0", "game_2030_w1_1"})

	_, err := s.DB().Exec(`UPDATE events SET status = $1 WHERE dynasty_id = 'd1'`, string(models.EventExecuted))
	require.NoError(t, err)

	done, err := src.AllRegularGamesDone(context.Background(), "d1", 2030)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestStoreTriggerSource_AllRegularGamesDone_IgnoresOtherSeasonsAndPlayoffEvents(t *testing.T) {
	s, es, _ := newTestEnv(t)
	src := NewStoreTriggerSource(es)
	seedEvents(t, s, es, "d1", []string{"game_2030_w1_0", "playoff_2030_wildcard_0"})

	_, err := s.DB().Exec(`UPDATE events SET status = $1 WHERE structured_id = 'game_2030_w1_0'`, string(models.EventExecuted))
	require.NoError(t, err)

	done, err := src.AllRegularGamesDone(context.Background(), "d1", 2030)
	require.NoError(t, err)
	assert.True(t, done, "the playoff event's own still-scheduled status must not count against the regular season prefix")
}
