package draft

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/nfl-analytics/backend/internal/cap"
	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/models"
)

// DraftPickPayload is the Event.Payload contents for a DRAFT_PICK event:
// which season's class is on the clock and the cap limit selections are
// signed against.
type DraftPickPayload struct {
	Season          int `json:"season"`
	DefaultCapLimit int `json:"default_cap_limit"`
}

// DraftPickHandler implements dispatch.Handler for DRAFT_PICK events: it
// auto-drafts the best available prospect for whichever team is next on
// the clock. There is no human-in-the-loop pick in dynasty auto-advance
// mode; BestAvailable stands in for a user's actual selection.
type DraftPickHandler struct {
	repo            *Repository
	ledger          *cap.Ledger
	playerIDFactory func() int
}

// NewDraftPickHandler builds the DRAFT_PICK handler. playerIDFactory
// mints a fresh player id for each drafted prospect.
func NewDraftPickHandler(repo *Repository, ledger *cap.Ledger, playerIDFactory func() int) *DraftPickHandler {
	return &DraftPickHandler{repo: repo, ledger: ledger, playerIDFactory: playerIDFactory}
}

func (h *DraftPickHandler) Handle(ctx context.Context, tx *sql.Tx, dynasty string, ev *models.Event) ([]byte, error) {
	var payload DraftPickPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return nil, engineerr.Wrap(engineerr.KindInvalidTx, "decode draft pick payload", err)
	}

	sel, err := h.repo.NextOnTheClock(ctx, dynasty, payload.Season)
	if err != nil {
		return nil, err
	}
	if sel == nil {
		return json.Marshal(map[string]string{"status": "draft complete"})
	}

	available, err := h.repo.AvailableProspects(ctx, dynasty, payload.Season)
	if err != nil {
		return nil, err
	}
	if len(available) == 0 {
		return nil, engineerr.New(engineerr.KindInvalidTx, "no available prospects left in class")
	}

	best := BestAvailable(available, uniformNeedWeight, 1)
	playerID, err := h.repo.MakeSelection(ctx, tx, h.ledger, dynasty, payload.Season, payload.DefaultCapLimit, *sel, best[0].ProspectID, h.playerIDFactory, ev.Date)
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]int{"overall_pick": sel.OverallPick, "team_id": sel.TeamID, "player_id": playerID})
}

// uniformNeedWeight ranks purely by overall rating: the draft handler has
// no per-team roster need model of its own (that lives in package gm),
// so every position is weighted equally.
func uniformNeedWeight(position string) float64 {
	return 1.0
}
