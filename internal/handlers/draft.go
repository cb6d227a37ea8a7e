package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nfl-analytics/backend/internal/cap"
	"github.com/nfl-analytics/backend/internal/draft"
)

// DraftHandler exposes the rookie draft over HTTP: who is on the clock,
// the available prospect board, and making a selection.
type DraftHandler struct {
	repo   *draft.Repository
	ledger *cap.Ledger
}

// NewDraftHandler creates a new draft handler.
func NewDraftHandler(repo *draft.Repository, ledger *cap.Ledger) *DraftHandler {
	return &DraftHandler{repo: repo, ledger: ledger}
}

// NextPick handles GET /api/dynasties/:dynasty/draft/:season/next
func (h *DraftHandler) NextPick(c *gin.Context) {
	dynasty := c.Param("dynasty")
	season, err := strconv.Atoi(c.Param("season"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid season"})
		return
	}

	sel, err := h.repo.NextOnTheClock(c.Request.Context(), dynasty, season)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sel == nil {
		c.JSON(http.StatusOK, gin.H{"complete": true})
		return
	}
	c.JSON(http.StatusOK, sel)
}

// AvailableProspects handles GET /api/dynasties/:dynasty/draft/:season/board
func (h *DraftHandler) AvailableProspects(c *gin.Context) {
	dynasty := c.Param("dynasty")
	season, err := strconv.Atoi(c.Param("season"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid season"})
		return
	}

	prospects, err := h.repo.AvailableProspects(c.Request.Context(), dynasty, season)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prospects": prospects})
}

// RegisterRoutes registers all draft routes.
func (h *DraftHandler) RegisterRoutes(router *gin.RouterGroup) {
	d := router.Group("/dynasties/:dynasty/draft/:season")
	{
		d.GET("/next", h.NextPick)
		d.GET("/board", h.AvailableProspects)
	}
}
