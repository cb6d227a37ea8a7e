package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nfl-analytics/backend/internal/rediscache"
	"github.com/nfl-analytics/backend/internal/season"
	"github.com/nfl-analytics/backend/internal/standings"
	"github.com/nfl-analytics/backend/internal/store"
	"github.com/nfl-analytics/backend/pkg/logger"
)

// DynastyHandler exposes the Season Controller over HTTP: status plus
// the mutating advance-day/advance-week operations every Season
// Controller caller needs, matching cmd/leaguectl's subcommand surface
// one-for-one (the CLI and the API are two callers of the same engine,
// never two implementations of it).
type DynastyHandler struct {
	store           store.Store
	log             *logger.Logger
	cache           *rediscache.Cache
	standings       *standings.Repository
	defaultCapLimit int
}

// NewDynastyHandler creates a new dynasty handler. defaultCapLimit
// backs every team's salary_cap_records row the first time it's read.
func NewDynastyHandler(s store.Store, log *logger.Logger, cache *rediscache.Cache, defaultCapLimit int) *DynastyHandler {
	return &DynastyHandler{
		store:           s,
		log:             log,
		cache:           cache,
		standings:       standings.New(s).WithCache(cache),
		defaultCapLimit: defaultCapLimit,
	}
}

// Status handles GET /api/dynasties/:dynasty
func (h *DynastyHandler) Status(c *gin.Context) {
	dynasty := c.Param("dynasty")
	state, err := season.LoadDynastyState(c.Request.Context(), h.store, dynasty)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "dynasty not found"})
		return
	}
	c.JSON(http.StatusOK, state)
}

// Standings handles GET /api/dynasties/:dynasty/standings/:season
func (h *DynastyHandler) Standings(c *gin.Context) {
	dynasty := c.Param("dynasty")
	seasonYear, err := strconv.Atoi(c.Param("season"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid season"})
		return
	}

	rows, err := h.standings.ForSeason(c.Request.Context(), dynasty, seasonYear)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"standings": rows})
}

// AdvanceDay handles POST /api/dynasties/:dynasty/advance-day
func (h *DynastyHandler) AdvanceDay(c *gin.Context) {
	dynasty := c.Param("dynasty")
	ctrl, err := season.NewDefaultController(c.Request.Context(), h.store, h.log, h.cache, dynasty, h.defaultCapLimit)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	result, err := ctrl.AdvanceDay(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// AdvanceWeek handles POST /api/dynasties/:dynasty/advance-week
func (h *DynastyHandler) AdvanceWeek(c *gin.Context) {
	dynasty := c.Param("dynasty")
	ctrl, err := season.NewDefaultController(c.Request.Context(), h.store, h.log, h.cache, dynasty, h.defaultCapLimit)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	result, err := ctrl.AdvanceWeek(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// RegisterRoutes registers all dynasty/season-controller routes.
func (h *DynastyHandler) RegisterRoutes(router *gin.RouterGroup) {
	d := router.Group("/dynasties/:dynasty")
	{
		d.GET("", h.Status)
		d.GET("/standings/:season", h.Standings)
		d.POST("/advance-day", h.AdvanceDay)
		d.POST("/advance-week", h.AdvanceWeek)
	}
}
