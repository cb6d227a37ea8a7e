package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nfl-analytics/backend/internal/services"
)

// ServiceCredentialHandler exposes per-dynasty external-service connection
// management: the base URL and API key a dynasty uses to reach a remote
// GameSimulator, DraftOrderService, or PlayoffSeedingService deployment.
type ServiceCredentialHandler struct {
	credService *services.CredentialsService
}

// NewServiceCredentialHandler creates a new service credential handler
func NewServiceCredentialHandler(credService *services.CredentialsService) *ServiceCredentialHandler {
	return &ServiceCredentialHandler{credService: credService}
}

// ConnectServiceRequest represents a request to configure a remote service
type ConnectServiceRequest struct {
	BaseURL string `json:"base_url" binding:"required"`
	APIKey  string `json:"api_key" binding:"required"`
}

// Connect handles POST /api/dynasties/:dynasty/services/:kind/connect
func (h *ServiceCredentialHandler) Connect(c *gin.Context) {
	dynasty := c.Param("dynasty")
	kind := c.Param("kind")

	var req ConnectServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.credService.StoreCredential(c.Request.Context(), dynasty, kind, req.BaseURL, req.APIKey); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store credential"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "service connected successfully",
		"service_kind": kind,
	})
}

// Status handles GET /api/dynasties/:dynasty/services/:kind/status
func (h *ServiceCredentialHandler) Status(c *gin.Context) {
	dynasty := c.Param("dynasty")
	kind := c.Param("kind")

	isExpiring, rotateBy, err := h.credService.CheckCredentialExpiry(c.Request.Context(), dynasty, kind)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"connected": false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected":      true,
		"rotate_by":      rotateBy,
		"rotation_due":   isExpiring,
	})
}

// Disconnect handles DELETE /api/dynasties/:dynasty/services/:kind/disconnect
func (h *ServiceCredentialHandler) Disconnect(c *gin.Context) {
	dynasty := c.Param("dynasty")
	kind := c.Param("kind")

	if err := h.credService.DeleteCredential(c.Request.Context(), dynasty, kind); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to disconnect service"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "service disconnected successfully"})
}

// Update handles PUT /api/dynasties/:dynasty/services/:kind/update
func (h *ServiceCredentialHandler) Update(c *gin.Context) {
	dynasty := c.Param("dynasty")
	kind := c.Param("kind")

	var req ConnectServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.credService.UpdateCredential(c.Request.Context(), dynasty, kind, req.BaseURL, req.APIKey); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update credential"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "service credential updated successfully"})
}

// RegisterRoutes registers all service credential routes.
func (h *ServiceCredentialHandler) RegisterRoutes(router *gin.RouterGroup) {
	g := router.Group("/dynasties/:dynasty/services/:kind")
	{
		g.POST("/connect", h.Connect)
		g.GET("/status", h.Status)
		g.DELETE("/disconnect", h.Disconnect)
		g.PUT("/update", h.Update)
	}
}
