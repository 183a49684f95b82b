package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/cmip6-fetch-go/internal/domain"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	history domain.HistoryRepository
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(history domain.HistoryRepository) *HealthHandler {
	return &HealthHandler{
		history: history,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.history != nil {
		if _, err := h.history.GetStats(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "history database unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
