package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/cmip6-fetch-go/internal/domain"
	"go.uber.org/zap"
)

// RunHandler serves the persisted run history
type RunHandler struct {
	history domain.HistoryRepository
	logger  *zap.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(history domain.HistoryRepository, logger *zap.Logger) *RunHandler {
	return &RunHandler{
		history: history,
		logger:  logger,
	}
}

// available guards the endpoints when run history is disabled.
func (h *RunHandler) available(c *gin.Context) bool {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is disabled"})
		return false
	}
	return true
}

// ListRuns handles GET /api/v1/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	if !h.available(c) {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	runs, err := h.history.FindRuns(limit)
	if err != nil {
		h.logger.Error("Failed to list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, runs)
}

// GetRun handles GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	if !h.available(c) {
		return
	}

	id := c.Param("id")

	run, err := h.history.FindRunByID(id)
	if err != nil || run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// GetRunRequests handles GET /api/v1/runs/:id/requests
func (h *RunHandler) GetRunRequests(c *gin.Context) {
	if !h.available(c) {
		return
	}

	id := c.Param("id")

	if run, err := h.history.FindRunByID(id); err != nil || run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	records, err := h.history.FindRequestsByRun(id)
	if err != nil {
		h.logger.Error("Failed to list run requests", zap.String("run_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetStats handles GET /api/v1/runs/stats
func (h *RunHandler) GetStats(c *gin.Context) {
	if !h.available(c) {
		return
	}

	stats, err := h.history.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
