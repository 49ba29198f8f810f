package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/modelrelay/modelrelay/internal/analytics"
	"github.com/modelrelay/modelrelay/internal/core/domain"
)

type AnalyticsHandler struct {
	service analytics.Service
}

func NewAnalyticsHandler(service analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
	}
}

// GetUsage returns per-day dispatch statistics.
//
// GET /v1/analytics/usage?days=7
func (h *AnalyticsHandler) GetUsage(c *gin.Context) {
	daysStr := c.DefaultQuery("days", "7")
	days, err := strconv.Atoi(daysStr)
	if err != nil {
		_ = c.Error(domain.BadRequestError("Invalid 'days' parameter"))
		return
	}

	stats, err := h.service.GetUsageOverview(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(domain.InternalError("Failed to fetch analytics", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   stats,
	})
}

// GetAttempts returns recent dispatch attempts, optionally filtered by
// virtual model.
//
// GET /v1/analytics/attempts?virtual_model=x&limit=50
func (h *AnalyticsHandler) GetAttempts(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		_ = c.Error(domain.BadRequestError("Invalid 'limit' parameter"))
		return
	}

	attempts, err := h.service.GetRecentAttempts(c.Request.Context(), c.Query("virtual_model"), limit)
	if err != nil {
		_ = c.Error(domain.InternalError("Failed to fetch attempts", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   attempts,
	})
}
