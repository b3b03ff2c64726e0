package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keyhaven/keyhaven/internal/api/middleware"
	"github.com/keyhaven/keyhaven/internal/service"
)

// StatsHandler handles the aggregate stats endpoint.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler creates a new stats handler.
// Parameters:
//   - stats: stats service instance.
// Returns:
//   - *StatsHandler: initialized handler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// GetStats handles GET /api/v1/imports/stats.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.GetStats(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
