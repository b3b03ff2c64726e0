package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keyhaven/keyhaven/internal/api/middleware"
	"github.com/keyhaven/keyhaven/internal/domain"
	"github.com/keyhaven/keyhaven/internal/service"
)

// ReviewHandler handles row review endpoints.
type ReviewHandler struct {
	review *service.ReviewService
}

// NewReviewHandler creates a new review handler.
// Parameters:
//   - review: review service instance.
// Returns:
//   - *ReviewHandler: initialized handler.
func NewReviewHandler(review *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{review: review}
}

// GetRowsNeedingReview handles GET /api/v1/imports/:id/review.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ReviewHandler) GetRowsNeedingReview(c *gin.Context) {
	rows, err := h.review.GetRowsNeedingReview(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows, "total": len(rows)})
}

// DecisionRequest represents a single-row decision request.
type DecisionRequest struct {
	Decision        string   `json:"decision" binding:"required"`
	OverwriteFields []string `json:"overwrite_fields"`
}

// UpdateRowDecision handles PUT /api/v1/imports/rows/:rowId/decision.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ReviewHandler) UpdateRowDecision(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	err := h.review.UpdateRowDecision(c.Request.Context(), middleware.OwnerID(c), c.Param("rowId"),
		domain.RowDecision(req.Decision), req.OverwriteFields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "decision recorded"})
}

// BulkDecisionRequest represents a bulk decision request.
type BulkDecisionRequest struct {
	TargetStatus string `json:"target_status" binding:"required"`
	Decision     string `json:"decision" binding:"required"`
	OverwriteAll bool   `json:"overwrite_all"`
}

// BulkUpdateDecision handles POST /api/v1/imports/:id/decisions.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ReviewHandler) BulkUpdateDecision(c *gin.Context) {
	var req BulkDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	count, err := h.review.BulkUpdateDecision(c.Request.Context(), middleware.OwnerID(c), c.Param("id"),
		service.BulkDecisionInput{
			TargetStatus: domain.RowStatus(req.TargetStatus),
			Decision:     domain.RowDecision(req.Decision),
			OverwriteAll: req.OverwriteAll,
		})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}
