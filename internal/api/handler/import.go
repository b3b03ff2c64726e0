package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/keyhaven/keyhaven/internal/api/middleware"
	"github.com/keyhaven/keyhaven/internal/domain"
	"github.com/keyhaven/keyhaven/internal/service"
)

// ImportHandler handles import job endpoints: registration, listing, row
// queries, analysis, execution, and deletion.
type ImportHandler struct {
	imports  *service.ImportService
	analyzer *service.AnalyzeService
	executor *service.ExecuteService
}

// NewImportHandler creates a new import handler.
// Parameters:
//   - imports: import job service.
//   - analyzer: analysis service.
//   - executor: execution service.
// Returns:
//   - *ImportHandler: initialized handler.
func NewImportHandler(imports *service.ImportService, analyzer *service.AnalyzeService, executor *service.ExecuteService) *ImportHandler {
	return &ImportHandler{
		imports:  imports,
		analyzer: analyzer,
		executor: executor,
	}
}

// CreateJobRequest represents the job registration request.
type CreateJobRequest struct {
	Mode          string `json:"mode"`
	FileName      string `json:"file_name" binding:"required"`
	FileURL       string `json:"file_url" binding:"required"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// CreateJob handles POST /api/v1/imports.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImportHandler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	job, err := h.imports.CreateJob(c.Request.Context(), middleware.OwnerID(c), service.CreateJobInput{
		Mode:          domain.ImportMode(req.Mode),
		FileName:      req.FileName,
		FileURL:       req.FileURL,
		FileSizeBytes: req.FileSizeBytes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// ListJobs handles GET /api/v1/imports. The status query accepts a single
// value or a comma-separated set.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImportHandler) ListJobs(c *gin.Context) {
	var statuses []domain.JobStatus
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, domain.JobStatus(strings.TrimSpace(s)))
		}
	}

	jobs, err := h.imports.ListJobs(c.Request.Context(), middleware.OwnerID(c), statuses)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "total": len(jobs)})
}

// GetJob handles GET /api/v1/imports/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImportHandler) GetJob(c *gin.Context) {
	job, err := h.imports.GetJob(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// DeleteJob handles DELETE /api/v1/imports/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImportHandler) DeleteJob(c *gin.Context) {
	if err := h.imports.DeleteJob(c.Request.Context(), middleware.OwnerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "job deleted"})
}

// Analyze handles POST /api/v1/imports/:id/analyze.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImportHandler) Analyze(c *gin.Context) {
	job, err := h.analyzer.Analyze(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// GetRows handles GET /api/v1/imports/:id/rows with optional status filter,
// pagination, and contact hydration.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImportHandler) GetRows(c *gin.Context) {
	var statuses []domain.RowStatus
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, domain.RowStatus(strings.TrimSpace(s)))
		}
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	hydrate := c.Query("hydrate") == "true"

	page, err := h.imports.GetRows(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), statuses, limit, offset, hydrate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Execute handles POST /api/v1/imports/:id/execute.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImportHandler) Execute(c *gin.Context) {
	job, err := h.executor.Execute(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}
