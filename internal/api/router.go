package api

import (
	"github.com/gin-gonic/gin"
	"github.com/keyhaven/keyhaven/internal/api/handler"
	"github.com/keyhaven/keyhaven/internal/api/middleware"
	"github.com/keyhaven/keyhaven/internal/config"
	"github.com/keyhaven/keyhaven/internal/logger"
	"github.com/keyhaven/keyhaven/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	imports *service.ImportService,
	analyzer *service.AnalyzeService,
	review *service.ReviewService,
	executor *service.ExecuteService,
	stats *service.StatsService,
	cfg *config.Config,
	log *logger.Logger,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	importHandler := handler.NewImportHandler(imports, analyzer, executor)
	reviewHandler := handler.NewReviewHandler(review)
	statsHandler := handler.NewStatsHandler(stats)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes; every route below is owner-scoped
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Owner())
	{
		// Import jobs
		v1.POST("/imports", importHandler.CreateJob)
		v1.GET("/imports", importHandler.ListJobs)

		// Stats must be registered before the :id routes so "stats" is not
		// captured as a job ID.
		v1.GET("/imports/stats", statsHandler.GetStats)

		v1.GET("/imports/:id", importHandler.GetJob)
		v1.DELETE("/imports/:id", importHandler.DeleteJob)
		v1.POST("/imports/:id/analyze", importHandler.Analyze)
		v1.GET("/imports/:id/rows", importHandler.GetRows)
		v1.POST("/imports/:id/execute", importHandler.Execute)

		// Review
		v1.GET("/imports/:id/review", reviewHandler.GetRowsNeedingReview)
		v1.POST("/imports/:id/decisions", reviewHandler.BulkUpdateDecision)
		v1.PUT("/imports/rows/:rowId/decision", reviewHandler.UpdateRowDecision)
	}

	return r
}
