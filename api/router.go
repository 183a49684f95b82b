package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/cmip6-fetch-go/api/handlers"
	"github.com/yourusername/cmip6-fetch-go/api/middleware"
	"github.com/yourusername/cmip6-fetch-go/internal/domain"
)

// SetupRouter sets up the read-only status HTTP router
func SetupRouter(
	catalog *domain.Catalog,
	history domain.HistoryRepository,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(history)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		catalogHandler := handlers.NewCatalogHandler(catalog)
		catalogGroup := v1.Group("/catalog")
		{
			catalogGroup.GET("", catalogHandler.ListModes)
			catalogGroup.GET("/:mode", catalogHandler.GetMode)
		}

		runHandler := handlers.NewRunHandler(history, log)
		runs := v1.Group("/runs")
		{
			runs.GET("", runHandler.ListRuns)
			runs.GET("/stats", runHandler.GetStats)
			runs.GET("/:id", runHandler.GetRun)
			runs.GET("/:id/requests", runHandler.GetRunRequests)
		}
	}

	return router
}
