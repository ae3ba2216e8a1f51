package api

import (
	"github.com/gin-gonic/gin"
	"github.com/plantlab/lessonhub/internal/api/handler"
	"github.com/plantlab/lessonhub/internal/api/middleware"
	"github.com/plantlab/lessonhub/internal/auth"
	"github.com/plantlab/lessonhub/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	finder *service.FinderService,
	resolution *service.ResolutionService,
	review *service.ReviewService,
	provider auth.Provider,
	cors middleware.CORSConfig,
	mode string,
) *gin.Engine {
	// Set Gin mode
	switch mode {
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
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cors))
	r.Use(middleware.Identity(provider))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	duplicatesHandler := handler.NewDuplicatesHandler(finder, resolution, review)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		duplicates := v1.Group("/duplicates")
		{
			duplicates.GET("/pairs", duplicatesHandler.FindPairs)
			duplicates.GET("/groups", duplicatesHandler.FindGroups)
			duplicates.POST("/details", duplicatesHandler.Details)
			duplicates.POST("/check-resolved", duplicatesHandler.CheckResolved)
			duplicates.POST("/archive", duplicatesHandler.Archive)
			duplicates.GET("/archives/:id", duplicatesHandler.ArchiveLookup)
			duplicates.POST("/dismiss", duplicatesHandler.Dismiss)
		}
	}

	return r
}
