package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/stitts-dev/roster-optimizer/internal/api/handlers"
	"github.com/stitts-dev/roster-optimizer/internal/api/middleware"
	"github.com/stitts-dev/roster-optimizer/internal/services"
	"github.com/stitts-dev/roster-optimizer/pkg/config"
)

// Dependencies are the collaborators the routes need. DB and Cache are
// optional.
type Dependencies struct {
	Service *services.RosterService
	DB      handlers.Pinger
	Cache   handlers.Pinger
	Config  *config.Config
	Logger  *logrus.Logger
}

// NewRouter builds the engine with middleware and all routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORS(deps.Config.CorsOrigins))

	SetupRoutes(router.Group("/api/v1"), deps)

	healthHandler := handlers.NewHealthHandler(deps.Service, deps.DB, deps.Cache, deps.Logger)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	return router
}

// SetupRoutes configures the API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, deps Dependencies) {
	optimizationHandler := handlers.NewOptimizationHandler(deps.Service, deps.Config, deps.Logger)
	playerHandler := handlers.NewPlayerHandler(deps.Service, deps.Logger)

	optimize := group.Group("/optimize")
	if deps.Config.OptimizeRateLimit > 0 {
		optimize.Use(middleware.RateLimit(rate.NewLimiter(rate.Limit(deps.Config.OptimizeRateLimit), deps.Config.OptimizeRateBurst)))
	}
	optimize.POST("", optimizationHandler.OptimizeRoster)
	optimize.POST("/validate", optimizationHandler.ValidateOptimizationRequest)
	group.GET("/playstyles", optimizationHandler.GetPlaystyles)

	group.GET("/players", playerHandler.GetPlayers)
	group.POST("/players/reload", playerHandler.ReloadPlayers)
}
