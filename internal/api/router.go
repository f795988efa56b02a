package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/uav-ground-control/internal/config"
	"github.com/jengzang/uav-ground-control/internal/database"
	"github.com/jengzang/uav-ground-control/internal/handler"
	"github.com/jengzang/uav-ground-control/internal/logging"
	"github.com/jengzang/uav-ground-control/internal/middleware"
	"github.com/jengzang/uav-ground-control/internal/repository"
	"github.com/jengzang/uav-ground-control/internal/service"
)

// Dependencies are the process-wide resources the router wires into
// handlers. Metrics and Limiter are optional.
type Dependencies struct {
	Config  *config.Config
	DB      *database.DB
	Logger  logging.Logger
	Metrics *middleware.Collector
	Limiter *middleware.RateLimiter
}

// Endpoint is one row of the API index
type Endpoint struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// SetupRouter builds the gin engine with every route of the API
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = logging.Noop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger), middleware.CORS())

	var recorder service.MetricsRecorder
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
		recorder = deps.Metrics
	}

	planService := service.NewFlightPlanService(
		repository.NewFlightPlanRepository(deps.DB.DB),
		service.FlightPlanOptions{CacheSize: cfg.PlanCacheSize, CacheTTL: cfg.PlanCacheTTL},
		recorder, logger,
	)
	trajectoryService := service.NewTrajectoryService(repository.NewTrajectoryRepository(deps.DB.DB), recorder, logger)
	positionService := service.NewUAVPositionService(repository.NewUAVPositionRepository(deps.DB.DB), cfg.HistoryMaxLimit, recorder, logger)

	planHandler := handler.NewFlightPlanHandler(planService, logger)
	shapeHandler := handler.NewShapeHandler(logger)
	trajectoryHandler := handler.NewTrajectoryHandler(trajectoryService, logger)
	positionHandler := handler.NewUAVPositionHandler(positionService, logger)

	// Mutating routes go through auth and the write rate limit
	guard := []gin.HandlerFunc{middleware.Auth(cfg.JWTSecret, cfg.AuthRequired)}
	if deps.Limiter != nil {
		guard = append(guard, middleware.RateLimit(deps.Limiter))
	}
	write := func(h gin.HandlerFunc) []gin.HandlerFunc {
		chain := make([]gin.HandlerFunc, 0, len(guard)+1)
		return append(append(chain, guard...), h)
	}

	r.GET("/health", func(c *gin.Context) {
		if err := deps.DB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unavailable",
				"message": "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "UAV Ground Control API is running",
		})
	})

	api := r.Group("/api")
	{
		api.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"name":      "UAV Ground Control API",
				"endpoints": endpoints(r),
			})
		})

		plans := api.Group("/flight-plans")
		{
			plans.GET("", planHandler.List)
			plans.GET("/:id", planHandler.Get)
			plans.GET("/:id/shape", planHandler.Shape)
			plans.GET("/:id/geojson", planHandler.GeoJSON)
			plans.POST("", write(planHandler.Create)...)
			plans.PUT("/:id", write(planHandler.Update)...)
			plans.DELETE("/:id", write(planHandler.Delete)...)
		}

		api.POST("/shapes/expand", shapeHandler.Expand)

		trajectories := api.Group("/trajectories")
		{
			trajectories.GET("", trajectoryHandler.List)
			trajectories.GET("/:id", trajectoryHandler.Get)
			trajectories.GET("/:id/geojson", trajectoryHandler.GeoJSON)
			trajectories.POST("", write(trajectoryHandler.Create)...)
			trajectories.POST("/bulk-delete", write(trajectoryHandler.BulkDelete)...)
			trajectories.DELETE("/:id", write(trajectoryHandler.Delete)...)
		}

		api.GET("/stats/trajectories", trajectoryHandler.Summary)

		position := api.Group("/uav-position")
		{
			position.GET("", positionHandler.Latest)
			position.GET("/history", positionHandler.History)
			position.POST("", write(positionHandler.Create)...)
		}
	}

	return r
}

func endpoints(r *gin.Engine) []Endpoint {
	routes := r.Routes()
	out := make([]Endpoint, 0, len(routes))
	for _, rt := range routes {
		out = append(out, Endpoint{Method: rt.Method, Path: rt.Path})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}
