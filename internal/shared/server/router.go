package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prism-backend/internal/analyses"
	"prism-backend/internal/extract"
	"prism-backend/internal/history"
	"prism-backend/internal/services/health"
	"prism-backend/internal/settings"
	"prism-backend/internal/shared/config"
	"prism-backend/internal/shared/metrics"
	"prism-backend/internal/shared/server/middleware"
	"prism-backend/internal/shared/server/respond"
)

// GroupPipeline is the rate limit group for the model-backed endpoints.
const GroupPipeline = "PIPELINE"

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config   config.Config
	Health   *health.Service
	Analyses *analyses.Handler
	History  *history.Handler
	Settings *settings.Handler
	Limiter  *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(rateLimitConfig(deps)),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		st := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !st.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, st)
	})
	if deps.Analyses != nil {
		deps.Analyses.RegisterRoutes(api)
	}
	if deps.History != nil {
		deps.History.RegisterRoutes(api)
	}
	if deps.Settings != nil {
		deps.Settings.RegisterRoutes(api)
	}
	extract.RegisterRoutes(api)

	return r
}

func rateLimitConfig(deps RouterDeps) middleware.RateLimitConfig {
	rules := map[string]middleware.RateLimitRule{}
	if deps.Config.RateLimitRPM > 0 {
		rules[GroupPipeline] = middleware.PerMinute(deps.Config.RateLimitRPM)
	}
	return middleware.RateLimitConfig{
		Rules:    rules,
		Limiter:  deps.Limiter,
		GroupFor: pipelineGroup,
	}
}

func pipelineGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	switch c.Request.URL.Path {
	case "/api/v1/analyze", "/api/v1/regenerate":
		return GroupPipeline
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
