package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docchat-backend/internal/shared/auth"
	"docchat-backend/internal/shared/metrics"
	"docchat-backend/internal/shared/server/middleware"
	"docchat-backend/internal/shared/server/respond"
)

const healthTimeout = 2 * time.Second

// RouteRegistrar is implemented by feature handlers.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps lists everything NewRouter wires together.
type RouterDeps struct {
	CORSAllowOrigin []string
	Verifier        *auth.Verifier
	AllowGuests     bool
	RateLimits      map[string]middleware.RateLimitRule
	// Health reports dependency readiness; nil means always healthy.
	Health func(ctx context.Context) error
	// Public handlers are mounted under /api/v1 without identity.
	Public   []RouteRegistrar
	Handlers []RouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
// /api/v1/health, /metrics and Public handlers are served without identity.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())
	r.GET("/api/v1/health", healthHandler(deps.Health))
	public := r.Group("/api/v1")
	for _, h := range deps.Public {
		if h != nil {
			h.RegisterRoutes(public)
		}
	}

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth(deps.Verifier, deps.AllowGuests),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    deps.RateLimits,
			GroupFor: middleware.GroupForRoute,
		}),
	)
	registerMeRoutes(api)
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}

	return r
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				respond.Error(c, http.StatusServiceUnavailable, "unavailable", "dependency check failed", nil)
				return
			}
		}
		respond.OK(c, gin.H{"ok": true})
	}
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
