package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/config"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public surface: rate limited but unauthenticated.
	public := r.Group("/api")
	public.Use(rateLimiter)
	{
		public.GET("/push/public-key", caching, h.GetPushPublicKey)
	}

	// Everything else requires a bearer token.
	api := public.Group("")
	api.Use(mw.Auth(cfg.Auth.JWTSecret))
	{
		api.PUT("/tokens", h.PutToken)
		api.GET("/tokens/current", h.GetCurrentToken)
		api.DELETE("/tokens", h.DeleteTokens)

		api.GET("/preferences", h.GetPreferences)
		api.PUT("/preferences", h.PutPreferences)

		api.GET("/notifications", h.GetOwnHistory)
		api.POST("/notifications/dispatch", mw.RequireRole(mw.RoleSectionAdmin), h.DispatchNotification)

		admin := api.Group("/admin")
		admin.Use(mw.RequireRole(mw.RoleSectionAdmin))
		{
			admin.GET("/notifications", h.GetDeliveryHistory)
		}
	}

	return r
}
