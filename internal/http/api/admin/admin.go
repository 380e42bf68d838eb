package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/victorlau/liuren-quota/internal/billing"
	"github.com/victorlau/liuren-quota/internal/config"
	relayhttp "github.com/victorlau/liuren-quota/internal/http"
	"github.com/victorlau/liuren-quota/internal/http/api/admin/handlers"
	"github.com/victorlau/liuren-quota/internal/ledger"
)

// RegisterAdminRoutes registers the privileged endpoints. Everything except
// login sits behind the admin-auth middleware.
func RegisterAdminRoutes(r *gin.Engine, svc *ledger.Service, tiers *billing.Table, redisClient redis.UniversalClient, cfg config.Config) {
	if r == nil || svc == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(redisClient)
	r.GET("/healthz", healthHandler.Healthz)

	group := r.Group("/api/admin")

	authHandler := handlers.NewAuthHandler(cfg.AdminSecret, cfg.JWTSecret, cfg.AdminTokenTTL())
	group.POST("/login", authHandler.Login)

	authed := group.Group("")
	authed.Use(relayhttp.AdminAuthMiddleware(cfg.AdminSecret, cfg.JWTSecret))

	codeHandler := handlers.NewCodeHandler(svc, tiers)
	authed.POST("/codes", codeHandler.Create)
	authed.POST("/codes/add-quota", codeHandler.AddQuota)
	authed.GET("/codes", codeHandler.List)
}
