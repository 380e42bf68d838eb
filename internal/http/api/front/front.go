package front

import (
	"github.com/gin-gonic/gin"

	"github.com/victorlau/liuren-quota/internal/billing"
	"github.com/victorlau/liuren-quota/internal/config"
	"github.com/victorlau/liuren-quota/internal/http/api/front/handlers"
	"github.com/victorlau/liuren-quota/internal/ledger"
	"github.com/victorlau/liuren-quota/internal/paypal"
)

// RegisterFrontRoutes registers the public end-user endpoints.
func RegisterFrontRoutes(r *gin.Engine, svc *ledger.Service, gateway *paypal.Client, tiers *billing.Table, cfg config.Config) {
	if r == nil || svc == nil {
		return
	}

	api := r.Group("/api")

	quotaHandler := handlers.NewQuotaHandler(svc)
	api.POST("/check-quota", quotaHandler.Check)
	api.POST("/use-quota", quotaHandler.Use)
	api.POST("/update-password", quotaHandler.UpdatePassword)

	if gateway != nil {
		paypalHandler := handlers.NewPayPalHandler(gateway, svc, tiers, cfg)
		api.POST("/paypal/create-order", paypalHandler.CreateOrder)
		api.POST("/paypal/capture-order", paypalHandler.CaptureOrder)
	}
}
