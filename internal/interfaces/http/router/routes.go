package router

import (
	"github.com/gin-gonic/gin"
	"github.com/taxbridge/backend/internal/infrastructure/auth"
	"github.com/taxbridge/backend/internal/interfaces/http/handler"
	"github.com/taxbridge/backend/internal/interfaces/http/middleware"
)

// TaxRoutes registers the calculation API under /tax. calculateMiddleware
// runs on POST /tax/calculate only, typically the rate limiter.
func TaxRoutes(h *handler.TaxHandler, calculateMiddleware ...gin.HandlerFunc) *DomainGroup {
	calculate := append(append([]gin.HandlerFunc{}, calculateMiddleware...), h.Calculate)

	return NewDomainGroup("tax", "/tax").
		POST("/calculate", calculate...).
		GET("/calculators", h.ListCalculators)
}

// AdminTaxRoutes registers the channel settings API under
// /admin/tax/channels. Every route requires a bearer token. Writes need
// tax:admin, reads accept tax:read as well.
func AdminTaxRoutes(h *handler.TaxSettingsHandler, validator middleware.TokenValidator) *DomainGroup {
	read := middleware.RequireAnyPermission(auth.PermissionTaxRead, auth.PermissionTaxAdmin)
	write := middleware.RequirePermission(auth.PermissionTaxAdmin)

	return NewDomainGroup("tax-admin", "/admin/tax/channels").
		Use(
			middleware.JWTAuthMiddleware(validator),
			middleware.TracingAttributeInjector(),
		).
		GET("", read, h.List).
		GET("/:channel_id", read, h.Get).
		PUT("/:channel_id", write, h.Upsert).
		DELETE("/:channel_id", write, h.Delete)
}

// SystemRoutes registers the service information endpoint
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo)
}
