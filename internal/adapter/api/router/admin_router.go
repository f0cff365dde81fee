package router

import (
	"github.com/labstack/echo/v4"

	"bims/internal/adapter/api/handler"
	"bims/internal/adapter/api/middleware"
	"bims/internal/infrastructure/ratelimit"
)

func SetupAdminRouter(
	e *echo.Echo,
	listingHandler *handler.ListingHandler,
	paymentHandler *handler.PaymentHandler,
	authMiddleware *middleware.AuthMiddleware,
	limiter *ratelimit.RateLimiter,
) {
	admin := e.Group("/v1/admin")
	admin.Use(authMiddleware.Authenticate)
	admin.Use(middleware.AdminOnly())

	admin.POST("/listings/:id/assign", listingHandler.AssignBroker)
	admin.POST("/listings/sweep", listingHandler.SweepStaleListings)
	admin.POST("/payments/:reference/verify", paymentHandler.ManualVerify,
		middleware.RateLimit(limiter, ratelimit.ActionManualVerify))
}
