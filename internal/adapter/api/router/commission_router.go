package router

import (
	"github.com/labstack/echo/v4"

	"bims/internal/adapter/api/handler"
	"bims/internal/adapter/api/middleware"
	"bims/internal/domain/entity"
	"bims/internal/infrastructure/ratelimit"
)

func SetupCommissionRouter(e *echo.Echo, commissionHandler *handler.CommissionHandler, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	paymentLimit := middleware.RateLimit(limiter, ratelimit.ActionPaymentInitiation)

	commissions := e.Group("/v1/commissions")
	commissions.Use(authMiddleware.Authenticate)
	commissions.GET("", commissionHandler.ListCommissions)
	commissions.POST("/payout", commissionHandler.RequestPayout, middleware.RequireRole(entity.RoleBroker), paymentLimit)
	commissions.GET("/:id", commissionHandler.GetCommission)
	commissions.POST("/:id/pay", commissionHandler.PayCommission, paymentLimit)
}
