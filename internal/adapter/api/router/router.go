package router

import (
	"github.com/labstack/echo/v4"

	"bims/internal/adapter/api/handler"
	"bims/internal/adapter/api/middleware"
	"bims/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, h *handler.Handlers, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	SetupHealthRouter(e, h.Health)
	SetupListingRouter(e, h.Listing, h.Contact, authMiddleware, limiter)
	SetupCommissionRouter(e, h.Commission, authMiddleware, limiter)
	SetupPaymentRouter(e, h.Payment)
	SetupNotificationRouter(e, h.Notification, authMiddleware)
	SetupAdminRouter(e, h.Listing, h.Payment, authMiddleware, limiter)
	SetupWebSocketRouter(e, h.WebSocket, authMiddleware)
}
