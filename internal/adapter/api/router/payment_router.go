package router

import (
	"github.com/labstack/echo/v4"

	"bims/internal/adapter/api/handler"
)

// SetupPaymentRouter registers the gateway callbacks. They carry no user
// authentication; the reconciler re-verifies every reference with the gateway.
func SetupPaymentRouter(e *echo.Echo, paymentHandler *handler.PaymentHandler) {
	payments := e.Group("/v1/payments")
	payments.POST("/webhook", paymentHandler.Webhook)
	payments.POST("/midtrans/notification", paymentHandler.Webhook)
}
