package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bims/internal/usecase"
	"bims/pkg/errors"
	"bims/pkg/logger"
	"bims/pkg/response"
)

type PaymentHandler struct {
	reconcilerUseCase *usecase.ReconcilerUseCase
}

func NewPaymentHandler(reconcilerUseCase *usecase.ReconcilerUseCase) *PaymentHandler {
	return &PaymentHandler{
		reconcilerUseCase: reconcilerUseCase,
	}
}

// WebhookPayload accepts the generic {reference} body and the Midtrans
// notification body, which carries the reference as order_id.
type WebhookPayload struct {
	Reference         string `json:"reference"`
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
}

func (p WebhookPayload) reference() string {
	if p.Reference != "" {
		return p.Reference
	}
	return p.OrderID
}

// Webhook answers 200 for every parseable reference, whatever happened while
// reconciling it. Only a missing or malformed reference gets a 400.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	var payload WebhookPayload
	if err := c.Bind(&payload); err != nil {
		logger.Warn("Failed to parse payment webhook from %s: %v", c.RealIP(), err)
		return response.Error(c, errors.BadRequest("Invalid callback payload", err))
	}

	reference := payload.reference()
	logger.Info("Payment webhook: ref=%s provider_status=%s ip=%s", reference, payload.TransactionStatus, c.RealIP())

	if err := h.reconcilerUseCase.HandleWebhook(c.Request().Context(), reference); err != nil {
		return response.Error(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "OK",
	})
}

func (h *PaymentHandler) ManualVerify(c echo.Context) error {
	result, err := h.reconcilerUseCase.ManuallyVerifyPayment(c.Request().Context(), c.Param("reference"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}
