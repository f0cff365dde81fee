package handler

import (
	"github.com/labstack/echo/v4"

	"bims/internal/adapter/api/middleware"
	"bims/internal/usecase"
	"bims/pkg/errors"
)

// Handlers groups every HTTP handler the router wires.
type Handlers struct {
	Health       *HealthHandler
	Listing      *ListingHandler
	Contact      *ContactHandler
	Commission   *CommissionHandler
	Payment      *PaymentHandler
	Notification *NotificationHandler
	WebSocket    *WebSocketHandler
}

// actorFrom reads the caller set by the auth middleware. Routes without auth
// yield an anonymous actor.
func actorFrom(c echo.Context) usecase.Actor {
	uid, _ := c.Get(middleware.ContextUserID).(string)
	role, _ := c.Get(middleware.ContextRole).(string)
	return usecase.Actor{UserID: uid, Role: role}
}

func requireActor(c echo.Context) (usecase.Actor, error) {
	actor := actorFrom(c)
	if actor.IsAnonymous() {
		return actor, errors.Unauthorized("User not authenticated", nil)
	}
	return actor, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errors.BadRequest("Invalid request body", err)
	}
	if err := c.Validate(req); err != nil {
		return errors.BadRequest("Validation failed", err)
	}
	return nil
}
