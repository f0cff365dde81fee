package middleware

import (
	"github.com/labstack/echo/v4"

	"bims/internal/domain/entity"
	"bims/pkg/errors"
	"bims/pkg/response"
)

// RequireRole must run after Authenticate.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, _ := c.Get(ContextUserID).(string)
			if uid == "" {
				return response.Error(c, errors.Unauthorized("Authentication required", nil))
			}

			role, _ := c.Get(ContextRole).(string)
			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}
			return response.Error(c, errors.Forbidden("Insufficient privileges", nil))
		}
	}
}

func AdminOnly() echo.MiddlewareFunc {
	return RequireRole(entity.RoleAdmin)
}

func BrokerOrAdmin() echo.MiddlewareFunc {
	return RequireRole(entity.RoleBroker, entity.RoleAdmin)
}
