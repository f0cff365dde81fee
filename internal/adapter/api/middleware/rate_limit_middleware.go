package middleware

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"bims/internal/infrastructure/ratelimit"
	"bims/pkg/errors"
	"bims/pkg/logger"
	"bims/pkg/response"
)

// RateLimit throttles action per authenticated user, falling back to the
// client IP for anonymous callers.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, _ := c.Get(ContextUserID).(string)
			if key == "" {
				key = "ip:" + c.RealIP()
			}

			allowed, retryAfter := limiter.Allow(key, action)
			if !allowed {
				logger.Warn("RATE LIMIT: %s exceeded %s", key, action)
				if retryAfter > 0 {
					c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				}
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded, try again later"))
			}
			return next(c)
		}
	}
}
