package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
	"bims/pkg/errors"
	"bims/pkg/logger"
	"bims/pkg/response"
)

// Context keys set by the auth middleware.
const (
	ContextUserID = "uid"
	ContextRole   = "role"
)

// TokenVerifier resolves a bearer token to a user ID.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	userRepo repository.UserRepository
}

func NewAuthMiddleware(verifier TokenVerifier, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		userRepo: userRepo,
	}
}

// Authenticate rejects requests without a valid bearer token and sets the
// caller's user ID and role on the context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		// browsers cannot set headers on a websocket handshake
		if authHeader == "" && isWebSocketUpgrade(c) && c.QueryParam("token") != "" {
			authHeader = "Bearer " + c.QueryParam("token")
		}
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		if err := m.identify(c, token); err != nil {
			return response.Error(c, err)
		}
		return next(c)
	}
}

// OptionalAuth identifies the caller when a valid token is present and
// otherwise lets the request through anonymously.
func (m *AuthMiddleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token, ok := bearerToken(c.Request().Header.Get("Authorization")); ok {
			if err := m.identify(c, token); err != nil {
				logger.Debug("Ignoring invalid token on public route: %v", err)
			}
		}
		return next(c)
	}
}

func (m *AuthMiddleware) identify(c echo.Context, token string) error {
	ctx := c.Request().Context()

	uid, err := m.verifier.VerifyToken(ctx, token)
	if err != nil {
		return errors.Unauthorized("Invalid or expired token", err)
	}

	role := entity.RoleClient
	user, err := m.userRepo.GetByID(ctx, uid)
	switch {
	case err == nil:
		if user.Role != "" {
			role = user.Role
		}
	case errors.Is(err, "NOT_FOUND"):
		logger.Warn("Authenticated user %s has no profile; treating as client", uid)
	default:
		return errors.Internal("Failed to load user profile", err)
	}

	c.Set(ContextUserID, uid)
	c.Set(ContextRole, role)
	return nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func isWebSocketUpgrade(c echo.Context) bool {
	return strings.EqualFold(c.Request().Header.Get("Upgrade"), "websocket")
}
