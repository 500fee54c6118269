package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pesio-ai/be-hr-timesheets/internal/repository"
	"github.com/pesio-ai/be-hr-timesheets/internal/service"
)

const actorContextKey = "actor"

// RequireAuth validates the bearer token and attaches the resolved Actor to
// the echo context.
func RequireAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := extractBearer(c)
			if err != nil {
				return err
			}
			claims, err := ParseToken(secret, token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "INVALID_TOKEN"})
			}
			c.Set(actorContextKey, service.Actor{
				ID:        claims.Subject,
				Role:      claims.Role,
				CompClass: claims.CompClass,
			})
			return next(c)
		}
	}
}

// RequireAdmin restricts a route to admin actors. Must run after RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ActorFrom(c).Role != repository.RoleAdmin {
				return echo.NewHTTPError(http.StatusForbidden, map[string]any{"error": "FORBIDDEN"})
			}
			return next(c)
		}
	}
}

// ActorFrom returns the Actor attached by RequireAuth.
func ActorFrom(c echo.Context) service.Actor {
	actor, _ := c.Get(actorContextKey).(service.Actor)
	return actor
}

func extractBearer(c echo.Context) (string, error) {
	h := c.Request().Header.Get("Authorization")
	if h == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "MISSING_AUTH_HEADER"})
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "INVALID_AUTH_HEADER"})
	}
	return parts[1], nil
}
