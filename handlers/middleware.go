package handlers

import (
	"errors"
	"net/http"
	"strings"

	"flux-parties/internal/status"
	"flux-parties/models"
	"flux-parties/services"

	"github.com/labstack/echo/v5"
)

// principalKey is where RequireRole stashes the authorized principal for
// downstream handlers.
const principalKey = "principal"

// RequireRole authenticates the bearer token and lets the request through
// only when the session's role is one of the allowed ones.
func RequireRole(auth *services.AuthService, roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}

			principal, err := auth.Authorize(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, status.ErrSessionExpired) {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "session expired or revoked"})
				}
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "authorization unavailable"})
			}

			for _, role := range roles {
				if principal.Role == role {
					c.Set(principalKey, principal)
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, map[string]string{"error": "insufficient role"})
		}
	}
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// writeError maps the service error taxonomy onto HTTP statuses. Anything
// unrecognized is a store-level fault and comes back as a 500.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, status.ErrValidation):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, status.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, status.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, status.ErrBadCredentials):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	case errors.Is(err, status.ErrBrokenLink):
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
