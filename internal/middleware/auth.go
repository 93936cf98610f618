package middleware

import (
	"net/http"
	"strings"

	"gemsmith/internal/config"
	"gemsmith/internal/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// BearerAuth validates the static bearer token on every API call.
func BearerAuth(cfg *config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")

			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				logger.Warn("invalid authorization header",
					zap.String("method", c.Request().Method),
					zap.String("uri", c.Request().RequestURI),
					zap.String("remote_addr", c.RealIP()),
				)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			token := strings.TrimPrefix(auth, "Bearer ")

			if token == "" || token != cfg.Security.BearerToken {
				logger.Warn("invalid token",
					zap.String("method", c.Request().Method),
					zap.String("uri", c.Request().RequestURI),
					zap.String("remote_addr", c.RealIP()),
					zap.String("token_prefix", tokenPrefix(token)),
				)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			return next(c)
		}
	}
}

// tokenPrefix exposes at most four characters of a token for log lines.
func tokenPrefix(token string) string {
	if len(token) <= 4 {
		return token
	}
	return token[:4] + "..."
}
