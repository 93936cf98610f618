package middleware

import (
	"time"

	"gemsmith/internal/config"
	"gemsmith/internal/logger"
	"gemsmith/internal/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger logs every request with timing, status, and request ID.
func RequestLogger(cfg *config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Logging.EnableRequestLog {
				return next(c)
			}

			start := time.Now()
			req := c.Request()
			res := c.Response()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = generateRequestID()
				c.Request().Header.Set(echo.HeaderXRequestID, requestID)
			}

			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			err := next(c)

			duration := time.Since(start)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", res.Status),
				zap.Duration("latency", duration),
				zap.String("remote_addr", c.RealIP()),
				zap.String("request_id", requestID),
				zap.String("user_agent", req.UserAgent()),
			}

			if res.Size > 0 {
				fields = append(fields, zap.Int64("response_size", res.Size))
			}

			if err != nil {
				fields = append(fields, zap.Error(err))
				logger.Error("request failed", fields...)
			} else {
				switch {
				case res.Status >= 500:
					logger.Error("request completed with server error", fields...)
				case res.Status >= 400:
					logger.Warn("request completed with client error", fields...)
				default:
					logger.Info("request completed", fields...)
				}
			}

			return err
		}
	}
}

// generateRequestID builds a unique request ID.
func generateRequestID() string {
	return "req_" + time.Now().Format("20060102150405") + "_" + utils.RandStringUsingMathRand(8)
}
