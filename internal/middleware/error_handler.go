package middleware

import (
	"net/http"

	"gemsmith/internal/errors"
	"gemsmith/internal/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorHandler renders every error as a consistent JSON body tagged with
// the request ID.
func ErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		requestID := c.Request().Header.Get(echo.HeaderXRequestID)

		if orchErr, ok := err.(*errors.OrchestrationError); ok {
			status, response := orchErr.HTTPResponse()

			if errMap, ok := response["error"].(map[string]any); ok {
				errMap["request_id"] = requestID
			}

			logger.Error("orchestration error",
				zap.Int("status", status),
				zap.String("kind", string(orchErr.Kind)),
				zap.String("provider", orchErr.Provider),
				zap.String("error_msg", orchErr.Message),
				zap.Error(orchErr.Err),
			)

			c.JSON(status, response)
			return
		}

		if echoErr, ok := err.(*echo.HTTPError); ok {
			status := echoErr.Code
			message := "server error"
			if m, ok := echoErr.Message.(string); ok {
				message = m
			}

			response := map[string]any{
				"error": map[string]any{
					"code":       echoErr.Code,
					"message":    message,
					"request_id": requestID,
				},
			}

			logger.Error("framework error",
				zap.Int("status", status),
				zap.String("error_msg", message),
				zap.Error(err),
			)

			c.JSON(status, response)
			return
		}

		status := http.StatusInternalServerError
		response := map[string]any{
			"error": map[string]any{
				"code":       status,
				"message":    "internal server error",
				"request_id": requestID,
			},
		}

		logger.Error("unclassified error",
			zap.Int("status", status),
			zap.Error(err),
		)

		c.JSON(status, response)
	}
}
