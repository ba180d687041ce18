package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestIDKey is the context key and header under which the request id
// middleware stores the id.
const RequestIDKey = "X-Request-ID"

// FromContext returns the request-scoped logger for a schema-engine
// request, so every log line of one schema or record operation carries
// the same request id
func FromContext(c echo.Context) *zap.Logger {
	// The logging middleware places a prepared logger in the context
	if logger, ok := c.Get("logger").(*zap.Logger); ok {
		return logger
	}

	// Fall back to the engine's global logger tagged with the request id
	requestID, ok := c.Get(RequestIDKey).(string)
	if !ok {
		requestID = c.Request().Header.Get(RequestIDKey)
		if requestID == "" {
			requestID = "unknown"
		}
	}

	return GetLogger().With(zap.String("request_id", requestID))
}
