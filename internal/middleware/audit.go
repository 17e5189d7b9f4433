package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// AuditMiddleware tags every request with an ID and records it through slog.
// Server errors are logged at warn level, everything else at debug.
func AuditMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		// Capture request data BEFORE handler execution (Fiber reuses context objects)
		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		method := c.Method()
		path := c.Path()
		ip := c.IP()

		c.Set(RequestIDHeader, requestID)
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		level := slog.LevelDebug
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(c.Context(), level, "http_request",
			"request_id", requestID,
			"method", method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", ip,
		)

		return err
	}
}
