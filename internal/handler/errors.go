package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-rag-qa/internal/port"
)

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, port.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, port.ErrDocumentNotFound), errors.Is(err, port.ErrJobNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError sends {"error", "kind"} with the status matching err.
func writeError(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"kind":  port.ErrorKind(err),
	})
}
