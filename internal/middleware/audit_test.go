package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditMiddleware_AssignsRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(AuditMiddleware())
	app.Get("/ping", func(c fiber.Ctx) error { return c.SendString("pong") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36)
}

func TestAuditMiddleware_KeepsIncomingRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(AuditMiddleware())
	app.Get("/boom", func(c fiber.Ctx) error { return fiber.NewError(fiber.StatusBadGateway, "upstream") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}
