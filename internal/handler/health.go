package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-rag-qa/internal/service"
)

// HealthHandler reports liveness and index size.
type HealthHandler struct {
	appName    string
	ragService *service.RAGService
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(appName string, ragService *service.RAGService) *HealthHandler {
	return &HealthHandler{appName: appName, ragService: ragService}
}

// Register sets up the health route.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
}

// Health returns service status.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "healthy",
		"app":            h.appName,
		"version":        "1.0.0",
		"indexed_chunks": h.ragService.IndexedChunks(),
	})
}
