package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-rag-qa/internal/port"
	"github.com/arturoeanton/go-rag-qa/internal/service"
)

// RAGHandler handles ingest, question answering and history endpoints.
type RAGHandler struct {
	ragService *service.RAGService
}

// NewRAGHandler creates a new RAG handler.
func NewRAGHandler(ragService *service.RAGService) *RAGHandler {
	return &RAGHandler{ragService: ragService}
}

// Register sets up RAG routes.
func (h *RAGHandler) Register(router fiber.Router) {
	router.Post("/ingest", h.Ingest)
	router.Post("/ask", h.Ask)
	router.Get("/history", h.History)
	router.Delete("/data", h.Purge)
	router.Get("/documents/:id", h.GetDocument)
}

// Ingest stores a document supplied as text.
func (h *RAGHandler) Ingest(c fiber.Ctx) error {
	var body struct {
		URL  string `json:"url"`
		Text string `json:"text"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return writeError(c, fmt.Errorf("%w: invalid request body", port.ErrInvalidInput))
	}

	res, err := h.ragService.Ingest(c.Context(), body.Text, body.URL)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"document_id": res.DocumentID,
		"chunks":      res.Chunks,
	})
}

// Ask answers a question from the stored documents.
func (h *RAGHandler) Ask(c fiber.Ctx) error {
	var body struct {
		Question string `json:"question"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return writeError(c, fmt.Errorf("%w: invalid request body", port.ErrInvalidInput))
	}

	ans, err := h.ragService.Answer(c.Context(), body.Question)
	if err != nil {
		if stage := service.FailedStage(err); stage != "" {
			return c.Status(statusFor(err)).JSON(fiber.Map{
				"error": err.Error(),
				"kind":  port.ErrorKind(err),
				"stage": stage,
			})
		}
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"answer":  ans.Answer,
		"context": ans.Context,
		"sources": ans.Sources,
	})
}

// History lists answered questions, newest first.
func (h *RAGHandler) History(c fiber.Ctx) error {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return writeError(c, fmt.Errorf("%w: limit must be a non-negative integer", port.ErrInvalidInput))
		}
		limit = n
	}

	items, err := h.ragService.History(c.Context(), limit)
	if err != nil {
		return writeError(c, err)
	}

	history := make([]fiber.Map, len(items))
	for i, it := range items {
		history[i] = fiber.Map{
			"id":         it.ID,
			"question":   it.Question,
			"answer":     it.Answer,
			"created_at": it.CreatedAt.Format(time.RFC3339),
		}
	}
	return c.JSON(fiber.Map{"history": history, "count": len(history)})
}

// Purge deletes all documents, chunks and history.
func (h *RAGHandler) Purge(c fiber.Ctx) error {
	if err := h.ragService.Purge(c.Context()); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// GetDocument returns a document with its chunks.
func (h *RAGHandler) GetDocument(c fiber.Ctx) error {
	doc, err := h.ragService.GetDocument(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(doc)
}
