package port

import (
	"context"

	"github.com/arturoeanton/go-rag-qa/internal/domain"
)

// DocumentStore persists documents with their chunks.
type DocumentStore interface {
	// SaveDocument writes the document and all of its chunks in one transaction.
	// Either everything commits or nothing does.
	SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// GetDocument returns a document with its chunks in ordinal order.
	GetDocument(ctx context.Context, id string) (*domain.DocumentWithChunks, error)

	// ScanChunks calls fn for every stored chunk in insertion order.
	ScanChunks(ctx context.Context, fn func(domain.Chunk) error) error
}

// InteractionStore is the append-only question/answer log.
type InteractionStore interface {
	AppendInteraction(ctx context.Context, in *domain.Interaction) error

	// ListInteractions returns interactions newest first. limit <= 0 returns all.
	ListInteractions(ctx context.Context, limit int) ([]domain.Interaction, error)
}

// Purger removes every document, chunk and interaction.
type Purger interface {
	PurgeAll(ctx context.Context) error
}
