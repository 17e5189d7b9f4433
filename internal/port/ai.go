package port

import (
	"context"

	"github.com/arturoeanton/go-rag-qa/internal/domain"
)

// Embedder abstracts the upstream embedding capability.
// Implementations can target Ollama, OpenAI, or any compatible API.
type Embedder interface {
	// ModelName returns the identifier of the embedding model.
	ModelName() string

	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) (domain.Vector, error)
}

// Generator abstracts the upstream text generation capability.
type Generator interface {
	// ModelName returns the identifier of the generation model.
	ModelName() string

	// Generate completes prompt, producing at most maxTokens tokens (0 = upstream default).
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// PageFetcher returns the visible text of a web page.
type PageFetcher interface {
	FetchPageText(ctx context.Context, url string) (string, error)
}
