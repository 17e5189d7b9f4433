// Package bootstrap assembles the store, vector index, gateways and services from
// configuration. The server and ragctl both start from here.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arturoeanton/go-rag-qa/internal/adapter/ai"
	"github.com/arturoeanton/go-rag-qa/internal/adapter/scraper"
	"github.com/arturoeanton/go-rag-qa/internal/adapter/store"
	"github.com/arturoeanton/go-rag-qa/internal/chunker"
	"github.com/arturoeanton/go-rag-qa/internal/gateway"
	"github.com/arturoeanton/go-rag-qa/internal/service"
	"github.com/arturoeanton/go-rag-qa/internal/vectorstore"
	"github.com/arturoeanton/go-rag-qa/pkg/config"
)

// App holds the wired components.
type App struct {
	Store *store.Store
	Index *vectorstore.Index
	RAG   *service.RAGService
	Batch *service.BatchService
}

// New opens and migrates the database, hydrates the index from it and wires
// the Ollama-backed gateways into the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	metric, err := vectorstore.ParseMetric(cfg.Similarity)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	index := vectorstore.NewIndex(cfg.EmbeddingDimension, metric)
	loaded, err := index.Load(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load vector index: %w", err)
	}
	slog.Info("vector index loaded", "chunks", loaded, "dimension", cfg.EmbeddingDimension, "metric", metric)

	embedder := gateway.NewEmbeddingGateway(
		ai.NewOllamaEmbedder(ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaEmbedURL,
			Model:   cfg.OllamaEmbedModel,
			Token:   cfg.OllamaEmbedToken,
		}),
		cfg.EmbeddingDimension,
		gateway.WithEmbedTimeout(cfg.EmbedTimeout),
		gateway.WithRateLimit(cfg.EmbedRPS, cfg.EmbedConcurrency),
	)
	generator := gateway.NewGenerationGateway(
		ai.NewOllamaGenerator(ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaChatURL,
			Model:   cfg.OllamaChatModel,
			Token:   cfg.OllamaChatToken,
		}),
		gateway.WithGenerateTimeout(cfg.GenerateTimeout),
		gateway.WithMaxTokens(cfg.MaxOutputTokens),
		gateway.WithMaxAnswerChars(cfg.MaxAnswerChars),
	)

	rag := service.NewRAGService(
		chunker.New(chunker.WithTargetSize(cfg.ChunkSize)),
		embedder, generator, index,
		db, db, db,
		service.RAGConfig{
			TopK:             cfg.TopK,
			EmbedConcurrency: cfg.EmbedConcurrency,
			MaxQuestionChars: cfg.MaxQuestionChars,
		},
	)

	return &App{
		Store: db,
		Index: index,
		RAG:   rag,
		Batch: service.NewBatchService(scraper.New(cfg.ScrapeTimeout), rag, cfg.ScrapeWorkers),
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.Store.Close()
}
