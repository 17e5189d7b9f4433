package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arturoeanton/go-rag-qa/internal/chunker"
	"github.com/arturoeanton/go-rag-qa/internal/domain"
	"github.com/arturoeanton/go-rag-qa/internal/port"
	"github.com/arturoeanton/go-rag-qa/internal/vectorstore"
)

const (
	// DefaultTopK is the number of chunks fed to the generator as context.
	DefaultTopK = 3
	// DefaultEmbedConcurrency bounds parallel chunk embedding calls during ingest.
	DefaultEmbedConcurrency = 4
	// DefaultMaxQuestionChars is the question length cap; longer questions are truncated.
	DefaultMaxQuestionChars = 200
)

// Stage is a step of one Answer call.
type Stage string

const (
	// StageEmbedding turns the question into a vector.
	StageEmbedding Stage = "embedding"
	// StageRetrieving searches the index for the closest chunks.
	StageRetrieving Stage = "retrieving"
	// StageGenerating asks the generator for an answer.
	StageGenerating Stage = "generating"
	// StageLogging records the interaction. Failures here are logged, not returned.
	StageLogging Stage = "logging"
	// StageDone marks a completed Answer.
	StageDone Stage = "done"
)

// StageError reports the Answer stage that failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("answer failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// QueryEmbedder is the embedding side the service needs.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) (domain.Vector, error)
}

// AnswerGenerator is the generation side the service needs.
type AnswerGenerator interface {
	Generate(ctx context.Context, question, contextText string) (string, error)
}

// RAGConfig tunes the orchestrator. Zero values pick the defaults.
type RAGConfig struct {
	TopK             int
	EmbedConcurrency int
	// MaxQuestionChars truncates questions; negative disables the cap.
	MaxQuestionChars int
}

// IngestResult describes a stored document.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

// Answer is the outcome of a question.
type Answer struct {
	Answer  string               `json:"answer"`
	Context string               `json:"context"`
	Sources []domain.ScoredChunk `json:"sources"`
}

// RAGService handles ingestion and retrieval-augmented answering.
type RAGService struct {
	chunker      *chunker.Chunker
	embedder     QueryEmbedder
	generator    AnswerGenerator
	index        *vectorstore.Index
	documents    port.DocumentStore
	interactions port.InteractionStore
	purger       port.Purger
	cfg          RAGConfig

	// commitMu keeps Purge out of the window between a document's commit
	// and its publication to the index.
	commitMu sync.RWMutex
}

// NewRAGService creates a new RAG service.
func NewRAGService(
	ch *chunker.Chunker,
	embedder QueryEmbedder,
	generator AnswerGenerator,
	index *vectorstore.Index,
	documents port.DocumentStore,
	interactions port.InteractionStore,
	purger port.Purger,
	cfg RAGConfig,
) *RAGService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = DefaultEmbedConcurrency
	}
	if cfg.MaxQuestionChars == 0 {
		cfg.MaxQuestionChars = DefaultMaxQuestionChars
	}
	if ch == nil {
		ch = chunker.New()
	}
	return &RAGService{
		chunker:      ch,
		embedder:     embedder,
		generator:    generator,
		index:        index,
		documents:    documents,
		interactions: interactions,
		purger:       purger,
		cfg:          cfg,
	}
}

// Ingest chunks and embeds text, then stores the document and its chunks as one unit.
// Nothing is persisted or indexed unless every embedding succeeded.
func (s *RAGService) Ingest(ctx context.Context, text, sourceURL string) (*IngestResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", port.ErrInvalidInput)
	}

	pieces := s.chunker.Chunk(text)
	slog.Info("ingesting document", "source_url", sourceURL, "chars", utf8.RuneCountInString(text), "chunks", len(pieces))

	docVector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed document: %w", err)
	}

	vectors := make([]domain.Vector, len(pieces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EmbedConcurrency)
	for i, piece := range pieces {
		g.Go(func() error {
			v, err := s.embedder.Embed(gctx, piece)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", i, err)
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	doc := &domain.Document{
		ID:        uuid.New().String(),
		SourceURL: sourceURL,
		Content:   text,
		Vector:    docVector,
		CreatedAt: time.Now().UTC(),
	}
	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Ordinal:    i,
			Content:    piece,
			Vector:     vectors[i],
		}
	}

	s.commitMu.RLock()
	defer s.commitMu.RUnlock()

	if err := s.documents.SaveDocument(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.Record{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Ordinal:    c.Ordinal,
			Content:    c.Content,
			Vector:     c.Vector,
		}
	}
	if err := s.index.InsertDocument(records); err != nil {
		return nil, fmt.Errorf("index document %s: %w", doc.ID, err)
	}

	slog.Info("document ingested", "document_id", doc.ID, "chunks", len(chunks))
	return &IngestResult{DocumentID: doc.ID, Chunks: len(chunks)}, nil
}

// Answer embeds the question, retrieves the closest chunks and asks the generator.
// A failure to record the interaction is logged, not returned.
func (s *RAGService) Answer(ctx context.Context, question string) (*Answer, error) {
	question = s.normalizeQuestion(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", port.ErrInvalidInput)
	}
	slog.Info("RAG query", "question", question)

	queryVector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, &StageError{Stage: StageEmbedding, Err: err}
	}

	sources, err := s.index.Search(queryVector, s.cfg.TopK)
	if err != nil {
		return nil, &StageError{Stage: StageRetrieving, Err: err}
	}

	parts := make([]string, len(sources))
	for i, src := range sources {
		parts[i] = src.Content
	}
	contextText := strings.Join(parts, "\n")

	answer, err := s.generator.Generate(ctx, question, contextText)
	if err != nil {
		return nil, &StageError{Stage: StageGenerating, Err: err}
	}

	interaction := &domain.Interaction{
		ID:        uuid.New().String(),
		Question:  question,
		Answer:    answer,
		Context:   contextText,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.interactions.AppendInteraction(ctx, interaction); err != nil {
		slog.Error("record interaction failed", "stage", StageLogging, "error", err)
	}

	return &Answer{Answer: answer, Context: contextText, Sources: sources}, nil
}

// SearchChunks returns the k chunks closest to query without generating an answer.
func (s *RAGService) SearchChunks(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", port.ErrInvalidInput)
	}
	if k <= 0 {
		k = s.cfg.TopK
	}
	v, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.index.Search(v, k)
}

// History returns answered questions newest first. limit <= 0 returns all.
func (s *RAGService) History(ctx context.Context, limit int) ([]domain.Interaction, error) {
	return s.interactions.ListInteractions(ctx, limit)
}

// GetDocument returns a stored document with its chunks.
func (s *RAGService) GetDocument(ctx context.Context, id string) (*domain.DocumentWithChunks, error) {
	return s.documents.GetDocument(ctx, id)
}

// Purge deletes every document, chunk and interaction and empties the index.
func (s *RAGService) Purge(ctx context.Context) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if err := s.purger.PurgeAll(ctx); err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	s.index.Reset()
	slog.Info("all data purged")
	return nil
}

// IndexedChunks reports how many chunks are searchable.
func (s *RAGService) IndexedChunks() int {
	return s.index.Len()
}

func (s *RAGService) normalizeQuestion(q string) string {
	q = strings.TrimSpace(q)
	if limit := s.cfg.MaxQuestionChars; limit > 0 && utf8.RuneCountInString(q) > limit {
		q = strings.TrimSpace(string([]rune(q)[:limit]))
	}
	return q
}

// FailedStage returns the stage an Answer error came from, or "" if none.
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
