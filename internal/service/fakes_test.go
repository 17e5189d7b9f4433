package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/arturoeanton/go-rag-qa/internal/domain"
	"github.com/arturoeanton/go-rag-qa/internal/port"
)

// keywordEmbedder maps text to keyword counts: [cat, dog, rock].
type keywordEmbedder struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]error
	delay  time.Duration
}

func (e *keywordEmbedder) ModelName() string { return "keywords" }

func (e *keywordEmbedder) Embed(ctx context.Context, text string) (domain.Vector, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	err := e.failOn[text]
	e.mu.Unlock()

	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return keywordVector(text), nil
}

func (e *keywordEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func keywordVector(text string) domain.Vector {
	lower := strings.ToLower(text)
	return domain.Vector{
		float32(strings.Count(lower, "cat")),
		float32(strings.Count(lower, "dog")),
		float32(strings.Count(lower, "rock")),
	}
}

type fakeGenerator struct {
	mu        sync.Mutex
	questions []string
	contexts  []string
	answer    string
	err       error
}

func (g *fakeGenerator) Generate(_ context.Context, question, contextText string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.questions = append(g.questions, question)
	g.contexts = append(g.contexts, contextText)
	if g.err != nil {
		return "", g.err
	}
	if g.answer != "" {
		return g.answer, nil
	}
	return "Based on the context: " + strings.SplitN(contextText, "\n", 2)[0], nil
}

// memStore is an in-memory DocumentStore, InteractionStore and Purger.
type memStore struct {
	mu           sync.Mutex
	docs         map[string]domain.Document
	chunks       []domain.Chunk
	interactions []domain.Interaction
	saveErr      error
	appendErr    error
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]domain.Document{}}
}

func (m *memStore) SaveDocument(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.docs[doc.ID] = *doc
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *memStore) GetDocument(_ context.Context, id string) (*domain.DocumentWithChunks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, port.ErrDocumentNotFound)
	}
	out := &domain.DocumentWithChunks{Document: doc, Chunks: []domain.Chunk{}}
	for _, c := range m.chunks {
		if c.DocumentID == id {
			out.Chunks = append(out.Chunks, c)
		}
	}
	sort.Slice(out.Chunks, func(i, j int) bool { return out.Chunks[i].Ordinal < out.Chunks[j].Ordinal })
	return out, nil
}

func (m *memStore) ScanChunks(_ context.Context, fn func(domain.Chunk) error) error {
	m.mu.Lock()
	chunks := append([]domain.Chunk(nil), m.chunks...)
	m.mu.Unlock()
	for _, c := range chunks {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) AppendInteraction(_ context.Context, in *domain.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.interactions = append(m.interactions, *in)
	return nil
}

func (m *memStore) ListInteractions(_ context.Context, limit int) ([]domain.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Interaction{}
	for i := len(m.interactions) - 1; i >= 0; i-- {
		out = append(out, m.interactions[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) PurgeAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = map[string]domain.Document{}
	m.chunks = nil
	m.interactions = nil
	return nil
}

// gatedStore blocks SaveDocument after the write until release is closed.
type gatedStore struct {
	*memStore
	saved   chan struct{}
	release chan struct{}
}

func (g *gatedStore) SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if err := g.memStore.SaveDocument(ctx, doc, chunks); err != nil {
		return err
	}
	close(g.saved)
	<-g.release
	return nil
}
