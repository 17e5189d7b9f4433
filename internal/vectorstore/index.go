// Package vectorstore holds chunk embeddings in memory and answers exact
// top-k similarity queries by brute-force scan.
package vectorstore

import (
	"container/heap"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/arturoeanton/go-rag-qa/internal/domain"
	"github.com/arturoeanton/go-rag-qa/internal/port"
)

// Metric selects the similarity function.
type Metric string

const (
	// MetricDot scores by raw dot product.
	MetricDot Metric = "dot"
	// MetricCosine scores by cosine similarity.
	MetricCosine Metric = "cosine"
)

// ParseMetric accepts "dot" or "cosine" (case-insensitive). Empty means dot.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(MetricDot):
		return MetricDot, nil
	case string(MetricCosine):
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("%w: unknown similarity metric %q", port.ErrInvalidInput, s)
	}
}

// Record is one indexed chunk.
type Record struct {
	ChunkID    string
	DocumentID string
	Ordinal    int
	Content    string
	Vector     domain.Vector
}

// Index is an append-only in-memory vector index.
// Searches scan a snapshot of the records committed before they started;
// a document inserted with InsertDocument becomes visible all at once.
type Index struct {
	mu        sync.RWMutex
	dimension int
	metric    Metric
	records   []Record
}

// NewIndex creates an empty index for vectors of the given dimension.
func NewIndex(dimension int, metric Metric) *Index {
	if metric == "" {
		metric = MetricDot
	}
	return &Index{dimension: dimension, metric: metric}
}

// Dimension returns the vector length every record must have.
func (x *Index) Dimension() int {
	return x.dimension
}

// Metric returns the similarity function in use.
func (x *Index) Metric() Metric {
	return x.metric
}

// Len returns the number of indexed chunks.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.records)
}

// Insert appends a single chunk and returns its ID.
func (x *Index) Insert(documentID, text string, vector domain.Vector, ordinal int) (string, error) {
	rec := Record{
		ChunkID:    uuid.New().String(),
		DocumentID: documentID,
		Ordinal:    ordinal,
		Content:    text,
		Vector:     vector,
	}
	if err := x.InsertDocument([]Record{rec}); err != nil {
		return "", err
	}
	return rec.ChunkID, nil
}

// InsertDocument appends all records in order, or none of them if any is invalid.
// Records without a ChunkID get a fresh one.
func (x *Index) InsertDocument(records []Record) error {
	for i := range records {
		if err := x.checkDimension(records[i].Vector); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if records[i].ChunkID == "" {
			records[i].ChunkID = uuid.New().String()
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.records = append(x.records, records...)
	return nil
}

// Reset drops every record.
func (x *Index) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.records = nil
}

// Load appends every chunk of the store, in the store's insertion order.
func (x *Index) Load(ctx context.Context, store port.DocumentStore) (int, error) {
	var batch []Record
	err := store.ScanChunks(ctx, func(c domain.Chunk) error {
		batch = append(batch, Record{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Ordinal:    c.Ordinal,
			Content:    c.Content,
			Vector:     c.Vector,
		})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("load index: %w", err)
	}
	if err := x.InsertDocument(batch); err != nil {
		return 0, fmt.Errorf("load index: %w", err)
	}
	return len(batch), nil
}

// Search returns the k records most similar to query, best first.
// Equal scores keep insertion order. k larger than the index returns everything;
// an empty index or k <= 0 returns an empty result.
func (x *Index) Search(query domain.Vector, k int) ([]domain.ScoredChunk, error) {
	if err := x.checkDimension(query); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	x.mu.RLock()
	snapshot := x.records
	x.mu.RUnlock()

	if k <= 0 || len(snapshot) == 0 {
		return []domain.ScoredChunk{}, nil
	}
	if k > len(snapshot) {
		k = len(snapshot)
	}

	h := make(candidates, 0, k)
	for seq := range snapshot {
		c := candidate{seq: seq, score: x.score(query, snapshot[seq].Vector)}
		if len(h) < k {
			heap.Push(&h, c)
			continue
		}
		if h[0].worseThan(c) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	results := make([]domain.ScoredChunk, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		c := heap.Pop(&h).(candidate)
		rec := snapshot[c.seq]
		results[i] = domain.ScoredChunk{
			ChunkID:    rec.ChunkID,
			DocumentID: rec.DocumentID,
			Ordinal:    rec.Ordinal,
			Content:    rec.Content,
			Score:      c.score,
		}
	}
	return results, nil
}

func (x *Index) score(q, v domain.Vector) float64 {
	if x.metric == MetricCosine {
		return q.Cosine(v)
	}
	return q.Dot(v)
}

func (x *Index) checkDimension(v domain.Vector) error {
	if len(v) != x.dimension {
		return fmt.Errorf("%w: expected %d, got %d", port.ErrDimensionMismatch, x.dimension, len(v))
	}
	return nil
}

type candidate struct {
	seq   int
	score float64
}

// worseThan orders by score, then later insertion ranks lower.
func (c candidate) worseThan(o candidate) bool {
	if c.score != o.score {
		return c.score < o.score
	}
	return c.seq > o.seq
}

// candidates is a min-heap with the worst kept candidate at the root.
type candidates []candidate

func (h candidates) Len() int           { return len(h) }
func (h candidates) Less(i, j int) bool { return h[i].worseThan(h[j]) }
func (h candidates) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidates) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *candidates) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
