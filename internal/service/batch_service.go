package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arturoeanton/go-rag-qa/internal/adapter/scraper"
	"github.com/arturoeanton/go-rag-qa/internal/port"
)

// DefaultScrapeWorkers bounds concurrent page fetches in a batch.
const DefaultScrapeWorkers = 5

// URLResult is the outcome of ingesting one URL.
type URLResult struct {
	URL        string `json:"url"`
	DocumentID string `json:"document_id,omitempty"`
	Chunks     int    `json:"chunks,omitempty"`
	Err        error  `json:"-"`
	Error      string `json:"error,omitempty"`
}

// ProgressFunc is called once per finished URL with the number finished so far.
// Calls are serialized.
type ProgressFunc func(done, total int, result URLResult)

// Ingester is the part of RAGService that BatchService drives.
type Ingester interface {
	Ingest(ctx context.Context, text, sourceURL string) (*IngestResult, error)
}

// BatchService fetches pages and ingests them with a bounded worker pool.
type BatchService struct {
	fetcher  port.PageFetcher
	ingester Ingester
	workers  int
}

// NewBatchService creates a batch ingester. workers <= 0 uses DefaultScrapeWorkers.
func NewBatchService(fetcher port.PageFetcher, ingester Ingester, workers int) *BatchService {
	if workers <= 0 {
		workers = DefaultScrapeWorkers
	}
	return &BatchService{fetcher: fetcher, ingester: ingester, workers: workers}
}

// IngestURLs ingests every URL independently. One failure never stops the others;
// results keep the input order.
func (s *BatchService) IngestURLs(ctx context.Context, urls []string, progress ProgressFunc) []URLResult {
	results := make([]URLResult, len(urls))

	var (
		mu   sync.Mutex
		done int
	)

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i, u := range urls {
		g.Go(func() error {
			res := s.ingestOne(ctx, strings.TrimSpace(u))
			results[i] = res

			mu.Lock()
			done++
			if progress != nil {
				progress(done, len(urls), res)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	slog.Info("batch ingest finished", "urls", len(urls), "failed", failed)
	return results
}

func (s *BatchService) ingestOne(ctx context.Context, url string) URLResult {
	res := URLResult{URL: url}
	fail := func(err error) URLResult {
		res.Err = err
		res.Error = err.Error()
		slog.Warn("url ingest failed", "url", url, "error", err)
		return res
	}

	if err := scraper.ValidateURL(url); err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	text, err := s.fetcher.FetchPageText(ctx, url)
	if err != nil {
		return fail(fmt.Errorf("fetch: %w", err))
	}
	if strings.TrimSpace(text) == "" {
		return fail(fmt.Errorf("%w: page has no text", port.ErrInvalidInput))
	}

	out, err := s.ingester.Ingest(ctx, text, url)
	if err != nil {
		return fail(err)
	}
	res.DocumentID = out.DocumentID
	res.Chunks = out.Chunks
	return res
}

// Failed returns the results that carry an error.
func Failed(results []URLResult) []URLResult {
	var out []URLResult
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
