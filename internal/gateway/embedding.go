package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/arturoeanton/go-rag-qa/internal/domain"
	"github.com/arturoeanton/go-rag-qa/internal/port"
)

// DefaultEmbedTimeout bounds a single upstream embedding call.
const DefaultEmbedTimeout = 30 * time.Second

// EmbeddingGateway turns one upstream embedder into a fixed-dimension vector source.
// Identical text yields identical vectors only if the upstream model is deterministic.
type EmbeddingGateway struct {
	upstream  port.Embedder
	dimension int
	timeout   time.Duration
	limiter   *rate.Limiter
}

// EmbeddingOption configures an EmbeddingGateway.
type EmbeddingOption func(*EmbeddingGateway)

// WithEmbedTimeout sets the per-call timeout.
func WithEmbedTimeout(d time.Duration) EmbeddingOption {
	return func(g *EmbeddingGateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithRateLimit throttles upstream calls to rps requests per second. rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) EmbeddingOption {
	return func(g *EmbeddingGateway) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewEmbeddingGateway wraps upstream, expecting vectors of the given dimension.
func NewEmbeddingGateway(upstream port.Embedder, dimension int, opts ...EmbeddingOption) *EmbeddingGateway {
	g := &EmbeddingGateway{
		upstream:  upstream,
		dimension: dimension,
		timeout:   DefaultEmbedTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dimension returns the vector length produced by Embed.
func (g *EmbeddingGateway) Dimension() int {
	return g.dimension
}

// ModelName returns the upstream model identifier.
func (g *EmbeddingGateway) ModelName() string {
	return g.upstream.ModelName()
}

// Embed returns the embedding of text. Failures match port.ErrEmbedding;
// timeouts also match port.ErrTimeout and wrong-length vectors port.ErrDimensionMismatch.
func (g *EmbeddingGateway) Embed(ctx context.Context, text string) (domain.Vector, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			// Wait fails early, before ctx expires, when the deadline is too close.
			if _, ok := ctx.Deadline(); ok && !errors.Is(ctx.Err(), context.Canceled) {
				return nil, fmt.Errorf("%w: %w: throttled: %w", port.ErrEmbedding, port.ErrTimeout, err)
			}
			return nil, translate(port.ErrEmbedding, ctx, err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	v, err := g.upstream.Embed(callCtx, text)
	if err != nil {
		return nil, translate(port.ErrEmbedding, callCtx, err)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: upstream returned an empty vector", port.ErrEmbedding)
	}
	if len(v) != g.dimension {
		return nil, fmt.Errorf("%w: %w: expected %d, got %d",
			port.ErrEmbedding, port.ErrDimensionMismatch, g.dimension, len(v))
	}
	return v, nil
}
