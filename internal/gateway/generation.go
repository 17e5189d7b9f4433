package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/arturoeanton/go-rag-qa/internal/port"
)

const (
	// DefaultGenerateTimeout bounds a single upstream generation call.
	DefaultGenerateTimeout = 2 * time.Minute
	// DefaultMaxTokens is the output token budget passed upstream.
	DefaultMaxTokens = 512
	// DefaultMaxAnswerChars is the sanity ceiling on accepted responses.
	DefaultMaxAnswerChars = 8000
)

// GenerationGateway builds the answer prompt and calls one upstream generator.
type GenerationGateway struct {
	upstream  port.Generator
	timeout   time.Duration
	maxTokens int
	maxChars  int
}

// GenerationOption configures a GenerationGateway.
type GenerationOption func(*GenerationGateway)

// WithGenerateTimeout sets the per-call timeout.
func WithGenerateTimeout(d time.Duration) GenerationOption {
	return func(g *GenerationGateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMaxTokens sets the output token budget requested from upstream.
func WithMaxTokens(n int) GenerationOption {
	return func(g *GenerationGateway) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithMaxAnswerChars sets the response length ceiling in characters.
func WithMaxAnswerChars(n int) GenerationOption {
	return func(g *GenerationGateway) {
		if n > 0 {
			g.maxChars = n
		}
	}
}

// NewGenerationGateway wraps upstream.
func NewGenerationGateway(upstream port.Generator, opts ...GenerationOption) *GenerationGateway {
	g := &GenerationGateway{
		upstream:  upstream,
		timeout:   DefaultGenerateTimeout,
		maxTokens: DefaultMaxTokens,
		maxChars:  DefaultMaxAnswerChars,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ModelName returns the upstream model identifier.
func (g *GenerationGateway) ModelName() string {
	return g.upstream.ModelName()
}

// BuildPrompt places the context block before the question and ends with an answer cue.
func BuildPrompt(question, contextText string) string {
	return fmt.Sprintf("Context: %s\n\nQuestion: %s\n\nAnswer:", contextText, question)
}

// Generate answers question from contextText. Failures match port.ErrGeneration;
// timeouts also match port.ErrTimeout and oversized answers port.ErrResponseTooLong.
func (g *GenerationGateway) Generate(ctx context.Context, question, contextText string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.upstream.Generate(callCtx, BuildPrompt(question, contextText), g.maxTokens)
	if err != nil {
		return "", translate(port.ErrGeneration, callCtx, err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: upstream returned an empty response", port.ErrGeneration)
	}
	if n := utf8.RuneCountInString(out); n > g.maxChars {
		return "", fmt.Errorf("%w: %w: %d characters, ceiling is %d",
			port.ErrGeneration, port.ErrResponseTooLong, n, g.maxChars)
	}
	return out, nil
}
