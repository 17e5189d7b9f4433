package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/arturoeanton/go-rag-qa/internal/domain"
	"github.com/arturoeanton/go-rag-qa/internal/port"
)

var (
	_ port.Embedder  = (*OllamaEmbedder)(nil)
	_ port.Generator = (*OllamaGenerator)(nil)
)

// OllamaEndpointConfig holds the configuration for a single Ollama endpoint.
type OllamaEndpointConfig struct {
	BaseURL string // e.g. http://localhost:11434 or https://api.ollama.com
	Model   string // e.g. all-minilm, llama3.2
	Token   string // Bearer token for Ollama Cloud (empty = no auth)
}

// ollamaClient is the shared HTTP plumbing for one endpoint.
type ollamaClient struct {
	cfg        OllamaEndpointConfig
	httpClient *http.Client
}

// OllamaEmbedder implements port.Embedder using POST /api/embed.
type OllamaEmbedder struct {
	ollamaClient
}

// NewOllamaEmbedder creates an embedder for the given endpoint.
func NewOllamaEmbedder(cfg OllamaEndpointConfig) *OllamaEmbedder {
	return &OllamaEmbedder{ollamaClient{cfg: cfg, httpClient: &http.Client{}}}
}

// ModelName returns the embedding model identifier.
func (o *OllamaEmbedder) ModelName() string {
	return o.cfg.Model
}

// Embed generates a vector embedding for the given text.
func (o *OllamaEmbedder) Embed(ctx context.Context, text string) (domain.Vector, error) {
	payload := map[string]interface{}{
		"model": o.cfg.Model,
		"input": text,
	}

	body, err := o.post(ctx, "/api/embed", payload)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	var resp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama embed: empty response")
	}

	return domain.Vector(resp.Embeddings[0]), nil
}

// OllamaGenerator implements port.Generator using POST /api/generate.
type OllamaGenerator struct {
	ollamaClient
}

// NewOllamaGenerator creates a generator for the given endpoint.
func NewOllamaGenerator(cfg OllamaEndpointConfig) *OllamaGenerator {
	return &OllamaGenerator{ollamaClient{cfg: cfg, httpClient: &http.Client{}}}
}

// ModelName returns the generation model identifier.
func (o *OllamaGenerator) ModelName() string {
	return o.cfg.Model
}

// Generate completes prompt in one non-streaming call. maxTokens > 0 is sent as num_predict.
func (o *OllamaGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload := map[string]interface{}{
		"model":  o.cfg.Model,
		"prompt": prompt,
		"stream": false,
	}
	if maxTokens > 0 {
		payload["options"] = map[string]interface{}{"num_predict": maxTokens}
	}

	body, err := o.post(ctx, "/api/generate", payload)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	var resp struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("ollama generate decode: %w", err)
	}
	if resp.Response == nil {
		return "", fmt.Errorf("ollama generate: response field missing")
	}

	return *resp.Response, nil
}

// post is a helper for POST requests to an Ollama endpoint (with optional bearer token).
func (c *ollamaClient) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
