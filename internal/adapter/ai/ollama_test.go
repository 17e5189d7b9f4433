package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-rag-qa/internal/domain"
)

func TestOllamaEmbedder_Embed(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"model":"m","embeddings":[[0.5,-1,2]]}`))
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(OllamaEndpointConfig{BaseURL: srv.URL, Model: "all-minilm", Token: "secret"})
	v, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.Vector{0.5, -1, 2}, v)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "all-minilm", gotBody["model"])
	assert.Equal(t, "hello", gotBody["input"])
	assert.Equal(t, "all-minilm", e.ModelName())
}

func TestOllamaEmbedder_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"non-200", http.StatusInternalServerError, `model not loaded`},
		{"malformed body", http.StatusOK, `{not json`},
		{"missing embeddings", http.StatusOK, `{}`},
		{"empty vector", http.StatusOK, `{"embeddings":[[]]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			e := NewOllamaEmbedder(OllamaEndpointConfig{BaseURL: srv.URL, Model: "m"})
			v, err := e.Embed(context.Background(), "x")
			assert.Error(t, err)
			assert.Nil(t, v)
		})
	}
}

func TestOllamaGenerator_Generate(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"model":"m","response":"Cats purr.","done":true}`))
	}))
	defer srv.Close()

	g := NewOllamaGenerator(OllamaEndpointConfig{BaseURL: srv.URL, Model: "llama3.2"})
	out, err := g.Generate(context.Background(), "Context: x\n\nQuestion: y\n\nAnswer:", 512)
	require.NoError(t, err)
	assert.Equal(t, "Cats purr.", out)

	assert.Equal(t, false, gotBody["stream"])
	assert.Equal(t, "llama3.2", gotBody["model"])
	opts, ok := gotBody["options"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(512), opts["num_predict"])
}

func TestOllamaGenerator_NoTokenBudget(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"response":""}`))
	}))
	defer srv.Close()

	g := NewOllamaGenerator(OllamaEndpointConfig{BaseURL: srv.URL, Model: "m"})
	out, err := g.Generate(context.Background(), "p", 0)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotContains(t, gotBody, "options")
}

func TestOllamaGenerator_MissingResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"done":true}`))
	}))
	defer srv.Close()

	g := NewOllamaGenerator(OllamaEndpointConfig{BaseURL: srv.URL, Model: "m"})
	_, err := g.Generate(context.Background(), "p", 10)
	assert.ErrorContains(t, err, "response field missing")
}
