package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arturoeanton/go-rag-qa/internal/domain"
	"github.com/arturoeanton/go-rag-qa/internal/service"
)

// Version is the MCP server version.
const Version = "1.0.0"

// Engine is the part of the RAG service exposed to agents.
type Engine interface {
	Answer(ctx context.Context, question string) (*service.Answer, error)
	Ingest(ctx context.Context, text, sourceURL string) (*service.IngestResult, error)
	SearchChunks(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}

// Server implements the Model Context Protocol (MCP) server.
// It exposes tools for external AI agents to query and feed the RAG engine.
type Server struct {
	engine Engine
	port   string
	server *mcp.Server
}

// NewServer creates a new MCP server.
func NewServer(engine Engine, port string) *Server {
	s := &Server{
		engine: engine,
		port:   port,
		server: mcp.NewServer(&mcp.Implementation{Name: "go-rag-qa", Version: Version}, nil),
	}
	s.registerTools()
	return s
}

// Handler returns the streamable HTTP handler serving this server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// Start serves MCP over HTTP on the configured port until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", s.Handler())

	httpServer := &http.Server{
		Addr:              ":" + s.port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	slog.Info("MCP server starting", "port", s.port)
	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
