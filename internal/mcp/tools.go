package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arturoeanton/go-rag-qa/internal/domain"
)

// AskInput is the input schema for the ask_question tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the natural-language question to answer"`
}

// AskOutput is the output schema for the ask_question tool.
type AskOutput struct {
	Answer  string               `json:"answer"`
	Context string               `json:"context"`
	Sources []domain.ScoredChunk `json:"sources"`
}

// IngestInput is the input schema for the ingest_text tool.
type IngestInput struct {
	Text      string `json:"text" jsonschema:"the document text to store"`
	SourceURL string `json:"source_url,omitempty" jsonschema:"where the text came from"`
}

// IngestOutput is the output schema for the ingest_text tool.
type IngestOutput struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

// SearchInput is the input schema for the search_chunks tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"text to find similar chunks for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of chunks to return (default 3)"`
}

// SearchOutput is the output schema for the search_chunks tool.
type SearchOutput struct {
	Results []domain.ScoredChunk `json:"results"`
	Count   int                  `json:"count"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question using the most similar stored chunks as context",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_text",
		Description: "Chunk, embed and store a document",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_chunks",
		Description: "Return the stored chunks most similar to a query, without generating an answer",
	}, s.handleSearch)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	ans, err := s.engine.Answer(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{Answer: ans.Answer, Context: ans.Context, Sources: ans.Sources}, nil
}

func (s *Server) handleIngest(ctx context.Context, _ *mcp.CallToolRequest, input IngestInput) (*mcp.CallToolResult, IngestOutput, error) {
	res, err := s.engine.Ingest(ctx, input.Text, input.SourceURL)
	if err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, IngestOutput{DocumentID: res.DocumentID, Chunks: res.Chunks}, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.engine.SearchChunks(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, SearchOutput{Results: results, Count: len(results)}, nil
}
