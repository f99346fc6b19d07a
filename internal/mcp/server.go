// Package mcp exposes the ingestion and query pipelines as MCP tools
// so agent hosts can drive the knowledge base over the Model Context
// Protocol. Input schemas are inferred from Go structs with
// jsonschema-go; handlers build MCP results inline.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aixone/knowledge-agent/internal/api"
	"github.com/aixone/knowledge-agent/internal/knowledge"
)

// Server wraps the MCP SDK server around the knowledge pipelines.
type Server struct {
	mcpServer *mcp.Server
	ingestor  api.Ingestor
	answerer  api.Answerer
	embedder  api.QueryEmbedder
	logger    *slog.Logger
}

// Config holds MCP server dependencies.
type Config struct {
	Name     string
	Version  string
	Ingestor api.Ingestor
	Answerer api.Answerer
	Embedder api.QueryEmbedder
	Logger   *slog.Logger
}

// NewServer creates an MCP server with the knowledge tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, errors.New("server name is required")
	}
	if cfg.Version == "" {
		return nil, errors.New("server version is required")
	}
	if cfg.Ingestor == nil || cfg.Answerer == nil || cfg.Embedder == nil {
		return nil, errors.New("ingestor, answerer, and embedder are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, nil),
		ingestor:  cfg.Ingestor,
		answerer:  cfg.Answerer,
		embedder:  cfg.Embedder,
		logger:    logger,
	}
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	return s, nil
}

// Run serves MCP on the given transport. Blocks until ctx is canceled
// or the transport closes.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// IngestInput is the input schema for the knowledge_ingest tool.
type IngestInput struct {
	Content string `json:"content" jsonschema:"The document content to chunk, embed, and index"`
	Title   string `json:"title,omitempty" jsonschema:"Optional document title"`
	Source  string `json:"source,omitempty" jsonschema:"Optional source locator (path, URL, upstream id)"`
}

// QueryInput is the input schema for the knowledge_query tool.
type QueryInput struct {
	UserID   string `json:"user_id" jsonschema:"Identity the permission filter evaluates access for"`
	Question string `json:"question" jsonschema:"The question to answer from the knowledge base"`
}

func (s *Server) registerTools() error {
	ingestSchema, err := jsonschema.For[IngestInput](nil)
	if err != nil {
		return fmt.Errorf("schema for knowledge_ingest: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "knowledge_ingest",
		Description: "Ingest a document into the knowledge base: split into chunks, " +
			"embed each chunk, and index for retrieval.",
		InputSchema: ingestSchema,
	}, s.ingest)

	querySchema, err := jsonschema.For[QueryInput](nil)
	if err != nil {
		return fmt.Errorf("schema for knowledge_query: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "knowledge_query",
		Description: "Answer a question from the knowledge base. Retrieves similar chunks, " +
			"drops those the user may not read, and generates a grounded answer.",
		InputSchema: querySchema,
	}, s.query)

	return nil
}

func (s *Server) ingest(ctx context.Context, _ *mcp.CallToolRequest, in IngestInput) (*mcp.CallToolResult, any, error) {
	if in.Content == "" {
		return toolError("content is required"), nil, nil
	}

	metadata := map[string]string{}
	if in.Title != "" {
		metadata["title"] = in.Title
	}
	if in.Source != "" {
		metadata["source"] = in.Source
	}

	doc, chunks, err := s.ingestor.Ingest(ctx, in.Content, metadata)
	if err != nil {
		s.logger.Error("mcp ingest failed", "error", err)
		return toolError(pipelineErrorText(err)), nil, nil
	}

	text := fmt.Sprintf("Indexed document %s (%d chunks).", doc.ID, len(chunks))
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

func (s *Server) query(ctx context.Context, _ *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, any, error) {
	if in.UserID == "" {
		return toolError("user_id is required"), nil, nil
	}
	if in.Question == "" {
		return toolError("question is required"), nil, nil
	}

	embedding, err := s.embedder.EmbedOne(ctx, in.Question)
	if err != nil {
		s.logger.Error("mcp query embedding failed", "error", err)
		return toolError(pipelineErrorText(err)), nil, nil
	}

	answer, err := s.answerer.Answer(ctx, in.UserID, in.Question, embedding, nil)
	if err != nil {
		s.logger.Error("mcp query failed", "error", err)
		return toolError(pipelineErrorText(err)), nil, nil
	}

	var b strings.Builder
	b.WriteString(answer.Text)
	if len(answer.Chunks) > 0 {
		b.WriteString("\n\nSources:")
		for _, c := range answer.Chunks {
			fmt.Fprintf(&b, "\n- chunk %s (document %s)", c.ID, c.DocumentID)
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: b.String()}},
	}, nil, nil
}

// toolError reports a tool-level failure to the MCP host without
// failing the protocol call.
func toolError(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

// pipelineErrorText maps sentinel errors to short messages for the MCP
// host; full detail stays in the server log.
func pipelineErrorText(err error) string {
	switch {
	case errors.Is(err, knowledge.ErrNotFound):
		return "not found"
	case errors.Is(err, knowledge.ErrEmbedding):
		return "embedding provider failed"
	case errors.Is(err, knowledge.ErrRetrieval):
		return "vector search failed"
	case errors.Is(err, knowledge.ErrPermission):
		return "permission service failed"
	case errors.Is(err, knowledge.ErrGeneration):
		return "answer generation failed"
	default:
		return "internal error"
	}
}
