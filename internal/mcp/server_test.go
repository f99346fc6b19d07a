package mcp

import (
	"context"
	"fmt"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aixone/knowledge-agent/internal/knowledge"
	"github.com/aixone/knowledge-agent/internal/testutil"
)

type stubIngestor struct {
	doc    knowledge.Document
	chunks []knowledge.Chunk
	err    error
}

func (s *stubIngestor) Ingest(_ context.Context, _ string, _ map[string]string) (knowledge.Document, []knowledge.Chunk, error) {
	return s.doc, s.chunks, s.err
}

type stubAnswerer struct {
	answer knowledge.Answer
	err    error
}

func (s *stubAnswerer) Answer(_ context.Context, _, _ string, _ []float32, _ map[string]string) (knowledge.Answer, error) {
	return s.answer, s.err
}

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) EmbedOne(_ context.Context, _ string) ([]float32, error) {
	return s.vector, s.err
}

func newTestServer(t *testing.T) (*Server, *stubIngestor, *stubAnswerer) {
	t.Helper()
	ing := &stubIngestor{doc: knowledge.Document{ID: "d-1"}, chunks: []knowledge.Chunk{{ID: "c-1"}}}
	ans := &stubAnswerer{answer: knowledge.Answer{Text: "42"}}
	srv, err := NewServer(Config{
		Name:     "knowledge-agent",
		Version:  "test",
		Ingestor: ing,
		Answerer: ans,
		Embedder: &stubEmbedder{vector: []float32{0.1}},
		Logger:   testutil.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv, ing, ans
}

func textContent(t *testing.T, result *sdk.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := result.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want *TextContent", result.Content[0])
	}
	return tc.Text
}

func TestNewServerValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing name", cfg: Config{Version: "v", Ingestor: &stubIngestor{}, Answerer: &stubAnswerer{}, Embedder: &stubEmbedder{}}},
		{name: "missing version", cfg: Config{Name: "n", Ingestor: &stubIngestor{}, Answerer: &stubAnswerer{}, Embedder: &stubEmbedder{}}},
		{name: "missing pipelines", cfg: Config{Name: "n", Version: "v"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewServer(tt.cfg); err == nil {
				t.Error("NewServer() expected error, got nil")
			}
		})
	}
}

func TestIngestTool(t *testing.T) {
	srv, _, _ := newTestServer(t)

	result, _, err := srv.ingest(context.Background(), nil, IngestInput{Content: "hello", Title: "Hi"})
	if err != nil {
		t.Fatalf("ingest() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("ingest() returned tool error: %s", textContent(t, result))
	}
	text := textContent(t, result)
	if !strings.Contains(text, "d-1") || !strings.Contains(text, "1 chunks") {
		t.Errorf("ingest() text = %q, want document id and chunk count", text)
	}
}

func TestIngestToolEmptyContent(t *testing.T) {
	srv, _, _ := newTestServer(t)

	result, _, err := srv.ingest(context.Background(), nil, IngestInput{})
	if err != nil {
		t.Fatalf("ingest() error = %v", err)
	}
	if !result.IsError {
		t.Error("ingest() with empty content should be a tool error")
	}
}

func TestIngestToolPipelineFailure(t *testing.T) {
	srv, ing, _ := newTestServer(t)
	ing.err = fmt.Errorf("%w: down", knowledge.ErrEmbedding)

	result, _, err := srv.ingest(context.Background(), nil, IngestInput{Content: "x"})
	if err != nil {
		t.Fatalf("ingest() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("ingest() should surface pipeline failure as tool error")
	}
	if got := textContent(t, result); got != "embedding provider failed" {
		t.Errorf("error text = %q, want embedding provider failed", got)
	}
}

func TestQueryTool(t *testing.T) {
	srv, _, ans := newTestServer(t)
	ans.answer = knowledge.Answer{
		Text:   "42",
		Chunks: []knowledge.Chunk{{ID: "c-1", DocumentID: "d-1"}},
	}

	result, _, err := srv.query(context.Background(), nil, QueryInput{UserID: "u-1", Question: "why?"})
	if err != nil {
		t.Fatalf("query() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("query() returned tool error: %s", textContent(t, result))
	}
	text := textContent(t, result)
	if !strings.HasPrefix(text, "42") {
		t.Errorf("query() text = %q, want answer first", text)
	}
	if !strings.Contains(text, "chunk c-1") {
		t.Errorf("query() text = %q, want source chunk listed", text)
	}
}

func TestQueryToolValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	tests := []struct {
		name  string
		input QueryInput
	}{
		{name: "missing user", input: QueryInput{Question: "q"}},
		{name: "missing question", input: QueryInput{UserID: "u"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := srv.query(context.Background(), nil, tt.input)
			if err != nil {
				t.Fatalf("query() error = %v", err)
			}
			if !result.IsError {
				t.Error("query() should reject invalid input as tool error")
			}
		})
	}
}

func TestQueryToolStageFailures(t *testing.T) {
	srv, _, ans := newTestServer(t)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "retrieval", err: fmt.Errorf("%w: x", knowledge.ErrRetrieval), want: "vector search failed"},
		{name: "permission", err: fmt.Errorf("%w: x", knowledge.ErrPermission), want: "permission service failed"},
		{name: "generation", err: fmt.Errorf("%w: x", knowledge.ErrGeneration), want: "answer generation failed"},
		{name: "other", err: fmt.Errorf("bug"), want: "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ans.err = tt.err
			result, _, err := srv.query(context.Background(), nil, QueryInput{UserID: "u", Question: "q"})
			if err != nil {
				t.Fatalf("query() error = %v", err)
			}
			if !result.IsError {
				t.Fatal("query() should surface pipeline failure as tool error")
			}
			if got := textContent(t, result); got != tt.want {
				t.Errorf("error text = %q, want %q", got, tt.want)
			}
		})
	}
}
