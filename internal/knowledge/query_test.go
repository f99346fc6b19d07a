package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/aixone/knowledge-agent/internal/log"
)

// ============================================================================
// Mock Implementations
// ============================================================================

type mockSearcher struct {
	chunks     []Chunk
	err        error
	calls      int
	lastFilter map[string]string
}

func (m *mockSearcher) Search(_ context.Context, _ []float32, filter map[string]string) ([]Chunk, error) {
	m.calls++
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	return m.chunks, nil
}

// mockPermission filters out chunks whose ID appears in denied.
type mockPermission struct {
	denied    map[string]bool
	attrErr   error
	filterErr error

	attrCalls   int
	filterCalls int
	lastAttrs   []ResourceAttribute
}

func (m *mockPermission) UserAttributes(_ context.Context, userID string) ([]ResourceAttribute, error) {
	m.attrCalls++
	if m.attrErr != nil {
		return nil, m.attrErr
	}
	return []ResourceAttribute{{ResourceID: userID, ResourceType: "user", Name: "dept", Value: "eng"}}, nil
}

func (m *mockPermission) FilterChunks(_ context.Context, _ []ResourceAttribute, candidates []Chunk, resourceAttrs []ResourceAttribute) ([]Chunk, error) {
	m.filterCalls++
	m.lastAttrs = resourceAttrs
	if m.filterErr != nil {
		return nil, m.filterErr
	}
	var permitted []Chunk
	for _, c := range candidates {
		if !m.denied[c.ID] {
			permitted = append(permitted, c)
		}
	}
	return permitted, nil
}

type mockAttributeSource struct {
	attrs []ResourceAttribute
	err   error
	calls int
}

func (m *mockAttributeSource) ResourceAttributes(_ context.Context, _ []Chunk) ([]ResourceAttribute, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.attrs, nil
}

type mockGenerator struct {
	answer      string
	err         error
	calls       int
	lastContext string
}

func (m *mockGenerator) Generate(_ context.Context, contextText, _ string) (string, error) {
	m.calls++
	m.lastContext = contextText
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func testChunks(ids ...string) []Chunk {
	chunks := make([]Chunk, len(ids))
	for i, id := range ids {
		chunks[i] = Chunk{ID: id, Content: "content-" + id, Order: i, Embedding: []float32{1}}
	}
	return chunks
}

// ============================================================================
// Querier Tests
// ============================================================================

func TestQuerier_Answer(t *testing.T) {
	ctx := context.Background()

	t.Run("full pipeline with permission filtering", func(t *testing.T) {
		searcher := &mockSearcher{chunks: testChunks("c1", "c2", "c3")}
		permission := &mockPermission{denied: map[string]bool{"c2": true}}
		attrs := &mockAttributeSource{attrs: []ResourceAttribute{{ResourceID: "c1", ResourceType: ResourceTypeChunk, Name: "team", Value: "eng"}}}
		generator := &mockGenerator{answer: "42"}
		q := NewQuerier(searcher, permission, attrs, generator, log.NewNop())

		answer, err := q.Answer(ctx, "user-1", "Why?", []float32{0.1}, map[string]string{"document_id": "doc-1"})
		if err != nil {
			t.Fatalf("Answer() error = %v", err)
		}
		if answer.Text != "42" {
			t.Errorf("answer text = %q, want %q", answer.Text, "42")
		}
		if len(answer.Chunks) != 2 {
			t.Fatalf("got %d chunks, want 2", len(answer.Chunks))
		}
		if answer.Chunks[0].ID != "c1" || answer.Chunks[1].ID != "c3" {
			t.Errorf("permitted chunks = [%s %s], want [c1 c3]", answer.Chunks[0].ID, answer.Chunks[1].ID)
		}
		wantContext := "content-c1\ncontent-c3\n\nQuestion: Why?"
		if generator.lastContext != wantContext {
			t.Errorf("generator context = %q, want %q", generator.lastContext, wantContext)
		}
		if attrs.calls != 1 {
			t.Errorf("attribute source called %d times, want 1", attrs.calls)
		}
		if len(permission.lastAttrs) != 1 {
			t.Errorf("filter received %d resource attributes, want 1", len(permission.lastAttrs))
		}
	})

	t.Run("empty retrieval skips permission service", func(t *testing.T) {
		searcher := &mockSearcher{}
		permission := &mockPermission{}
		generator := &mockGenerator{answer: "no context answer"}
		q := NewQuerier(searcher, permission, nil, generator, log.NewNop())

		answer, err := q.Answer(ctx, "user-1", "Why?", []float32{0.1}, nil)
		if err != nil {
			t.Fatalf("Answer() error = %v", err)
		}
		if permission.attrCalls != 0 || permission.filterCalls != 0 {
			t.Error("permission service invoked for empty candidate set")
		}
		if answer.Text != "no context answer" {
			t.Errorf("answer text = %q", answer.Text)
		}
		if len(answer.Chunks) != 0 {
			t.Errorf("got %d chunks, want 0", len(answer.Chunks))
		}
	})

	t.Run("nil attribute source filters with empty attribute set", func(t *testing.T) {
		searcher := &mockSearcher{chunks: testChunks("c1")}
		permission := &mockPermission{}
		generator := &mockGenerator{answer: "ok"}
		q := NewQuerier(searcher, permission, nil, generator, log.NewNop())

		if _, err := q.Answer(ctx, "user-1", "q", []float32{0.1}, nil); err != nil {
			t.Fatalf("Answer() error = %v", err)
		}
		if permission.lastAttrs != nil {
			t.Errorf("filter received %d resource attributes, want none", len(permission.lastAttrs))
		}
	})

	t.Run("stage failures propagate with their class", func(t *testing.T) {
		tests := []struct {
			name    string
			querier *Querier
			wantErr error
		}{
			{
				name: "retrieval failure",
				querier: NewQuerier(
					&mockSearcher{err: ErrRetrieval},
					&mockPermission{}, nil, &mockGenerator{}, log.NewNop()),
				wantErr: ErrRetrieval,
			},
			{
				name: "user attribute fetch failure fails closed",
				querier: NewQuerier(
					&mockSearcher{chunks: testChunks("c1")},
					&mockPermission{attrErr: ErrPermission}, nil, &mockGenerator{}, log.NewNop()),
				wantErr: ErrPermission,
			},
			{
				name: "filter failure fails closed",
				querier: NewQuerier(
					&mockSearcher{chunks: testChunks("c1")},
					&mockPermission{filterErr: ErrPermission}, nil, &mockGenerator{}, log.NewNop()),
				wantErr: ErrPermission,
			},
			{
				name: "attribute source failure fails closed",
				querier: NewQuerier(
					&mockSearcher{chunks: testChunks("c1")},
					&mockPermission{},
					&mockAttributeSource{err: ErrPermission},
					&mockGenerator{}, log.NewNop()),
				wantErr: ErrPermission,
			},
			{
				name: "generation failure after successful filtering",
				querier: NewQuerier(
					&mockSearcher{chunks: testChunks("c1")},
					&mockPermission{}, nil,
					&mockGenerator{err: ErrGeneration}, log.NewNop()),
				wantErr: ErrGeneration,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				answer, err := tt.querier.Answer(ctx, "user-1", "q", []float32{0.1}, nil)
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if answer.Text != "" || answer.Chunks != nil {
					t.Error("partial answer surfaced on stage failure")
				}
			})
		}
	})

	t.Run("filter params passed through to searcher", func(t *testing.T) {
		searcher := &mockSearcher{}
		q := NewQuerier(searcher, &mockPermission{}, nil, &mockGenerator{answer: "a"}, log.NewNop())

		filter := map[string]string{"document_id": "doc-7", "status": StatusActive}
		if _, err := q.Answer(ctx, "u", "q", []float32{0.5}, filter); err != nil {
			t.Fatalf("Answer() error = %v", err)
		}
		if len(searcher.lastFilter) != 2 || searcher.lastFilter["document_id"] != "doc-7" {
			t.Errorf("searcher filter = %v, want %v", searcher.lastFilter, filter)
		}
	})
}
