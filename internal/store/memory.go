package store

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aixone/knowledge-agent/internal/knowledge"
)

// Memory is an in-process ChunkStore, Searcher, and AttributeSource.
// Used by tests and the --memory development mode.
//
// All state is guarded by a single mutex: one writer at a time, reads
// return copies so callers can never alias internal state.
type Memory struct {
	mu         sync.RWMutex
	documents  map[string]knowledge.Document
	docOrder   []string                     // insertion order for ListDocuments
	chunks     map[string][]knowledge.Chunk // by document id, in chunk order
	attributes []knowledge.ResourceAttribute
	limit      int
}

// NewMemory creates an empty in-memory store. searchLimit caps search
// results; values <= 0 fall back to DefaultSearchLimit.
func NewMemory(searchLimit int) *Memory {
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	return &Memory{
		documents: make(map[string]knowledge.Document),
		chunks:    make(map[string][]knowledge.Chunk),
		limit:     searchLimit,
	}
}

// CreateDocument registers a new document.
func (m *Memory) CreateDocument(_ context.Context, content string, metadata map[string]string) (knowledge.Document, error) {
	now := time.Now().UTC()
	doc := knowledge.Document{
		ID:          uuid.NewString(),
		Title:       metadata["title"],
		Source:      metadata["source"],
		CreatedBy:   metadata["created_by"],
		Description: metadata["description"],
		ContentHash: HashContent(content),
		Status:      knowledge.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.ID] = doc
	m.docOrder = append(m.docOrder, doc.ID)
	return doc, nil
}

// SaveChunks persists texts as chunks of the document in order.
func (m *Memory) SaveChunks(_ context.Context, documentID string, texts []string) ([]knowledge.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.documents[documentID]; !ok {
		return nil, fmt.Errorf("document %q: %w", documentID, knowledge.ErrNotFound)
	}

	now := time.Now().UTC()
	chunks := make([]knowledge.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = knowledge.Chunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Content:    text,
			Order:      i,
			Status:     knowledge.StatusActive,
			CreatedAt:  now,
		}
	}
	m.chunks[documentID] = append(m.chunks[documentID], chunks...)

	out := make([]knowledge.Chunk, len(chunks))
	copy(out, chunks)
	return out, nil
}

// AttachEmbedding stores the embedding for a chunk.
func (m *Memory) AttachEmbedding(_ context.Context, chunk knowledge.Chunk, embedding []float32) (knowledge.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.chunks[chunk.DocumentID]
	for i := range stored {
		if stored[i].ID == chunk.ID {
			stored[i].Embedding = append([]float32(nil), embedding...)
			return cloneChunk(stored[i]), nil
		}
	}
	return knowledge.Chunk{}, fmt.Errorf("chunk %q: %w", chunk.ID, knowledge.ErrNotFound)
}

// GetDocument returns the document with the given id.
func (m *Memory) GetDocument(_ context.Context, id string) (knowledge.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.documents[id]
	if !ok {
		return knowledge.Document{}, fmt.Errorf("document %q: %w", id, knowledge.ErrNotFound)
	}
	return doc, nil
}

// ListDocuments returns all documents in insertion order.
func (m *Memory) ListDocuments(_ context.Context) ([]knowledge.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]knowledge.Document, 0, len(m.docOrder))
	for _, id := range m.docOrder {
		docs = append(docs, m.documents[id])
	}
	return docs, nil
}

// Search returns embedded chunks ranked by cosine similarity to the
// query embedding, most similar first. Supports the same filter keys
// as the Postgres store.
func (m *Memory) Search(_ context.Context, embedding []float32, filter map[string]string) ([]knowledge.Chunk, error) {
	for key := range filter {
		supported := false
		for _, fc := range searchFilterColumns {
			if fc.key == key {
				supported = true
				break
			}
		}
		if !supported {
			return nil, fmt.Errorf("%w: unsupported filter key %q", knowledge.ErrRetrieval, key)
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		chunk knowledge.Chunk
		score float64
	}
	var candidates []scored
	for docID, chunks := range m.chunks {
		if want, ok := filter["document_id"]; ok && want != docID {
			continue
		}
		for _, c := range chunks {
			if !c.Embedded() {
				continue
			}
			if want, ok := filter["status"]; ok && want != c.Status {
				continue
			}
			candidates = append(candidates, scored{chunk: c, score: cosineSimilarity(embedding, c.Embedding)})
		}
	}

	// Insertion sort by descending score; candidate sets are small.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].score > candidates[j-1].score; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	n := min(len(candidates), m.limit)
	result := make([]knowledge.Chunk, n)
	for i := range n {
		result[i] = cloneChunk(candidates[i].chunk)
	}
	return result, nil
}

// cloneChunk returns the chunk with its own embedding backing array.
func cloneChunk(c knowledge.Chunk) knowledge.Chunk {
	if c.Embedding != nil {
		c.Embedding = append([]float32(nil), c.Embedding...)
	}
	return c
}

// ResourceAttributes returns the attributes attached to the given chunks.
func (m *Memory) ResourceAttributes(_ context.Context, chunks []knowledge.Chunk) ([]knowledge.ResourceAttribute, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	wanted := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		wanted[c.ID] = true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var attrs []knowledge.ResourceAttribute
	for _, attr := range m.attributes {
		if attr.ResourceType == knowledge.ResourceTypeChunk && wanted[attr.ResourceID] {
			attrs = append(attrs, attr)
		}
	}
	return attrs, nil
}

// AddResourceAttribute attaches an ABAC fact to a resource. Test and
// seeding helper; the pipeline itself never mutates attributes.
func (m *Memory) AddResourceAttribute(attr knowledge.ResourceAttribute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if attr.CreatedAt.IsZero() {
		attr.CreatedAt = time.Now().UTC()
	}
	m.attributes = append(m.attributes, attr)
}

// cosineSimilarity returns the cosine of the angle between a and b,
// or -1 for degenerate inputs so they rank last.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return -1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return -1
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
