package knowledge

import (
	"context"
	"fmt"
	"log/slog"
)

// Embedder turns text into embedding vectors by delegating to an
// external provider. Interfaces are defined by the consumer, not the
// provider (like io.Reader, http.RoundTripper); both orchestrators
// depend on this abstraction rather than a concrete client.
type Embedder interface {
	// EmbedOne embeds a single text. Empty input returns an empty
	// vector without a provider call.
	EmbedOne(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts preserving length and order: the i-th
	// vector corresponds to the i-th text. An empty input returns nil
	// without a provider call. Implementations wrap provider errors
	// and length mismatches with ErrEmbedding.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore owns document and chunk persistence. It assigns chunk
// order and lifecycle status; the orchestrators never coordinate its
// writes beyond call ordering.
type ChunkStore interface {
	// CreateDocument registers a new document for the given content and
	// metadata and returns it with identifier and timestamps assigned.
	CreateDocument(ctx context.Context, content string, metadata map[string]string) (Document, error)

	// SaveChunks persists texts as chunks of the document in order,
	// assigning Order 0..n-1, StatusActive, and no embedding.
	SaveChunks(ctx context.Context, documentID string, texts []string) ([]Chunk, error)

	// AttachEmbedding stores the embedding for a chunk and returns the
	// updated chunk value.
	AttachEmbedding(ctx context.Context, chunk Chunk, embedding []float32) (Chunk, error)

	// GetDocument returns the document with the given id, or an error
	// wrapping ErrNotFound.
	GetDocument(ctx context.Context, id string) (Document, error)

	// ListDocuments returns all registered documents.
	ListDocuments(ctx context.Context) ([]Document, error)
}

// Ingestor runs the ingestion pipeline: split content into chunks,
// persist them in document order, batch-embed, and attach embeddings.
//
// Ingestor is stateless across calls and safe for concurrent use as
// long as its collaborators are.
type Ingestor struct {
	store       ChunkStore
	embedder    Embedder
	chunkLength int
	logger      *slog.Logger
}

// NewIngestor creates an ingestion orchestrator. chunkLength is the
// maximum chunk size in runes; values <= 0 fall back to
// DefaultChunkLength. A nil logger falls back to slog.Default().
func NewIngestor(store ChunkStore, embedder Embedder, chunkLength int, logger *slog.Logger) *Ingestor {
	if chunkLength <= 0 {
		chunkLength = DefaultChunkLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		store:       store,
		embedder:    embedder,
		chunkLength: chunkLength,
		logger:      logger,
	}
}

// Ingest registers content as a document and produces its embedded
// chunks. The returned slice has the same length and order as the
// split, and every chunk carries an embedding, or the whole operation
// fails as a unit. Empty content registers the document and returns no
// chunks; that is not an error.
func (ing *Ingestor) Ingest(ctx context.Context, content string, metadata map[string]string) (Document, []Chunk, error) {
	doc, err := ing.store.CreateDocument(ctx, content, metadata)
	if err != nil {
		return Document{}, nil, fmt.Errorf("creating document: %w", err)
	}

	texts := Split(content, ing.chunkLength)
	if len(texts) == 0 {
		ing.logger.Debug("ingested empty document", "document_id", doc.ID)
		return doc, nil, nil
	}

	chunks, err := ing.store.SaveChunks(ctx, doc.ID, texts)
	if err != nil {
		return Document{}, nil, fmt.Errorf("saving chunks for document %q: %w", doc.ID, err)
	}
	if len(chunks) != len(texts) {
		return Document{}, nil, fmt.Errorf("store saved %d chunks for %d texts", len(chunks), len(texts))
	}

	// One suspension point for the whole batch. If the provider fails
	// no partially-embedded result reaches the caller; there is no
	// per-chunk fallback.
	vectors, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return Document{}, nil, fmt.Errorf("embedding %d chunks of document %q: %w", len(texts), doc.ID, err)
	}
	if len(vectors) != len(chunks) {
		return Document{}, nil, fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbedding, len(vectors), len(chunks))
	}

	embedded := make([]Chunk, len(chunks))
	for i, chunk := range chunks {
		updated, err := ing.store.AttachEmbedding(ctx, chunk, vectors[i])
		if err != nil {
			return Document{}, nil, fmt.Errorf("attaching embedding to chunk %q: %w", chunk.ID, err)
		}
		embedded[i] = updated
	}

	ing.logger.Debug("ingested document",
		"document_id", doc.ID,
		"chunks", len(embedded),
		"content_length", len(content))
	return doc, embedded, nil
}
