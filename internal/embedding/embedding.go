// Package embedding adapts a Genkit ai.Embedder to the pipeline's
// Embedder port.
//
// The batch form issues a single EmbedRequest covering all texts: one
// suspension point per batch, no per-text parallelism on this side.
// Every request pins OutputDimensionality to knowledge.EmbeddingDimension
// so vectors always fit the pgvector column regardless of the model's
// native dimension. Any provider error, empty vector, or response count
// mismatch surfaces wrapped in knowledge.ErrEmbedding; the pipeline
// never retries.
package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"google.golang.org/genai"

	"github.com/aixone/knowledge-agent/internal/knowledge"
)

// Gateway implements knowledge.Embedder on top of a Genkit embedder.
// Safe for concurrent use; it holds no mutable state.
type Gateway struct {
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates an embedding gateway. A nil logger falls back to
// slog.Default().
func New(embedder ai.Embedder, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{embedder: embedder, logger: logger}
}

// EmbedOne embeds a single text. Empty input returns an empty vector
// without calling the provider.
func (g *Gateway) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return []float32{}, nil
	}

	vectors, err := g.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one provider call, preserving length and
// order. An empty input returns nil without calling the provider.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return g.embed(ctx, texts)
}

func (g *Gateway) embed(ctx context.Context, texts []string) ([][]float32, error) {
	input := make([]*ai.Document, len(texts))
	for i, text := range texts {
		input[i] = &ai.Document{
			Content: []*ai.Part{ai.NewTextPart(text)},
		}
	}

	// gemini-embedding-001 defaults to 3072 dimensions; without this
	// truncation the vectors would not fit the vector(1536) column.
	dim := int32(knowledge.EmbeddingDimension)
	resp, err := g.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   input,
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: provider call: %w", knowledge.ErrEmbedding, err)
	}

	// A count mismatch means vector-to-text alignment is unknowable;
	// treat it as a hard failure rather than guessing.
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			knowledge.ErrEmbedding, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty vector at index %d", knowledge.ErrEmbedding, i)
		}
		vectors[i] = emb.Embedding
	}

	g.logger.Debug("embedded texts", "count", len(texts), "dimension", len(vectors[0]))
	return vectors, nil
}
