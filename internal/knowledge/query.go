package knowledge

import (
	"context"
	"fmt"
	"log/slog"
)

// Searcher delegates vector similarity search to an external vector
// database. Returned candidates are in provider-defined relevance order
// (descending); the pipeline never re-ranks them.
type Searcher interface {
	// Search returns chunk candidates for the query embedding, reduced
	// by the provider-side filter. An empty result is valid.
	// Implementations wrap provider errors with ErrRetrieval.
	Search(ctx context.Context, embedding []float32, filter map[string]string) ([]Chunk, error)
}

// PermissionService delegates ABAC policy evaluation to an external
// policy service. The pipeline's contract is a two-step call: fetch the
// user's attribute set, then filter the candidates against it.
type PermissionService interface {
	// UserAttributes returns the attribute set of the given user.
	UserAttributes(ctx context.Context, userID string) ([]ResourceAttribute, error)

	// FilterChunks returns the subsequence of candidates the user may
	// see, preserving relative order and chunk identity. Inputs are
	// never mutated. Implementations wrap failures with ErrPermission.
	FilterChunks(ctx context.Context, userAttrs []ResourceAttribute, candidates []Chunk, resourceAttrs []ResourceAttribute) ([]Chunk, error)
}

// AttributeSource supplies the resource attributes of candidate chunks
// for policy evaluation. Lookup failures wrap ErrPermission since the
// filter cannot be evaluated without them.
type AttributeSource interface {
	ResourceAttributes(ctx context.Context, chunks []Chunk) ([]ResourceAttribute, error)
}

// Generator produces the final answer from assembled context by
// delegating verbatim to an external language-model provider. No local
// retry, caching, or answer validation.
type Generator interface {
	Generate(ctx context.Context, contextText, question string) (string, error)
}

// Querier runs the query pipeline: retrieve candidates, filter by
// permission, assemble context, generate the answer. Stateless across
// calls; concurrent requests share the same collaborator clients.
type Querier struct {
	searcher   Searcher
	permission PermissionService
	attributes AttributeSource
	generator  Generator
	logger     *slog.Logger
}

// NewQuerier creates a query orchestrator. attributes may be nil, in
// which case the permission filter is evaluated with an empty resource
// attribute set. A nil logger falls back to slog.Default().
func NewQuerier(searcher Searcher, permission PermissionService, attributes AttributeSource, generator Generator, logger *slog.Logger) *Querier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Querier{
		searcher:   searcher,
		permission: permission,
		attributes: attributes,
		generator:  generator,
		logger:     logger,
	}
}

// Answer runs one query for the given user. It returns both the
// generated answer and the permitted chunks actually used, in retrieval
// order. Any stage failure aborts the pipeline and surfaces with its
// failure class; nothing is swallowed or retried, and no partial
// "retrieved but not answered" result exists.
func (q *Querier) Answer(ctx context.Context, userID, question string, queryEmbedding []float32, filter map[string]string) (Answer, error) {
	candidates, err := q.searcher.Search(ctx, queryEmbedding, filter)
	if err != nil {
		return Answer{}, fmt.Errorf("searching chunks: %w", err)
	}

	permitted, err := q.filterByPermission(ctx, userID, candidates)
	if err != nil {
		return Answer{}, err
	}

	contextText := AssembleContext(permitted, question)

	text, err := q.generator.Generate(ctx, contextText, question)
	if err != nil {
		return Answer{}, fmt.Errorf("generating answer: %w", err)
	}

	q.logger.Debug("answered query",
		"user_id", userID,
		"candidates", len(candidates),
		"permitted", len(permitted))
	return Answer{Text: text, Chunks: permitted}, nil
}

// filterByPermission reduces candidates to the chunks the user may see.
// An empty candidate set short-circuits without touching the policy
// service. Failure anywhere fails closed: no chunks pass.
func (q *Querier) filterByPermission(ctx context.Context, userID string, candidates []Chunk) ([]Chunk, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	userAttrs, err := q.permission.UserAttributes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching attributes for user %q: %w", userID, err)
	}

	var resourceAttrs []ResourceAttribute
	if q.attributes != nil {
		resourceAttrs, err = q.attributes.ResourceAttributes(ctx, candidates)
		if err != nil {
			return nil, fmt.Errorf("fetching resource attributes: %w", err)
		}
	}

	permitted, err := q.permission.FilterChunks(ctx, userAttrs, candidates, resourceAttrs)
	if err != nil {
		return nil, fmt.Errorf("filtering chunks for user %q: %w", userID, err)
	}
	return permitted, nil
}
