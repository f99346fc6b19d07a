// Package store owns document and chunk persistence.
//
// Two implementations back the same ports: Postgres (pgx + pgvector,
// the production store and retrieval provider) and Memory (a
// mutex-guarded in-process store for tests and development). Both
// implement knowledge.ChunkStore; Postgres additionally implements
// knowledge.Searcher over pgvector cosine distance and
// knowledge.AttributeSource over the resource_attributes table.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/aixone/knowledge-agent/internal/knowledge"
)

// searchFilterColumns whitelists the filter keys accepted by Search and
// maps them to chunk columns. Anything else is rejected before reaching
// SQL. Slice, not map, so generated SQL is deterministic.
var searchFilterColumns = []struct {
	key    string
	column string
}{
	{"document_id", "document_id"},
	{"status", "status"},
}

// DefaultSearchLimit caps the candidates returned by a vector search.
const DefaultSearchLimit = 10

// Querier is the subset of pgxpool.Pool the Postgres store needs.
// Interfaces are defined by the consumer; *pgxpool.Pool satisfies this.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is the production document/chunk store.
// Safe for concurrent use; PostgreSQL handles concurrent access.
type Postgres struct {
	db     Querier
	limit  int
	logger *slog.Logger
}

// NewPostgres creates a Postgres-backed store. searchLimit caps vector
// search results; values <= 0 fall back to DefaultSearchLimit. A nil
// logger falls back to slog.Default().
func NewPostgres(db Querier, searchLimit int, logger *slog.Logger) *Postgres {
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, limit: searchLimit, logger: logger}
}

// CreateDocument registers a new document. Metadata keys title, source,
// created_by, and description map onto document columns; the content
// hash is computed here for change detection.
func (p *Postgres) CreateDocument(ctx context.Context, content string, metadata map[string]string) (knowledge.Document, error) {
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

	_, err := p.db.Exec(ctx, `
		INSERT INTO documents (id, title, source, created_by, description, content_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, doc.Title, doc.Source, doc.CreatedBy, doc.Description, doc.ContentHash, doc.Status,
		timestamptz(doc.CreatedAt), timestamptz(doc.UpdatedAt),
	)
	if err != nil {
		return knowledge.Document{}, fmt.Errorf("inserting document: %w", err)
	}

	p.logger.Debug("created document", "id", doc.ID, "content_length", len(content))
	return doc, nil
}

// SaveChunks persists texts as chunks of the document in split order,
// assigning contiguous order values starting at 0.
func (p *Postgres) SaveChunks(ctx context.Context, documentID string, texts []string) ([]knowledge.Chunk, error) {
	now := time.Now().UTC()
	chunks := make([]knowledge.Chunk, len(texts))

	for i, text := range texts {
		chunk := knowledge.Chunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Content:    text,
			Order:      i,
			Status:     knowledge.StatusActive,
			CreatedAt:  now,
		}
		_, err := p.db.Exec(ctx, `
			INSERT INTO chunks (id, document_id, content, chunk_order, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			chunk.ID, chunk.DocumentID, chunk.Content, chunk.Order, chunk.Status, timestamptz(chunk.CreatedAt),
		)
		if err != nil {
			return nil, fmt.Errorf("inserting chunk %d of document %q: %w", i, documentID, err)
		}
		chunks[i] = chunk
	}

	p.logger.Debug("saved chunks", "document_id", documentID, "count", len(chunks))
	return chunks, nil
}

// AttachEmbedding stores the embedding vector for a chunk and returns
// the updated chunk value.
func (p *Postgres) AttachEmbedding(ctx context.Context, chunk knowledge.Chunk, embedding []float32) (knowledge.Chunk, error) {
	vec := pgvector.NewVector(embedding)
	tag, err := p.db.Exec(ctx,
		`UPDATE chunks SET embedding = $1 WHERE id = $2`,
		&vec, chunk.ID,
	)
	if err != nil {
		return knowledge.Chunk{}, fmt.Errorf("updating embedding for chunk %q: %w", chunk.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return knowledge.Chunk{}, fmt.Errorf("chunk %q: %w", chunk.ID, knowledge.ErrNotFound)
	}

	chunk.Embedding = embedding
	return chunk, nil
}

// GetDocument returns the document with the given id.
func (p *Postgres) GetDocument(ctx context.Context, id string) (knowledge.Document, error) {
	var doc knowledge.Document
	var createdAt, updatedAt pgtype.Timestamptz

	err := p.db.QueryRow(ctx, `
		SELECT id, title, source, created_by, description, content_hash, status, created_at, updated_at
		FROM documents WHERE id = $1`, id,
	).Scan(&doc.ID, &doc.Title, &doc.Source, &doc.CreatedBy, &doc.Description,
		&doc.ContentHash, &doc.Status, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return knowledge.Document{}, fmt.Errorf("document %q: %w", id, knowledge.ErrNotFound)
	}
	if err != nil {
		return knowledge.Document{}, fmt.Errorf("fetching document %q: %w", id, err)
	}

	doc.CreatedAt = createdAt.Time
	doc.UpdatedAt = updatedAt.Time
	return doc, nil
}

// ListDocuments returns all documents, newest first.
func (p *Postgres) ListDocuments(ctx context.Context) ([]knowledge.Document, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, title, source, created_by, description, content_hash, status, created_at, updated_at
		FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []knowledge.Document
	for rows.Next() {
		var doc knowledge.Document
		var createdAt, updatedAt pgtype.Timestamptz
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Source, &doc.CreatedBy, &doc.Description,
			&doc.ContentHash, &doc.Status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		doc.CreatedAt = createdAt.Time
		doc.UpdatedAt = updatedAt.Time
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// Search returns chunk candidates for the query embedding ordered by
// cosine distance (most similar first). Only embedded chunks are
// eligible. Filter keys are whitelisted; an unknown key is an error
// rather than a silently ignored predicate.
func (p *Postgres) Search(ctx context.Context, embedding []float32, filter map[string]string) ([]knowledge.Chunk, error) {
	where, args, err := buildSearchFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", knowledge.ErrRetrieval, err)
	}

	vec := pgvector.NewVector(embedding)
	args = append([]any{&vec}, args...)
	query := fmt.Sprintf(`
		SELECT id, document_id, content, embedding, chunk_order, status, created_at
		FROM chunks
		WHERE embedding IS NOT NULL%s
		ORDER BY embedding <=> $1
		LIMIT %d`, where, p.limit)

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %w", knowledge.ErrRetrieval, err)
	}
	defer rows.Close()

	var chunks []knowledge.Chunk
	for rows.Next() {
		var chunk knowledge.Chunk
		var emb pgvector.Vector
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content, &emb,
			&chunk.Order, &chunk.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk row: %w", knowledge.ErrRetrieval, err)
		}
		chunk.Embedding = emb.Slice()
		chunk.CreatedAt = createdAt.Time
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating chunks: %w", knowledge.ErrRetrieval, err)
	}

	p.logger.Debug("vector search", "candidates", len(chunks), "filter", filter)
	return chunks, nil
}

// ResourceAttributes returns the ABAC attributes attached to the given
// chunks.
func (p *Postgres) ResourceAttributes(ctx context.Context, chunks []knowledge.Chunk) ([]knowledge.ResourceAttribute, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}

	rows, err := p.db.Query(ctx, `
		SELECT resource_id, resource_type, name, value, created_at
		FROM resource_attributes
		WHERE resource_type = $1 AND resource_id = ANY($2)`,
		knowledge.ResourceTypeChunk, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching resource attributes: %w", knowledge.ErrPermission, err)
	}
	defer rows.Close()

	var attrs []knowledge.ResourceAttribute
	for rows.Next() {
		var attr knowledge.ResourceAttribute
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&attr.ResourceID, &attr.ResourceType, &attr.Name, &attr.Value, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scanning attribute row: %w", knowledge.ErrPermission, err)
		}
		attr.CreatedAt = createdAt.Time
		attrs = append(attrs, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating attributes: %w", knowledge.ErrPermission, err)
	}
	return attrs, nil
}

// buildSearchFilter turns whitelisted filter params into a WHERE suffix
// with positional args starting at $2 ($1 is the query vector).
func buildSearchFilter(filter map[string]string) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	where := ""
	args := make([]any, 0, len(filter))
	// Iterate the whitelist, not the input map, for deterministic SQL.
	for _, fc := range searchFilterColumns {
		value, ok := filter[fc.key]
		if !ok {
			continue
		}
		args = append(args, value)
		where += fmt.Sprintf(" AND %s = $%d", fc.column, len(args)+1)
	}

	if len(args) != len(filter) {
		return "", nil, fmt.Errorf("unsupported filter key in %v", filterKeys(filter))
	}
	return where, args, nil
}

func filterKeys(filter map[string]string) []string {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	return keys
}

// HashContent returns the hex SHA-256 of content, used for document
// change detection and deduplication.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}
