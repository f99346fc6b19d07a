package knowledge

import "time"

// EmbeddingDimension is the vector dimension used across the pipeline.
// The chunks.embedding column is declared vector(1536) to match, and the
// embedding gateway requests this output dimensionality from the
// provider. gemini-embedding-001 emits 3072 dimensions unless asked to
// truncate (Matryoshka Representation Learning), so the request-side
// bound is load-bearing, not cosmetic.
const EmbeddingDimension = 1536

// Lifecycle status values for documents and chunks.
const (
	// StatusActive marks an entity as live and eligible for the pipeline.
	StatusActive = "active"
)

// Resource type constants used by resource attributes.
const (
	// ResourceTypeChunk marks an attribute attached to a chunk.
	ResourceTypeChunk = "chunk"

	// ResourceTypeDocument marks an attribute attached to a document.
	ResourceTypeDocument = "document"
)

// Document is a source text unit registered by ingestion.
// Immutable after creation except for Status and UpdatedAt.
type Document struct {
	ID          string // Opaque, stable identifier
	Title       string // Human-readable title
	Source      string // Source locator (path, URL, upstream id)
	CreatedBy   string // Creator identifier
	Description string // Optional free-form description
	ContentHash string // SHA-256 of content, for change detection
	Status      string // Lifecycle status (StatusActive)
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Chunk is a bounded-size slice of a document's content, in document order.
//
// A nil Embedding means the chunk has not been embedded yet and is not
// eligible for retrieval. Order values for a document are contiguous
// integers starting at 0; concatenating chunk contents by order
// reproduces the original document content.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	Embedding  []float32 // nil until embedding completes
	Order      int       // zero-based position within the document
	Status     string
	CreatedAt  time.Time
}

// Embedded reports whether the chunk carries an embedding vector.
func (c Chunk) Embedded() bool {
	return len(c.Embedding) > 0
}

// ResourceAttribute is an ABAC fact attached to a resource (chunk or
// document). It is input to permission filtering and never mutated by
// the pipeline.
type ResourceAttribute struct {
	ResourceID   string
	ResourceType string // ResourceTypeChunk or ResourceTypeDocument
	Name         string
	Value        string
	CreatedAt    time.Time
}

// Answer is the result of one query pipeline run: the generated answer
// text plus the permitted chunks it was built from, in retrieval order,
// so callers can show provenance.
type Answer struct {
	Text   string
	Chunks []Chunk
}
