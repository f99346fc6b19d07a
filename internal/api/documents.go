package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/aixone/knowledge-agent/internal/knowledge"
)

// maxIngestBytes caps the request body accepted by the ingest endpoint.
const maxIngestBytes = 10 << 20

// Ingestor runs the ingestion pipeline for a document.
type Ingestor interface {
	Ingest(ctx context.Context, content string, metadata map[string]string) (knowledge.Document, []knowledge.Chunk, error)
}

// DocumentReader reads registered documents.
type DocumentReader interface {
	GetDocument(ctx context.Context, id string) (knowledge.Document, error)
	ListDocuments(ctx context.Context) ([]knowledge.Document, error)
}

type documentHandler struct {
	ingestor Ingestor
	reader   DocumentReader
	logger   *slog.Logger
}

type ingestRequest struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type documentResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	Source      string    `json:"source,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	Description string    `json:"description,omitempty"`
	ContentHash string    `json:"content_hash"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ingestResponse struct {
	Document   documentResponse `json:"document"`
	ChunkCount int              `json:"chunk_count"`
}

func toDocumentResponse(doc knowledge.Document) documentResponse {
	return documentResponse{
		ID:          doc.ID,
		Title:       doc.Title,
		Source:      doc.Source,
		CreatedBy:   doc.CreatedBy,
		Description: doc.Description,
		ContentHash: doc.ContentHash,
		Status:      doc.Status,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

// ingest handles POST /api/v1/documents.
func (h *documentHandler) ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBytes)

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "content is required")
		return
	}

	doc, chunks, err := h.ingestor.Ingest(r.Context(), req.Content, req.Metadata)
	if err != nil {
		writePipelineError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{
		Document:   toDocumentResponse(doc),
		ChunkCount: len(chunks),
	})
}

// get handles GET /api/v1/documents/{id}.
func (h *documentHandler) get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "document id is required")
		return
	}

	doc, err := h.reader.GetDocument(r.Context(), id)
	if err != nil {
		writePipelineError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// list handles GET /api/v1/documents.
func (h *documentHandler) list(w http.ResponseWriter, r *http.Request) {
	docs, err := h.reader.ListDocuments(r.Context())
	if err != nil {
		writePipelineError(w, err, h.logger)
		return
	}

	out := make([]documentResponse, len(docs))
	for i, doc := range docs {
		out[i] = toDocumentResponse(doc)
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}
