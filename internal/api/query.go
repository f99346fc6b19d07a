package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aixone/knowledge-agent/internal/knowledge"
)

// Answerer runs the query pipeline for one question.
type Answerer interface {
	Answer(ctx context.Context, userID, question string, queryEmbedding []float32, filter map[string]string) (knowledge.Answer, error)
}

// QueryEmbedder embeds a question when the caller did not supply a
// precomputed vector.
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

type queryHandler struct {
	answerer Answerer
	embedder QueryEmbedder
	logger   *slog.Logger
}

type queryRequest struct {
	UserID    string            `json:"user_id"`
	Question  string            `json:"question"`
	Embedding []float32         `json:"embedding,omitempty"`
	Filter    map[string]string `json:"filter,omitempty"`
}

type chunkResponse struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
	Order      int    `json:"order"`
}

type queryResponse struct {
	Answer string          `json:"answer"`
	Chunks []chunkResponse `json:"chunks"`
}

// query handles POST /api/v1/query.
func (h *queryHandler) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question is required")
		return
	}

	embedding := req.Embedding
	if len(embedding) == 0 {
		var err error
		embedding, err = h.embedder.EmbedOne(r.Context(), req.Question)
		if err != nil {
			writePipelineError(w, err, h.logger)
			return
		}
	}

	answer, err := h.answerer.Answer(r.Context(), req.UserID, req.Question, embedding, req.Filter)
	if err != nil {
		writePipelineError(w, err, h.logger)
		return
	}

	chunks := make([]chunkResponse, len(answer.Chunks))
	for i, c := range answer.Chunks {
		chunks[i] = chunkResponse{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Content:    c.Content,
			Order:      c.Order,
		}
	}
	writeJSON(w, http.StatusOK, queryResponse{Answer: answer.Text, Chunks: chunks})
}
