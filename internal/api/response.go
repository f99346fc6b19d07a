package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aixone/knowledge-agent/internal/knowledge"
)

// writeJSON writes a JSON response. The body is encoded into a buffer
// first so a failed encode can still produce a clean 500 instead of a
// half-written response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		slog.Error("encoding JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common; not worth more than debug.
		slog.Debug("writing response body", "error", err)
	}
}

// errorResponse is the JSON shape of every error reply.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writePipelineError maps pipeline sentinel errors onto HTTP status
// codes. Upstream dependency failures surface as 502 so callers can
// tell them apart from bugs in this service.
func writePipelineError(w http.ResponseWriter, err error, logger *slog.Logger) {
	switch {
	case errors.Is(err, knowledge.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, knowledge.ErrEmbedding):
		logger.Error("embedding failure", "error", err)
		writeError(w, http.StatusBadGateway, "embedding_failed", "embedding provider failed")
	case errors.Is(err, knowledge.ErrRetrieval):
		logger.Error("retrieval failure", "error", err)
		writeError(w, http.StatusBadGateway, "retrieval_failed", "vector search failed")
	case errors.Is(err, knowledge.ErrPermission):
		logger.Error("permission failure", "error", err)
		writeError(w, http.StatusBadGateway, "permission_failed", "permission service failed")
	case errors.Is(err, knowledge.ErrGeneration):
		logger.Error("generation failure", "error", err)
		writeError(w, http.StatusBadGateway, "generation_failed", "answer generation failed")
	default:
		logger.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
