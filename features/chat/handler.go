// Package chat exposes the question answering endpoint. The heavy lifting
// lives in internal/retrieval; this layer only validates input and shapes
// the HTTP response.
package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"docchat/internal/retrieval"
)

type Asker interface {
	Ask(ctx context.Context, query string) (*retrieval.Answer, error)
}

type Handler struct {
	service Asker
}

func NewHandler(service Asker) *Handler {
	return &Handler{service: service}
}

type askRequest struct {
	Query string `json:"query"`
}

type askResponse struct {
	Response string                   `json:"response"`
	Docs     []retrieval.SearchResult `json:"docs"`
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", "Invalid request body", http.StatusBadRequest)
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		h.writeError(ctx, w, "VALIDATION_ERROR", "Query is required", http.StatusBadRequest)
		return
	}

	answer, err := h.service.Ask(ctx, query)
	if err != nil {
		slog.ErrorContext(ctx, "failed to answer query", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Failed to process query", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := askResponse{Response: answer.Text, Docs: answer.Docs}
	if resp.Docs == nil {
		resp.Docs = []retrieval.SearchResult{}
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode error response", "error", err)
	}
}
