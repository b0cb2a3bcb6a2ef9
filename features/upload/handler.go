package upload

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Handler struct {
	service   *Service
	uploadDir string
	maxSizeMB int64
}

func NewHandler(service *Service, uploadDir string, maxSizeMB int64) *Handler {
	return &Handler{service: service, uploadDir: uploadDir, maxSizeMB: maxSizeMB}
}

// Upload accepts a multipart PDF, stages it and queues ingestion. Responds
// 202 immediately; ingestion progress is visible on the documents endpoint.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	maxBytes := h.maxSizeMB << 20

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(ctx, w, "PAYLOAD_TOO_LARGE", "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(ctx, w, "VALIDATION_ERROR", "Invalid multipart body", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Format check happens before any storage I/O.
	if !acceptedFormat(header.Filename, header.Header.Get("Content-Type")) {
		h.writeError(ctx, w, "VALIDATION_ERROR", "Only PDF files are accepted", http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		slog.ErrorContext(ctx, "failed to create upload directory", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Failed to stage file", http.StatusInternalServerError)
		return
	}

	// Collision-resistant staging name keeps the original for display.
	filename := fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(header.Filename))
	path := filepath.Clean(filepath.Join(h.uploadDir, filename))

	dst, err := os.Create(path) // #nosec G304 -- path is uuid + sanitized basename
	if err != nil {
		slog.ErrorContext(ctx, "failed to create staged file", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Failed to stage file", http.StatusInternalServerError)
		return
	}

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(dst, hash), file)
	closeErr := dst.Close()
	if err != nil || closeErr != nil {
		h.cleanup(ctx, path)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Failed to write file", http.StatusInternalServerError)
		return
	}

	staged := StagedFile{
		Path:        path,
		Name:        filepath.Base(header.Filename),
		Size:        size,
		ContentHash: fmt.Sprintf("%x", hash.Sum(nil)),
		Dir:         h.uploadDir,
	}

	if _, err := h.service.Enqueue(ctx, staged); err != nil {
		// Avoid orphaned staging storage when the queue is down.
		h.cleanup(ctx, path)
		slog.ErrorContext(ctx, "upload rejected", "error", err, "file", staged.Name)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Failed to queue ingestion", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "queued"}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func acceptedFormat(filename, contentType string) bool {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return false
	}
	// Browsers send application/pdf; curl and tests may omit it.
	if contentType != "" && contentType != "application/pdf" && contentType != "application/octet-stream" {
		return false
	}
	return true
}

func (h *Handler) cleanup(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil {
		slog.WarnContext(ctx, "failed to clean up staged file", "error", err)
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
