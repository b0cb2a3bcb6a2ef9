// Package upload accepts a document, stages it to durable storage and
// enqueues exactly one ingestion job. It never blocks on ingestion itself.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"docchat/features/document"
	"docchat/internal/middleware"
	"docchat/internal/queue"
)

// StagedFile describes a file already written to staging storage.
type StagedFile struct {
	Path string
	Name string
	Size int64
	// ContentHash is the hex sha256 of the file bytes. It becomes the
	// corpus identity (sourceId): identical content re-uploaded under any
	// name converges to the same vector records.
	ContentHash string
	Dir         string
}

type Service struct {
	docs document.Repository
	q    queue.Queue
}

func NewService(docs document.Repository, q queue.Queue) *Service {
	return &Service{docs: docs, q: q}
}

// Enqueue registers the staged file and publishes its ingestion job. If the
// queue is unavailable the registry row is rolled back and the caller is
// expected to remove the staged file, so no orphaned state survives.
func (s *Service) Enqueue(ctx context.Context, staged StagedFile) (*document.Document, error) {
	doc := &document.Document{
		Name:        staged.Name,
		Path:        staged.Path,
		ContentHash: staged.ContentHash,
		SizeBytes:   staged.Size,
		Status:      document.StatusQueued,
	}
	if err := s.docs.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	job := queue.Job{
		ID:              uuid.New().String(),
		DocumentID:      doc.ID,
		SourceID:        staged.ContentHash,
		FilePath:        staged.Path,
		FileName:        staged.Name,
		FileSize:        staged.Size,
		FileDestination: staged.Dir,
		EnqueuedAt:      time.Now().UTC(),
		CorrelationID:   middleware.GetCorrelationID(ctx),
	}

	if err := s.q.Enqueue(ctx, job); err != nil {
		if delErr := s.docs.Delete(ctx, doc.ID); delErr != nil {
			slog.WarnContext(ctx, "failed to roll back document row", "error", delErr, "document_id", doc.ID)
		}
		return nil, fmt.Errorf("enqueue ingestion job: %w", err)
	}

	slog.InfoContext(ctx, "ingestion job enqueued", "job_id", job.ID, "document_id", doc.ID, "file", staged.Name, "size", staged.Size)
	return doc, nil
}
