package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"docchat/internal/loader"
)

// Record is one embedded segment ready for the vector index. Its ID is
// derived from (sourceId, pageNumber, segment), never auto-generated, so
// re-ingesting the same content overwrites instead of duplicating.
type Record struct {
	ID         string
	Vector     []float32
	Text       string
	SourceID   string
	FileName   string
	PageNumber int
	TotalPages int
	Segment    int
}

// DeterministicID maps a record's position in its corpus to a stable UUID.
// This is the idempotency mechanism for at-least-once job delivery.
func DeterministicID(sourceID string, pageNumber, segment int) string {
	name := fmt.Sprintf("%s:%d:%d", sourceID, pageNumber, segment)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

type Loader interface {
	Load(ctx context.Context, path string) ([]loader.Page, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	// Upsert writes all records in one batch, overwriting by id.
	Upsert(ctx context.Context, records []Record) error
}

// DocumentTracker reflects ingestion progress into the document registry so
// completion and failure are observable outside the chat pipeline.
type DocumentTracker interface {
	UpdateStatus(ctx context.Context, id, status string) error
}
