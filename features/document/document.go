// Package document is the registry of uploaded files and their ingestion
// state. It makes ingestion progress observable without touching the chat
// pipeline: queued -> processing -> completed | failed.
package document

import "time"

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Path        string    `json:"-"`
	ContentHash string    `json:"-"`
	SizeBytes   int64     `json:"size_bytes"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
