// Package deadletter is the terminal parking lot for ingestion jobs that
// exhausted their retries. Rows are held for inspection and manual retry,
// never silently dropped.
package deadletter

import (
	"encoding/json"
	"time"
)

type Job struct {
	ID        string          `json:"id"`
	SourceID  string          `json:"source_id"`
	Handler   string          `json:"handler"`
	Payload   json.RawMessage `json:"payload"`
	Error     string          `json:"error"`
	Attempts  int             `json:"attempts"`
	CreatedAt time.Time       `json:"created_at"`
}
