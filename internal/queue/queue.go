// Package queue defines the ingestion work distribution contract: a durable,
// at-least-once queue with explicit enqueue/claim/ack/nack operations. The
// worker pool only depends on this interface, so it runs identically against
// the NSQ-backed implementation and the in-memory one used in tests.
package queue

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("queue closed")

// Job is the wire payload for one ingestion task. A job references a staged
// file; it never carries the file content itself.
type Job struct {
	ID         string `json:"jobId"`
	DocumentID string `json:"documentId"`
	// SourceID is the corpus identity of the file: hex sha256 of its content.
	// Record ids are derived from it, which is what makes redelivery converge.
	SourceID string `json:"sourceId"`

	FilePath        string `json:"filePath"`
	FileName        string `json:"fileName"`
	FileSize        int64  `json:"fileSize"`
	FileDestination string `json:"fileDestination"`

	EnqueuedAt    time.Time `json:"enqueuedAt"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Delivery is one at-least-once delivery of a job. The claimer must resolve
// it with exactly one of Ack or Nack; an unresolved delivery is redelivered
// by the broker once its in-flight timeout expires (worker crash safety).
type Delivery struct {
	Job Job
	// Err is set when the payload could not be decoded. Such deliveries are
	// poison pills: Body still holds the raw payload for dead-lettering.
	Err  error
	Body []byte
	// Attempts counts deliveries of this message, including this one.
	Attempts uint16

	ackFn  func()
	nackFn func()
}

// NewDelivery is used by Queue implementations (and tests) to construct a
// delivery with its resolution callbacks.
func NewDelivery(job Job, body []byte, attempts uint16, err error, ack, nack func()) *Delivery {
	return &Delivery{Job: job, Body: body, Attempts: attempts, Err: err, ackFn: ack, nackFn: nack}
}

// Ack marks the job as logically consumed. The broker destroys it.
func (d *Delivery) Ack() {
	if d.ackFn != nil {
		d.ackFn()
	}
}

// Nack returns the job to the queue for redelivery with broker backoff.
func (d *Delivery) Nack() {
	if d.nackFn != nil {
		d.nackFn()
	}
}

type Queue interface {
	// Enqueue publishes one job. Fire-and-forget: it does not wait for a
	// consumer to pick the job up.
	Enqueue(ctx context.Context, job Job) error
	// Claim blocks until a delivery is available or ctx is done.
	Claim(ctx context.Context) (*Delivery, error)
}
