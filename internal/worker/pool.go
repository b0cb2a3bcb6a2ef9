package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"docchat/features/deadletter"
	"docchat/internal/loader"
	"docchat/internal/middleware"
	"docchat/internal/queue"
	"docchat/internal/text"
)

const handlerName = "ingestion-worker"

type DeadLetterer interface {
	Save(ctx context.Context, job *deadletter.Job) error
}

type Config struct {
	// Concurrency is the fixed worker count. It bounds in-flight embedding
	// and index calls, which is the backpressure knob against provider
	// overload.
	Concurrency  int
	MaxAttempts  int
	ChunkSize    int
	ChunkOverlap int
}

// Pool is a fixed-size set of competing consumers over the ingestion queue.
// Each worker claims one job at a time and drives it through
// load -> embed -> upsert, acknowledging only on success.
type Pool struct {
	queue       queue.Queue
	loader      Loader
	embedder    Embedder
	store       VectorStore
	docs        DocumentTracker
	deadLetters DeadLetterer
	cfg         Config
}

func NewPool(q queue.Queue, l Loader, e Embedder, s VectorStore, docs DocumentTracker, dl DeadLetterer, cfg Config) *Pool {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1200
	}
	return &Pool{queue: q, loader: l, embedder: e, store: s, docs: docs, deadLetters: dl, cfg: cfg}
}

// Run blocks until ctx is cancelled and all workers have drained their
// current job. In-flight deliveries left unresolved at a crash are redelivered
// by the queue, not lost.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int) {
	for {
		d, err := p.queue.Claim(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, queue.ErrClosed) {
				slog.Error("claim failed", "worker", id, "error", err)
			}
			return
		}
		p.handle(ctx, d)
	}
}

func (p *Pool) handle(ctx context.Context, d *queue.Delivery) {
	if d.Job.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, d.Job.CorrelationID)
	}

	// Poison pill: an undecodable payload will never succeed, park it
	// immediately for inspection.
	if d.Err != nil {
		slog.ErrorContext(ctx, "malformed job payload, dead-lettering", "error", d.Err)
		if p.deadLetter(ctx, d, fmt.Errorf("malformed job payload: %w", d.Err)) {
			d.Ack()
		} else {
			d.Nack()
		}
		return
	}

	job := d.Job
	slog.InfoContext(ctx, "job claimed", "job_id", job.ID, "file", job.FileName, "attempt", d.Attempts)

	if job.DocumentID != "" {
		if err := p.docs.UpdateStatus(ctx, job.DocumentID, "processing"); err != nil {
			slog.WarnContext(ctx, "failed to mark document processing", "error", err)
		}
	}

	if err := p.ingest(ctx, job); err != nil {
		p.fail(ctx, d, err)
		return
	}

	if job.DocumentID != "" {
		if err := p.docs.UpdateStatus(ctx, job.DocumentID, "completed"); err != nil {
			slog.WarnContext(ctx, "failed to mark document completed", "error", err)
		}
	}
	slog.InfoContext(ctx, "job completed", "job_id", job.ID, "file", job.FileName)
	d.Ack()
}

// ingest runs one job end to end. Record ids are derived from the job's
// sourceId plus each segment's position, so running the same job twice
// converges to the same index state.
func (p *Pool) ingest(ctx context.Context, job queue.Job) error {
	loadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	pages, err := p.loader.Load(loadCtx, job.FilePath)
	cancel()
	if err != nil {
		return fmt.Errorf("load %s: %w", job.FileName, err)
	}

	var records []Record
	for _, page := range pages {
		segments := text.ChunkText(page.Text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
		for i, seg := range segments {
			vec, err := p.embed(ctx, seg)
			if err != nil {
				return fmt.Errorf("embed page %d segment %d: %w", page.PageNumber, i, err)
			}
			records = append(records, Record{
				ID:         DeterministicID(job.SourceID, page.PageNumber, i),
				Vector:     vec,
				Text:       seg,
				SourceID:   job.SourceID,
				FileName:   job.FileName,
				PageNumber: page.PageNumber,
				TotalPages: page.TotalPages,
				Segment:    i,
			})
		}
	}

	upsertCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := p.store.Upsert(upsertCtx, records); err != nil {
		return fmt.Errorf("upsert %d records: %w", len(records), err)
	}

	slog.InfoContext(ctx, "records upserted", "job_id", job.ID, "pages", len(pages), "records", len(records))
	return nil
}

func (p *Pool) embed(ctx context.Context, content string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	return p.embedder.Embed(embedCtx, content)
}

// fail routes a processing error: unreadable files never get better on
// retry, so they dead-letter immediately; transient dependency errors are
// nacked for redelivery until the attempt budget runs out.
func (p *Pool) fail(ctx context.Context, d *queue.Delivery, cause error) {
	exhausted := int(d.Attempts) >= p.cfg.MaxAttempts
	unreadable := errors.Is(cause, loader.ErrUnreadable)

	if !exhausted && !unreadable {
		slog.WarnContext(ctx, "job failed, requeueing", "job_id", d.Job.ID, "attempt", d.Attempts, "error", cause)
		d.Nack()
		return
	}

	slog.ErrorContext(ctx, "job failed terminally, dead-lettering", "job_id", d.Job.ID, "attempt", d.Attempts, "error", cause)
	if !p.deadLetter(ctx, d, cause) {
		// The dead-letter store itself is down. Requeue rather than drop.
		d.Nack()
		return
	}

	if d.Job.DocumentID != "" {
		if err := p.docs.UpdateStatus(ctx, d.Job.DocumentID, "failed"); err != nil {
			slog.WarnContext(ctx, "failed to mark document failed", "error", err)
		}
	}
	d.Ack()
}

func (p *Pool) deadLetter(ctx context.Context, d *queue.Delivery, cause error) bool {
	dead := &deadletter.Job{
		SourceID: d.Job.SourceID,
		Handler:  handlerName,
		Payload:  d.Body,
		Error:    cause.Error(),
		Attempts: int(d.Attempts),
	}
	if err := p.deadLetters.Save(ctx, dead); err != nil {
		slog.ErrorContext(ctx, "failed to save dead-letter job", "error", err)
		return false
	}
	return true
}
