// Package nsqqueue adapts NSQ's push-based delivery to the claim-based
// queue.Queue contract. Messages are parked on a channel with auto-response
// disabled; they stay in-flight on the broker until the claimer resolves them,
// so a crashed worker's jobs are redelivered after the message timeout.
package nsqqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"docchat/internal/queue"
)

const (
	// Topic carries ingestion jobs from the upload service to the worker pool.
	Topic = "ingest.task"
	// Channel is the competing-consumers channel: every worker process joins
	// the same channel, so each job is claimed by exactly one of them.
	Channel = "ingestion-worker"
)

type Config struct {
	NSQDAddr     string
	LookupdAddr  string
	Concurrency  int
	RequeueDelay time.Duration
}

type Queue struct {
	producer   *nsq.Producer
	consumer   *nsq.Consumer
	deliveries chan *queue.Delivery
	requeue    time.Duration
}

func New(cfg Config) (*Queue, error) {
	nsqCfg := nsq.NewConfig()
	producer, err := nsq.NewProducer(cfg.NSQDAddr, nsqCfg)
	if err != nil {
		return nil, fmt.Errorf("create nsq producer: %w", err)
	}

	consumerCfg := nsq.NewConfig()
	consumerCfg.MaxInFlight = cfg.Concurrency
	// Retry exhaustion is enforced by the worker (dead-letter table), not by
	// the broker discarding messages.
	consumerCfg.MaxAttempts = 0

	consumer, err := nsq.NewConsumer(Topic, Channel, consumerCfg)
	if err != nil {
		return nil, fmt.Errorf("create nsq consumer: %w", err)
	}

	requeue := cfg.RequeueDelay
	if requeue <= 0 {
		requeue = -1 // broker-calculated backoff
	}

	q := &Queue{
		producer:   producer,
		consumer:   consumer,
		deliveries: make(chan *queue.Delivery, cfg.Concurrency),
		requeue:    requeue,
	}
	consumer.AddHandler(nsq.HandlerFunc(q.handle))

	if cfg.LookupdAddr != "" {
		if err := consumer.ConnectToNSQLookupd(cfg.LookupdAddr); err != nil {
			return nil, fmt.Errorf("connect to nsqlookupd: %w", err)
		}
	} else {
		if err := consumer.ConnectToNSQD(cfg.NSQDAddr); err != nil {
			return nil, fmt.Errorf("connect to nsqd: %w", err)
		}
	}

	return q, nil
}

func (q *Queue) Enqueue(ctx context.Context, job queue.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.producer.Publish(Topic, body); err != nil {
		return fmt.Errorf("publish to %s: %w", Topic, err)
	}
	return nil
}

func (q *Queue) Claim(ctx context.Context) (*queue.Delivery, error) {
	select {
	case d, ok := <-q.deliveries:
		if !ok {
			return nil, queue.ErrClosed
		}
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// handle parks the message for a claimer. Returning nil with auto-response
// disabled keeps the message in-flight; Finish/Requeue happen on Ack/Nack.
func (q *Queue) handle(m *nsq.Message) error {
	m.DisableAutoResponse()

	var job queue.Job
	err := json.Unmarshal(m.Body, &job)
	if err != nil {
		slog.Error("malformed job payload", "error", err, "attempts", m.Attempts)
	}

	delay := q.requeue
	q.deliveries <- queue.NewDelivery(job, m.Body, m.Attempts, err,
		func() { m.Finish() },
		func() { m.Requeue(delay) },
	)
	return nil
}

func (q *Queue) Close() {
	q.consumer.Stop()
	<-q.consumer.StopChan
	q.producer.Stop()
	close(q.deliveries)
}
