// Package memqueue is an in-process queue.Queue with the same at-least-once
// semantics as the NSQ adapter. It backs the worker pool tests and local
// development without a broker.
package memqueue

import (
	"context"
	"encoding/json"
	"sync"

	"docchat/internal/queue"
)

type item struct {
	body     []byte
	attempts uint16
}

type Queue struct {
	mu     sync.Mutex
	items  []*item
	notify chan struct{}
	done   chan struct{}
	closed bool
}

func New() *Queue {
	return &Queue{notify: make(chan struct{}, 1), done: make(chan struct{})}
}

func (q *Queue) Enqueue(ctx context.Context, job queue.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.push(&item{body: body})
}

// EnqueueRaw injects an arbitrary payload, mirroring what a foreign producer
// could publish to the broker. Used to exercise poison-pill handling.
func (q *Queue) EnqueueRaw(body []byte) error {
	return q.push(&item{body: body})
}

func (q *Queue) push(it *item) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return queue.ErrClosed
	}
	q.items = append(q.items, it)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *Queue) Claim(ctx context.Context) (*queue.Delivery, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, queue.ErrClosed
		}
		if len(q.items) > 0 {
			it := q.items[0]
			q.items = q.items[1:]
			if len(q.items) > 0 {
				select {
				case q.notify <- struct{}{}:
				default:
				}
			}
			q.mu.Unlock()

			it.attempts++
			var job queue.Job
			err := json.Unmarshal(it.body, &job)
			return queue.NewDelivery(job, it.body, it.attempts, err,
				func() {},
				func() { _ = q.push(it) },
			), nil
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-q.done:
			return nil, queue.ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}

// Len reports pending (unclaimed) jobs. Test helper.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
