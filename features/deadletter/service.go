package deadletter

import (
	"context"
	"encoding/json"
	"fmt"

	"docchat/internal/queue"
)

type Service struct {
	repo Repository
	q    queue.Queue
}

func NewService(repo Repository, q queue.Queue) *Service {
	return &Service{repo: repo, q: q}
}

func (s *Service) List(ctx context.Context) ([]Job, error) {
	return s.repo.List(ctx)
}

// Retry re-enqueues the original job payload and removes the dead-letter row
// only once the enqueue succeeded, so a broker outage never loses the job.
func (s *Service) Retry(ctx context.Context, id string) error {
	dead, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	var job queue.Job
	if err := json.Unmarshal(dead.Payload, &job); err != nil {
		return fmt.Errorf("dead-letter payload is not a valid job: %w", err)
	}

	if err := s.q.Enqueue(ctx, job); err != nil {
		return err
	}

	return s.repo.Delete(ctx, id)
}
