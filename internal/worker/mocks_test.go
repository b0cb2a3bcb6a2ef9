package worker

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"docchat/features/deadletter"
	"docchat/internal/loader"
)

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context, path string) ([]loader.Page, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]loader.Page), args.Error(1)
}

type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) UpdateStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockDeadLetterer struct {
	mock.Mock
}

func (m *MockDeadLetterer) Save(ctx context.Context, job *deadletter.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// fakeEmbedder returns a tiny fixed-dimension vector derived from the text
// length so records stay distinguishable without a provider.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, content string) ([]float32, error) {
	return []float32{float32(len(content)), 1, 0}, nil
}

type failingEmbedder struct{ err error }

func (f failingEmbedder) Embed(ctx context.Context, content string) ([]float32, error) {
	return nil, f.err
}

// captureStore records every upsert batch.
type captureStore struct {
	mu      sync.Mutex
	batches [][]Record
	err     error
}

func (s *captureStore) Upsert(ctx context.Context, records []Record) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := make([]Record, len(records))
	copy(batch, records)
	s.batches = append(s.batches, batch)
	return nil
}

func (s *captureStore) all() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}
