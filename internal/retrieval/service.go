package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrNoCorpus is returned by the vector store when the collection does not
// exist yet, i.e. nothing has ever been ingested. Callers turn this into a
// "no document ingested yet" answer instead of a generic failure.
var ErrNoCorpus = errors.New("no document ingested yet")

// SearchResult is one retrieved record: the stored text plus the positional
// metadata it was derived from, in the shape the chat client renders as a
// citation.
type SearchResult struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	SourceID   string  `json:"sourceId"`
	FileName   string  `json:"fileName,omitempty"`
	PageNumber int     `json:"pageNumber"`
	TotalPages int     `json:"totalPages"`
	Segment    int     `json:"segment"`
	Score      float32 `json:"score"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Answer is the grounded response: generated text plus the records that
// grounded it, in retrieval rank order.
type Answer struct {
	Text     string
	Docs     []SearchResult
	Degraded bool
}

const (
	noCorpusAnswer = "No document has been ingested yet. Upload a document first, then ask again."
	degradedAnswer = "Sorry, the question could not be processed right now. Please try again."
)

type Service struct {
	embedder  Embedder
	store     VectorStore
	generator Generator
	logger    *QueryLogger
	topK      int
}

func NewService(e Embedder, s VectorStore, g Generator, l *QueryLogger, topK int) *Service {
	if topK < 1 {
		topK = 4
	}
	return &Service{embedder: e, store: s, generator: g, logger: l, topK: topK}
}

// Ask runs the full pipeline: embed the question, retrieve the nearest
// segments, compose a grounded prompt and generate the answer. The returned
// Docs are exactly the retrieved records in rank order, so citations always
// match what the model saw.
func (s *Service) Ask(ctx context.Context, query string) (*Answer, error) {
	start := time.Now()
	var answer *Answer

	defer func() {
		if s.logger != nil && answer != nil {
			s.logger.Log(QueryLogEntry{
				Query:      query,
				NumResults: len(answer.Docs),
				Degraded:   answer.Degraded,
				Duration:   time.Since(start),
			})
		}
	}()

	// 1. Embed. Provider hiccups are common enough to warrant one retry.
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		slog.WarnContext(ctx, "query embedding failed, retrying once", "error", err)
		vec, err = s.embedder.Embed(ctx, query)
		if err != nil {
			return nil, err
		}
	}

	// 2. Retrieve. Zero hits is a valid outcome and still goes to the model
	// with an empty-context instruction, so it says "not found" rather than
	// inventing an answer.
	docs, err := s.store.Query(ctx, vec, s.topK)
	if err != nil {
		if errors.Is(err, ErrNoCorpus) {
			answer = &Answer{Text: noCorpusAnswer, Docs: []SearchResult{}}
			return answer, nil
		}
		return nil, err
	}
	if docs == nil {
		docs = []SearchResult{}
	}

	// 3+4. Compose and generate.
	prompt := BuildPrompt(query, docs)
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		slog.ErrorContext(ctx, "generation failed, returning degraded answer", "error", err)
		answer = &Answer{Text: degradedAnswer, Docs: docs, Degraded: true}
		return answer, nil
	}

	answer = &Answer{Text: text, Docs: docs}
	return answer, nil
}
