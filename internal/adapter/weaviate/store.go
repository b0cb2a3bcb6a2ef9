package weaviate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"docchat/internal/retrieval"
	"docchat/internal/vector"
	"docchat/internal/worker"
)

// maxTopK bounds nearest-neighbour queries; larger k degrades prompt quality
// and latency without improving answers.
const maxTopK = 20

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// Upsert writes all records in one batch call. Object ids are the records'
// deterministic ids, so Weaviate overwrites on re-ingestion instead of
// growing the collection.
func (s *Store) Upsert(ctx context.Context, records []worker.Record) error {
	if len(records) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(records))
	for _, rec := range records {
		objects = append(objects, &models.Object{
			Class: vector.ClassName,
			ID:    strfmt.UUID(rec.ID),
			Properties: map[string]interface{}{
				"text":       rec.Text,
				"sourceId":   rec.SourceID,
				"fileName":   rec.FileName,
				"pageNumber": rec.PageNumber,
				"totalPages": rec.TotalPages,
				"segment":    rec.Segment,
			},
			Vector: rec.Vector,
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("batch upsert: %w", err)
	}
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch upsert: %s", obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// DeleteBySourceID removes every record of one corpus.
func (s *Store) DeleteBySourceID(ctx context.Context, sourceID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"sourceId"}).
			WithOperator(filters.Equal).
			WithValueString(sourceID)).
		Do(ctx)
	return err
}

// Query returns the k nearest records, highest similarity first. Ties break
// on the lowest page number, then retrieval order, so results are stable.
func (s *Store) Query(ctx context.Context, queryVector []float32, k int) ([]retrieval.SearchResult, error) {
	if k < 1 {
		k = 1
	}
	if k > maxTopK {
		k = maxTopK
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(queryVector)

	fields := []graphql.Field{
		{Name: "text"},
		{Name: "sourceId"},
		{Name: "fileName"},
		{Name: "pageNumber"},
		{Name: "totalPages"},
		{Name: "segment"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(k).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		if isMissingClassError(res.Errors) {
			return nil, retrieval.ErrNoCorpus
		}
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	results := parseResults(res.Data)
	rankResults(results)
	return results, nil
}

func isMissingClassError(errs []*models.GraphQLError) bool {
	for _, e := range errs {
		msg := strings.ToLower(e.Message)
		if strings.Contains(msg, strings.ToLower(vector.ClassName)) &&
			(strings.Contains(msg, "cannot query field") || strings.Contains(msg, "could not find class")) {
			return true
		}
	}
	return false
}

// parseResults decodes the untyped GraphQL response. Numbers arrive as
// float64, certainty sometimes as a string depending on server version.
func parseResults(data map[string]models.JSONObject) []retrieval.SearchResult {
	var results []retrieval.SearchResult

	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return results
	}
	rows, ok := get[vector.ClassName].([]interface{})
	if !ok {
		return results
	}

	for _, row := range rows {
		props, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		r := retrieval.SearchResult{}
		if v, ok := props["text"].(string); ok {
			r.Text = v
		}
		if v, ok := props["sourceId"].(string); ok {
			r.SourceID = v
		}
		if v, ok := props["fileName"].(string); ok {
			r.FileName = v
		}
		if v, ok := props["pageNumber"].(float64); ok {
			r.PageNumber = int(v)
		}
		if v, ok := props["totalPages"].(float64); ok {
			r.TotalPages = int(v)
		}
		if v, ok := props["segment"].(float64); ok {
			r.Segment = int(v)
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if id, ok := additional["id"].(string); ok {
				r.ID = id
			}
			switch c := additional["certainty"].(type) {
			case float64:
				r.Score = float32(c)
			case string:
				var f float64
				fmt.Sscanf(c, "%f", &f)
				r.Score = float32(f)
			}
		}
		results = append(results, r)
	}
	return results
}

// rankResults sorts by descending score with a deterministic tie-break:
// lowest page number first, original order last.
func rankResults(results []retrieval.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PageNumber < results[j].PageNumber
	})
}
