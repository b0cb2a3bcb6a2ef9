package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

// ClassName is the collection holding one logical corpus of document pages.
const ClassName = "DocumentPage"

// SchemaClient is the subset of Weaviate schema operations needed here.
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// EnsureCollection creates the DocumentPage class if missing and backfills any
// missing properties on an existing class. Idempotent; safe to run on every
// startup. Vectors come pre-computed from the embedding provider, so the
// vectorizer is "none" and the embedding dimension is fixed by whatever the
// provider emits.
func EnsureCollection(ctx context.Context, client SchemaClient) error {
	exists, err := client.ClassExists(ctx, ClassName)
	if err != nil {
		return err
	}

	properties := []*models.Property{
		{
			Name:     "text",
			DataType: []string{"text"},
		},
		{
			Name:     "sourceId",
			DataType: []string{"string"}, // content hash, exact match
		},
		{
			Name:     "pageNumber",
			DataType: []string{"int"},
		},
		{
			Name:     "totalPages",
			DataType: []string{"int"},
		},
		{
			Name:     "segment",
			DataType: []string{"int"},
		},
		{
			Name:     "fileName",
			DataType: []string{"string"},
		},
	}

	if !exists {
		class := &models.Class{
			Class:       ClassName,
			Description: "A segment of one page of an ingested document",
			Vectorizer:  "none",
			Properties:  properties,
		}
		return client.CreateClass(ctx, class)
	}

	class, err := client.GetClass(ctx, ClassName)
	if err != nil {
		return err
	}

	existing := make(map[string]bool)
	for _, p := range class.Properties {
		existing[p.Name] = true
	}

	for _, p := range properties {
		if !existing[p.Name] {
			if err := client.AddProperty(ctx, ClassName, p); err != nil {
				return err
			}
		}
	}

	return nil
}
