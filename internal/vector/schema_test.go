package vector

import (
	"context"
	"testing"

	"github.com/weaviate/weaviate/entities/models"
)

type MockSchemaClient struct {
	CreatedClass    *models.Class
	ExistingClass   *models.Class
	AddedProperties []*models.Property
}

func (m *MockSchemaClient) ClassExists(ctx context.Context, className string) (bool, error) {
	return m.ExistingClass != nil, nil
}

func (m *MockSchemaClient) CreateClass(ctx context.Context, class *models.Class) error {
	m.CreatedClass = class
	return nil
}

func (m *MockSchemaClient) GetClass(ctx context.Context, className string) (*models.Class, error) {
	return m.ExistingClass, nil
}

func (m *MockSchemaClient) AddProperty(ctx context.Context, className string, property *models.Property) error {
	m.AddedProperties = append(m.AddedProperties, property)
	return nil
}

func TestEnsureCollection_CreatesClass(t *testing.T) {
	client := &MockSchemaClient{}
	if err := EnsureCollection(context.Background(), client); err != nil {
		t.Fatalf("EnsureCollection failed: %v", err)
	}

	if client.CreatedClass == nil {
		t.Fatal("class not created")
	}
	if client.CreatedClass.Class != ClassName {
		t.Errorf("unexpected class name %q", client.CreatedClass.Class)
	}
	if client.CreatedClass.Vectorizer != "none" {
		t.Errorf("vectorizer should be none, got %q", client.CreatedClass.Vectorizer)
	}

	expected := map[string]string{
		"text":       "text",
		"sourceId":   "string",
		"pageNumber": "int",
		"totalPages": "int",
		"segment":    "int",
	}
	found := map[string]bool{}
	for _, prop := range client.CreatedClass.Properties {
		if dt, ok := expected[prop.Name]; ok {
			found[prop.Name] = true
			if len(prop.DataType) == 0 || prop.DataType[0] != dt {
				t.Errorf("property %s has DataType %v, expected %s", prop.Name, prop.DataType, dt)
			}
		}
	}
	for name := range expected {
		if !found[name] {
			t.Errorf("property %s missing from created class", name)
		}
	}
}

func TestEnsureCollection_AddsMissingProperties(t *testing.T) {
	existing := &models.Class{
		Class: ClassName,
		Properties: []*models.Property{
			{Name: "text", DataType: []string{"text"}},
			{Name: "sourceId", DataType: []string{"string"}},
		},
	}
	client := &MockSchemaClient{ExistingClass: existing}

	if err := EnsureCollection(context.Background(), client); err != nil {
		t.Fatalf("EnsureCollection failed: %v", err)
	}

	added := map[string]bool{}
	for _, p := range client.AddedProperties {
		added[p.Name] = true
	}
	for _, want := range []string{"pageNumber", "totalPages", "segment"} {
		if !added[want] {
			t.Errorf("missing property %s was not added", want)
		}
	}
	if added["text"] || added["sourceId"] {
		t.Error("existing properties should not be re-added")
	}
}

func TestEnsureCollection_Idempotent(t *testing.T) {
	client := &MockSchemaClient{}
	if err := EnsureCollection(context.Background(), client); err != nil {
		t.Fatal(err)
	}

	// Second run against the class the first run created.
	client2 := &MockSchemaClient{ExistingClass: client.CreatedClass}
	if err := EnsureCollection(context.Background(), client2); err != nil {
		t.Fatal(err)
	}
	if len(client2.AddedProperties) != 0 {
		t.Errorf("no properties should be added on second run, got %d", len(client2.AddedProperties))
	}
}
