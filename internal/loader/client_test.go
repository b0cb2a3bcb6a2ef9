package loader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stagedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ReturnsOrderedPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract", r.URL.Path)
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "doc.pdf", header.Filename)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"pages": []map[string]interface{}{
				{"text": "page one", "page_number": 1, "total_pages": 3},
				{"text": "page two", "page_number": 2, "total_pages": 3},
				{"text": "page three", "page_number": 3, "total_pages": 3},
			},
		})
	}))
	defer srv.Close()

	pages, err := NewClient(srv.URL).Load(context.Background(), stagedFile(t, "%PDF-1.4"))
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "page one", pages[0].Text)
	assert.Equal(t, 2, pages[1].PageNumber)
	assert.Equal(t, 3, pages[2].TotalPages)
}

func TestLoad_FillsMissingPositions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"pages": []map[string]interface{}{
				{"text": "a"},
				{"text": "b"},
			},
		})
	}))
	defer srv.Close()

	pages, err := NewClient(srv.URL).Load(context.Background(), stagedFile(t, "x"))
	require.NoError(t, err)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, 2, pages[1].PageNumber)
	assert.Equal(t, 2, pages[0].TotalPages)
}

func TestLoad_CorruptFileIsUnreadable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Load(context.Background(), stagedFile(t, "not a pdf"))
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewClient("http://unused").Load(context.Background(), "/nonexistent/doc.pdf")
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestLoad_EmptyExtraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"pages": []interface{}{}})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Load(context.Background(), stagedFile(t, "x"))
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestLoad_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Load(context.Background(), stagedFile(t, "x"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnreadable)
}
