package deadletter_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/features/deadletter"
	"docchat/internal/testutils"
)

func TestDeadLetterRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	repo := deadletter.NewPostgresRepo(s.DB)
	ctx := context.Background()

	j1 := &deadletter.Job{
		SourceID: "hash-1",
		Handler:  "ingestion-worker",
		Payload:  json.RawMessage(`{"jobId":"a"}`),
		Error:    "loader timeout",
		Attempts: 3,
	}
	require.NoError(t, repo.Save(ctx, j1))
	require.NotEmpty(t, j1.ID)

	time.Sleep(100 * time.Millisecond)

	j2 := &deadletter.Job{
		SourceID: "hash-2",
		Handler:  "ingestion-worker",
		Payload:  json.RawMessage(`{"jobId":"b"}`),
		Error:    "document unreadable",
		Attempts: 1,
	}
	require.NoError(t, repo.Save(ctx, j2))

	// Newest first.
	jobs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, j2.ID, jobs[0].ID)
	assert.Equal(t, j1.ID, jobs[1].ID)

	got, err := repo.Get(ctx, j1.ID)
	require.NoError(t, err)
	assert.Equal(t, "loader timeout", got.Error)
	assert.JSONEq(t, `{"jobId":"a"}`, string(got.Payload))

	require.NoError(t, repo.Delete(ctx, j1.ID))
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
