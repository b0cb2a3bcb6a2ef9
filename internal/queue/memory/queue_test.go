package memqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/queue"
)

func TestEnqueueClaim(t *testing.T) {
	q := New()
	ctx := context.Background()

	job := queue.Job{ID: "j1", FilePath: "/tmp/a.pdf", FileName: "a.pdf", FileSize: 42}
	require.NoError(t, q.Enqueue(ctx, job))

	d, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.NoError(t, d.Err)
	assert.Equal(t, "j1", d.Job.ID)
	assert.Equal(t, "a.pdf", d.Job.FileName)
	assert.Equal(t, uint16(1), d.Attempts)

	d.Ack()
	assert.Equal(t, 0, q.Len())
}

func TestNack_RedeliversWithIncrementedAttempts(t *testing.T) {
	q := New()
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, queue.Job{ID: "j1"}))

	d, err := q.Claim(ctx)
	require.NoError(t, err)
	d.Nack()

	d2, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, "j1", d2.Job.ID)
	assert.Equal(t, uint16(2), d2.Attempts)
}

func TestClaim_BlocksUntilEnqueue(t *testing.T) {
	q := New()

	got := make(chan *queue.Delivery, 1)
	go func() {
		d, err := q.Claim(context.Background())
		if err == nil {
			got <- d
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), queue.Job{ID: "late"}))

	select {
	case d := <-got:
		assert.Equal(t, "late", d.Job.ID)
	case <-time.After(time.Second):
		t.Fatal("claim did not unblock")
	}
}

func TestClaim_ContextCancel(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Claim(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClaim_Closed(t *testing.T) {
	q := New()
	q.Close()

	_, err := q.Claim(context.Background())
	assert.ErrorIs(t, err, queue.ErrClosed)

	assert.ErrorIs(t, q.Enqueue(context.Background(), queue.Job{}), queue.ErrClosed)
}

func TestEnqueueRaw_MalformedPayload(t *testing.T) {
	q := New()
	require.NoError(t, q.EnqueueRaw([]byte("{not json")))

	d, err := q.Claim(context.Background())
	require.NoError(t, err)
	assert.Error(t, d.Err)
	assert.Equal(t, []byte("{not json"), d.Body)
}
