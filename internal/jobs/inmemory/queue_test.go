package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/expense-ingest/internal/domain"
	"github.com/dvloznov/expense-ingest/internal/jobs"
)

func noBackoff(int) time.Duration { return 0 }

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.ImportTransactionsJob {
	t.Helper()
	var got *jobs.ImportTransactionsJob
	require.Eventually(t, func() bool {
		job, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		got = job
		return job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func sampleJob() *jobs.ImportTransactionsJob {
	return &jobs.ImportTransactionsJob{
		SourceID: "user-1",
		FileName: "statement.csv",
		Records: []domain.TransactionRecord{
			{Date: "2024-01-15", Description: "COFFEE SHOP", Account: "Checking", Category: domain.DefaultCategory},
			{Date: "2024-01-16", Description: "SALARY", Account: "Checking", Category: domain.DefaultCategory},
		},
	}
}

func TestQueue_PublishAndConsume(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store, WithWorkers(2), WithBackoff(noBackoff))
	t.Cleanup(func() { q.Close() })

	var handled atomic.Int32
	require.NoError(t, q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		assert.Equal(t, jobs.JobTypeImportTransactions, job.GetType())
		handled.Add(1)
		return nil
	}))

	id, err := q.PublishImportTransactions(context.Background(), sampleJob())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job := waitForStatus(t, store, id, jobs.JobStatusCompleted)
	assert.Equal(t, int32(1), handled.Load())
	assert.Equal(t, 2, job.RecordCount)
	assert.Equal(t, jobs.DefaultMaxRetries, job.MaxRetries)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.Error)
}

func TestQueue_RetriesFailedJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store, WithWorkers(1), WithBackoff(noBackoff))
	t.Cleanup(func() { q.Close() })

	var calls atomic.Int32
	require.NoError(t, q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		if calls.Add(1) == 1 {
			return errors.New("sink unavailable")
		}
		return nil
	}))

	id, err := q.PublishImportTransactions(context.Background(), sampleJob())
	require.NoError(t, err)

	job := waitForStatus(t, store, id, jobs.JobStatusCompleted)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueue_GivesUpAfterMaxRetries(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store, WithWorkers(1), WithBackoff(noBackoff))
	t.Cleanup(func() { q.Close() })

	var calls atomic.Int32
	require.NoError(t, q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		calls.Add(1)
		return errors.New("always broken")
	}))

	job := sampleJob()
	job.MaxRetries = 1
	id, err := q.PublishImportTransactions(context.Background(), job)
	require.NoError(t, err)

	failed := waitForStatus(t, store, id, jobs.JobStatusFailed)
	assert.Equal(t, 1, failed.RetryCount)
	assert.Equal(t, "always broken", failed.Error)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueue_Closed(t *testing.T) {
	q := NewQueue(1, nil)
	require.NoError(t, q.Stop(context.Background()))
	require.NoError(t, q.Stop(context.Background()))

	_, err := q.PublishImportTransactions(context.Background(), sampleJob())
	assert.ErrorIs(t, err, jobs.ErrQueueClosed)

	err = q.Start(context.Background(), func(context.Context, jobs.Job) error { return nil })
	assert.ErrorIs(t, err, jobs.ErrQueueClosed)
}

func TestQueue_PublishRespectsContext(t *testing.T) {
	q := NewQueue(0, nil)
	t.Cleanup(func() { q.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.PublishImportTransactions(ctx, sampleJob())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
