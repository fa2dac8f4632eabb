package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/expense-ingest/internal/jobs"
	"github.com/dvloznov/expense-ingest/internal/logger"
)

const defaultWorkers = 5

// Queue is a channel-backed Publisher and Consumer for a single process.
type Queue struct {
	jobChan   chan *jobs.ImportTransactionsJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool
	workers   int
	backoff   func(attempt int) time.Duration
}

// Option configures a Queue.
type Option func(*Queue)

// WithWorkers sets how many jobs are handled concurrently.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithBackoff sets the delay before retry number attempt (starting at 1).
func WithBackoff(f func(attempt int) time.Duration) Option {
	return func(q *Queue) { q.backoff = f }
}

// NewQueue creates a queue that holds up to bufferSize jobs before
// publishing blocks. store may be nil.
func NewQueue(bufferSize int, store jobs.JobStore, opts ...Option) *Queue {
	q := &Queue{
		jobChan:   make(chan *jobs.ImportTransactionsJob, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   defaultWorkers,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * time.Second
		},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// PublishImportTransactions enqueues a batch and returns its job ID.
func (q *Queue) PublishImportTransactions(ctx context.Context, job *jobs.ImportTransactionsJob) (string, error) {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()

	if closed {
		return "", jobs.ErrQueueClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = jobs.DefaultMaxRetries
	}
	if job.RecordCount == 0 {
		job.RecordCount = len(job.Records)
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return "", fmt.Errorf("PublishImportTransactions: save job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return job.JobID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-q.closeChan:
		return "", jobs.ErrQueueClosed
	}
}

// Start launches the worker goroutines. It returns immediately.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return jobs.ErrQueueClosed
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob runs the handler once and schedules a retry on failure until
// MaxRetries is exhausted.
func (q *Queue) processJob(ctx context.Context, job *jobs.ImportTransactionsJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Logger()

	now := time.Now()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &now
	q.save(ctx, job)

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err == nil {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		q.save(ctx, job)
		log.Info().Int("records", job.RecordCount).Msg("Job completed")
		return
	}

	job.Error = err.Error()
	if job.RetryCount >= job.MaxRetries {
		job.Status = jobs.JobStatusFailed
		q.save(ctx, job)
		log.Error().Err(err).Int("retries", job.RetryCount).Msg("Job failed")
		return
	}

	job.RetryCount++
	job.Status = jobs.JobStatusRetrying
	q.save(ctx, job)

	retry := *job
	retry.Status = jobs.JobStatusPending
	retry.StartedAt = nil
	retry.CompletedAt = nil

	delay := q.backoff(retry.RetryCount)
	log.Warn().Err(err).Int("attempt", retry.RetryCount).Dur("backoff", delay).Msg("Job failed, retrying")
	time.AfterFunc(delay, func() {
		if _, err := q.PublishImportTransactions(ctx, &retry); err != nil {
			log.Error().Err(err).Msg("Could not re-enqueue job")
		}
	})
}

func (q *Queue) save(ctx context.Context, job *jobs.ImportTransactionsJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("job_id", job.JobID).Msg("Could not save job state")
	}
}

// Stop stops the queue and waits for in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue without a deadline.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
