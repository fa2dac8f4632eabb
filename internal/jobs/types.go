package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/expense-ingest/internal/domain"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeImportTransactions carries a parsed CSV upload downstream.
	JobTypeImportTransactions JobType = "import_transactions"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// DefaultMaxRetries applies when a published job does not set MaxRetries.
const DefaultMaxRetries = 3

var (
	// ErrJobNotFound is returned by JobStore lookups for unknown IDs.
	ErrJobNotFound = errors.New("job not found")
	// ErrQueueClosed is returned when publishing to or starting a stopped queue.
	ErrQueueClosed = errors.New("queue is closed")
)

// ImportTransactionsJob is the batch descriptor for one uploaded statement.
type ImportTransactionsJob struct {
	JobID string `json:"job_id"`

	// SourceID identifies who uploaded the batch.
	SourceID    string                     `json:"source_id"`
	FileName    string                     `json:"file_name"`
	RecordCount int                        `json:"record_count"`
	Records     []domain.TransactionRecord `json:"records,omitempty"`

	// ArchiveURI points at the raw upload when it was archived.
	ArchiveURI string `json:"archive_uri,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}

// Summary returns a copy without the record payload, for listings.
func (j *ImportTransactionsJob) Summary() *ImportTransactionsJob {
	c := *j
	c.Records = nil
	return &c
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ImportTransactionsJob) GetID() string {
	return j.JobID
}

func (j *ImportTransactionsJob) GetType() JobType {
	return JobTypeImportTransactions
}

func (j *ImportTransactionsJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher hands finished batches to a queue. Publishing is fire-and-forget:
// the caller only learns the job ID.
type Publisher interface {
	PublishImportTransactions(ctx context.Context, job *ImportTransactionsJob) (string, error)
	Close() error
}

// Consumer delivers queued jobs to a handler.
type Consumer interface {
	// Start begins consuming jobs. The handler is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error makes the job eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state.
type JobStore interface {
	SaveJob(ctx context.Context, job *ImportTransactionsJob) error
	GetJob(ctx context.Context, jobID string) (*ImportTransactionsJob, error)
	// ListJobs returns matching jobs, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportTransactionsJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	SourceID string
	Status   JobStatus
	Limit    int
	Offset   int
}
