package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/expense-ingest/internal/jobs"
)

// Store is an in-memory JobStore indexed by uploader. Jobs are copied on the
// way in and out, so callers never share state with the store. Data is lost
// on restart.
type Store struct {
	mu       sync.RWMutex
	byID     map[string]*jobs.ImportTransactionsJob
	bySource map[string]map[string]struct{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		byID:     make(map[string]*jobs.ImportTransactionsJob),
		bySource: make(map[string]map[string]struct{}),
	}
}

// SaveJob inserts or replaces a job by ID.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ImportTransactionsJob) error {
	if job.JobID == "" {
		return fmt.Errorf("SaveJob: job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byID[job.JobID]; ok && prev.SourceID != job.SourceID {
		s.unindex(prev)
	}
	stored := *job
	s.byID[job.JobID] = &stored

	ids, ok := s.bySource[job.SourceID]
	if !ok {
		ids = make(map[string]struct{})
		s.bySource[job.SourceID] = ids
	}
	ids[job.JobID] = struct{}{}
	return nil
}

func (s *Store) unindex(job *jobs.ImportTransactionsJob) {
	ids := s.bySource[job.SourceID]
	delete(ids, job.JobID)
	if len(ids) == 0 {
		delete(s.bySource, job.SourceID)
	}
}

// GetJob returns a copy of the job with jobID, or ErrJobNotFound.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ImportTransactionsJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.byID[jobID]
	if !ok {
		return nil, fmt.Errorf("GetJob: %s: %w", jobID, jobs.ErrJobNotFound)
	}
	found := *job
	return &found, nil
}

// ListJobs returns matching jobs newest first, ties broken by ID, then
// applies Offset and Limit.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ImportTransactionsJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*jobs.ImportTransactionsJob{}
	keep := func(job *jobs.ImportTransactionsJob) {
		if filter.Status != "" && job.Status != filter.Status {
			return
		}
		found := *job
		result = append(result, &found)
	}

	if filter.SourceID != "" {
		for id := range s.bySource[filter.SourceID] {
			keep(s.byID[id])
		}
	} else {
		for _, job := range s.byID {
			keep(job)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].JobID < result[j].JobID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return page(result, filter.Offset, filter.Limit), nil
}

func page(list []*jobs.ImportTransactionsJob, offset, limit int) []*jobs.ImportTransactionsJob {
	if offset > 0 {
		if offset >= len(list) {
			return []*jobs.ImportTransactionsJob{}
		}
		list = list[offset:]
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

// UpdateJobStatus sets the status of a stored job. An empty errorMsg keeps
// the previous error text.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.byID[jobID]
	if !ok {
		return fmt.Errorf("UpdateJobStatus: %s: %w", jobID, jobs.ErrJobNotFound)
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}

var _ jobs.JobStore = (*Store)(nil)
