package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/jobs"
)

// JobRegistry keeps ingestion job progress in memory with explicit
// lifecycle transitions, replacing process-wide mutable progress state.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]jobs.IngestionJob
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]jobs.IngestionJob)}
}

func (r *JobRegistry) Create(_ context.Context, job jobs.IngestionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; exists {
		return errors.Newf("job %s already registered", job.ID)
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *JobRegistry) Update(_ context.Context, jobID string, mutate func(*jobs.IngestionJob)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return errors.Newf("job %s not found", jobID)
	}
	mutate(&job)
	r.jobs[jobID] = job
	return nil
}

func (r *JobRegistry) Get(_ context.Context, jobID string) (jobs.IngestionJob, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	return job, ok, nil
}

func (r *JobRegistry) ExpireBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for id, job := range r.jobs {
		if job.Status.Terminal() && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(r.jobs, id)
			dropped++
		}
	}
	return dropped, nil
}
