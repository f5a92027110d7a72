package jobs

import (
	"context"
	"time"
)

// Registry stores ingestion jobs. Update applies a mutation under the
// registry's lock so progress counters never interleave.
type Registry interface {
	Create(ctx context.Context, job IngestionJob) error
	Update(ctx context.Context, jobID string, mutate func(*IngestionJob)) error
	Get(ctx context.Context, jobID string) (IngestionJob, bool, error)
	// ExpireBefore removes terminal jobs that finished before cutoff and
	// reports how many were dropped.
	ExpireBefore(ctx context.Context, cutoff time.Time) (int, error)
}
