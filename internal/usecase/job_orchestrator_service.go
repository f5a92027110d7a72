package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/dowdarts/aadsstatsscrapper/external/dartconnect"
	"github.com/dowdarts/aadsstatsscrapper/internal/domain/jobs"
	"github.com/dowdarts/aadsstatsscrapper/internal/domain/match"
	"github.com/dowdarts/aadsstatsscrapper/internal/domain/standings"
	"github.com/dowdarts/aadsstatsscrapper/internal/extract"
	"github.com/dowdarts/aadsstatsscrapper/internal/platform/id"
	"github.com/dowdarts/aadsstatsscrapper/internal/platform/logging"
)

type JobOrchestratorConfig struct {
	MaxWorkers   int
	MatchRetries int
	RetryBackoff time.Duration
	JobTTL       time.Duration
}

func (c JobOrchestratorConfig) normalize() JobOrchestratorConfig {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 4
	}
	if c.MatchRetries < 0 {
		c.MatchRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 2 * time.Second
	}
	if c.JobTTL <= 0 {
		c.JobTTL = 24 * time.Hour
	}
	return c
}

// JobOrchestratorService runs whole-event ingestions as background jobs.
// Matches are fetched and parsed on a bounded worker pool; merges into the
// store happen on a single goroutine so every merge observes the previous
// one.
type JobOrchestratorService struct {
	cfg       JobOrchestratorConfig
	fetcher   DocumentFetcher
	chain     *extract.Chain
	ingestion *IngestionService
	registry  jobs.Registry
	idGen     id.Generator
	logger    *logging.Logger
	now       func() time.Time
}

func NewJobOrchestratorService(
	cfg JobOrchestratorConfig,
	fetcher DocumentFetcher,
	chain *extract.Chain,
	ingestion *IngestionService,
	registry jobs.Registry,
	idGen id.Generator,
	logger *logging.Logger,
) *JobOrchestratorService {
	if logger == nil {
		logger = logging.Default()
	}
	if idGen == nil {
		idGen = id.NewRandomGenerator()
	}
	return &JobOrchestratorService{
		cfg:       cfg.normalize(),
		fetcher:   fetcher,
		chain:     chain,
		ingestion: ingestion,
		registry:  registry,
		idGen:     idGen,
		logger:    logger,
		now:       time.Now,
	}
}

// StartEventIngestion registers a job and kicks off the ingestion in the
// background. The returned job is the initial snapshot; callers poll GetJob
// for progress.
func (s *JobOrchestratorService) StartEventIngestion(ctx context.Context, eventRef string, eventID int) (jobs.IngestionJob, error) {
	eventRef = strings.TrimSpace(eventRef)
	if eventRef == "" {
		return jobs.IngestionJob{}, fmt.Errorf("%w: event reference is required", ErrInvalidInput)
	}
	if eventID <= 0 {
		return jobs.IngestionJob{}, fmt.Errorf("%w: event id must be greater than zero", ErrInvalidInput)
	}

	jobID, err := s.idGen.NewID()
	if err != nil {
		return jobs.IngestionJob{}, fmt.Errorf("generate job id: %w", err)
	}

	job := jobs.IngestionJob{
		ID:        jobID,
		EventID:   eventID,
		Status:    jobs.StatusCreated,
		StartedAt: s.now(),
	}
	if err := s.registry.Create(ctx, job); err != nil {
		return jobs.IngestionJob{}, fmt.Errorf("register job: %w", err)
	}

	if dropped, err := s.registry.ExpireBefore(ctx, s.now().Add(-s.cfg.JobTTL)); err != nil {
		s.logger.Warn("expire stale jobs failed", "error", err)
	} else if dropped > 0 {
		s.logger.Info("expired stale jobs", "count", dropped)
	}

	go s.run(context.WithoutCancel(ctx), job, eventRef)
	return job, nil
}

// GetJob returns the current snapshot of a job.
func (s *JobOrchestratorService) GetJob(ctx context.Context, jobID string) (jobs.IngestionJob, error) {
	if strings.TrimSpace(jobID) == "" {
		return jobs.IngestionJob{}, fmt.Errorf("%w: job id is required", ErrInvalidInput)
	}
	job, ok, err := s.registry.Get(ctx, jobID)
	if err != nil {
		return jobs.IngestionJob{}, err
	}
	if !ok {
		return jobs.IngestionJob{}, fmt.Errorf("%w: job %q", ErrNotFound, jobID)
	}
	return job, nil
}

type matchResult struct {
	matchID string
	records []match.PlayerMatchRecord
	err     error
}

func (s *JobOrchestratorService) run(ctx context.Context, job jobs.IngestionJob, eventRef string) {
	matchIDs, err := s.fetcher.ListEventMatches(ctx, eventRef)
	if err != nil {
		s.finishFailed(ctx, job.ID, fmt.Sprintf("list event matches: %v", err))
		return
	}

	s.updateJob(ctx, job.ID, func(j *jobs.IngestionJob) {
		j.Status = jobs.StatusRunning
		j.TotalMatches = len(matchIDs)
	})
	s.logger.Info("event ingestion started",
		"job_id", job.ID,
		"event_id", job.EventID,
		"matches", len(matchIDs),
	)

	pool, err := ants.NewPool(s.cfg.MaxWorkers)
	if err != nil {
		s.finishFailed(ctx, job.ID, fmt.Sprintf("start worker pool: %v", err))
		return
	}
	defer pool.Release()

	results := make(chan matchResult, len(matchIDs))
	for _, matchID := range matchIDs {
		matchID := matchID
		submitErr := pool.Submit(func() {
			records, procErr := s.processMatch(ctx, matchID, job.EventID)
			results <- matchResult{matchID: matchID, records: records, err: procErr}
		})
		if submitErr != nil {
			results <- matchResult{matchID: matchID, err: fmt.Errorf("submit worker task: %w", submitErr)}
		}
	}

	// Single consumer: all store merges go through this loop.
	for range matchIDs {
		res := <-results
		s.mergeResult(ctx, job.ID, res)
	}

	s.updateJob(ctx, job.ID, func(j *jobs.IngestionJob) {
		j.Status = jobs.StatusCompleted
		now := s.now()
		j.FinishedAt = &now
	})
	s.ingestion.invalidateLeaderboards()
	s.ingestion.persistSnapshot(ctx)
	s.logger.Info("event ingestion finished", "job_id", job.ID, "event_id", job.EventID)
}

// processMatch fetches and parses one match, retrying transient platform
// faults and parse misses up to the configured budget. Permanent fetch
// errors fail immediately.
func (s *JobOrchestratorService) processMatch(ctx context.Context, matchID string, eventID int) ([]match.PlayerMatchRecord, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MatchRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(time.Duration(attempt) * s.cfg.RetryBackoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		records, err := s.ingestion.ExtractMatch(ctx, matchID, eventID)
		if err == nil {
			return records, nil
		}
		lastErr = err
		if !retryableMatchError(err) {
			return nil, err
		}
		s.logger.Warn("match ingestion attempt failed",
			"match_id", matchID,
			"attempt", attempt+1,
			"error", err,
		)
	}
	return nil, lastErr
}

func retryableMatchError(err error) bool {
	return errors.Is(err, dartconnect.ErrTransient) || errors.Is(err, extract.ErrNoStrategyMatched)
}

func (s *JobOrchestratorService) mergeResult(ctx context.Context, jobID string, res matchResult) {
	if res.err != nil {
		s.updateJob(ctx, jobID, func(j *jobs.IngestionJob) {
			j.ProcessedCount++
			j.Failures = append(j.Failures, jobs.MatchFailure{
				MatchID: res.matchID,
				Reason:  res.err.Error(),
			})
		})
		return
	}

	merged, skipped := 0, 0
	for _, record := range res.records {
		err := s.ingestion.store.UpsertMatchRecord(ctx, record)
		switch {
		case err == nil:
			merged++
		case errors.Is(err, standings.ErrDuplicateRecord):
			skipped++
		default:
			s.updateJob(ctx, jobID, func(j *jobs.IngestionJob) {
				j.Failures = append(j.Failures, jobs.MatchFailure{
					MatchID: res.matchID,
					Reason:  fmt.Sprintf("merge %s: %v", record.PlayerName, err),
				})
			})
		}
	}

	s.updateJob(ctx, jobID, func(j *jobs.IngestionJob) {
		j.ProcessedCount++
		j.MergedRecords += merged
		j.SkippedRecords += skipped
	})
}

func (s *JobOrchestratorService) finishFailed(ctx context.Context, jobID, reason string) {
	s.updateJob(ctx, jobID, func(j *jobs.IngestionJob) {
		j.Status = jobs.StatusFailed
		j.Error = reason
		now := s.now()
		j.FinishedAt = &now
	})
	s.logger.Error("event ingestion failed", "job_id", jobID, "reason", reason)
}

func (s *JobOrchestratorService) updateJob(ctx context.Context, jobID string, mutate func(*jobs.IngestionJob)) {
	if err := s.registry.Update(ctx, jobID, mutate); err != nil {
		s.logger.Error("update job failed", "job_id", jobID, "error", err)
	}
}
