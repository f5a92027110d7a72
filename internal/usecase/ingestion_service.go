package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/match"
	"github.com/dowdarts/aadsstatsscrapper/internal/domain/standings"
	"github.com/dowdarts/aadsstatsscrapper/internal/extract"
	"github.com/dowdarts/aadsstatsscrapper/internal/platform/logging"
)

// DocumentFetcher is the retrieval collaborator. The core never talks to
// the network itself; it assumes fetched documents are handed to it.
type DocumentFetcher interface {
	ListEventMatches(ctx context.Context, eventRef string) ([]string, error)
	FetchMatchDocument(ctx context.Context, matchID string) (match.Document, error)
}

// IngestionService runs the extraction pipeline for single matches and
// merges canonical records into the aggregation store.
type IngestionService struct {
	fetcher      DocumentFetcher
	chain        *extract.Chain
	store        standings.Store
	persistence  standings.Persistence
	leaderboards *LeaderboardCache
	logger       *logging.Logger
}

func NewIngestionService(
	fetcher DocumentFetcher,
	chain *extract.Chain,
	store standings.Store,
	persistence standings.Persistence,
	leaderboards *LeaderboardCache,
	logger *logging.Logger,
) *IngestionService {
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestionService{
		fetcher:      fetcher,
		chain:        chain,
		store:        store,
		persistence:  persistence,
		leaderboards: leaderboards,
		logger:       logger,
	}
}

// ExtractMatch fetches one match document and runs the strategy chain over
// it without touching the store.
func (s *IngestionService) ExtractMatch(ctx context.Context, matchID string, eventID int) ([]match.PlayerMatchRecord, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	if eventID <= 0 {
		return nil, fmt.Errorf("%w: event id must be greater than zero", ErrInvalidInput)
	}

	doc, err := s.fetcher.FetchMatchDocument(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("fetch match document: %w", err)
	}

	records, strategy, err := s.chain.Extract(doc, eventID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("match extracted",
		"match_id", matchID,
		"event_id", eventID,
		"strategy", strategy,
		"records", len(records),
	)
	return records, nil
}

// MergeRecord folds one canonical record into the store and persists the
// resulting snapshot.
func (s *IngestionService) MergeRecord(ctx context.Context, record match.PlayerMatchRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.store.UpsertMatchRecord(ctx, record); err != nil {
		return err
	}
	s.invalidateLeaderboards()
	s.persistSnapshot(ctx)
	return nil
}

func (s *IngestionService) invalidateLeaderboards() {
	if s.leaderboards != nil {
		s.leaderboards.Purge()
	}
}

func (s *IngestionService) persistSnapshot(ctx context.Context) {
	if s.persistence == nil {
		return
	}
	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		s.logger.Error("snapshot store state failed", "error", err)
		return
	}
	if err := s.persistence.Save(ctx, snapshot); err != nil {
		s.logger.Error("persist snapshot failed", "error", err)
	}
}

// IsParseFailure reports whether err means no strategy matched, as opposed
// to a fetch or store fault.
func IsParseFailure(err error) bool {
	return errors.Is(err, extract.ErrNoStrategyMatched)
}
