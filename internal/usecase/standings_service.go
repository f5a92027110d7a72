package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/standings"
	"github.com/dowdarts/aadsstatsscrapper/internal/platform/cache"
	"github.com/dowdarts/aadsstatsscrapper/internal/platform/logging"
)

// LeaderboardCache shares computed rankings between reads. A nil cache
// disables caching.
type LeaderboardCache = cache.Store[[]standings.RankedPlayer]

// StandingsService exposes read and administrative operations over the
// aggregation store.
type StandingsService struct {
	store        standings.Store
	persistence  standings.Persistence
	leaderboards *LeaderboardCache
	logger       *logging.Logger
}

func NewStandingsService(
	store standings.Store,
	persistence standings.Persistence,
	leaderboards *LeaderboardCache,
	logger *logging.Logger,
) *StandingsService {
	if logger == nil {
		logger = logging.Default()
	}
	return &StandingsService{
		store:        store,
		persistence:  persistence,
		leaderboards: leaderboards,
		logger:       logger,
	}
}

// Leaderboard returns ranked players for the requested metric. An empty
// key defaults to the weighted three-dart average.
func (s *StandingsService) Leaderboard(ctx context.Context, key standings.SortKey) ([]standings.RankedPlayer, error) {
	if key == "" {
		key = standings.SortByWeightedAvg
	}
	if !key.Valid() {
		return nil, fmt.Errorf("%w: unknown sort key %q", ErrInvalidInput, key)
	}
	if s.leaderboards == nil {
		return s.store.Leaderboard(ctx, key)
	}
	return s.leaderboards.GetOrLoad("leaderboard:"+string(key), func() ([]standings.RankedPlayer, error) {
		return s.store.Leaderboard(ctx, key)
	})
}

// QualifiedPlayers lists players holding championship standing.
func (s *StandingsService) QualifiedPlayers(ctx context.Context) ([]standings.Player, error) {
	return s.store.QualifiedPlayers(ctx)
}

// PlayerStats returns one player's aggregate by name. Lookup normalizes
// whitespace and is case-insensitive, matching the merge key.
func (s *StandingsService) PlayerStats(ctx context.Context, name string) (standings.Player, error) {
	if strings.TrimSpace(name) == "" {
		return standings.Player{}, fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}
	player, ok, err := s.store.GetPlayer(ctx, name)
	if err != nil {
		return standings.Player{}, err
	}
	if !ok {
		return standings.Player{}, fmt.Errorf("%w: player %q", ErrNotFound, name)
	}
	return player, nil
}

// EventDetails returns participation and completion state for one event.
func (s *StandingsService) EventDetails(ctx context.Context, eventID int) (standings.Event, error) {
	if eventID <= 0 {
		return standings.Event{}, fmt.Errorf("%w: event id must be greater than zero", ErrInvalidInput)
	}
	event, ok, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return standings.Event{}, err
	}
	if !ok {
		return standings.Event{}, fmt.Errorf("%w: event %d", ErrNotFound, eventID)
	}
	return event, nil
}

// SetEventWinner marks the winner of an event, completing it. Winning a
// qualifying event grants the player championship standing.
func (s *StandingsService) SetEventWinner(ctx context.Context, eventID int, playerName string) error {
	if eventID <= 0 {
		return fmt.Errorf("%w: event id must be greater than zero", ErrInvalidInput)
	}
	if strings.TrimSpace(playerName) == "" {
		return fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}
	if err := s.store.RecordEventWinner(ctx, eventID, playerName); err != nil {
		if errors.Is(err, standings.ErrPlayerNotFound) {
			return fmt.Errorf("%w: player %q", ErrNotFound, playerName)
		}
		return err
	}
	s.logger.Info("event winner recorded", "event_id", eventID, "player", playerName)
	if s.leaderboards != nil {
		s.leaderboards.Purge()
	}
	s.persistSnapshot(ctx)
	return nil
}

// Reset wipes all aggregates. The caller must pass confirm=true; anything
// else is rejected before the store is touched.
func (s *StandingsService) Reset(ctx context.Context, confirm bool) error {
	if !confirm {
		return fmt.Errorf("%w: reset requires explicit confirmation", ErrConfirmationRequired)
	}
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.logger.Warn("standings store reset")
	if s.leaderboards != nil {
		s.leaderboards.Purge()
	}
	s.persistSnapshot(ctx)
	return nil
}

func (s *StandingsService) persistSnapshot(ctx context.Context) {
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
