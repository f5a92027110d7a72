package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/match"
	"github.com/dowdarts/aadsstatsscrapper/internal/domain/standings"
	"github.com/dowdarts/aadsstatsscrapper/internal/extract"
	"github.com/dowdarts/aadsstatsscrapper/internal/infrastructure/repository/memory"
	"github.com/dowdarts/aadsstatsscrapper/internal/platform/logging"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) ListEventMatches(ctx context.Context, eventRef string) ([]string, error) {
	args := m.Called(ctx, eventRef)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *mockFetcher) FetchMatchDocument(ctx context.Context, matchID string) (match.Document, error) {
	args := m.Called(ctx, matchID)
	doc, _ := args.Get(0).(match.Document)
	return doc, args.Error(1)
}

// stubStrategy serves canned records keyed by match id.
type stubStrategy struct {
	records map[string][]match.PlayerMatchRecord
}

func (stubStrategy) Name() string { return "stub" }

func (s stubStrategy) Extract(doc match.Document, eventID int) ([]match.PlayerMatchRecord, error) {
	records, ok := s.records[doc.MatchID]
	if !ok {
		return nil, errors.New("no fixture for match")
	}
	out := make([]match.PlayerMatchRecord, len(records))
	copy(out, records)
	for i := range out {
		out[i].EventID = eventID
	}
	return out, nil
}

// memoryPersistence records saves for assertions.
type memoryPersistence struct {
	mu    sync.Mutex
	saves int
	last  standings.Snapshot
}

func (p *memoryPersistence) Load(context.Context) (standings.Snapshot, bool, error) {
	return standings.Snapshot{}, false, nil
}

func (p *memoryPersistence) Save(_ context.Context, snapshot standings.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	p.last = snapshot
	return nil
}

func (p *memoryPersistence) saveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

func testRecord(player, matchID string, avg float64, legs, won int) match.PlayerMatchRecord {
	return match.PlayerMatchRecord{
		PlayerName:   player,
		MatchID:      matchID,
		EventID:      1,
		ThreeDartAvg: avg,
		LegsPlayed:   legs,
		LegsWon:      won,
	}
}

func newTestStore() *memory.StandingsStore {
	return memory.NewStandingsStore(standings.SeriesInfo{
		Name:              "Test Series",
		TotalEvents:       7,
		QualifyingFrom:    1,
		QualifyingThrough: 6,
		ChampionshipEvent: 7,
	})
}

func TestIngestionService_ExtractMatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetcher := &mockFetcher{}
	fetcher.On("FetchMatchDocument", mock.Anything, "m1").
		Return(match.Document{MatchID: "m1", Body: []byte("doc")}, nil)

	chain := extract.NewChain(logging.NewNop(), stubStrategy{records: map[string][]match.PlayerMatchRecord{
		"m1": {testRecord("Alice Smith", "m1", 54.55, 2, 1)},
	}})
	svc := NewIngestionService(fetcher, chain, newTestStore(), nil, nil, logging.NewNop())

	records, err := svc.ExtractMatch(ctx, "m1", 3)
	if err != nil {
		t.Fatalf("ExtractMatch error: %v", err)
	}
	if len(records) != 1 || records[0].EventID != 3 || records[0].Source != "stub" {
		t.Fatalf("unexpected records: %+v", records)
	}
	fetcher.AssertExpectations(t)
}

func TestIngestionService_ExtractMatch_InvalidInput(t *testing.T) {
	t.Parallel()

	svc := NewIngestionService(&mockFetcher{}, extract.NewChain(logging.NewNop()), newTestStore(), nil, nil, logging.NewNop())

	if _, err := svc.ExtractMatch(context.Background(), "  ", 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank match id error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.ExtractMatch(context.Background(), "m1", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero event id error = %v, want ErrInvalidInput", err)
	}
}

func TestIngestionService_ExtractMatch_NoStrategyMatched(t *testing.T) {
	t.Parallel()

	fetcher := &mockFetcher{}
	fetcher.On("FetchMatchDocument", mock.Anything, "m1").
		Return(match.Document{MatchID: "m1", Body: []byte("doc")}, nil)

	chain := extract.NewChain(logging.NewNop(), stubStrategy{records: map[string][]match.PlayerMatchRecord{}})
	svc := NewIngestionService(fetcher, chain, newTestStore(), nil, nil, logging.NewNop())

	_, err := svc.ExtractMatch(context.Background(), "m1", 1)
	if !errors.Is(err, extract.ErrNoStrategyMatched) {
		t.Fatalf("error = %v, want ErrNoStrategyMatched", err)
	}
	if !IsParseFailure(err) {
		t.Fatal("IsParseFailure must classify chain misses")
	}
}

func TestIngestionService_MergeRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()
	persistence := &memoryPersistence{}
	svc := NewIngestionService(&mockFetcher{}, extract.NewChain(logging.NewNop()), store, persistence, nil, logging.NewNop())

	if err := svc.MergeRecord(ctx, testRecord("Alice Smith", "m1", 54.55, 2, 1)); err != nil {
		t.Fatalf("MergeRecord error: %v", err)
	}
	if persistence.saveCount() != 1 {
		t.Fatalf("saves = %d, want snapshot persisted after merge", persistence.saveCount())
	}

	err := svc.MergeRecord(ctx, testRecord("Alice Smith", "m1", 54.55, 2, 1))
	if !errors.Is(err, standings.ErrDuplicateRecord) {
		t.Fatalf("duplicate error = %v, want ErrDuplicateRecord", err)
	}

	invalid := testRecord("", "m2", 54.55, 2, 1)
	if err := svc.MergeRecord(ctx, invalid); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("invalid record error = %v, want ErrInvalidInput", err)
	}
}
