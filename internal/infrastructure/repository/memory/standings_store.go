package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/match"
	"github.com/dowdarts/aadsstatsscrapper/internal/domain/standings"
)

// StandingsStore is the in-memory aggregation store. A single mutex
// serializes all merges: a merge is a read-modify-write over one player's
// cumulative fields and must never interleave with another merge for the
// same player.
type StandingsStore struct {
	mu          sync.Mutex
	series      standings.SeriesInfo
	players     map[string]*standings.Player
	order       []string
	events      map[int]*standings.Event
	merged      map[string]time.Time
	lastUpdated *time.Time
	now         func() time.Time
}

func NewStandingsStore(series standings.SeriesInfo) *StandingsStore {
	return &StandingsStore{
		series:  series,
		players: make(map[string]*standings.Player),
		events:  make(map[int]*standings.Event),
		merged:  make(map[string]time.Time),
		now:     time.Now,
	}
}

func mergeKey(eventID int, matchID, playerName string) string {
	return fmt.Sprintf("%d|%s|%s", eventID, matchID, strings.ToLower(playerName))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *StandingsStore) UpsertMatchRecord(_ context.Context, record match.PlayerMatchRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	name := match.NormalizeName(record.PlayerName)

	s.mu.Lock()
	defer s.mu.Unlock()

	key := mergeKey(record.EventID, record.MatchID, name)
	if _, seen := s.merged[key]; seen {
		return errors.Wrapf(standings.ErrDuplicateRecord,
			"event=%d match=%s player=%s", record.EventID, record.MatchID, name)
	}

	player, ok := s.players[name]
	if !ok {
		player = &standings.Player{Name: name}
		s.players[name] = player
		s.order = append(s.order, name)
	}

	player.WeightedSum += record.ThreeDartAvg * float64(record.LegsPlayed)
	player.TotalLegs += record.LegsPlayed
	if player.TotalLegs > 0 {
		player.WeightedAvg = round2(player.WeightedSum / float64(player.TotalLegs))
	}

	player.Total180s += intOrZero(record.Count180)
	player.Total140s += intOrZero(record.Count140Plus)
	player.Total100s += intOrZero(record.Count100Plus)

	// Sentinel "not recorded" values stay out of the maxima.
	if record.HighestCheckout != nil && *record.HighestCheckout > player.HighestFinish {
		player.HighestFinish = *record.HighestCheckout
	}
	if record.FirstNineAvg != nil && *record.FirstNineAvg > player.BestFirstNine {
		player.BestFirstNine = *record.FirstNineAvg
	}

	if !containsInt(player.EventsPlayed, record.EventID) {
		player.EventsPlayed = append(player.EventsPlayed, record.EventID)
	}

	now := s.now().UTC()
	player.EventHistory = append(player.EventHistory, standings.HistoryEntry{
		EventID:      record.EventID,
		MatchID:      record.MatchID,
		MergedAt:     now,
		ThreeDartAvg: record.ThreeDartAvg,
		LegsPlayed:   record.LegsPlayed,
		LegsWon:      record.LegsWon,
		FirstNineAvg: copyFloat(record.FirstNineAvg),
		Count100Plus: copyInt(record.Count100Plus),
		Count140Plus: copyInt(record.Count140Plus),
		Count180:     copyInt(record.Count180),
		HighFinish:   copyInt(record.HighestCheckout),
	})

	event := s.ensureEventLocked(record.EventID)
	if !containsString(event.Participants, name) {
		event.Participants = append(event.Participants, name)
	}

	s.merged[key] = now
	s.lastUpdated = &now
	return nil
}

func (s *StandingsStore) RecordEventWinner(_ context.Context, eventID int, playerName string) error {
	name := match.NormalizeName(playerName)

	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[name]
	if !ok {
		return errors.Wrapf(standings.ErrPlayerNotFound, "name=%s", name)
	}

	event := s.ensureEventLocked(eventID)
	event.Winner = &name
	event.Completed = true

	if !containsInt(player.EventWins, eventID) {
		player.EventWins = append(player.EventWins, eventID)
	}
	// Qualification is one-way: a win inside the qualifying range sets it
	// and nothing short of a full reset clears it.
	if s.series.QualifyingEvent(eventID) {
		player.Qualified = true
	}

	now := s.now().UTC()
	s.lastUpdated = &now
	return nil
}

func (s *StandingsStore) GetPlayer(_ context.Context, name string) (standings.Player, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[match.NormalizeName(name)]
	if !ok {
		return standings.Player{}, false, nil
	}
	return clonePlayer(player), true, nil
}

func (s *StandingsStore) GetEvent(_ context.Context, eventID int) (standings.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return standings.Event{}, false, nil
	}
	return cloneEvent(event), true, nil
}

// Leaderboard returns every player ranked descending by key with dense
// contiguous ranks from 1. Ties keep store insertion order; that is an
// implementation choice, not a semantic guarantee.
func (s *StandingsStore) Leaderboard(_ context.Context, key standings.SortKey) ([]standings.RankedPlayer, error) {
	if key == "" {
		key = standings.SortByWeightedAvg
	}
	if !key.Valid() {
		return nil, errors.Newf("unknown sort key %q", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]standings.RankedPlayer, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, standings.RankedPlayer{Player: clonePlayer(s.players[name])})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sortValue(out[i].Player, key) > sortValue(out[j].Player, key)
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (s *StandingsStore) QualifiedPlayers(_ context.Context) ([]standings.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []standings.Player
	for _, name := range s.order {
		if player := s.players[name]; player.Qualified {
			out = append(out, clonePlayer(player))
		}
	}
	return out, nil
}

func (s *StandingsStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.players = make(map[string]*standings.Player)
	s.order = nil
	s.events = make(map[int]*standings.Event)
	s.merged = make(map[string]time.Time)
	now := s.now().UTC()
	s.lastUpdated = &now
	return nil
}

func (s *StandingsStore) Snapshot(_ context.Context) (standings.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := standings.Snapshot{
		SeriesInfo: s.series,
		Players:    make(map[string]standings.Player, len(s.players)),
		Events:     make(map[string]standings.Event, len(s.events)),
		MergedKeys: make(map[string]time.Time, len(s.merged)),
	}
	for name, player := range s.players {
		snapshot.Players[name] = clonePlayer(player)
	}
	for id, event := range s.events {
		snapshot.Events[fmt.Sprintf("%d", id)] = cloneEvent(event)
	}
	for key, at := range s.merged {
		snapshot.MergedKeys[key] = at
	}
	if s.lastUpdated != nil {
		at := *s.lastUpdated
		snapshot.LastUpdated = &at
	}
	return snapshot, nil
}

// Restore replaces the full store state from a snapshot. Insertion order
// is rebuilt from the earliest history entry per player so leaderboard tie
// behavior survives a reload.
func (s *StandingsStore) Restore(_ context.Context, snapshot standings.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.SeriesInfo.TotalEvents > 0 {
		s.series = snapshot.SeriesInfo
	}
	s.players = make(map[string]*standings.Player, len(snapshot.Players))
	s.order = make([]string, 0, len(snapshot.Players))
	for name, player := range snapshot.Players {
		cloned := clonePlayer(&player)
		s.players[name] = &cloned
		s.order = append(s.order, name)
	}
	sort.SliceStable(s.order, func(i, j int) bool {
		return firstMerge(s.players[s.order[i]]).Before(firstMerge(s.players[s.order[j]]))
	})

	s.events = make(map[int]*standings.Event, len(snapshot.Events))
	for _, event := range snapshot.Events {
		cloned := cloneEvent(&event)
		s.events[event.EventID] = &cloned
	}

	s.merged = make(map[string]time.Time, len(snapshot.MergedKeys))
	for key, at := range snapshot.MergedKeys {
		s.merged[key] = at
	}

	s.lastUpdated = nil
	if snapshot.LastUpdated != nil {
		at := *snapshot.LastUpdated
		s.lastUpdated = &at
	}
	return nil
}

func (s *StandingsStore) ensureEventLocked(eventID int) *standings.Event {
	event, ok := s.events[eventID]
	if !ok {
		event = &standings.Event{EventID: eventID}
		s.events[eventID] = event
	}
	return event
}

func sortValue(p standings.Player, key standings.SortKey) float64 {
	switch key {
	case standings.SortByTotal180s:
		return float64(p.Total180s)
	case standings.SortByTotal140s:
		return float64(p.Total140s)
	case standings.SortByTotal100s:
		return float64(p.Total100s)
	case standings.SortByHighestFinish:
		return float64(p.HighestFinish)
	case standings.SortByBestFirstNine:
		return p.BestFirstNine
	case standings.SortByTotalLegs:
		return float64(p.TotalLegs)
	default:
		return p.WeightedAvg
	}
}

func firstMerge(p *standings.Player) time.Time {
	if len(p.EventHistory) == 0 {
		return time.Time{}
	}
	return p.EventHistory[0].MergedAt
}

func clonePlayer(p *standings.Player) standings.Player {
	out := *p
	out.EventsPlayed = append([]int(nil), p.EventsPlayed...)
	out.EventWins = append([]int(nil), p.EventWins...)
	out.EventHistory = make([]standings.HistoryEntry, len(p.EventHistory))
	for i, entry := range p.EventHistory {
		cloned := entry
		cloned.FirstNineAvg = copyFloat(entry.FirstNineAvg)
		cloned.Count100Plus = copyInt(entry.Count100Plus)
		cloned.Count140Plus = copyInt(entry.Count140Plus)
		cloned.Count180 = copyInt(entry.Count180)
		cloned.HighFinish = copyInt(entry.HighFinish)
		out.EventHistory[i] = cloned
	}
	return out
}

func cloneEvent(e *standings.Event) standings.Event {
	out := *e
	out.Participants = append([]string(nil), e.Participants...)
	if e.Winner != nil {
		winner := *e.Winner
		out.Winner = &winner
	}
	return out
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func containsInt(values []int, v int) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}
