package standings

import (
	"time"

	"github.com/cockroachdb/errors"
)

// ErrDuplicateRecord is returned when a (event, match, player) triple has
// already been merged. Re-ingesting a match is an explicit correction
// workflow, never a silent double-count.
var ErrDuplicateRecord = errors.New("match record already merged")

// ErrPlayerNotFound is returned when an operation references a player the
// store has never merged a record for.
var ErrPlayerNotFound = errors.New("player not found")

// SortKey selects the leaderboard ordering metric.
type SortKey string

const (
	SortByWeightedAvg   SortKey = "weighted_3da"
	SortByTotal180s     SortKey = "total_180s"
	SortByTotal140s     SortKey = "total_140s"
	SortByTotal100s     SortKey = "total_100s"
	SortByHighestFinish SortKey = "highest_finish"
	SortByBestFirstNine SortKey = "best_first_9"
	SortByTotalLegs     SortKey = "total_legs"
)

var allSortKeys = map[SortKey]struct{}{
	SortByWeightedAvg:   {},
	SortByTotal180s:     {},
	SortByTotal140s:     {},
	SortByTotal100s:     {},
	SortByHighestFinish: {},
	SortByBestFirstNine: {},
	SortByTotalLegs:     {},
}

func (k SortKey) Valid() bool {
	_, ok := allSortKeys[k]
	return ok
}

// HistoryEntry is one merged match contribution, append-only.
type HistoryEntry struct {
	EventID      int       `json:"event_id"`
	MatchID      string    `json:"match_id"`
	MergedAt     time.Time `json:"merged_at"`
	ThreeDartAvg float64   `json:"three_dart_avg"`
	LegsPlayed   int       `json:"legs_played"`
	LegsWon      int       `json:"legs_won"`
	FirstNineAvg *float64  `json:"first_9_avg,omitempty"`
	Count100Plus *int      `json:"hundreds_plus,omitempty"`
	Count140Plus *int      `json:"one_forty_plus,omitempty"`
	Count180     *int      `json:"one_eighties,omitempty"`
	HighFinish   *int      `json:"high_finish,omitempty"`
}

// Player is the running cross-event aggregate for one player, keyed by
// normalized name. All mutation goes through the store's merge operation.
type Player struct {
	Name        string  `json:"name"`
	WeightedAvg float64 `json:"weighted_3da"`
	// WeightedSum is Σ(match avg × legs) across merges, persisted so the
	// incremental average stays exact under any merge order.
	WeightedSum   float64        `json:"weighted_sum"`
	TotalLegs     int            `json:"total_legs"`
	Total180s     int            `json:"total_180s"`
	Total140s     int            `json:"total_140s"`
	Total100s     int            `json:"total_100s"`
	HighestFinish int            `json:"highest_finish"`
	BestFirstNine float64        `json:"best_first_9"`
	Qualified     bool           `json:"qualified"`
	EventsPlayed  []int          `json:"events_played"`
	EventWins     []int          `json:"event_wins"`
	EventHistory  []HistoryEntry `json:"event_history"`
}

// RankedPlayer is a leaderboard row. Rank assignment is dense and starts at
// 1; ties keep store insertion order, which is an implementation choice and
// not a semantic guarantee.
type RankedPlayer struct {
	Rank int `json:"rank"`
	Player
}

// EventState reflects the event lifecycle. Completed never reverts outside
// a full store reset.
type EventState string

const (
	EventOpen       EventState = "open"
	EventInProgress EventState = "in_progress"
	EventCompleted  EventState = "completed"
)

type Event struct {
	EventID      int      `json:"event_id"`
	Participants []string `json:"participants"`
	Winner       *string  `json:"winner"`
	Completed    bool     `json:"completed"`
}

func (e Event) State() EventState {
	switch {
	case e.Completed:
		return EventCompleted
	case len(e.Participants) > 0:
		return EventInProgress
	default:
		return EventOpen
	}
}

// SeriesInfo describes the competition series the store tracks.
type SeriesInfo struct {
	Name              string `json:"name"`
	TotalEvents       int    `json:"total_events"`
	QualifyingFrom    int    `json:"qualifying_from"`
	QualifyingThrough int    `json:"qualifying_through"`
	ChampionshipEvent int    `json:"championship_event"`
}

// QualifyingEvent reports whether a win in eventID earns championship
// standing.
func (s SeriesInfo) QualifyingEvent(eventID int) bool {
	return eventID >= s.QualifyingFrom && eventID <= s.QualifyingThrough
}

// Snapshot is the full persisted shape. Persistence is full-replace: the
// store emits a complete snapshot and restores from a complete snapshot.
type Snapshot struct {
	SeriesInfo  SeriesInfo           `json:"series_info"`
	Players     map[string]Player    `json:"players"`
	Events      map[string]Event     `json:"events"`
	MergedKeys  map[string]time.Time `json:"merged_keys"`
	LastUpdated *time.Time           `json:"last_updated"`
}
