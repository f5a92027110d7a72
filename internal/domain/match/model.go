package match

import (
	"fmt"
	"strings"
)

// PlayerMatchRecord is the canonical per-player per-match statistics line
// recovered by the extraction pipeline. A record is immutable once built;
// the aggregation store only ever reads from it.
//
// Optional fields are pointers so "not recorded" stays distinguishable from
// an explicit zero. Count fields use nil for "unknown" while 0 remains a
// valid "none thrown yet" value.
type PlayerMatchRecord struct {
	PlayerName string
	MatchID    string
	EventID    int

	ThreeDartAvg float64
	LegsPlayed   int
	LegsWon      int

	FirstNineAvg *float64
	// FirstNineDerived marks a first-nine value approximated from the match
	// average because granular turn data was unavailable.
	FirstNineDerived bool

	Count100Plus *int
	Count140Plus *int
	Count180     *int

	HighestScore *int

	CheckoutOpportunities *int
	CheckoutHits          *int
	CheckoutPct           *float64
	HighestCheckout       *int

	// Source names the extraction strategy that produced this record.
	Source string
}

func (r PlayerMatchRecord) Validate() error {
	if strings.TrimSpace(r.PlayerName) == "" {
		return fmt.Errorf("player name is required")
	}
	if strings.TrimSpace(r.MatchID) == "" {
		return fmt.Errorf("match id is required")
	}
	if r.EventID <= 0 {
		return fmt.Errorf("event id must be greater than zero")
	}
	if r.ThreeDartAvg <= 0 {
		return fmt.Errorf("three-dart average must be greater than zero")
	}
	if r.LegsPlayed < 0 || r.LegsWon < 0 {
		return fmt.Errorf("legs played/won cannot be negative")
	}
	if r.LegsWon > r.LegsPlayed {
		return fmt.Errorf("legs won cannot exceed legs played")
	}
	if r.FirstNineAvg != nil && *r.FirstNineAvg < 0 {
		return fmt.Errorf("first-nine average cannot be negative")
	}
	for name, count := range map[string]*int{
		"count_100_plus": r.Count100Plus,
		"count_140_plus": r.Count140Plus,
		"count_180":      r.Count180,
	} {
		if count != nil && *count < 0 {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}
	return nil
}

// NormalizeName collapses interior whitespace and trims the player name so
// the same player maps to one aggregate regardless of document formatting.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// Float returns a pointer to v, for building optional record fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for building optional record fields.
func Int(v int) *int { return &v }
