package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// Canonical field keys produced by the normalizer. Raw documents spell
// these differently across schema versions; only canonical keys leave this
// package.
const (
	FieldThreeDartAvg    = "three_dart_avg"
	FieldLegsPlayed      = "legs_played"
	FieldLegsWon         = "legs_won"
	FieldFirstNineAvg    = "first_9_avg"
	FieldCheckoutPct     = "checkout_pct"
	FieldHighestCheckout = "highest_checkout"
	FieldHighestScore    = "highest_score"
	FieldPointsScored    = "points_scored"
	FieldDartsThrown     = "darts_thrown"
)

// Converter turns one raw cell/attribute into a numeric value. A nil result
// with a nil error means "no data recorded" — distinct from zero, excluded
// from averages and maxima downstream.
type Converter func(raw string) (*float64, error)

// FieldMapping binds a canonical key to the raw spellings observed across
// document versions, tried in order.
type FieldMapping struct {
	Canonical string
	RawKeys   []string
	Convert   Converter
}

// PlayerFieldMappings is the declarative table translating version-variant
// raw keys into the canonical record shape. New schema versions extend
// RawKeys; they never touch the strategies.
var PlayerFieldMappings = []FieldMapping{
	{Canonical: FieldThreeDartAvg, RawKeys: []string{"average_01", "average", "ppr", "three_dart_avg"}, Convert: ParseDecimal},
	{Canonical: FieldLegsPlayed, RawKeys: []string{"total_games", "legs_played", "games"}, Convert: ParseDecimal},
	{Canonical: FieldLegsWon, RawKeys: []string{"total_wins", "legs_won", "wins"}, Convert: ParseDecimal},
	{Canonical: FieldFirstNineAvg, RawKeys: []string{"first_nine", "first_9_avg", "first_nine_average"}, Convert: ParseDecimal},
	{Canonical: FieldCheckoutPct, RawKeys: []string{"coe", "checkout_percentage", "checkout_pct"}, Convert: ParsePercent},
	{Canonical: FieldHighestCheckout, RawKeys: []string{"highest_checkout", "high_finish", "double_out_points"}, Convert: ParseDecimal},
	{Canonical: FieldHighestScore, RawKeys: []string{"highest_score", "high_score", "highest"}, Convert: ParseDecimal},
	{Canonical: FieldPointsScored, RawKeys: []string{"points_scored_01", "points_scored"}, Convert: ParseDecimal},
	{Canonical: FieldDartsThrown, RawKeys: []string{"darts_thrown_01", "darts_thrown"}, Convert: ParseDecimal},
}

// NormalizeFields maps a raw per-player attribute set into canonical keyed
// values. Missing and sentinel values yield no entry rather than zero.
func NormalizeFields(raw map[string]any) (map[string]float64, error) {
	out := make(map[string]float64, len(PlayerFieldMappings))
	for _, mapping := range PlayerFieldMappings {
		for _, key := range mapping.RawKeys {
			value, ok := raw[key]
			if !ok {
				continue
			}
			parsed, err := mapping.Convert(stringify(value))
			if err != nil {
				return nil, fmt.Errorf("normalize %s from %q: %w", mapping.Canonical, key, err)
			}
			if parsed != nil {
				out[mapping.Canonical] = *parsed
			}
			break
		}
	}
	return out, nil
}

// ParseDecimal converts a raw numeric string. Digit-group separators are
// stripped; the dash sentinel and empty strings mean "not recorded".
func ParseDecimal(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" {
		return nil, nil
	}
	raw = strings.ReplaceAll(raw, ",", "")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("parse number %q: %w", raw, err)
	}
	return &value, nil
}

// ParsePercent converts values like "38.5%" into 38.5.
func ParsePercent(raw string) (*float64, error) {
	return ParseDecimal(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// BucketCounts folds per-range score tallies into the running 100+/140+/180
// counters. The buckets are inclusive unions: every 180 is also a 140+ and
// a 100+.
func BucketCounts(c100to119, c120to139, c140to159, c160to179, c180 int) (c100Plus, c140Plus, c180Count int) {
	c180Count = c180
	c140Plus = c140to159 + c160to179 + c180
	c100Plus = c100to119 + c120to139 + c140Plus
	return c100Plus, c140Plus, c180Count
}

// CountTurnScores derives exact bucket counts and the highest score from an
// ordered sequence of per-turn scores.
func CountTurnScores(scores []int) (c100Plus, c140Plus, c180Count, highest int) {
	for _, score := range scores {
		if score > highest {
			highest = score
		}
		if score >= 100 {
			c100Plus++
		}
		if score >= 140 {
			c140Plus++
		}
		if score == 180 {
			c180Count++
		}
	}
	return c100Plus, c140Plus, c180Count, highest
}
