package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/match"
)

// The scoring platform ships recap pages as a client-side app shell with
// the full match state serialized into a data attribute for rehydration.
// That blob is the most reliable machine-readable source the platform
// exposes, so both the embedded and granular strategies read it.

type clientState struct {
	Props clientStateProps `json:"props"`
}

type clientStateProps struct {
	Segments           map[string][][]legRecord `json:"segments"`
	Players            []map[string]any         `json:"players"`
	PlayerPerformances []performanceRecord      `json:"playerPerformances"`
}

type legRecord struct {
	Home *legSide `json:"home"`
	Away *legSide `json:"away"`
}

type legSide struct {
	Players         []legPlayer `json:"players"`
	PPR             any         `json:"ppr"`
	DoubleOutPoints any         `json:"double_out_points"`
	Turns           []turnEntry `json:"turns"`
}

type legPlayer struct {
	Label string `json:"player_label"`
}

type turnEntry struct {
	Score any `json:"score"`
}

type performanceRecord struct {
	Name           string         `json:"name"`
	FirstNine      any            `json:"first_nine"`
	COE            any            `json:"coe"`
	DoubleOutStats map[string]any `json:"double_out_stats"`
	Dist           distRecord     `json:"dist"`
}

type distRecord struct {
	Plus100 map[string]any `json:"plus_100"`
}

func decodeClientState(body []byte) (*clientStateProps, error) {
	if len(body) == 0 {
		return nil, errors.New("empty document body")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "parse document")
	}
	payload, ok := doc.Find("div#app").Attr("data-page")
	if !ok || strings.TrimSpace(payload) == "" {
		return nil, errors.New("no embedded client-state payload found")
	}
	var state clientState
	if err := sonic.UnmarshalString(payload, &state); err != nil {
		return nil, errors.Wrap(err, "decode client-state payload")
	}
	return &state.Props, nil
}

// legTally accumulates one player's per-leg observations before they are
// folded into a record.
type legTally struct {
	name        string
	legsPlayed  int
	legsWon     int
	legAverages []float64
	highFinish  int
	turnScores  []int
	firstNines  []float64
	legsMissing bool // at least one leg lacked turn data
}

// tallyLegs walks every segment's legs, partitioned by home/away roles, and
// accumulates per-player leg counts, leg averages and best finishes.
// Returned in first-seen order.
func tallyLegs(props *clientStateProps) []*legTally {
	byName := make(map[string]*legTally)
	var order []*legTally

	side := func(s *legSide) {
		if s == nil || len(s.Players) == 0 {
			return
		}
		name := match.NormalizeName(s.Players[0].Label)
		if name == "" {
			return
		}
		tally, ok := byName[name]
		if !ok {
			tally = &legTally{name: name}
			byName[name] = tally
			order = append(order, tally)
		}
		tally.legsPlayed++

		if avg, err := ParseDecimal(stringify(s.PPR)); err == nil && avg != nil {
			tally.legAverages = append(tally.legAverages, *avg)
		}

		if finish, err := ParseDecimal(stringify(s.DoubleOutPoints)); err == nil && finish != nil && *finish > 0 {
			tally.legsWon++
			if int(*finish) > tally.highFinish {
				tally.highFinish = int(*finish)
			}
		}

		if len(s.Turns) == 0 {
			tally.legsMissing = true
			return
		}
		var legScores []int
		for _, turn := range s.Turns {
			score, err := ParseDecimal(stringify(turn.Score))
			if err != nil || score == nil {
				continue
			}
			legScores = append(legScores, int(*score))
		}
		tally.turnScores = append(tally.turnScores, legScores...)
		if n := min(3, len(legScores)); n > 0 {
			sum := 0
			for _, score := range legScores[:n] {
				sum += score
			}
			tally.firstNines = append(tally.firstNines, float64(sum)/float64(n))
		}
	}

	for _, segment := range props.Segments {
		for _, legs := range segment {
			for _, leg := range legs {
				side(leg.Home)
				side(leg.Away)
			}
		}
	}
	return order
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// EmbeddedStrategy parses the client-state payload at leg granularity. The
// match three-dart average is the mean of per-leg averages; the first-nine
// average defaults to that same value and is flagged as derived, because
// leg records carry no turn detail. Score-distribution counts stay unknown
// unless the counts page supplies them.
type EmbeddedStrategy struct{}

func (EmbeddedStrategy) Name() string { return "embedded" }

func (EmbeddedStrategy) Extract(doc match.Document, eventID int) ([]match.PlayerMatchRecord, error) {
	props, err := decodeClientState(doc.Body)
	if err != nil {
		return nil, err
	}

	tallies := tallyLegs(props)
	if len(tallies) == 0 {
		return nil, errors.New("client-state payload carries no leg records")
	}

	records := make([]match.PlayerMatchRecord, 0, len(tallies))
	for _, tally := range tallies {
		avg := mean(tally.legAverages)
		if avg <= 0 {
			continue
		}
		record := match.PlayerMatchRecord{
			PlayerName:       tally.name,
			MatchID:          doc.MatchID,
			EventID:          eventID,
			ThreeDartAvg:     avg,
			LegsPlayed:       tally.legsPlayed,
			LegsWon:          tally.legsWon,
			FirstNineAvg:     match.Float(avg),
			FirstNineDerived: true,
		}
		if tally.highFinish > 0 {
			record.HighestCheckout = match.Int(tally.highFinish)
		}
		enrichFromCounts(&record, doc.CountsBody)
		records = append(records, record)
	}
	return records, nil
}

// enrichFromCounts overlays exact performance detail from the counts page
// onto a record. Missing values are left alone; sentinel dashes never
// become zeros.
func enrichFromCounts(record *match.PlayerMatchRecord, countsBody []byte) {
	if len(countsBody) == 0 {
		return
	}
	props, err := decodeClientState(countsBody)
	if err != nil {
		return
	}

	var perf *performanceRecord
	for i := range props.PlayerPerformances {
		if strings.EqualFold(match.NormalizeName(props.PlayerPerformances[i].Name), record.PlayerName) {
			perf = &props.PlayerPerformances[i]
			break
		}
	}
	if perf == nil {
		return
	}

	if v, err := ParseDecimal(stringify(perf.FirstNine)); err == nil && v != nil && *v > 0 {
		record.FirstNineAvg = v
		record.FirstNineDerived = false
	}
	if v, err := ParsePercent(stringify(perf.COE)); err == nil && v != nil {
		record.CheckoutPct = v
	}

	if stats := perf.DoubleOutStats; stats != nil {
		if v := optionalInt(stats["highest"]); v != nil && (record.HighestCheckout == nil || *v > *record.HighestCheckout) {
			record.HighestCheckout = v
		}
		if v := optionalInt(stats["opportunities"]); v != nil {
			record.CheckoutOpportunities = v
		}
		if v := optionalInt(stats["hits"]); v != nil {
			record.CheckoutHits = v
		}
	}

	if dist := perf.Dist.Plus100; dist != nil {
		c100Plus, c140Plus, c180 := BucketCounts(
			sentinelInt(dist["100_119"]),
			sentinelInt(dist["120_139"]),
			sentinelInt(dist["140_159"]),
			sentinelInt(dist["160_179"]),
			sentinelInt(dist["180"]),
		)
		record.Count100Plus = match.Int(c100Plus)
		record.Count140Plus = match.Int(c140Plus)
		record.Count180 = match.Int(c180)
		if v := optionalInt(dist["highest"]); v != nil {
			record.HighestScore = v
		}
	}
}

// optionalInt parses a raw value, keeping "not recorded" as nil.
func optionalInt(value any) *int {
	parsed, err := ParseDecimal(stringify(value))
	if err != nil || parsed == nil {
		return nil
	}
	return match.Int(int(*parsed))
}

// sentinelInt parses a bucket tally where the platform writes a dash for
// zero occurrences inside an otherwise-recorded distribution.
func sentinelInt(value any) int {
	if v := optionalInt(value); v != nil {
		return *v
	}
	return 0
}
