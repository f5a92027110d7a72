package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/match"
)

// Plausibility ranges for classifying anonymous numeric cells. Column
// order drifts between recap layouts, so cells are binned by value range
// instead of position.
const (
	minPlausibleAvg  = 40.0
	maxPlausibleAvg  = 120.0
	maxCheckoutValue = 170
	maxCountValue    = 50

	// Tabular recaps do not expose per-leg detail.
	// TODO: derive legs from the match score column once a fixture carrying one is captured.
	tabularDefaultLegs = 5
)

// TabularStrategy scans rendered stats tables for player rows. It is the
// cheapest parse and runs first; rows need at least six cells, a
// non-numeric name cell and a plausible average to count.
type TabularStrategy struct{}

func (TabularStrategy) Name() string { return "tabular" }

func (TabularStrategy) Extract(doc match.Document, eventID int) ([]match.PlayerMatchRecord, error) {
	if len(doc.Body) == 0 {
		return nil, errors.New("empty document body")
	}
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Body))
	if err != nil {
		return nil, errors.Wrap(err, "parse document")
	}

	var records []match.PlayerMatchRecord
	page.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 6 {
			return
		}
		texts := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			texts = append(texts, strings.TrimSpace(cell.Text()))
		})
		if record, ok := recordFromRow(texts, doc.MatchID, eventID); ok {
			records = append(records, record)
		}
	})

	if len(records) == 0 {
		return nil, errors.New("no player rows found in tabular structures")
	}
	return records, nil
}

func recordFromRow(texts []string, matchID string, eventID int) (match.PlayerMatchRecord, bool) {
	name, nameIdx := findPlayerName(texts)
	if name == "" {
		return match.PlayerMatchRecord{}, false
	}

	var numbers []float64
	for i, text := range texts {
		if i == nameIdx {
			continue
		}
		value, err := ParseDecimal(text)
		if err != nil || value == nil {
			continue
		}
		numbers = append(numbers, *value)
	}

	record := match.PlayerMatchRecord{
		PlayerName: name,
		MatchID:    matchID,
		EventID:    eventID,
		LegsPlayed: tabularDefaultLegs,
	}

	var averages []float64
	for _, n := range numbers {
		if n >= minPlausibleAvg && n <= maxPlausibleAvg {
			averages = append(averages, n)
		}
	}
	if len(averages) == 0 {
		return match.PlayerMatchRecord{}, false
	}
	record.ThreeDartAvg = averages[0]
	if len(averages) > 1 {
		record.FirstNineAvg = match.Float(averages[1])
	}

	// Small whole numbers past the averages read as the 100+/140+/180
	// tallies, in the column order every observed layout shares.
	var counts []int
	for _, n := range numbers {
		if n == float64(int(n)) && n >= 0 && n <= maxCountValue && n < minPlausibleAvg {
			counts = append(counts, int(n))
		}
	}
	if len(counts) > 0 {
		record.Count100Plus = match.Int(counts[0])
	}
	if len(counts) > 1 {
		record.Count140Plus = match.Int(counts[1])
	}
	if len(counts) > 2 {
		record.Count180 = match.Int(counts[2])
	}

	// The highest whole number in checkout range, beyond any count tally,
	// reads as the high finish.
	for _, n := range numbers {
		whole := int(n)
		if n != float64(whole) || whole <= maxCountValue || whole > maxCheckoutValue {
			continue
		}
		if record.HighestCheckout == nil || whole > *record.HighestCheckout {
			record.HighestCheckout = match.Int(whole)
		}
	}

	return record, true
}

// findPlayerName picks the first early cell that is not a number.
func findPlayerName(texts []string) (string, int) {
	limit := min(3, len(texts))
	for i := 0; i < limit; i++ {
		text := texts[i]
		if text == "" || text == "-" {
			continue
		}
		if value, err := ParseDecimal(text); err == nil && value != nil {
			continue
		}
		name := match.NormalizeName(text)
		if len(name) >= 2 {
			return name, i
		}
	}
	return "", -1
}
