package extract

import (
	"github.com/cockroachdb/errors"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/match"
)

// GranularStrategy parses the client-state payload when legs additionally
// expose their ordered turn sequences. Per-turn thresholding yields exact
// 100+/140+/180 counts and a measured first-nine average, so this strategy
// is registered ahead of the leg-level embedded parse and supersedes its
// approximations whenever turn data exists.
type GranularStrategy struct{}

func (GranularStrategy) Name() string { return "granular" }

func (GranularStrategy) Extract(doc match.Document, eventID int) ([]match.PlayerMatchRecord, error) {
	props, err := decodeClientState(doc.Body)
	if err != nil {
		return nil, err
	}

	tallies := tallyLegs(props)
	if len(tallies) == 0 {
		return nil, errors.New("client-state payload carries no leg records")
	}
	for _, tally := range tallies {
		if tally.legsMissing || len(tally.turnScores) == 0 {
			return nil, errors.Newf("no turn data for player %q", tally.name)
		}
	}

	records := make([]match.PlayerMatchRecord, 0, len(tallies))
	for _, tally := range tallies {
		avg := mean(tally.legAverages)
		if avg <= 0 {
			continue
		}
		c100Plus, c140Plus, c180, highest := CountTurnScores(tally.turnScores)
		record := match.PlayerMatchRecord{
			PlayerName:   tally.name,
			MatchID:      doc.MatchID,
			EventID:      eventID,
			ThreeDartAvg: avg,
			LegsPlayed:   tally.legsPlayed,
			LegsWon:      tally.legsWon,
			Count100Plus: match.Int(c100Plus),
			Count140Plus: match.Int(c140Plus),
			Count180:     match.Int(c180),
		}
		if len(tally.firstNines) > 0 {
			record.FirstNineAvg = match.Float(mean(tally.firstNines))
		}
		if highest > 0 {
			record.HighestScore = match.Int(highest)
		}
		if tally.highFinish > 0 {
			record.HighestCheckout = match.Int(tally.highFinish)
		}
		enrichFromCounts(&record, doc.CountsBody)
		records = append(records, record)
	}
	return records, nil
}
