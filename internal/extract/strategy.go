package extract

import (
	"github.com/cockroachdb/errors"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/match"
	"github.com/dowdarts/aadsstatsscrapper/internal/platform/logging"
)

// ErrNoStrategyMatched means no registered strategy recovered a usable
// record from the document. Callers treat this as a per-match parse
// failure, never as a fatal pipeline error.
var ErrNoStrategyMatched = errors.New("no extraction strategy matched document")

// Strategy recovers canonical records from one raw match document. A
// strategy is a pure function over the document: no shared state, safe to
// run concurrently across matches.
type Strategy interface {
	Name() string
	Extract(doc match.Document, eventID int) ([]match.PlayerMatchRecord, error)
}

// Chain tries strategies in registration order and uses the first one that
// yields at least one record with a positive average, exclusively. Partial
// results from different strategies are never merged.
type Chain struct {
	strategies []Strategy
	logger     *logging.Logger
}

func NewChain(logger *logging.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = logging.Default()
	}
	return &Chain{strategies: strategies, logger: logger}
}

// DefaultChain registers the production strategy order: tabular recaps
// first, then the granular turn parse, then the leg-level embedded parse.
// Granular runs ahead of embedded so exact counts supersede the
// approximated ones whenever turn data is present.
func DefaultChain(logger *logging.Logger) *Chain {
	return NewChain(logger,
		TabularStrategy{},
		GranularStrategy{},
		EmbeddedStrategy{},
	)
}

// Extract returns the winning strategy's records and its name.
func (c *Chain) Extract(doc match.Document, eventID int) ([]match.PlayerMatchRecord, string, error) {
	for _, strategy := range c.strategies {
		records, err := strategy.Extract(doc, eventID)
		if err != nil {
			c.logger.Debug("extraction strategy failed",
				"strategy", strategy.Name(),
				"match_id", doc.MatchID,
				"error", err,
			)
			continue
		}
		if !usable(records) {
			continue
		}
		for i := range records {
			records[i].Source = strategy.Name()
		}
		return records, strategy.Name(), nil
	}
	return nil, "", errors.Wrapf(ErrNoStrategyMatched, "match_id=%s", doc.MatchID)
}

func usable(records []match.PlayerMatchRecord) bool {
	if len(records) == 0 {
		return false
	}
	for _, record := range records {
		if record.ThreeDartAvg <= 0 {
			return false
		}
	}
	return true
}
