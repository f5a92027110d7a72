package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Generator mints opaque identifiers for ingestion jobs.
type Generator interface {
	NewID() (string, error)
}

// RandomGenerator produces prefixed random hex ids, readable in logs and
// safe in URLs.
type RandomGenerator struct {
	prefix string
}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{prefix: "job"}
}

func (g *RandomGenerator) NewID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return g.prefix + "_" + hex.EncodeToString(buf), nil
}
