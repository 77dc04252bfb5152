// Package ticker defines the ticker-extraction collaborator the
// Decomposer consults before planning. The S&P-500 company catalog is an
// external, pluggable data table; this package only defines the
// interface and a minimal static-catalog implementation suitable for
// tests and local development.
package ticker

import (
	"context"
	"regexp"
	"strings"
)

// Extractor turns a raw query into a set of candidate ticker symbols.
// Implementations may consult a static company-name catalog, a fuzzy
// matcher, or an external service — the engine only depends on this
// interface.
type Extractor interface {
	ExtractTickers(ctx context.Context, query string) ([]string, error)
}

// staticCatalog is a minimal Extractor backed by an in-memory
// name/symbol table. It recognizes a handful of well-known companies by
// name or bare uppercase symbol; real deployments should swap in a full
// S&P-500 catalog without the engine noticing, since only the Extractor
// interface is consumed.
type staticCatalog struct {
	byName map[string]string
}

var tickerLike = regexp.MustCompile(`\b[A-Z]{1,5}\b`)

// NewStaticCatalog returns a small built-in Extractor. It is meant for
// tests and local development, not as a production ticker catalog.
func NewStaticCatalog() Extractor {
	return &staticCatalog{
		byName: map[string]string{
			"apple":     "AAPL",
			"microsoft": "MSFT",
			"amazon":    "AMZN",
			"google":    "GOOGL",
			"alphabet":  "GOOGL",
			"meta":      "META",
			"facebook":  "META",
			"nvidia":    "NVDA",
			"tesla":     "TSLA",
			"netflix":   "NFLX",
		},
	}
}

// ExtractTickers returns candidate tickers found by company name and by
// bare uppercase-symbol pattern matching. Results are deduplicated but
// not validated against a real exchange listing — the Decomposer treats
// them only as planning hints.
func (c *staticCatalog) ExtractTickers(_ context.Context, query string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	lower := strings.ToLower(query)
	for name, symbol := range c.byName {
		if strings.Contains(lower, name) && !seen[symbol] {
			seen[symbol] = true
			out = append(out, symbol)
		}
	}

	for _, match := range tickerLike.FindAllString(query, -1) {
		if len(match) < 2 {
			continue // avoid single-letter false positives like "A"
		}
		if !seen[match] {
			seen[match] = true
			out = append(out, match)
		}
	}

	return out, nil
}
