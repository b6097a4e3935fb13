package stream

import "strings"

// pgDialect is the small capability object that carries PostgreSQL's
// identifier-quoting rules (double-quote, doubled-quote escaping), kept
// separate from any value so the Chunk Streamer never free-functions its
// way into assuming a single global quoting scheme (spec.md §9, "Global
// SQL identifier quoting").
type pgDialect struct{}

// defaultDialect is the only PostgreSQL dialect value this package needs;
// it carries no state, so a single shared instance is fine to reuse.
var defaultDialect = pgDialect{}

// QuoteIdentifier double-quotes name, escaping any embedded double quote
// by doubling it, per spec.md §4.4.
func (pgDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
