// Package strql implements STRQL, a small declarative language for
// matching structured text and projecting the match into JSON.
//
// A query is a set of named statements; one, TEXT, is the entry point.
// Run parses the query, matches it against input, and returns the
// captured document.
package strql

import (
	"github.com/strqllang/strql/internal/capture"
	"github.com/strqllang/strql/internal/engine"
	"github.com/strqllang/strql/internal/matcher"
	"github.com/strqllang/strql/internal/parser"
)

// Query is a parsed, resolved STRQL program ready to run against input.
type Query struct {
	q *engine.Query
}

// Compile parses query and resolves its statements into a reusable Query.
func Compile(query string) (*Query, error) {
	q, err := engine.Compile(query)
	if err != nil {
		return nil, err
	}
	return &Query{q: q}, nil
}

// Run matches input and returns the projected document.
func (q *Query) Run(input string) (map[string]any, error) {
	return q.q.Run(input)
}

// Run compiles query and matches it against input in one call.
func Run(query, input string) (map[string]any, error) {
	q, err := Compile(query)
	if err != nil {
		return nil, err
	}
	return q.Run(input)
}

// Re-exported error types: parse/resolve failures, no derivation spanning
// the whole input, a tied best derivation, and a capture path conflict.
type (
	// ParseError reports a syntax or referential-integrity problem found
	// while compiling a query.
	ParseError = parser.Error
	// NoMatchError reports that no derivation of TEXT spans the input.
	NoMatchError = matcher.NoMatchError
	// AmbiguousError reports that two derivations tied for best preference.
	AmbiguousError = matcher.AmbiguousError
	// CaptureConflictError reports a path/type conflict while projecting
	// the match into JSON.
	CaptureConflictError = capture.ConflictError
)
