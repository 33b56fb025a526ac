// Package engine exposes STRQL's two-phase public contract — Compile then
// Run — a single synchronous run(query, input) operation split in two so
// a compiled query can be reused against many inputs without re-parsing.
package engine

import (
	"github.com/strqllang/strql/internal/capture"
	"github.com/strqllang/strql/internal/grammar"
	"github.com/strqllang/strql/internal/matcher"
	"github.com/strqllang/strql/internal/parser"
)

// Query is a compiled grammar, ready to run against any input.
type Query struct {
	g *grammar.Grammar
}

// Compile parses and resolves a query string.
func Compile(query string) (*Query, error) {
	prog, err := parser.Parse(query)
	if err != nil {
		return nil, err
	}
	g, err := grammar.Resolve(prog)
	if err != nil {
		return nil, err
	}
	return &Query{g: g}, nil
}

// Run matches input against q and projects the result into a JSON-shaped
// document, or returns *matcher.NoMatchError / *matcher.AmbiguousError /
// *capture.ConflictError.
func (q *Query) Run(input string) (map[string]any, error) {
	deriv, err := matcher.Run(q.g, input)
	if err != nil {
		return nil, err
	}
	return capture.Project(q.g, deriv, input)
}

// Run is the one-shot convenience form: compile then run once.
func Run(query, input string) (map[string]any, error) {
	q, err := Compile(query)
	if err != nil {
		return nil, err
	}
	return q.Run(input)
}
