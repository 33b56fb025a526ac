package matcher

import (
	"testing"

	"github.com/strqllang/strql/internal/grammar"
	"github.com/strqllang/strql/internal/parser"
)

func compile(t *testing.T, src string) *grammar.Grammar {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parser.Parse() error = %v", err)
	}
	g, err := grammar.Resolve(prog)
	if err != nil {
		t.Fatalf("grammar.Resolve() error = %v", err)
	}
	return g
}

func TestRunLiteralMatch(t *testing.T) {
	g := compile(t, `TEXT = "abc"`)
	d, err := Run(g, "abc")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if d.Lo != 0 || d.Hi != 3 {
		t.Fatalf("got [%d,%d), want [0,3)", d.Lo, d.Hi)
	}
}

func TestRunNoMatch(t *testing.T) {
	g := compile(t, `TEXT = "abc"`)
	_, err := Run(g, "abd")
	if _, ok := err.(*NoMatchError); !ok {
		t.Fatalf("got %v, want *NoMatchError", err)
	}
}

func TestRunPartialNoMatchReportsProgress(t *testing.T) {
	g := compile(t, `TEXT = "abc" "d"`)
	_, err := Run(g, "abcx")
	nme, ok := err.(*NoMatchError)
	if !ok {
		t.Fatalf("got %v, want *NoMatchError", err)
	}
	if nme.Matched != 3 {
		t.Fatalf("got Matched = %d, want 3", nme.Matched)
	}
}

func TestRunAmbiguousUnspecifiedSplit(t *testing.T) {
	g := compile(t, `TEXT = w SPLITBY "."; w = ANY`)
	_, err := Run(g, "a.b.c")
	if _, ok := err.(*AmbiguousError); !ok {
		t.Fatalf("got %v, want *AmbiguousError", err)
	}
}

func TestRunGreedySplitPicksMaximalSplits(t *testing.T) {
	g := compile(t, `TEXT = w GREEDY SPLITBY "."; w = ANY`)
	d, err := Run(g, "a.b.c")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if d.Lo != 0 || d.Hi != 5 {
		t.Fatalf("got [%d,%d), want [0,5)", d.Lo, d.Hi)
	}
	// d is Seq(w, Repeat(Seq(".", w))); both dots split, so two iterations.
	if n := len(d.Items[1].Items); n != 2 {
		t.Fatalf("got %d SPLITBY iterations, want 2", n)
	}
}

func TestRunLazySplitPicksMinimalSplits(t *testing.T) {
	g := compile(t, `TEXT = w LAZY SPLITBY "."; w = ANY`)
	d, err := Run(g, "a.b.c")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if d.Lo != 0 || d.Hi != 5 {
		t.Fatalf("got [%d,%d), want [0,5)", d.Lo, d.Hi)
	}
	// d is Seq(w, Repeat(Seq(".", w))); no split, so zero iterations.
	if n := len(d.Items[1].Items); n != 0 {
		t.Fatalf("got %d SPLITBY iterations, want 0", n)
	}
}

func TestRunCaseScopeUpperRejectsLowercase(t *testing.T) {
	g := compile(t, `TEXT = UPPER "ab"`)
	if _, err := Run(g, "ab"); err == nil {
		t.Fatal("got nil error, want a match failure for lowercase input under UPPER")
	}
	if _, err := Run(g, "AB"); err != nil {
		t.Fatalf("Run() error = %v, want nil for uppercase input", err)
	}
}

func TestRunRepeatZeroWidthIterationTerminates(t *testing.T) {
	// LINE can match zero characters (at end of input with no trailing
	// newline). A single LINE iteration consumes the whole remaining
	// input; a second iteration would try to match zero characters at
	// EOF, which the zero-width-iteration guard must reject rather than
	// loop forever trying ever-more iterations up to the 0..5 bound.
	g := compile(t, `TEXT = 0..5 LINE`)
	d, err := Run(g, "abc")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if d.Hi != 3 {
		t.Fatalf("got Hi = %d, want 3", d.Hi)
	}
}

func TestRunRepeatRespectsMinBound(t *testing.T) {
	g := compile(t, `TEXT = 2..n "a"`)
	if _, err := Run(g, "a"); err == nil {
		t.Fatal("got nil error, want NoMatch: only one \"a\" present but min is 2")
	}
	d, err := Run(g, "aa")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if d.Hi != 2 {
		t.Fatalf("got Hi = %d, want 2", d.Hi)
	}
}
