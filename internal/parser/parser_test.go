package parser

import (
	"testing"

	"github.com/strqllang/strql/internal/ast"
)

func TestParseSimpleStatement(t *testing.T) {
	prog, err := Parse(`TEXT = "hello"`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(prog.Statements))
	}
	lit, ok := prog.Statements[0].Body.(*ast.Literal)
	if !ok || lit.Text != "hello" {
		t.Fatalf("got %#v, want Literal{hello}", prog.Statements[0].Body)
	}
}

func TestParseMissingText(t *testing.T) {
	_, err := Parse(`x = "a"`)
	perr, ok := err.(*Error)
	if !ok || perr.Kind != MissingText {
		t.Fatalf("got %v, want MissingText error", err)
	}
}

func TestParseDuplicateStatement(t *testing.T) {
	_, err := Parse("TEXT = \"a\"\nTEXT = \"b\"")
	perr, ok := err.(*Error)
	if !ok || perr.Kind != DuplicateStatement {
		t.Fatalf("got %v, want DuplicateStatement error", err)
	}
}

func TestParseAlternationLeftAssociative(t *testing.T) {
	prog, err := Parse(`TEXT = "a" OR "b" OR "c"`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	outer, ok := prog.Statements[0].Body.(*ast.Alt)
	if !ok {
		t.Fatalf("got %#v, want top-level Alt", prog.Statements[0].Body)
	}
	if _, ok := outer.Left.(*ast.Alt); !ok {
		t.Fatalf("got %#v, want left-associative Alt nesting", outer.Left)
	}
}

func TestParseSequence(t *testing.T) {
	prog, err := Parse(`TEXT = "a" "b" "c"`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	seq, ok := prog.Statements[0].Body.(*ast.Seq)
	if !ok || len(seq.Children) != 3 {
		t.Fatalf("got %#v, want 3-element Seq", prog.Statements[0].Body)
	}
}

func TestParseRepeatWithBias(t *testing.T) {
	prog, err := Parse(`TEXT = 1..n GREEDY "a"`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	rep, ok := prog.Statements[0].Body.(*ast.Repeat)
	if !ok {
		t.Fatalf("got %#v, want Repeat", prog.Statements[0].Body)
	}
	if rep.Min.N != 1 || !rep.Max.Unbounded || rep.Pref != ast.Greedy {
		t.Fatalf("got %+v, want Min=1 Max=unbounded Pref=Greedy", rep)
	}
}

func TestParseSplitByDesugars(t *testing.T) {
	prog, err := Parse(`TEXT = w LAZY SPLITBY "."; w = ANY`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	seq, ok := prog.Statements[0].Body.(*ast.Seq)
	if !ok || len(seq.Children) != 2 {
		t.Fatalf("got %#v, want desugared 2-element Seq", prog.Statements[0].Body)
	}
	rep, ok := seq.Children[1].(*ast.Repeat)
	if !ok || rep.Pref != ast.Lazy {
		t.Fatalf("got %#v, want Lazy Repeat as second Seq child", seq.Children[1])
	}
}

func TestParseInlineStatement(t *testing.T) {
	prog, err := Parse(`TEXT = (w = ANY -> ADD TO ROOT.first)`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(prog.Statements) != 2 {
		t.Fatalf("got %d statements, want 2 (TEXT + desugared inline)", len(prog.Statements))
	}
	if _, ok := prog.Statements[0].Body.(*ast.VarRef); !ok {
		t.Fatalf("got %#v, want TEXT's body desugared to a VarRef", prog.Statements[0].Body)
	}
	if prog.Statements[1].Name != "w" || prog.Statements[1].Capture == nil {
		t.Fatalf("got %#v, want inline statement named w with a capture", prog.Statements[1])
	}
}

func TestParseCapturePath(t *testing.T) {
	prog, err := Parse(`w = ANY -> ADD TO ROOT.items[]` + "\n" + `TEXT = w`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	cap := prog.Statements[0].Capture
	if cap == nil || len(cap.Path) != 2 {
		t.Fatalf("got %#v, want a 2-segment capture path", cap)
	}
	if cap.Path[0].Kind != ast.SegRoot || cap.Path[1].Kind != ast.SegArray || cap.Path[1].Name != "items" {
		t.Fatalf("got %+v, want [Root, Array(items)]", cap.Path)
	}
}

func TestParseCapturePathCannotContinuePastArray(t *testing.T) {
	_, err := Parse(`w = ANY -> ADD TO ROOT.items[].more` + "\n" + `TEXT = w`)
	perr, ok := err.(*Error)
	if !ok || perr.Kind != BadCapturePath {
		t.Fatalf("got %v, want BadCapturePath error", err)
	}
}

func TestParseUnresolvedVariableIsNotAParserError(t *testing.T) {
	// Referential integrity (does "missing" name a real statement?) is
	// internal/grammar's job, not the parser's — the parser rejects only
	// structurally invalid programs, duplicate statement names, and a
	// missing TEXT statement.
	if _, err := Parse(`TEXT = missing`); err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}
}

func TestParseKeywordsCaseInsensitive(t *testing.T) {
	prog, err := Parse(`text = WORD splitby newline`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	seq, ok := prog.Statements[0].Body.(*ast.Seq)
	if !ok || len(seq.Children) != 2 {
		t.Fatalf("got %#v, want desugared 2-element Seq (lowercase splitby must still desugar)", prog.Statements[0].Body)
	}
	rep, ok := seq.Children[1].(*ast.Repeat)
	if !ok {
		t.Fatalf("got %#v, want Repeat as second Seq child", seq.Children[1])
	}
	body, ok := rep.Body.(*ast.Seq)
	if !ok || len(body.Children) != 2 {
		t.Fatalf("got %#v, want 2-element Seq(newline, word) repeat body", rep.Body)
	}
	if _, ok := body.Children[0].(*ast.Class); !ok {
		t.Fatalf("got %#v, want lowercase newline to desugar to Class", body.Children[0])
	}
}

func TestParseRootAloneRejected(t *testing.T) {
	_, err := Parse(`w = ANY -> ADD TO ROOT` + "\n" + `TEXT = w`)
	perr, ok := err.(*Error)
	if !ok || perr.Kind != BadCapturePath {
		t.Fatalf("got %v, want BadCapturePath error", err)
	}
}
