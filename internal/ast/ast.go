// Package ast defines the syntax tree produced by internal/parser.
//
// There is deliberately no inline-statement expression node here —
// internal/parser desugars `(x = expr)` into an ordinary Statement appended
// to the program and replaces the use site with a VarRef before this tree
// is ever built, so an inline-statement expression node never actually
// appears in a constructed AST.
package ast

// Program is the top-level parse result: every statement, including ones
// desugared from inline `(x = expr)` forms: top-level statements in source
// order, followed by inline ones in the order their closing parentheses are
// reached (a nested inline statement precedes the one enclosing it).
type Program struct {
	Statements []*Statement
}

// Statement is a named production `name = body` with an optional capture.
type Statement struct {
	Name    string
	Body    Expr
	Capture *Capture
	Line    int
	Col     int
}

// Expr is the tagged union of pattern expressions.
type Expr interface {
	exprNode()
}

// Literal is a non-empty quoted string to match verbatim (subject to the
// active case mode).
type Literal struct {
	Text string
}

// VarRef references another statement by name.
type VarRef struct {
	Name string
	Line int
	Col  int
}

// Alt is ordered alternation; the ordering carries no preference, both
// branches are always tried.
type Alt struct {
	Left, Right Expr
}

// Seq is concatenation of two or more sub-expressions.
type Seq struct {
	Children []Expr
}

// Bias is a quantifier's disambiguation preference.
type Bias int

const (
	Unspecified Bias = iota
	Greedy
	Lazy
)

func (b Bias) String() string {
	switch b {
	case Greedy:
		return "GREEDY"
	case Lazy:
		return "LAZY"
	default:
		return "UNSPECIFIED"
	}
}

// Bound is one side of a repetition range. A bound spelled as a variable
// (or `n`/`N`) in the source carries no information beyond "unbounded in
// this slot" — nothing downstream ever needs the variable's name, so a
// single flag covers every unbounded spelling.
type Bound struct {
	Unbounded bool
	N         int
}

// Repeat is `min..max body` with a disambiguation preference.
type Repeat struct {
	Min, Max Bound
	Body     Expr
	Pref     Bias
}

// ClassKind enumerates the built-in character classes.
type ClassKind int

const (
	ClassLetter ClassKind = iota
	ClassDigit
	ClassSpace
	ClassNewline
	ClassAnyChar
)

func (k ClassKind) String() string {
	switch k {
	case ClassLetter:
		return "LETTER"
	case ClassDigit:
		return "DIGIT"
	case ClassSpace:
		return "SPACE"
	case ClassNewline:
		return "NEWLINE"
	case ClassAnyChar:
		return "ANYCHAR"
	default:
		return "UNKNOWN"
	}
}

// Class matches a single character against one of the built-in predicates.
type Class struct {
	Kind ClassKind
}

// Line matches a greedy run of characters up to (not including) the next
// newline or end of input.
type Line struct{}

// CaseMode is the active case-comparison rule inside a CaseScope.
type CaseMode int

const (
	CaseNormal CaseMode = iota
	CaseUpper
	CaseLower
	CaseAny
)

// CaseScope overrides the case-comparison rule for its body.
type CaseScope struct {
	Mode CaseMode
	Body Expr
}

func (*Literal) exprNode()   {}
func (*VarRef) exprNode()    {}
func (*Alt) exprNode()       {}
func (*Seq) exprNode()       {}
func (*Repeat) exprNode()    {}
func (*Class) exprNode()     {}
func (*Line) exprNode()      {}
func (*CaseScope) exprNode() {}

// CaptureSourceKind selects where a capture's value comes from.
type CaptureSourceKind int

const (
	SourceDefault CaptureSourceKind = iota
	SourceVar
	SourceObject
)

// CaptureSource is the `source` half of a Capture.
type CaptureSource struct {
	Kind CaptureSourceKind
	Name string // set for SourceVar and SourceObject
}

// SegmentKind enumerates the kinds of capture path segment.
type SegmentKind int

const (
	SegRoot SegmentKind = iota
	SegField
	SegArray
	SegNamedKey
)

// Segment is one step of a capture Path. Array and NamedKey segments fully
// resolve (descend-and-write) in one step, so either may only appear as the
// last segment of a Path — internal/parser enforces this at parse time.
type Segment struct {
	Kind   SegmentKind
	Name   string
	VarRef string // set for SegNamedKey: the variable whose value is the key
}

// Capture decorates a Statement with instructions for projecting its match
// into the output JSON document.
type Capture struct {
	Source CaptureSource
	Path   []Segment
}
