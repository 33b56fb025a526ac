// Package parser builds an ast.Program from a token stream.
//
// Implements the six-level precedence chain (OR, SPLITBY, sequence,
// range-quantifier, case-modifier, atom), inline-statement desugaring at
// `(`, and capture-clause grammar (`ADD [name[{}]] TO <path>`), as a
// cursor over a token slice with small single-purpose parseX methods.
package parser

import (
	"fmt"
	"strings"

	"github.com/strqllang/strql/internal/ast"
	"github.com/strqllang/strql/internal/lexer"
)

// ErrorKind classifies a ParseError. ProductiveCycle is raised by
// internal/grammar, not the parser itself; see DESIGN.md for why it
// shares this error family.
type ErrorKind int

const (
	UnexpectedToken ErrorKind = iota
	UnterminatedLiteral
	BadRange
	UnknownVariable
	DuplicateStatement
	BadCapturePath
	MissingText
	ProductiveCycle
)

func (k ErrorKind) String() string {
	switch k {
	case UnexpectedToken:
		return "UnexpectedToken"
	case UnterminatedLiteral:
		return "UnterminatedLiteral"
	case BadRange:
		return "BadRange"
	case UnknownVariable:
		return "UnknownVariable"
	case DuplicateStatement:
		return "DuplicateStatement"
	case BadCapturePath:
		return "BadCapturePath"
	case MissingText:
		return "MissingText"
	case ProductiveCycle:
		return "ProductiveCycle"
	default:
		return "Unknown"
	}
}

// Error is a location-tagged parse failure.
type Error struct {
	Line, Col int
	Kind      ErrorKind
	Msg       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d col %d: %s: %s", e.Line, e.Col, e.Kind, e.Msg)
}

// structuralKeywords holds the canonical (uppercase) spelling of every
// keyword that cannot also start an atom. Keyword recognition throughout
// this file folds case the same way the reference lexer's ignore(case)
// keyword tokens do; ordinary identifiers (statement and variable names)
// keep whatever case the source gave them.
var structuralKeywords = map[string]bool{
	"OR": true, "SPLITBY": true, "GREEDY": true, "LAZY": true,
	"ADD": true, "TO": true,
}

func foldKeyword(v string) string { return strings.ToUpper(v) }

// Parse tokenizes and parses src into a Program.
func Parse(src string) (*ast.Program, error) {
	toks, err := lexer.New(src).Tokenize()
	if err != nil {
		if le, ok := err.(*lexer.Error); ok {
			return nil, &Error{le.Line, le.Col, UnterminatedLiteral, le.Msg}
		}
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseProgram()
}

type parser struct {
	toks    []lexer.Token
	pos     int
	inlines []*ast.Statement
	names   map[string]bool
}

func (p *parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *parser) peek(n int) lexer.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[i]
}
func (p *parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errf(tok lexer.Token, kind ErrorKind, format string, args ...interface{}) error {
	return &Error{tok.Line, tok.Col, kind, fmt.Sprintf(format, args...)}
}

func isIdent(t lexer.Token, val string) bool {
	return t.Type == lexer.IDENT && foldKeyword(t.Value) == val
}

func (p *parser) skipSeparators() {
	for p.cur().Type == lexer.SEMI || p.cur().Type == lexer.NEWLINE {
		p.advance()
	}
}

func (p *parser) parseProgram() (*ast.Program, error) {
	p.names = map[string]bool{}
	var stmts []*ast.Statement
	p.skipSeparators()
	for p.cur().Type != lexer.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		p.skipSeparators()
	}
	stmts = append(stmts, p.inlines...)
	hasText := false
	for _, s := range stmts {
		if strings.EqualFold(s.Name, "TEXT") {
			hasText = true
			break
		}
	}
	if !hasText {
		return nil, p.errf(p.cur(), MissingText, "no TEXT statement defined")
	}
	return &ast.Program{Statements: stmts}, nil
}

func (p *parser) parseStatement() (*ast.Statement, error) {
	tok := p.cur()
	if tok.Type != lexer.IDENT {
		return nil, p.errf(tok, UnexpectedToken, "expected statement name, found %s", tok.Type)
	}
	name := tok.Value
	p.advance()
	if err := p.expect(lexer.EQUALS); err != nil {
		return nil, err
	}
	body, err := p.parseAlternation()
	if err != nil {
		return nil, err
	}
	var capture *ast.Capture
	if p.cur().Type == lexer.ARROW {
		p.advance()
		capture, err = p.parseCapture()
		if err != nil {
			return nil, err
		}
	}
	if p.names[name] {
		return nil, p.errf(tok, DuplicateStatement, "statement %q already defined", name)
	}
	p.names[name] = true
	return &ast.Statement{Name: name, Body: body, Capture: capture, Line: tok.Line, Col: tok.Col}, nil
}

func (p *parser) expect(t lexer.TokenType) error {
	if p.cur().Type != t {
		return p.errf(p.cur(), UnexpectedToken, "expected %s, found %s", t, p.cur().Type)
	}
	p.advance()
	return nil
}

// parseAlternation: level 1, `OR`, left-associative.
func (p *parser) parseAlternation() (ast.Expr, error) {
	left, err := p.parseSplitBy()
	if err != nil {
		return nil, err
	}
	for isIdent(p.cur(), "OR") {
		p.advance()
		right, err := p.parseSplitBy()
		if err != nil {
			return nil, err
		}
		left = &ast.Alt{Left: left, Right: right}
	}
	return left, nil
}

// parseSplitBy: level 2, `a [GREEDY|LAZY] SPLITBY b`.
func (p *parser) parseSplitBy() (ast.Expr, error) {
	left, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	bias := ast.Unspecified
	biasTok := p.cur()
	consumedBias := false
	if isIdent(p.cur(), "GREEDY") {
		bias = ast.Greedy
		consumedBias = true
	} else if isIdent(p.cur(), "LAZY") {
		bias = ast.Lazy
		consumedBias = true
	}
	if consumedBias {
		if !isIdent(p.peek(1), "SPLITBY") {
			return nil, p.errf(biasTok, UnexpectedToken, "%s must immediately precede SPLITBY", biasTok.Value)
		}
		p.advance() // bias keyword
	}
	if isIdent(p.cur(), "SPLITBY") {
		p.advance()
		right, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		return desugarSplitBy(left, right, bias), nil
	}
	if consumedBias {
		return nil, p.errf(biasTok, UnexpectedToken, "%s not followed by SPLITBY", biasTok.Value)
	}
	return left, nil
}

// desugarSplitBy rewrites `a SPLITBY b` into `Seq(a, Repeat{0, n, Seq(b, a), pref})`.
func desugarSplitBy(a, b ast.Expr, pref ast.Bias) ast.Expr {
	return &ast.Seq{Children: []ast.Expr{
		a,
		&ast.Repeat{
			Min:  ast.Bound{N: 0},
			Max:  ast.Bound{Unbounded: true},
			Body: &ast.Seq{Children: []ast.Expr{b, a}},
			Pref: pref,
		},
	}}
}

// parseSequence: level 3, implicit concatenation.
func (p *parser) parseSequence() (ast.Expr, error) {
	var children []ast.Expr
	for p.canStartAtom(p.cur()) {
		e, err := p.parseQuantified()
		if err != nil {
			return nil, err
		}
		children = append(children, e)
	}
	if len(children) == 0 {
		return nil, p.errf(p.cur(), UnexpectedToken, "expected an expression, found %s", p.cur().Type)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &ast.Seq{Children: children}, nil
}

func (p *parser) canStartAtom(t lexer.Token) bool {
	switch t.Type {
	case lexer.STRING, lexer.LPAREN, lexer.NUMBER:
		return true
	case lexer.IDENT:
		return !structuralKeywords[foldKeyword(t.Value)]
	default:
		return false
	}
}

// parseQuantified: level 4, prefix `<range> [GREEDY|LAZY]`.
func (p *parser) parseQuantified() (ast.Expr, error) {
	if p.looksLikeRange() {
		min, err := p.parseBound()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.DOTDOT); err != nil {
			return nil, &Error{p.cur().Line, p.cur().Col, BadRange, "expected '..' in quantifier range"}
		}
		max, err := p.parseBound()
		if err != nil {
			return nil, err
		}
		bias := ast.Unspecified
		if isIdent(p.cur(), "GREEDY") {
			bias = ast.Greedy
			p.advance()
		} else if isIdent(p.cur(), "LAZY") {
			bias = ast.Lazy
			p.advance()
		}
		body, err := p.parseModified()
		if err != nil {
			return nil, err
		}
		return &ast.Repeat{Min: min, Max: max, Body: body, Pref: bias}, nil
	}
	return p.parseModified()
}

func (p *parser) looksLikeRange() bool {
	t := p.cur()
	if t.Type != lexer.NUMBER && t.Type != lexer.IDENT {
		return false
	}
	folded := foldKeyword(t.Value)
	if structuralKeywords[folded] || isCaseModifier(folded) || isBuiltin(folded) {
		return false
	}
	return p.peek(1).Type == lexer.DOTDOT
}

func (p *parser) parseBound() (ast.Bound, error) {
	t := p.cur()
	switch t.Type {
	case lexer.NUMBER:
		p.advance()
		n := 0
		for _, c := range t.Value {
			n = n*10 + int(c-'0')
		}
		return ast.Bound{N: n}, nil
	case lexer.IDENT:
		// Any identifier in bound position — including the reserved `n`/`N`
		// — means "unbounded in this slot".
		p.advance()
		return ast.Bound{Unbounded: true}, nil
	default:
		return ast.Bound{}, &Error{t.Line, t.Col, BadRange, fmt.Sprintf("expected a number or identifier, found %s", t.Type)}
	}
}

func isCaseModifier(v string) bool {
	v = foldKeyword(v)
	return v == "UPPER" || v == "LOWER" || v == "ANYCASE"
}

func isBuiltin(v string) bool {
	switch foldKeyword(v) {
	case "WORD", "ANY", "ALPHANUM", "LINE", "LETTER", "DIGIT", "SPACE", "NEWLINE", "ANYCHAR":
		return true
	default:
		return false
	}
}

// parseModified: level 5, prefix case modifier.
func (p *parser) parseModified() (ast.Expr, error) {
	switch {
	case isIdent(p.cur(), "UPPER"):
		p.advance()
		body, err := p.parseModified()
		if err != nil {
			return nil, err
		}
		return &ast.CaseScope{Mode: ast.CaseUpper, Body: body}, nil
	case isIdent(p.cur(), "LOWER"):
		p.advance()
		body, err := p.parseModified()
		if err != nil {
			return nil, err
		}
		return &ast.CaseScope{Mode: ast.CaseLower, Body: body}, nil
	case isIdent(p.cur(), "ANYCASE"):
		p.advance()
		body, err := p.parseModified()
		if err != nil {
			return nil, err
		}
		return &ast.CaseScope{Mode: ast.CaseAny, Body: body}, nil
	default:
		return p.parseAtom()
	}
}

// parseAtom: level 6. Literals, identifiers (variables and builtins),
// parenthesized expressions, and inline statements.
func (p *parser) parseAtom() (ast.Expr, error) {
	t := p.cur()
	switch t.Type {
	case lexer.STRING:
		p.advance()
		return &ast.Literal{Text: t.Value}, nil
	case lexer.LPAREN:
		return p.parseParenOrInline()
	case lexer.IDENT:
		p.advance()
		switch foldKeyword(t.Value) {
		case "WORD":
			return desugarWord(), nil
		case "ANY":
			return desugarAny(), nil
		case "ALPHANUM":
			return desugarAlphanum(), nil
		case "LINE":
			return &ast.Line{}, nil
		case "LETTER":
			return &ast.Class{Kind: ast.ClassLetter}, nil
		case "DIGIT":
			return &ast.Class{Kind: ast.ClassDigit}, nil
		case "SPACE":
			return &ast.Class{Kind: ast.ClassSpace}, nil
		case "NEWLINE":
			return &ast.Class{Kind: ast.ClassNewline}, nil
		case "ANYCHAR":
			return &ast.Class{Kind: ast.ClassAnyChar}, nil
		default:
			return &ast.VarRef{Name: t.Value, Line: t.Line, Col: t.Col}, nil
		}
	default:
		return nil, p.errf(t, UnexpectedToken, "unexpected token %s", t.Type)
	}
}

// desugarWord rewrites `WORD` into `1..n Letter`.
func desugarWord() ast.Expr {
	return &ast.Repeat{Min: ast.Bound{N: 1}, Max: ast.Bound{Unbounded: true}, Body: &ast.Class{Kind: ast.ClassLetter}}
}

// desugarAny implements `ANY -> 0..n AnyChar`.
func desugarAny() ast.Expr {
	return &ast.Repeat{Min: ast.Bound{N: 0}, Max: ast.Bound{Unbounded: true}, Body: &ast.Class{Kind: ast.ClassAnyChar}}
}

// desugarAlphanum implements `ALPHANUM -> 1..n (Letter OR Digit)`.
func desugarAlphanum() ast.Expr {
	return &ast.Repeat{
		Min: ast.Bound{N: 1}, Max: ast.Bound{Unbounded: true},
		Body: &ast.Alt{Left: &ast.Class{Kind: ast.ClassLetter}, Right: &ast.Class{Kind: ast.ClassDigit}},
	}
}

// parseParenOrInline handles both a parenthesized sub-expression and the
// `(name = expr [-> capture])` inline-statement form: the two are
// disambiguated by looking past the `(` for `ident =`.
func (p *parser) parseParenOrInline() (ast.Expr, error) {
	p.advance() // '('
	if p.cur().Type == lexer.IDENT && p.peek(1).Type == lexer.EQUALS {
		nameTok := p.cur()
		name := nameTok.Value
		p.advance()
		p.advance() // '='
		body, err := p.parseAlternation()
		if err != nil {
			return nil, err
		}
		var capture *ast.Capture
		if p.cur().Type == lexer.ARROW {
			p.advance()
			capture, err = p.parseCapture()
			if err != nil {
				return nil, err
			}
		}
		if err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		if p.names[name] {
			return nil, p.errf(nameTok, DuplicateStatement, "statement %q already defined", name)
		}
		p.names[name] = true
		p.inlines = append(p.inlines, &ast.Statement{Name: name, Body: body, Capture: capture, Line: nameTok.Line, Col: nameTok.Col})
		return &ast.VarRef{Name: name, Line: nameTok.Line, Col: nameTok.Col}, nil
	}
	body, err := p.parseAlternation()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return body, nil
}

// parseCapture parses `ADD [name[{}]] TO <path>` after the leading `->` has
// already been consumed by the caller.
func (p *parser) parseCapture() (*ast.Capture, error) {
	if !isIdent(p.cur(), "ADD") {
		return nil, p.errf(p.cur(), UnexpectedToken, "expected ADD, found %s", p.cur().Type)
	}
	p.advance()
	source := ast.CaptureSource{Kind: ast.SourceDefault}
	if p.cur().Type == lexer.IDENT && foldKeyword(p.cur().Value) != "TO" {
		varName := p.cur().Value
		p.advance()
		if p.cur().Type == lexer.LBRACE {
			p.advance()
			if err := p.expect(lexer.RBRACE); err != nil {
				return nil, err
			}
			source = ast.CaptureSource{Kind: ast.SourceObject, Name: varName}
		} else {
			source = ast.CaptureSource{Kind: ast.SourceVar, Name: varName}
		}
	}
	if !isIdent(p.cur(), "TO") {
		return nil, p.errf(p.cur(), UnexpectedToken, "expected TO, found %s", p.cur().Type)
	}
	p.advance()
	path, err := p.parseCapturePath()
	if err != nil {
		return nil, err
	}
	return &ast.Capture{Source: source, Path: path}, nil
}

func (p *parser) parseCapturePath() ([]ast.Segment, error) {
	var segs []ast.Segment
	if isIdent(p.cur(), "ROOT") {
		p.advance()
		segs = append(segs, ast.Segment{Kind: ast.SegRoot})
	} else {
		seg, err := p.parsePathComponent()
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	for p.cur().Type == lexer.DOT {
		if len(segs) > 0 {
			last := segs[len(segs)-1]
			if last.Kind == ast.SegArray || last.Kind == ast.SegNamedKey {
				return nil, &Error{p.cur().Line, p.cur().Col, BadCapturePath, "cannot continue a path past an array-append or dynamic-key segment"}
			}
		}
		p.advance()
		seg, err := p.parsePathComponent()
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	if len(segs) == 1 && segs[0].Kind == ast.SegRoot {
		return nil, &Error{p.cur().Line, p.cur().Col, BadCapturePath, "ROOT alone is not a valid capture path"}
	}
	return segs, nil
}

func (p *parser) parsePathComponent() (ast.Segment, error) {
	t := p.cur()
	if t.Type != lexer.IDENT {
		return ast.Segment{}, p.errf(t, BadCapturePath, "expected a field name, found %s", t.Type)
	}
	name := t.Value
	p.advance()
	if p.cur().Type == lexer.LBRACKET {
		p.advance()
		if p.cur().Type == lexer.RBRACKET {
			p.advance()
			return ast.Segment{Kind: ast.SegArray, Name: name}, nil
		}
		if p.cur().Type == lexer.IDENT {
			vr := p.cur().Value
			p.advance()
			if err := p.expect(lexer.RBRACKET); err != nil {
				return ast.Segment{}, err
			}
			return ast.Segment{Kind: ast.SegNamedKey, Name: name, VarRef: vr}, nil
		}
		return ast.Segment{}, p.errf(p.cur(), BadCapturePath, "expected ']' or a variable name, found %s", p.cur().Type)
	}
	return ast.Segment{Kind: ast.SegField, Name: name}, nil
}
