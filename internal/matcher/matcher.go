// Package matcher implements STRQL's Viterbi-style dynamic-program matcher.
//
// For each (node, offset) pair the matcher computes the set of reachable
// end offsets, where each end offset carries either a single best
// (preference, derivation) pair or an Ambiguous marker recording only the
// tied best preference.
package matcher

import (
	"strings"
	"unicode/utf8"

	"github.com/strqllang/strql/internal/ast"
	"github.com/strqllang/strql/internal/grammar"
)

// cellEntry is the per-end-offset result the DP keeps: either a unique
// best derivation with its preference, or a marker that the best
// preference at this offset is tied between two or more derivations.
type cellEntry struct {
	ambiguous bool
	pref      Preference
	deriv     *Derivation
}

type memoKey struct {
	node grammar.NodeID
	pos  int
	mode ast.CaseMode
}

type matcher struct {
	g      *grammar.Grammar
	input  string
	memo   map[memoKey]map[int]*cellEntry
	maxEnd int
}

// Run matches input against g's TEXT statement and returns the canonical
// derivation, or a *NoMatchError / *AmbiguousError.
func Run(g *grammar.Grammar, input string) (*Derivation, error) {
	m := &matcher{g: g, input: input, memo: map[memoKey]map[int]*cellEntry{}}
	textStmt := g.Statements[g.TextIndex()]
	entries := m.eval(textStmt.Root, 0, ast.CaseNormal)
	entry, ok := entries[len(input)]
	if !ok {
		return nil, &NoMatchError{Matched: m.maxEnd, Total: len(input)}
	}
	if entry.ambiguous {
		return nil, &AmbiguousError{Reason: "two derivations of TEXT tie under the preference order", Span: len(input)}
	}
	return entry.deriv, nil
}

func (m *matcher) eval(id grammar.NodeID, pos int, mode ast.CaseMode) map[int]*cellEntry {
	key := memoKey{id, pos, mode}
	if cached, ok := m.memo[key]; ok {
		return cached
	}
	result := m.evalUncached(id, pos, mode)
	for end := range result {
		if end > m.maxEnd {
			m.maxEnd = end
		}
	}
	m.memo[key] = result
	return result
}

func (m *matcher) evalUncached(id grammar.NodeID, pos int, mode ast.CaseMode) map[int]*cellEntry {
	n := &m.g.Nodes[id]
	switch n.Kind {
	case grammar.NLiteral:
		return m.evalLiteral(n, pos, mode)
	case grammar.NClass:
		return m.evalClass(n, pos, mode)
	case grammar.NLine:
		return m.evalLine(pos, mode)
	case grammar.NVarRef:
		return m.evalVarRef(n, pos, mode)
	case grammar.NAlt:
		return mergeMaps(m.eval(n.AltLeft, pos, mode), m.eval(n.AltRight, pos, mode))
	case grammar.NSeq:
		return m.evalSeq(n, pos, mode)
	case grammar.NRepeat:
		return m.evalRepeat(id, n, pos, mode)
	case grammar.NCaseScope:
		return m.evalCaseScope(n, pos, mode)
	default:
		return map[int]*cellEntry{}
	}
}

func (m *matcher) evalLiteral(n *grammar.Node, pos int, mode ast.CaseMode) map[int]*cellEntry {
	s := n.Literal
	end := pos + len(s)
	if end > len(m.input) {
		return map[int]*cellEntry{}
	}
	if !literalMatches(mode, m.input[pos:end], s) {
		return map[int]*cellEntry{}
	}
	return map[int]*cellEntry{end: {pref: zeroPreference(m.g.MaxDepth + 1), deriv: &Derivation{Kind: grammar.NLiteral, Lo: pos, Hi: end}}}
}

func literalMatches(mode ast.CaseMode, slice, want string) bool {
	switch mode {
	case ast.CaseAny:
		return strings.EqualFold(slice, want)
	case ast.CaseUpper:
		return strings.EqualFold(slice, want) && !containsASCIILower(slice)
	case ast.CaseLower:
		return strings.EqualFold(slice, want) && !containsASCIIUpper(slice)
	default:
		return slice == want
	}
}

func containsASCIILower(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'a' && s[i] <= 'z' {
			return true
		}
	}
	return false
}

func containsASCIIUpper(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			return true
		}
	}
	return false
}

func (m *matcher) evalClass(n *grammar.Node, pos int, mode ast.CaseMode) map[int]*cellEntry {
	if pos >= len(m.input) {
		return map[int]*cellEntry{}
	}
	r, size := utf8.DecodeRuneInString(m.input[pos:])
	if !classMatches(n.ClassKind, mode, r) {
		return map[int]*cellEntry{}
	}
	end := pos + size
	return map[int]*cellEntry{end: {pref: zeroPreference(m.g.MaxDepth + 1), deriv: &Derivation{Kind: grammar.NClass, Lo: pos, Hi: end}}}
}

func classMatches(kind ast.ClassKind, mode ast.CaseMode, r rune) bool {
	switch kind {
	case ast.ClassLetter:
		if !isASCIILetter(r) {
			return false
		}
		switch mode {
		case ast.CaseUpper:
			return isASCIIUpperRune(r)
		case ast.CaseLower:
			return isASCIILowerRune(r)
		default:
			return true
		}
	case ast.ClassDigit:
		return r >= '0' && r <= '9'
	case ast.ClassSpace:
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	case ast.ClassNewline:
		return r == '\n'
	case ast.ClassAnyChar:
		switch mode {
		case ast.CaseUpper:
			return !isASCIILowerRune(r)
		case ast.CaseLower:
			return !isASCIIUpperRune(r)
		default:
			return true
		}
	default:
		return false
	}
}

func isASCIILetter(r rune) bool    { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isASCIIUpperRune(r rune) bool { return r >= 'A' && r <= 'Z' }
func isASCIILowerRune(r rune) bool { return r >= 'a' && r <= 'z' }

func (m *matcher) evalLine(pos int, mode ast.CaseMode) map[int]*cellEntry {
	end := pos
	hasUpper, hasLower := false, false
	for end < len(m.input) && m.input[end] != '\n' {
		if isASCIIUpperRune(rune(m.input[end])) {
			hasUpper = true
		} else if isASCIILowerRune(rune(m.input[end])) {
			hasLower = true
		}
		end++
	}
	if mode == ast.CaseUpper && hasLower {
		return map[int]*cellEntry{}
	}
	if mode == ast.CaseLower && hasUpper {
		return map[int]*cellEntry{}
	}
	return map[int]*cellEntry{end: {pref: zeroPreference(m.g.MaxDepth + 1), deriv: &Derivation{Kind: grammar.NLine, Lo: pos, Hi: end}}}
}

func (m *matcher) evalVarRef(n *grammar.Node, pos int, mode ast.CaseMode) map[int]*cellEntry {
	stmt := m.g.Statements[n.VarRef]
	sub := m.eval(stmt.Root, pos, mode)
	out := make(map[int]*cellEntry, len(sub))
	for end, e := range sub {
		if e.ambiguous {
			out[end] = &cellEntry{ambiguous: true, pref: e.pref}
			continue
		}
		out[end] = &cellEntry{pref: e.pref, deriv: &Derivation{Kind: grammar.NVarRef, Lo: pos, Hi: end, StmtIdx: n.VarRef, Child: e.deriv}}
	}
	return out
}

func (m *matcher) evalCaseScope(n *grammar.Node, pos int, mode ast.CaseMode) map[int]*cellEntry {
	sub := m.eval(n.CaseBody, pos, n.CaseMode)
	out := make(map[int]*cellEntry, len(sub))
	for end, e := range sub {
		if e.ambiguous {
			out[end] = &cellEntry{ambiguous: true, pref: e.pref}
			continue
		}
		out[end] = &cellEntry{pref: e.pref, deriv: &Derivation{Kind: grammar.NCaseScope, Lo: pos, Hi: end, Child: e.deriv}}
	}
	return out
}

func (m *matcher) evalSeq(n *grammar.Node, pos int, mode ast.CaseMode) map[int]*cellEntry {
	frontier := map[int]*cellEntry{pos: {pref: zeroPreference(m.g.MaxDepth + 1), deriv: &Derivation{Kind: grammar.NSeq, Lo: pos, Hi: pos}}}
	for _, child := range n.SeqChildren {
		next := map[int]*cellEntry{}
		for curPos, curEntry := range frontier {
			childResults := m.eval(child, curPos, mode)
			for end, childEntry := range childResults {
				composed := composeEntry(curEntry, childEntry, pos, end, grammar.NSeq)
				if existing, ok := next[end]; ok {
					next[end] = mergeEntry(existing, composed)
				} else {
					next[end] = composed
				}
			}
		}
		frontier = next
	}
	return frontier
}

// composeEntry combines a frontier entry with one more child's result,
// appending the child's derivation to Items (unless either side is
// already ambiguous, in which case there is no derivation to build).
func composeEntry(cur, child *cellEntry, lo, hi int, kind grammar.NodeKind) *cellEntry {
	pref := cur.pref.combine(child.pref)
	if cur.ambiguous || child.ambiguous {
		return &cellEntry{ambiguous: true, pref: pref}
	}
	items := make([]*Derivation, len(cur.deriv.Items)+1)
	copy(items, cur.deriv.Items)
	items[len(items)-1] = child.deriv
	return &cellEntry{pref: pref, deriv: &Derivation{Kind: kind, Lo: lo, Hi: hi, Items: items}}
}

// mergeEntry picks between two candidate entries for the same end offset:
// the strictly better-preference side wins outright; a tie produces an
// Ambiguous marker at the shared preference.
func mergeEntry(a, b *cellEntry) *cellEntry {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	switch compare(a.pref, b.pref) {
	case 1:
		return a
	case -1:
		return b
	default:
		return &cellEntry{ambiguous: true, pref: a.pref}
	}
}

func mergeMaps(a, b map[int]*cellEntry) map[int]*cellEntry {
	out := make(map[int]*cellEntry, len(a)+len(b))
	for pos, e := range a {
		out[pos] = e
	}
	for pos, e := range b {
		if existing, ok := out[pos]; ok {
			out[pos] = mergeEntry(existing, e)
		} else {
			out[pos] = e
		}
	}
	return out
}

func (m *matcher) evalRepeat(id grammar.NodeID, n *grammar.Node, pos int, mode ast.CaseMode) map[int]*cellEntry {
	minK := 0
	if !n.RepMin.Unbounded {
		minK = n.RepMin.N
	}
	maxK := len(m.input) - pos
	if !n.RepMax.Unbounded && n.RepMax.N < maxK {
		maxK = n.RepMax.N
	}
	if maxK < 0 {
		maxK = 0
	}

	frontiers := []map[int]*cellEntry{
		{pos: {pref: zeroPreference(m.g.MaxDepth + 1), deriv: &Derivation{Kind: grammar.NRepeat, Lo: pos, Hi: pos}}},
	}
	for k := 0; k < maxK; k++ {
		cur := frontiers[k]
		next := map[int]*cellEntry{}
		progressed := false
		for curPos, curEntry := range cur {
			bodyResults := m.eval(n.RepBody, curPos, mode)
			for end, bodyEntry := range bodyResults {
				if end == curPos {
					// An iteration must consume at least one character;
					// otherwise a zero-width body would loop forever.
					continue
				}
				progressed = true
				composed := composeEntry(curEntry, bodyEntry, pos, end, grammar.NRepeat)
				if existing, ok := next[end]; ok {
					next[end] = mergeEntry(existing, composed)
				} else {
					next[end] = composed
				}
			}
		}
		if !progressed {
			break
		}
		frontiers = append(frontiers, next)
	}

	hiK := maxK
	if hiK > len(frontiers)-1 {
		hiK = len(frontiers) - 1
	}
	final := map[int]*cellEntry{}
	for k := minK; k <= hiK; k++ {
		if k < 0 || k >= len(frontiers) {
			continue
		}
		for end, entry := range frontiers[k] {
			contribution := 0
			switch n.RepPref {
			case ast.Greedy:
				contribution = k
			case ast.Lazy:
				contribution = -k
			}
			adjPref := entry.pref.addAt(n.Depth, contribution)
			var adj *cellEntry
			if entry.ambiguous {
				adj = &cellEntry{ambiguous: true, pref: adjPref}
			} else {
				adj = &cellEntry{pref: adjPref, deriv: entry.deriv}
			}
			if existing, ok := final[end]; ok {
				final[end] = mergeEntry(existing, adj)
			} else {
				final[end] = adj
			}
		}
	}
	return final
}
