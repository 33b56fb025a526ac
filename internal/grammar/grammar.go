// Package grammar resolves an ast.Program into an immutable Grammar: a
// flattened node table with string VarRefs replaced by statement indices,
// plus the preference-vector depth assignment the matcher needs (assigned
// by a depth-first pre-order walk from TEXT).
package grammar

import (
	"fmt"
	"strings"

	"github.com/strqllang/strql/internal/ast"
	"github.com/strqllang/strql/internal/parser"
)

// NodeID indexes into Grammar.Nodes.
type NodeID int

// NodeKind mirrors ast.Expr's variants, but with VarRef resolved to a
// statement index instead of a name.
type NodeKind int

const (
	NLiteral NodeKind = iota
	NVarRef
	NAlt
	NSeq
	NRepeat
	NClass
	NLine
	NCaseScope
)

// Node is one entry of the flattened grammar graph. Only the fields
// relevant to Kind are meaningful; see the eval switch in internal/matcher
// for which fields each kind reads.
type Node struct {
	Kind NodeKind

	Literal string // NLiteral

	VarRef int // NVarRef: target statement index

	AltLeft, AltRight NodeID // NAlt

	SeqChildren []NodeID // NSeq

	RepMin, RepMax ast.Bound // NRepeat
	RepBody        NodeID
	RepPref        ast.Bias
	Depth          int // NRepeat: this quantifier's preference-vector slot; 0 if unreachable from TEXT

	ClassKind ast.ClassKind // NClass

	CaseMode ast.CaseMode // NCaseScope
	CaseBody NodeID
}

// Statement is a resolved top-level production.
type Statement struct {
	Name    string
	Root    NodeID
	Capture *ast.Capture
}

// Grammar is the immutable, resolved form of a parsed program.
type Grammar struct {
	Nodes      []Node
	Statements []Statement
	byName     map[string]int
	textIdx    int
	MaxDepth   int
}

// StatementIndex looks up a statement by name.
func (g *Grammar) StatementIndex(name string) (int, bool) {
	i, ok := g.byName[name]
	return i, ok
}

// TextIndex returns the index of the required TEXT statement.
func (g *Grammar) TextIndex() int { return g.textIdx }

// Resolve builds a Grammar from a parsed program, enforcing referential
// integrity (every VarRef, Var(name) capture source, and dynamic key names a
// known statement; an Object(name) source introduces an alias and names no
// statement) and rejecting productive cycles.
func Resolve(prog *ast.Program) (*Grammar, error) {
	g := &Grammar{byName: map[string]int{}, textIdx: -1}
	for i, s := range prog.Statements {
		if _, dup := g.byName[s.Name]; dup {
			return nil, &parser.Error{Line: s.Line, Col: s.Col, Kind: parser.DuplicateStatement, Msg: fmt.Sprintf("statement %q already defined", s.Name)}
		}
		g.byName[s.Name] = i
		// The entry point's name is recognized case-insensitively, mirroring
		// the reference lexer's ignore(case) keyword tokens; everything else
		// a statement name can be compared against (byName, VarRefs, capture
		// paths) stays exact-case. The first statement spelled any way that
		// folds to TEXT wins the slot.
		if g.textIdx < 0 && strings.EqualFold(s.Name, "TEXT") {
			g.textIdx = i
		}
		g.Statements = append(g.Statements, Statement{Name: s.Name, Capture: s.Capture})
	}
	if g.textIdx < 0 {
		return nil, &parser.Error{Kind: parser.MissingText, Msg: "no TEXT statement defined"}
	}

	for i, s := range prog.Statements {
		root, err := g.flatten(s.Body)
		if err != nil {
			return nil, err
		}
		g.Statements[i].Root = root
		if s.Capture != nil && s.Capture.Source.Kind == ast.SourceVar {
			if _, ok := g.byName[s.Capture.Source.Name]; !ok {
				return nil, &parser.Error{Line: s.Line, Col: s.Col, Kind: parser.UnknownVariable, Msg: fmt.Sprintf("capture references unknown variable %q", s.Capture.Source.Name)}
			}
		}
		if s.Capture != nil {
			for _, seg := range s.Capture.Path {
				if seg.Kind == ast.SegNamedKey {
					if _, ok := g.byName[seg.VarRef]; !ok {
						return nil, &parser.Error{Line: s.Line, Col: s.Col, Kind: parser.UnknownVariable, Msg: fmt.Sprintf("capture path references unknown variable %q", seg.VarRef)}
					}
				}
			}
		}
	}

	g.computeDepths()

	if err := g.checkCycles(); err != nil {
		return nil, err
	}

	return g, nil
}

func (g *Grammar) add(n Node) NodeID {
	g.Nodes = append(g.Nodes, n)
	return NodeID(len(g.Nodes) - 1)
}

func (g *Grammar) flatten(e ast.Expr) (NodeID, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return g.add(Node{Kind: NLiteral, Literal: n.Text}), nil
	case *ast.VarRef:
		idx, ok := g.byName[n.Name]
		if !ok {
			return 0, &parser.Error{Line: n.Line, Col: n.Col, Kind: parser.UnknownVariable, Msg: fmt.Sprintf("unknown variable %q", n.Name)}
		}
		return g.add(Node{Kind: NVarRef, VarRef: idx}), nil
	case *ast.Alt:
		left, err := g.flatten(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := g.flatten(n.Right)
		if err != nil {
			return 0, err
		}
		return g.add(Node{Kind: NAlt, AltLeft: left, AltRight: right}), nil
	case *ast.Seq:
		ids := make([]NodeID, 0, len(n.Children))
		for _, c := range n.Children {
			id, err := g.flatten(c)
			if err != nil {
				return 0, err
			}
			ids = append(ids, id)
		}
		return g.add(Node{Kind: NSeq, SeqChildren: ids}), nil
	case *ast.Repeat:
		body, err := g.flatten(n.Body)
		if err != nil {
			return 0, err
		}
		return g.add(Node{Kind: NRepeat, RepMin: n.Min, RepMax: n.Max, RepBody: body, RepPref: n.Pref}), nil
	case *ast.Class:
		return g.add(Node{Kind: NClass, ClassKind: n.Kind}), nil
	case *ast.Line:
		return g.add(Node{Kind: NLine}), nil
	case *ast.CaseScope:
		body, err := g.flatten(n.Body)
		if err != nil {
			return 0, err
		}
		return g.add(Node{Kind: NCaseScope, CaseMode: n.Mode, CaseBody: body}), nil
	default:
		return 0, fmt.Errorf("grammar: unhandled expression type %T", e)
	}
}

// computeDepths assigns each NRepeat node reachable from TEXT a distinct
// preference-vector slot, by its position in a depth-first pre-order walk
// from TEXT's root: a node's children are numbered before its siblings,
// and a VarRef is resolved transparently into the referenced statement's
// body as part of the same walk, so a quantifier reached only through
// several layers of VarRef indirection is still numbered before a
// shallower quantifier that sits later in the walk. Unreachable repeats
// keep Depth 0, which also never breaks a tie since nothing ever writes a
// nonzero contribution to slot 0 reserved for them. The visited set also
// guards against infinite recursion through a self-referential statement;
// checkCycles rejects the ones that would never consume input.
func (g *Grammar) computeDepths() {
	visited := make([]bool, len(g.Nodes))
	next := 1
	var visit func(id NodeID)
	visit = func(id NodeID) {
		if visited[id] {
			return
		}
		visited[id] = true
		n := &g.Nodes[id]
		switch n.Kind {
		case NVarRef:
			visit(g.Statements[n.VarRef].Root)
		case NAlt:
			visit(n.AltLeft)
			visit(n.AltRight)
		case NSeq:
			for _, c := range n.SeqChildren {
				visit(c)
			}
		case NRepeat:
			n.Depth = next
			next++
			visit(n.RepBody)
		case NCaseScope:
			visit(n.CaseBody)
		}
	}
	visit(g.Statements[g.textIdx].Root)
	g.MaxDepth = next - 1
}

// mayMatchEmpty computes, for node id, whether it can match a zero-width
// slice of input. Used only by checkCycles.
func (g *Grammar) mayMatchEmpty(id NodeID, memo map[NodeID]bool, onStack map[NodeID]bool) bool {
	if v, ok := memo[id]; ok {
		return v
	}
	if onStack[id] {
		// Already computing; treat as false to break the recursion — a
		// self-referential MME computation is itself evidence of a
		// productive cycle, which checkCycles reports separately.
		return false
	}
	onStack[id] = true
	defer delete(onStack, id)
	n := &g.Nodes[id]
	var result bool
	switch n.Kind {
	case NLiteral, NClass:
		result = false
	case NLine:
		result = true
	case NVarRef:
		result = g.mayMatchEmpty(g.Statements[n.VarRef].Root, memo, onStack)
	case NAlt:
		result = g.mayMatchEmpty(n.AltLeft, memo, onStack) || g.mayMatchEmpty(n.AltRight, memo, onStack)
	case NSeq:
		result = true
		for _, c := range n.SeqChildren {
			if !g.mayMatchEmpty(c, memo, onStack) {
				result = false
				break
			}
		}
	case NRepeat:
		result = n.RepMin.Unbounded || n.RepMin.N == 0
	case NCaseScope:
		result = g.mayMatchEmpty(n.CaseBody, memo, onStack)
	}
	memo[id] = result
	return result
}

// checkCycles rejects any statement whose matching, at some offset, can
// depend on matching itself again at the very same offset without having
// consumed any input.
func (g *Grammar) checkCycles() error {
	mme := map[NodeID]bool{}
	for i := range g.Statements {
		g.mayMatchEmpty(g.Statements[i].Root, mme, map[NodeID]bool{})
	}

	for i, s := range g.Statements {
		visited := map[NodeID]bool{}
		if g.reachesSelfWithoutConsuming(s.Root, i, mme, visited) {
			return &parser.Error{Kind: parser.ProductiveCycle, Msg: fmt.Sprintf("statement %q is reachable from itself without consuming input", s.Name)}
		}
	}
	return nil
}

func (g *Grammar) reachesSelfWithoutConsuming(id NodeID, target int, mme map[NodeID]bool, visited map[NodeID]bool) bool {
	if visited[id] {
		return false
	}
	visited[id] = true
	n := &g.Nodes[id]
	switch n.Kind {
	case NLiteral, NClass, NLine:
		return false
	case NVarRef:
		if n.VarRef == target {
			return true
		}
		return g.reachesSelfWithoutConsuming(g.Statements[n.VarRef].Root, target, mme, visited)
	case NAlt:
		return g.reachesSelfWithoutConsuming(n.AltLeft, target, mme, visited) ||
			g.reachesSelfWithoutConsuming(n.AltRight, target, mme, visited)
	case NSeq:
		for _, c := range n.SeqChildren {
			if g.reachesSelfWithoutConsuming(c, target, mme, visited) {
				return true
			}
			if !mme[c] {
				break
			}
		}
		return false
	case NRepeat:
		// Evaluating a repeat always attempts its body once at the same
		// offset (to test k=1), regardless of min.
		return g.reachesSelfWithoutConsuming(n.RepBody, target, mme, visited)
	case NCaseScope:
		return g.reachesSelfWithoutConsuming(n.CaseBody, target, mme, visited)
	}
	return false
}
