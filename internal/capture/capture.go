// Package capture implements the Capture Projector: it walks a matched
// Derivation and builds the output JSON document described by each
// statement's capture annotation.
//
// Structured as a direct recursive walk of the Derivation tree rather
// than a replay over a flattened event list — the Derivation already has
// all the structure a replay would reconstruct, and a pre-order walk gets
// capture emission ordered by input offset for free. See DESIGN.md for
// the rationale.
package capture

import (
	"fmt"

	"github.com/strqllang/strql/internal/ast"
	"github.com/strqllang/strql/internal/grammar"
	"github.com/strqllang/strql/internal/matcher"
)

// ConflictError means writing a capture would either overwrite an
// already-set scalar field or change the type found at a path (object vs
// array vs scalar).
type ConflictError struct {
	Path     string
	Existing string
	Incoming string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("capture conflict at %q: existing %s, incoming %s", e.Path, e.Existing, e.Incoming)
}

// Project walks d (the derivation of g's TEXT statement) and returns the
// JSON document built from every capture annotation that fires.
func Project(g *grammar.Grammar, d *matcher.Derivation, input string) (map[string]any, error) {
	doc := map[string]any{}
	// TEXT's own capture, if any, never fires from d directly since d is
	// TEXT's *body* derivation, not a statement-invocation node — wrap it
	// in a synthetic invocation of TEXT so the same code path covers it.
	top := &matcher.Derivation{Kind: grammar.NVarRef, Lo: 0, Hi: len(input), StmtIdx: g.TextIndex(), Child: d}
	if err := walk(g, top, input, doc, map[string]map[string]any{}); err != nil {
		return nil, err
	}
	return doc, nil
}

func walk(g *grammar.Grammar, d *matcher.Derivation, input string, doc map[string]any, aliases map[string]map[string]any) error {
	switch d.Kind {
	case grammar.NVarRef:
		return fireStatement(g, d, input, doc, aliases)
	case grammar.NSeq, grammar.NRepeat:
		for _, item := range d.Items {
			if err := walk(g, item, input, doc, aliases); err != nil {
				return err
			}
		}
		return nil
	case grammar.NCaseScope:
		return walk(g, d.Child, input, doc, aliases)
	default: // NLiteral, NClass, NLine: leaves, nothing to do
		return nil
	}
}

func fireStatement(g *grammar.Grammar, d *matcher.Derivation, input string, doc map[string]any, aliases map[string]map[string]any) error {
	stmt := g.Statements[d.StmtIdx]
	childAliases := aliases
	if stmt.Capture != nil {
		value, newAlias, err := resolveValue(g, stmt.Capture.Source, d, input)
		if err != nil {
			return err
		}
		if newAlias != "" {
			cloned := make(map[string]map[string]any, len(aliases)+1)
			for k, v := range aliases {
				cloned[k] = v
			}
			cloned[newAlias] = value.(map[string]any)
			childAliases = cloned
		}
		if err := writePath(g, doc, aliases, stmt.Capture.Path, value, d, input); err != nil {
			return err
		}
	}
	if d.Child == nil {
		return nil
	}
	return walk(g, d.Child, input, doc, childAliases)
}

// resolveValue determines the capture's value. For Object(name) it returns
// the fresh object (also to be installed as an alias) and the alias name;
// otherwise the alias name returned is empty.
func resolveValue(g *grammar.Grammar, src ast.CaptureSource, d *matcher.Derivation, input string) (any, string, error) {
	switch src.Kind {
	case ast.SourceDefault:
		return input[d.Lo:d.Hi], "", nil
	case ast.SourceVar:
		text, _ := findVar(d, g, src.Name, input)
		return text, "", nil
	case ast.SourceObject:
		return map[string]any{}, src.Name, nil
	default:
		return nil, "", fmt.Errorf("capture: unhandled source kind %d", src.Kind)
	}
}

// findVar searches d's subtree, d itself included, in pre-order (which
// coincides with input offset order), for the rightmost invocation of the
// statement named name,
// returning its matched text. Statement invocations nested arbitrarily
// deep are found; a statement never invoked within this subtree (e.g.
// behind an untaken Alt branch, or a zero-iteration Repeat) yields "", false
// — resolveValue treats that as an empty contribution rather than an error,
// since it simply means this particular derivation never bound the name.
func findVar(d *matcher.Derivation, g *grammar.Grammar, name string, input string) (string, bool) {
	if d == nil {
		return "", false
	}
	var found string
	var ok bool
	var visit func(n *matcher.Derivation)
	visit = func(n *matcher.Derivation) {
		if n == nil {
			return
		}
		switch n.Kind {
		case grammar.NVarRef:
			if g.Statements[n.StmtIdx].Name == name {
				found = input[n.Lo:n.Hi]
				ok = true
			}
			visit(n.Child)
		case grammar.NSeq, grammar.NRepeat:
			for _, item := range n.Items {
				visit(item)
			}
		case grammar.NCaseScope:
			visit(n.Child)
		}
	}
	visit(d)
	return found, ok
}

// writePath resolves path against doc/aliases and writes value: Field
// creates-or-fails, Array creates-or-appends, NamedKey creates-an-object-
// then-assigns-a-dynamic-key. The variable named by a NamedKey segment,
// whose text is the dynamic key, is searched for the same way a Var(name)
// capture value is.
func writePath(g *grammar.Grammar, doc map[string]any, aliases map[string]map[string]any, path []ast.Segment, value any, d *matcher.Derivation, input string) error {
	base := rootAliasOrDoc(doc, aliases, path)
	start := 0
	if path[0].Kind == ast.SegRoot {
		start = 1
	} else if _, isAlias := aliases[path[0].Name]; isAlias {
		start = 1
	}

	for i := start; i < len(path)-1; i++ {
		seg := path[i]
		next, exists := base[seg.Name]
		if !exists {
			m := map[string]any{}
			base[seg.Name] = m
			base = m
			continue
		}
		m, isMap := next.(map[string]any)
		if !isMap {
			return &ConflictError{Path: seg.Name, Existing: describe(next), Incoming: "object"}
		}
		base = m
	}

	last := path[len(path)-1]
	switch last.Kind {
	case ast.SegRoot, ast.SegField:
		if existing, exists := base[last.Name]; exists {
			return &ConflictError{Path: last.Name, Existing: describe(existing), Incoming: describe(value)}
		}
		base[last.Name] = value
		return nil
	case ast.SegArray:
		existing, exists := base[last.Name]
		if !exists {
			base[last.Name] = []any{value}
			return nil
		}
		arr, isArr := existing.([]any)
		if !isArr {
			return &ConflictError{Path: last.Name, Existing: describe(existing), Incoming: "array element"}
		}
		base[last.Name] = append(arr, value)
		return nil
	case ast.SegNamedKey:
		existing, exists := base[last.Name]
		var obj map[string]any
		if !exists {
			obj = map[string]any{}
			base[last.Name] = obj
		} else {
			m, isMap := existing.(map[string]any)
			if !isMap {
				return &ConflictError{Path: last.Name, Existing: describe(existing), Incoming: "object"}
			}
			obj = m
		}
		key, _ := findVar(d, g, last.VarRef, input)
		if _, exists := obj[key]; exists {
			return &ConflictError{Path: last.Name + "[" + key + "]", Existing: describe(obj[key]), Incoming: describe(value)}
		}
		obj[key] = value
		return nil
	default:
		return fmt.Errorf("capture: unhandled path segment kind %d", last.Kind)
	}
}

func rootAliasOrDoc(doc map[string]any, aliases map[string]map[string]any, path []ast.Segment) map[string]any {
	if path[0].Kind != ast.SegRoot {
		if obj, ok := aliases[path[0].Name]; ok {
			return obj
		}
	}
	return doc
}

func describe(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return "scalar"
	}
}
