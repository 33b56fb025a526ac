package matcher

import "github.com/strqllang/strql/internal/grammar"

// Derivation is a node of the chosen match tree, shaped like the grammar:
// each node records the slice of input it consumed. Internal
// structure mirrors grammar.Node's Kind-specific fields rather than a
// separate hierarchy of Go types, since the projector only ever needs to
// distinguish statement invocations (Kind == grammar.NVarRef) from
// everything else.
type Derivation struct {
	Kind grammar.NodeKind
	Lo   int
	Hi   int

	StmtIdx int // valid when Kind == NVarRef: the invoked statement

	Child *Derivation   // valid for NVarRef, NCaseScope, and the chosen NAlt branch
	Items []*Derivation // valid for NSeq (each child) and NRepeat (each iteration, in order)
}
