// Package ast defines the Pluto AST: the flat Program record, every
// declaration and statement/expression node, source spans, and the
// declaration UUIDs that survive every later pass as the sole link between
// a use-site and its definition.
//
// The node shapes follow the teacher's `node` struct (interp.go) in spirit —
// every node owns its children, carries a span, and (where nameable) a
// stable identifier — but are modelled as concrete Go structs per Pluto
// construct rather than one polymorphic struct, since Pluto's AST (unlike
// an interpreted-on-the-fly Go snippet) is serialised whole to the `.pluto`
// container and benefits from exhaustive `switch` dispatch at every pass.
package ast

import "fmt"

// SyntheticThreshold is the byte-offset floor spec.md §3 assigns to nodes
// produced by desugaring or monomorphisation: diagnostics and coverage
// treat any span at or past this offset as "no location".
const SyntheticThreshold = 10_000_000

// Span is a byte-offset range into the merged source map.
type Span struct {
	Start  int
	End    int
	FileID uint32
}

// Synthetic reports whether this span was produced by desugaring or
// monomorphisation rather than traced back to original source text.
func (s Span) Synthetic() bool { return s.Start >= SyntheticThreshold }

// DummySpan is used for nodes that truly have no corresponding source
// (e.g. the prelude's injected enums, before they are re-spanned against
// their own embedded source).
var DummySpan = Span{}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d@%d", s.Start, s.End, s.FileID)
}

// Spanned pairs a node with its source span, mirroring
// original_source/src/span.rs's Spanned<T>.
type Spanned[T any] struct {
	Node T
	Span Span
}

func NewSpanned[T any](node T, span Span) Spanned[T] {
	return Spanned[T]{Node: node, Span: span}
}
