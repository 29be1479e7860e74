// Package coverage implements the compile-time half of code coverage
// instrumentation (SPEC_FULL §7, supplemented from
// _examples/original_source/src/coverage.rs, which the distilled spec.md
// dropped entirely): scanning the checked AST to assign one coverage point
// per statement/function-entry/branch, mapping points to source line/column,
// and reading back the runtime's binary counter file.
//
// The map is serialised as JSON (matching coverage.rs's own serde_json
// choice for CoverageMap) while the counter file keeps coverage.rs's raw
// little-endian binary layout: an i64 point count followed by one i64
// counter per point, read back here with encoding/binary rather than
// coverage.rs's manual byte-slice arithmetic.
package coverage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mkerian10/pluto/internal/ast"
)

// Kind classifies what construct a CoveragePoint instruments.
type Kind string

const (
	KindStatement      Kind = "statement"
	KindFunctionEntry  Kind = "function_entry"
	KindBranchThen     Kind = "branch_then"
	KindBranchElse     Kind = "branch_else"
	KindMatchArm       Kind = "match_arm"
	KindLoopEntry      Kind = "loop_entry"
	KindNullPropNull   Kind = "null_prop_null"
	KindNullPropValue  Kind = "null_prop_value"
	KindErrorPropError Kind = "error_prop_error"
	KindErrorPropOK    Kind = "error_prop_ok"
)

// IsBranch reports whether k represents a branch point rather than a plain
// statement/function-entry point (coverage.rs's CoverageKind::is_branch).
func (k Kind) IsBranch() bool { return k != KindStatement && k != KindFunctionEntry }

// Point is one instrumented location in the source.
type Point struct {
	ID           uint32 `json:"id"`
	FileID       uint32 `json:"file_id"`
	ByteOffset   int    `json:"byte_offset"`
	Line         uint32 `json:"line"`
	Column       uint32 `json:"column"`
	EndLine      uint32 `json:"end_line"`
	EndColumn    uint32 `json:"end_column"`
	Kind         Kind   `json:"kind"`
	FunctionName string `json:"function_name"`
	BranchIndex  uint32 `json:"branch_index,omitempty"` // match- or select-arm index, 0 otherwise
	BranchID     uint32 `json:"branch_id"`               // discriminator for multiple points at one offset
}

// File records one source file's coverage-relevant metadata.
type File struct {
	ID   uint32 `json:"id"`
	Path string `json:"path"`
}

// Map is the static compile-time coverage map, written alongside the
// compiled program for the runtime counter file to be matched against.
type Map struct {
	Points []Point `json:"points"`
	Files  []File  `json:"files"`
}

func (m *Map) NumPoints() uint32 { return uint32(len(m.Points)) }

// WriteJSON/ReadJSON mirror coverage.rs's CoverageMap::write_json/read_json.
func (m *Map) WriteJSON() ([]byte, error) { return json.MarshalIndent(m, "", "  ") }

func ReadMapJSON(data []byte) (*Map, error) {
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("coverage: decoding map: %w", err)
	}
	return &m, nil
}

// BuildSpanLookup builds the (byte_offset, branch_id) -> point_id table
// codegen would consult to emit a counter-increment instruction at the
// right point (coverage.rs's build_span_lookup).
func (m *Map) BuildSpanLookup() map[[2]uint32]uint32 {
	lookup := make(map[[2]uint32]uint32, len(m.Points))
	for _, p := range m.Points {
		lookup[[2]uint32{uint32(p.ByteOffset), p.BranchID}] = p.ID
	}
	return lookup
}

// Data is the runtime's raw per-point execution counters.
type Data struct {
	Counters []int64
}

// ReadCounters parses the binary layout coverage.rs's CoverageData::
// read_binary defines: an 8-byte little-endian point count followed by
// one 8-byte little-endian counter per point.
func ReadCounters(data []byte) (*Data, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("coverage: counter file too short")
	}
	n := int64(binary.LittleEndian.Uint64(data[:8]))
	if n < 0 {
		return nil, fmt.Errorf("coverage: negative point count")
	}
	want := 8 + int(n)*8
	if len(data) < want {
		return nil, fmt.Errorf("coverage: expected %d bytes, got %d", want, len(data))
	}
	counters := make([]int64, n)
	for i := range counters {
		off := 8 + i*8
		counters[i] = int64(binary.LittleEndian.Uint64(data[off : off+8]))
	}
	return &Data{Counters: counters}, nil
}

// LineIndex converts byte offsets to 1-based (line, column) pairs.
type LineIndex struct {
	lineStarts []int
}

func NewLineIndex(source string) *LineIndex {
	starts := []int{0}
	for i, ch := range source {
		if ch == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{lineStarts: starts}
}

func (li *LineIndex) LineCol(offset int) (line, col uint32) {
	idx := sort.SearchInts(li.lineStarts, offset)
	if idx == len(li.lineStarts) || li.lineStarts[idx] != offset {
		idx--
	}
	if idx < 0 {
		idx = 0
	}
	c := offset - li.lineStarts[idx]
	if c < 0 {
		c = 0
	}
	return uint32(idx + 1), uint32(c + 1)
}

// scanner walks a checked Program assigning one Point per statement,
// function entry, and branch (if/else, match arm, loop entry, `?`/`!`
// propagation sites).
type scanner struct {
	points  []Point
	li      *LineIndex
	fnName  string
	fileID  uint32
	nextID  uint32
}

// Scan builds a Map for prog, whose spans are assumed to be offsets into
// source (the merged per-file source text for fileID).
func Scan(prog *ast.Program, source string, sourcePath string, fileID uint32) *Map {
	s := &scanner{li: NewLineIndex(source), fileID: fileID}

	for _, fn := range prog.Functions {
		s.scanFunction(fn.Node)
	}
	for _, c := range prog.Classes {
		for _, m := range c.Node.Methods {
			s.scanFunction(m.Node)
		}
	}
	if prog.App != nil {
		for _, m := range prog.App.Node.Methods {
			s.scanFunction(m.Node)
		}
	}
	for _, st := range prog.Stages {
		for _, m := range st.Node.Methods {
			s.scanFunction(m.Node)
		}
	}

	return &Map{
		Points: s.points,
		Files:  []File{{ID: fileID, Path: sourcePath}},
	}
}

func (s *scanner) add(span ast.Span, kind Kind, branchIdx, branchID uint32) {
	line, col := s.li.LineCol(span.Start)
	endLine, endCol := s.li.LineCol(span.End)
	s.nextID++
	s.points = append(s.points, Point{
		ID: s.nextID, FileID: s.fileID, ByteOffset: span.Start,
		Line: line, Column: col, EndLine: endLine, EndColumn: endCol,
		Kind: kind, FunctionName: s.fnName, BranchIndex: branchIdx, BranchID: branchID,
	})
}

func (s *scanner) scanFunction(fn *ast.Function) {
	prevName := s.fnName
	s.fnName = fn.Name.Node
	defer func() { s.fnName = prevName }()

	if len(fn.Body) > 0 {
		s.add(fn.Body[0].Span, KindFunctionEntry, 0, 0)
	}
	s.scanStmts(fn.Body)
}

func (s *scanner) scanStmts(stmts []ast.Spanned[ast.Stmt]) {
	for _, st := range stmts {
		s.add(st.Span, KindStatement, 0, 0)
		s.scanStmt(st.Node, st.Span)
	}
}

func (s *scanner) scanStmt(stmt ast.Stmt, span ast.Span) {
	switch n := stmt.(type) {
	case ast.IfStmt:
		s.add(span, KindBranchThen, 0, 1)
		s.scanStmts(n.Then)
		s.add(span, KindBranchElse, 0, 2)
		s.scanStmts(n.Else)
	case ast.WhileStmt:
		s.add(span, KindLoopEntry, 0, 1)
		s.scanStmts(n.Body)
	case ast.ForStmt:
		s.add(span, KindLoopEntry, 0, 1)
		s.scanStmts(n.Body)
	case ast.MatchStmt:
		for i, arm := range n.Arms {
			s.add(span, KindMatchArm, uint32(i), uint32(i+1))
			s.scanStmts(arm.Body)
		}
	case ast.BlockStmt:
		s.scanStmts(n.Body)
	case ast.ScopeStmt:
		s.scanStmts(n.Body)
	case ast.SelectStmt:
		for i, arm := range n.Arms {
			s.add(span, KindBranchThen, uint32(i), uint32(i+1))
			s.scanStmts(arm.Body)
		}
		s.scanStmts(n.Default)
	case ast.ExprStmt:
		s.scanExprBranches(n.Expr, span)
	}
}

// scanExprBranches adds the null/error-propagation branch pairs
// coverage.rs tracks for `expr?` and `expr!` sites; it does not recurse
// into every nested expression (statement-level granularity is what
// coverage.rs's own scanner targets too).
func (s *scanner) scanExprBranches(e ast.Expr, span ast.Span) {
	switch n := e.(type) {
	case ast.NullablePropagate:
		s.add(span, KindNullPropNull, 0, 1)
		s.add(span, KindNullPropValue, 0, 2)
		s.scanExprBranches(n.Operand, span)
	case ast.ErrorPropagate:
		s.add(span, KindErrorPropError, 0, 1)
		s.add(span, KindErrorPropOK, 0, 2)
		s.scanExprBranches(n.Operand, span)
	}
}
